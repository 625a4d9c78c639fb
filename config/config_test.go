package config_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sellerkit/resilience/config"
	"github.com/sellerkit/resilience/internal/circuitbreaker"
)

var _ = Describe("Config", func() {
	var (
		tempDir string
		origDir string
	)

	BeforeEach(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "config-test-*")
		Expect(err).NotTo(HaveOccurred())

		origDir, err = os.Getwd()
		Expect(err).NotTo(HaveOccurred())
		Expect(os.Chdir(tempDir)).To(Succeed())
	})

	AfterEach(func() {
		os.Chdir(origDir)
		os.RemoveAll(tempDir)
	})

	writeConfig := func(content string) {
		configPath := filepath.Join(tempDir, "config.yaml")
		Expect(os.WriteFile(configPath, []byte(content), 0644)).To(Succeed())
	}

	Describe("Load", func() {
		Context("with valid config file", func() {
			BeforeEach(func() {
				writeConfig(`
environment: "dev"

logging:
  level: "debug"

health:
  interval: "10s"

services:
  - name: "supabase"
    preset: "database"
  - name: "amazon-api"
    preset: "amazon"
    failure_threshold: 5
    recovery_timeout: "2m"
`)
			})

			It("should load configuration successfully", func() {
				cfg, err := config.Load()
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg).NotTo(BeNil())
				Expect(cfg.Logging.Level).To(Equal("debug"))
				Expect(cfg.Services).To(HaveLen(2))
			})

			It("should parse the health watch interval", func() {
				cfg, _ := config.Load()
				Expect(cfg.Health.Interval).To(Equal("10s"))
				Expect(cfg.HealthInterval()).To(Equal(10 * time.Second))
			})

			It("should resolve presets with overrides applied", func() {
				cfg, _ := config.Load()

				db := cfg.Services[0].BreakerConfig()
				Expect(db.Name).To(Equal("supabase"))
				Expect(db.FailureThreshold).To(Equal(5))
				Expect(db.RecoveryTimeout).To(Equal(30 * time.Second))
				Expect(db.ShouldSkip).NotTo(BeNil())

				amz := cfg.Services[1].BreakerConfig()
				Expect(amz.Name).To(Equal("amazon-api"))
				Expect(amz.FailureThreshold).To(Equal(5))
				Expect(amz.RecoveryTimeout).To(Equal(2 * time.Minute))
				Expect(amz.SuccessThreshold).To(Equal(circuitbreaker.AmazonConfig().SuccessThreshold))
			})
		})

		Context("without a config file", func() {
			It("should use defaults", func() {
				cfg, err := config.Load()
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg.Environment).To(Equal(config.EnvDev))
				Expect(cfg.Logging.Level).To(Equal(config.LogLevelInfo))
				Expect(cfg.Admin.Address).To(Equal(":9990"))
				Expect(cfg.HealthInterval()).To(Equal(30 * time.Second))
				Expect(cfg.Services).To(BeEmpty())
			})
		})

		Context("with invalid configuration", func() {
			It("should reject an unknown environment", func() {
				writeConfig(`
environment: "production"
`)
				_, err := config.Load()
				Expect(err).To(HaveOccurred())
			})

			It("should reject a malformed admin address", func() {
				writeConfig(`
environment: "dev"
admin:
  address: "no-port"
`)
				_, err := config.Load()
				Expect(err).To(HaveOccurred())
			})

			It("should reject an unknown preset", func() {
				writeConfig(`
environment: "dev"
services:
  - name: "warehouse"
    preset: "warehouse"
`)
				_, err := config.Load()
				Expect(err).To(HaveOccurred())
			})

			It("should reject a service without a name", func() {
				writeConfig(`
environment: "dev"
services:
  - preset: "api"
`)
				_, err := config.Load()
				Expect(err).To(HaveOccurred())
			})

			It("should reject an unparseable override duration", func() {
				writeConfig(`
environment: "dev"
services:
  - name: "email"
    preset: "email"
    timeout: "fast"
`)
				_, err := config.Load()
				Expect(err).To(HaveOccurred())
			})
		})
	})
})
