package adminserver_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sellerkit/resilience/internal/adminserver"
	"github.com/sellerkit/resilience/internal/circuitbreaker"
	"github.com/sellerkit/resilience/internal/metrics"
)

var _ = Describe("AdminServer", func() {
	var (
		registry  *circuitbreaker.Registry
		collector *metrics.Collector
	)

	BeforeEach(func() {
		registry = circuitbreaker.NewRegistry()
		log := slog.New(slog.NewTextHandler(io.Discard, nil))
		collector = metrics.NewCollector(64, log)
	})

	Describe("New", func() {
		It("creates a server with a valid address", func() {
			srv, err := adminserver.New("localhost:9990", registry, collector)
			Expect(err).NotTo(HaveOccurred())
			Expect(srv).NotTo(BeNil())
		})

		It("handles port-only addresses", func() {
			srv, err := adminserver.New(":9990", registry, collector)
			Expect(err).NotTo(HaveOccurred())
			Expect(srv).NotTo(BeNil())
		})

		It("rejects an invalid address", func() {
			srv, err := adminserver.New("invalid:host:port", registry, collector)
			Expect(err).To(HaveOccurred())
			Expect(srv).To(BeNil())
		})
	})

	Describe("HealthHandler", func() {
		It("reports healthy while every breaker is closed", func() {
			registry.GetOrCreate("supabase", circuitbreaker.DatabaseConfig())
			registry.GetOrCreate("amazon-api", circuitbreaker.AmazonConfig())

			rec := httptest.NewRecorder()
			adminserver.HealthHandler(registry)(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			Expect(rec.Code).To(Equal(http.StatusOK))

			var body struct {
				Status   string            `json:"status"`
				Breakers map[string]string `json:"breakers"`
			}
			Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
			Expect(body.Status).To(Equal("healthy"))
			Expect(body.Breakers).To(HaveKeyWithValue("supabase", "CLOSED"))
		})

		It("reports 503 as soon as any breaker is degraded", func() {
			registry.GetOrCreate("supabase", circuitbreaker.DatabaseConfig())
			cb := registry.GetOrCreate("amazon-api", circuitbreaker.AmazonConfig())
			cb.ForceState(circuitbreaker.StateOpen)

			rec := httptest.NewRecorder()
			adminserver.HealthHandler(registry)(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			Expect(rec.Code).To(Equal(http.StatusServiceUnavailable))
			Expect(rec.Body.String()).To(ContainSubstring(`"status":"degraded"`))
			Expect(rec.Body.String()).To(ContainSubstring(`"amazon-api":"OPEN"`))
		})
	})

	Describe("Start and Shutdown", func() {
		It("serves until shut down cleanly", func() {
			srv, err := adminserver.New("127.0.0.1:0", registry, collector)
			Expect(err).NotTo(HaveOccurred())

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Start()
			}()

			Expect(srv.Shutdown(context.Background())).To(Succeed())
			Eventually(errCh).Should(Receive(BeNil()))
		})
	})
})
