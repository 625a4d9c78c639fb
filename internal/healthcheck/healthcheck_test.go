package healthcheck_test

import (
	"context"
	"log/slog"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/gbytes"

	"github.com/sellerkit/resilience/internal/circuitbreaker"
	"github.com/sellerkit/resilience/internal/healthcheck"
)

var _ = Describe("Watch", func() {
	var (
		ctx      context.Context
		cancel   context.CancelFunc
		registry *circuitbreaker.Registry
		out      *gbytes.Buffer
		logger   *slog.Logger
	)

	BeforeEach(func() {
		ctx, cancel = context.WithCancel(context.Background())
		registry = circuitbreaker.NewRegistry()
		out = gbytes.NewBuffer()
		logger = slog.New(slog.NewTextHandler(out, nil))
	})

	AfterEach(func() {
		cancel()
	})

	It("should log a breaker that leaves the closed state", func() {
		cb := registry.GetOrCreate("amazon-api", circuitbreaker.AmazonConfig())
		cb.ForceState(circuitbreaker.StateOpen)

		go healthcheck.Watch(ctx, registry, 10*time.Millisecond, logger)

		Eventually(out).Should(gbytes.Say("Dependency is degraded"))
		Eventually(out).Should(gbytes.Say("amazon-api"))
	})

	It("should log recovery exactly once per change", func() {
		cb := registry.GetOrCreate("supabase", circuitbreaker.DatabaseConfig())
		cb.ForceState(circuitbreaker.StateOpen)

		go healthcheck.Watch(ctx, registry, 10*time.Millisecond, logger)
		Eventually(out).Should(gbytes.Say("Dependency is degraded"))

		cb.ForceState(circuitbreaker.StateClosed)
		Eventually(out).Should(gbytes.Say("Dependency is back up"))
	})

	It("should stay quiet for healthy breakers", func() {
		registry.GetOrCreate("email", circuitbreaker.EmailConfig())

		go healthcheck.Watch(ctx, registry, 10*time.Millisecond, logger)

		Consistently(out, 100*time.Millisecond).ShouldNot(gbytes.Say("Dependency"))
	})
})
