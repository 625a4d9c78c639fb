package circuitbreaker_test

import (
	"context"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sellerkit/resilience/internal/circuitbreaker"
)

var _ = Describe("Registry", func() {
	var registry *circuitbreaker.Registry

	BeforeEach(func() {
		registry = circuitbreaker.NewRegistry()
	})

	Describe("GetOrCreate", func() {
		It("should create a new breaker for an unknown name", func() {
			cb := registry.GetOrCreate("supabase", circuitbreaker.DatabaseConfig())
			Expect(cb).NotTo(BeNil())
			Expect(cb.Name()).To(Equal("supabase"))
			Expect(cb.State()).To(Equal(circuitbreaker.StateClosed))
		})

		It("should return the same breaker for the same name", func() {
			cb1 := registry.GetOrCreate("supabase", circuitbreaker.DatabaseConfig())
			cb2 := registry.GetOrCreate("supabase", circuitbreaker.DatabaseConfig())
			Expect(cb1).To(BeIdenticalTo(cb2))
		})

		It("should return different breakers for different names", func() {
			cb1 := registry.GetOrCreate("supabase", circuitbreaker.DatabaseConfig())
			cb2 := registry.GetOrCreate("amazon-api", circuitbreaker.AmazonConfig())
			Expect(cb1).NotTo(BeIdenticalTo(cb2))
		})

		It("should keep the first registration's config", func() {
			first := circuitbreaker.Config{
				FailureThreshold: 2,
				RecoveryTimeout:  time.Minute,
				Timeout:          time.Second,
			}
			second := circuitbreaker.Config{
				FailureThreshold: 50,
				RecoveryTimeout:  time.Minute,
				Timeout:          time.Second,
			}

			cb1 := registry.GetOrCreate("svc", first)
			cb2 := registry.GetOrCreate("svc", second)
			Expect(cb1).To(BeIdenticalTo(cb2))

			// Opens after two failures: the first config won.
			ctx := context.Background()
			cb2.Execute(ctx, failing(errBoom))
			cb2.Execute(ctx, failing(errBoom))
			Expect(cb2.State()).To(Equal(circuitbreaker.StateOpen))
		})

		It("should create exactly one breaker under concurrent lookups", func() {
			var wg sync.WaitGroup
			results := make([]*circuitbreaker.CircuitBreaker, 16)

			for i := range results {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					results[i] = registry.GetOrCreate("svc", circuitbreaker.APIConfig())
				}(i)
			}
			wg.Wait()

			for _, cb := range results {
				Expect(cb).To(BeIdenticalTo(results[0]))
			}
		})
	})

	Describe("Get", func() {
		It("should return nil for an unknown name", func() {
			Expect(registry.Get("missing")).To(BeNil())
		})

		It("should return the registered breaker", func() {
			cb := registry.GetOrCreate("svc", circuitbreaker.DefaultConfig())
			Expect(registry.Get("svc")).To(BeIdenticalTo(cb))
		})
	})

	Describe("GetAll", func() {
		It("should return every registered breaker keyed by name", func() {
			registry.GetOrCreate("supabase", circuitbreaker.DatabaseConfig())
			registry.GetOrCreate("amazon-api", circuitbreaker.AmazonConfig())

			all := registry.GetAll()
			Expect(all).To(HaveLen(2))
			Expect(all).To(HaveKey("supabase"))
			Expect(all).To(HaveKey("amazon-api"))
		})
	})

	Describe("AllStats", func() {
		It("should snapshot every breaker", func() {
			registry.GetOrCreate("supabase", circuitbreaker.DatabaseConfig())
			cb := registry.GetOrCreate("amazon-api", circuitbreaker.Config{
				FailureThreshold: 1,
				RecoveryTimeout:  time.Minute,
				Timeout:          time.Second,
			})
			cb.Execute(context.Background(), failing(errBoom))

			stats := registry.AllStats()
			Expect(stats).To(HaveLen(2))
			Expect(stats["supabase"].State).To(Equal(circuitbreaker.StateClosed))
			Expect(stats["amazon-api"].State).To(Equal(circuitbreaker.StateOpen))
			Expect(stats["amazon-api"].TotalFailures).To(Equal(int64(1)))
		})
	})

	Describe("Remove", func() {
		It("should report whether a breaker existed", func() {
			registry.GetOrCreate("svc", circuitbreaker.DefaultConfig())
			Expect(registry.Remove("svc")).To(BeTrue())
			Expect(registry.Remove("svc")).To(BeFalse())
			Expect(registry.Get("svc")).To(BeNil())
		})
	})

	Describe("Clear", func() {
		It("should drop every breaker", func() {
			registry.GetOrCreate("a", circuitbreaker.DefaultConfig())
			registry.GetOrCreate("b", circuitbreaker.DefaultConfig())
			registry.Clear()
			Expect(registry.GetAll()).To(BeEmpty())
		})
	})
})
