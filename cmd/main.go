package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/sethvargo/go-envconfig"
	_ "go.uber.org/automaxprocs"

	"github.com/sellerkit/resilience/config"
	"github.com/sellerkit/resilience/internal/adminserver"
	"github.com/sellerkit/resilience/internal/circuitbreaker"
	"github.com/sellerkit/resilience/internal/healthcheck"
	"github.com/sellerkit/resilience/internal/metrics"
	"github.com/sellerkit/resilience/internal/protected"
	"github.com/sellerkit/resilience/pkg/logger"
)

// simSettings drives the drill workload; overridable from the environment
// so CI and local runs can tune pacing without a config file.
type simSettings struct {
	Requests        int           `env:"SIM_REQUESTS, default=25"`
	Interval        time.Duration `env:"SIM_INTERVAL, default=20ms"`
	RecoveryTimeout time.Duration `env:"SIM_RECOVERY_TIMEOUT, default=2s"`
}

func main() {
	slog.Info("startup", "GOMAXPROCS", runtime.GOMAXPROCS(0))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("err", err))
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, false, cfg.Environment)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var sim simSettings
	if err := envconfig.Process(ctx, &sim); err != nil {
		log.Error("failed to read sim settings", slog.Any("err", err))
		os.Exit(1)
	}

	collector := metrics.NewCollector(1024, log)
	collector.Start(ctx)

	registry := circuitbreaker.NewRegistry()
	go healthcheck.Watch(ctx, registry, cfg.HealthInterval(), log)

	admin, err := adminserver.New(cfg.Admin.Address, registry, collector)
	if err != nil {
		log.Error("failed to create admin server", slog.Any("err", err))
		os.Exit(1)
	}
	go func() {
		if err := admin.Start(); err != nil {
			log.Error("admin server error", slog.Any("err", err))
		}
	}()
	defer admin.Shutdown(context.Background())

	services := buildServices(registry, collector, cfg.Services, sim.RecoveryTimeout, log)
	if len(services) == 0 {
		log.Error("no services to drill")
		os.Exit(1)
	}

	runDrill(ctx, services, sim, collector, log)

	snap := collector.Snapshot()
	out, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		log.Error("failed to render snapshot", slog.Any("err", err))
		os.Exit(1)
	}
	fmt.Println(string(out))
}

// buildServices wires one protected service per configured entry, falling
// back to the standard dependency set when the config names none. The drill
// shortens every recovery timeout so a single run can observe the full
// open -> half-open -> closed cycle.
func buildServices(
	registry *circuitbreaker.Registry,
	collector *metrics.Collector,
	entries []config.ServiceConfig,
	recoveryTimeout time.Duration,
	log *slog.Logger,
) []*protected.Service {
	if len(entries) == 0 {
		entries = []config.ServiceConfig{
			{Name: "supabase", Preset: "database"},
			{Name: "amazon-api", Preset: "amazon"},
			{Name: "email", Preset: "email"},
			{Name: "upload", Preset: "upload"},
		}
	}

	services := make([]*protected.Service, 0, len(entries))
	for _, entry := range entries {
		bcfg := entry.BreakerConfig()
		if recoveryTimeout > 0 {
			bcfg.RecoveryTimeout = recoveryTimeout
		}
		bcfg.OnStateChange = collector.StateChangeHook(entry.Name)

		services = append(services, protected.New(registry, entry.Name, bcfg, log))
	}
	return services
}
