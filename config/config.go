package config

import (
	"log/slog"
	"net"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/spf13/viper"

	"github.com/sellerkit/resilience/internal/circuitbreaker"
)

const (
	EnvDev     = "dev"
	EnvStaging = "staging"
	EnvProd    = "prod"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

var presetNames = []interface{}{"", "default", "database", "api", "email", "amazon", "upload"}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

type AdminConfig struct {
	Address string `mapstructure:"address"`
}

type HealthConfig struct {
	Interval string `mapstructure:"interval"`
}

// ServiceConfig names a protected dependency and selects its breaker
// settings: a preset for the dependency class plus optional per-field
// overrides. Zero-valued fields keep the preset's value.
type ServiceConfig struct {
	Name             string `mapstructure:"name"`
	Preset           string `mapstructure:"preset"`
	FailureThreshold int    `mapstructure:"failure_threshold"`
	RecoveryTimeout  string `mapstructure:"recovery_timeout"`
	SuccessThreshold int    `mapstructure:"success_threshold"`
	Timeout          string `mapstructure:"timeout"`
}

type Config struct {
	Environment string          `mapstructure:"environment"`
	Logging     LoggingConfig   `mapstructure:"logging"`
	Admin       AdminConfig     `mapstructure:"admin"`
	Health      HealthConfig    `mapstructure:"health"`
	Services    []ServiceConfig `mapstructure:"services"`
}

func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("environment", EnvDev)
	v.SetDefault("logging.level", LogLevelInfo)
	v.SetDefault("admin.address", ":9990")
	v.SetDefault("health.interval", "30s")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Error("failed to read config file", slog.String("error", err.Error()))
			return nil, err
		}
		slog.Warn("config file not found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", slog.String("file", v.ConfigFileUsed()))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		slog.Error("failed to unmarshal config", slog.String("error", err.Error()))
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Environment,
			validation.Required,
			validation.In(EnvDev, EnvStaging, EnvProd),
		),
		validation.Field(&c.Logging,
			validation.Required,
			validation.By(func(value interface{}) error {
				lc, ok := value.(LoggingConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a LoggingConfig")
				}
				return validation.ValidateStruct(&lc,
					validation.Field(&lc.Level,
						validation.Required,
						validation.In(LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError),
					),
				)
			}),
		),
		validation.Field(&c.Admin,
			validation.Required,
			validation.By(func(value interface{}) error {
				ac, ok := value.(AdminConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be an AdminConfig")
				}
				return validation.ValidateStruct(&ac,
					validation.Field(&ac.Address,
						validation.Required,
						validation.By(validateHostPort),
					),
				)
			}),
		),
		validation.Field(&c.Health,
			validation.Required,
			validation.By(func(value interface{}) error {
				hc, ok := value.(HealthConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a HealthConfig")
				}
				return validation.ValidateStruct(&hc,
					validation.Field(&hc.Interval,
						validation.Required,
						validation.By(validateDuration),
					),
				)
			}),
		),
		validation.Field(&c.Services,
			validation.Each(validation.By(validateServiceConfig)),
		),
	)
}

func validateHostPort(value interface{}) error {
	addr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return validation.NewError("validation_invalid_hostport", "must be in host:port format")
	}

	if port == "" {
		return validation.NewError("validation_invalid_port", "port cannot be empty")
	}

	if host != "" {
		if err := is.Host.Validate(host); err != nil {
			return validation.NewError("validation_invalid_host", "invalid host")
		}
	}

	return nil
}

func validateDuration(value interface{}) error {
	durationStr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	if _, err := time.ParseDuration(durationStr); err != nil {
		return validation.NewError("validation_invalid_duration", "must be a valid duration (e.g., 2s, 5m, 1h)")
	}

	return nil
}

func validateServiceConfig(value interface{}) error {
	svc, ok := value.(ServiceConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a ServiceConfig")
	}

	return validation.ValidateStruct(&svc,
		validation.Field(&svc.Name, validation.Required),
		validation.Field(&svc.Preset, validation.In(presetNames...)),
		validation.Field(&svc.FailureThreshold, validation.Min(0)),
		validation.Field(&svc.SuccessThreshold, validation.Min(0)),
		validation.Field(&svc.RecoveryTimeout,
			validation.When(svc.RecoveryTimeout != "", validation.By(validateDuration)),
		),
		validation.Field(&svc.Timeout,
			validation.When(svc.Timeout != "", validation.By(validateDuration)),
		),
	)
}

// HealthInterval returns the parsed watch interval. Validation already
// guaranteed the string parses.
func (c *Config) HealthInterval() time.Duration {
	d, err := time.ParseDuration(c.Health.Interval)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// BreakerConfig resolves the service entry to a concrete breaker config:
// the named preset with any non-zero overrides applied.
func (s ServiceConfig) BreakerConfig() circuitbreaker.Config {
	cfg, _ := circuitbreaker.Preset(s.Preset)
	cfg.Name = s.Name

	if s.FailureThreshold > 0 {
		cfg.FailureThreshold = s.FailureThreshold
	}
	if s.SuccessThreshold > 0 {
		cfg.SuccessThreshold = s.SuccessThreshold
	}
	if s.RecoveryTimeout != "" {
		if d, err := time.ParseDuration(s.RecoveryTimeout); err == nil {
			cfg.RecoveryTimeout = d
		}
	}
	if s.Timeout != "" {
		if d, err := time.ParseDuration(s.Timeout); err == nil {
			cfg.Timeout = d
		}
	}

	return cfg
}
