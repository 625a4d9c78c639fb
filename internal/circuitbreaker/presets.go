package circuitbreaker

import (
	"strings"
	"time"
)

// Presets encode per-dependency-class thresholds for the services this
// backend talks to. They are plain Config fragments; callers set Name (or
// let the registry do it) and may override individual fields.

// DefaultConfig is the preset used when a caller supplies nothing.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		RecoveryTimeout:  60 * time.Second,
		SuccessThreshold: 2,
		Timeout:          30 * time.Second,
	}
}

// DatabaseConfig suits relational stores: tolerant of failure bursts, quick
// to probe again. Validation errors come from bad caller input, not from the
// database being down, so they never trip the breaker.
func DatabaseConfig() Config {
	return Config{
		FailureThreshold: 5,
		RecoveryTimeout:  30 * time.Second,
		SuccessThreshold: 2,
		Timeout:          10 * time.Second,
		ShouldSkip:       SkipValidationErrors,
	}
}

// APIConfig suits generic third-party HTTP APIs.
func APIConfig() Config {
	return Config{
		FailureThreshold: 3,
		RecoveryTimeout:  60 * time.Second,
		SuccessThreshold: 3,
		Timeout:          15 * time.Second,
		ShouldSkip:       SkipAuthErrors,
	}
}

// EmailConfig suits transactional email providers, which are slow and flaky
// by nature. A rejected recipient address is a data problem, not an outage.
func EmailConfig() Config {
	return Config{
		FailureThreshold: 10,
		RecoveryTimeout:  120 * time.Second,
		SuccessThreshold: 5,
		Timeout:          30 * time.Second,
		ShouldSkip:       SkipInvalidRecipientErrors,
	}
}

// AmazonConfig suits the SP-API: it throttles hard and recovers slowly, so
// the breaker stays open for a long time once tripped.
func AmazonConfig() Config {
	return Config{
		FailureThreshold: 3,
		RecoveryTimeout:  300 * time.Second,
		SuccessThreshold: 2,
		Timeout:          20 * time.Second,
		ShouldSkip:       SkipRequestErrors,
	}
}

// UploadConfig suits bulk file uploads: a single slow failure is already a
// strong signal, and one good upload is proof of recovery.
func UploadConfig() Config {
	return Config{
		FailureThreshold: 2,
		RecoveryTimeout:  60 * time.Second,
		SuccessThreshold: 1,
		Timeout:          60 * time.Second,
		ShouldSkip:       SkipFileTooLargeErrors,
	}
}

// Preset looks up a preset config by its configuration-file name. Unknown
// names fall back to DefaultConfig.
func Preset(name string) (Config, bool) {
	switch strings.ToLower(name) {
	case "database":
		return DatabaseConfig(), true
	case "api":
		return APIConfig(), true
	case "email":
		return EmailConfig(), true
	case "amazon":
		return AmazonConfig(), true
	case "upload":
		return UploadConfig(), true
	case "", "default":
		return DefaultConfig(), true
	default:
		return DefaultConfig(), false
	}
}

func errContains(err error, substrings ...string) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, s := range substrings {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// SkipValidationErrors classifies caller-side validation failures.
func SkipValidationErrors(err error) bool {
	return errContains(err, "validation")
}

// SkipAuthErrors classifies authentication and authorization failures.
func SkipAuthErrors(err error) bool {
	return errContains(err, "auth", "unauthorized", "forbidden")
}

// SkipInvalidRecipientErrors classifies rejected email addresses.
func SkipInvalidRecipientErrors(err error) bool {
	return errContains(err, "invalid recipient", "invalid email")
}

// SkipRequestErrors classifies bad request parameters and credentials, the
// two Amazon SP-API error families that indicate caller bugs rather than an
// outage.
func SkipRequestErrors(err error) bool {
	return errContains(err, "parameter", "auth", "unauthorized")
}

// SkipFileTooLargeErrors classifies oversized upload rejections.
func SkipFileTooLargeErrors(err error) bool {
	return errContains(err, "file too large", "too large", "entity too large")
}
