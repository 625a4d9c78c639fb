// Package config handles loading and parsing of configuration from YAML
// files and environment variables. It defines logging settings, the breaker
// health watch interval, and the list of protected services with their
// circuit breaker presets and overrides.
package config
