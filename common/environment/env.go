// Package environment provides small helpers for reading configuration
// from environment variables. Each helper returns the parsed value or a
// caller-supplied default; nothing here exits the process.
package environment

import (
	"os"
	"strconv"
	"time"
)

// String returns the value of the named environment variable and whether
// it was set at all (even to the empty string).
func String(name string) (string, bool) {
	v, ok := os.LookupEnv(name)
	return v, ok
}

// StringOr returns the value of the named environment variable, or
// defaultValue when the variable is unset or empty.
func StringOr(name, defaultValue string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return defaultValue
}

// IntOr parses the named environment variable as a decimal integer.
// Returns defaultValue when the variable is unset, empty, or unparseable.
func IntOr(name string, defaultValue int) int {
	v := os.Getenv(name)
	if v == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue
	}
	return n
}

// DurationOr parses the named environment variable as a time.Duration
// (e.g. "30s", "5m"). Returns defaultValue when the variable is unset,
// empty, or unparseable.
func DurationOr(name string, defaultValue time.Duration) time.Duration {
	v := os.Getenv(name)
	if v == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultValue
	}
	return d
}
