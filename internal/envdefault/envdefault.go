// Package envdefault resolves CLI flag defaults from the environment,
// falling back to a literal default when the variable is unset or
// unparseable.
package envdefault

import (
	"os"
	"strconv"
)

// WithDefaultString returns the value of the named environment variable,
// or def if unset.
func WithDefaultString(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

// WithDefaultInt returns the named environment variable parsed as an
// int, or def if unset or unparseable.
func WithDefaultInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// WithDefaultBool returns the named environment variable parsed as a
// bool, or def if unset or unparseable.
func WithDefaultBool(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
