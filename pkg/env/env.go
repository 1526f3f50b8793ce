package env

import (
	"os"
	"strings"
)

// Lookup returns the first non-blank value among keys, trimmed, or fallback
// when none is set. Used before envconfig has loaded, e.g. for log format.
func Lookup(fallback string, keys ...string) string {
	for _, key := range keys {
		if val := strings.TrimSpace(os.Getenv(key)); val != "" {
			return val
		}
	}
	return fallback
}
