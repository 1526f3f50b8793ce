package env

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLookupOrder(t *testing.T) {
	t.Setenv("STOREFRONT_LOG_FORMAT", "  ")
	t.Setenv("LOG_FORMAT", "console")
	require.Equal(t, "console", Lookup("json", "STOREFRONT_LOG_FORMAT", "LOG_FORMAT"))

	t.Setenv("STOREFRONT_LOG_FORMAT", "json")
	require.Equal(t, "json", Lookup("text", "STOREFRONT_LOG_FORMAT", "LOG_FORMAT"))
}

func TestLookupFallback(t *testing.T) {
	t.Setenv("STOREFRONT_UNSET_FOR_TEST", "")
	require.Equal(t, "json", Lookup("json", "STOREFRONT_UNSET_FOR_TEST"))
}
