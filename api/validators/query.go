package validators

import (
	"net/http"
	"strconv"
	"strings"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// ParseQueryInt reads an integer query parameter bounded by [min, max],
// returning defaultVal when the parameter is absent.
func ParseQueryInt(r *http.Request, key string, defaultVal, min, max int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return defaultVal, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < min || value > max {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "invalid query parameter").WithDetails(map[string]any{
			"field": key,
			"value": raw,
			"min":   min,
			"max":   max,
		})
	}
	return value, nil
}

// QueryString returns the trimmed query parameter, rejecting values longer
// than maxLen.
func QueryString(r *http.Request, key string, maxLen int) (string, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if maxLen > 0 && len(raw) > maxLen {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "invalid query parameter").WithDetails(map[string]any{
			"field":      key,
			"max_length": maxLen,
		})
	}
	return raw, nil
}
