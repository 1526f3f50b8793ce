package instance

import "os"

// GetID identifies the running process in logs. Platform dyno names win
// over the explicit STOREFRONT_INSTANCE_ID, then the hostname.
func GetID() string {
	for _, key := range []string{"DYNO", "STOREFRONT_INSTANCE_ID"} {
		if id := os.Getenv(key); id != "" {
			return id
		}
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}
