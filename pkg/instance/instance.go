package instance

import "github.com/angelmondragon/cloudcore-storefront/pkg/env"

// GetID names the running api process for logs: the platform dyno, then the
// host name, then "local".
func GetID() string {
	if id := env.Get("DYNO", ""); id != "" {
		return id
	}
	return env.Get("HOSTNAME", "local")
}
