package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

var defaultCORSOrigins = []string{
	"http://localhost:3000", // local storefront dev server
}

// CORS returns middleware that lets the storefront origins call the API.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	if len(allowedOrigins) == 0 {
		allowedOrigins = defaultCORSOrigins
	}
	return cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", CartSessionHeader, IdempotencyKeyHeader, "X-Requested-With", requestIDHeader},
		ExposedHeaders:   []string{CartSessionHeader, requestIDHeader, IdempotentReplayHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}).Handler
}
