// SPDX-License-Identifier: MIT

package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// DefaultOrigins are allowed when no origins are configured.
var DefaultOrigins = []string{
	"http://localhost:3000",
	"http://localhost:8080",
	"http://127.0.0.1:3000",
}

// CORS returns a go-chi/cors handler. "*" in allowedOrigins allows every origin.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	if len(allowedOrigins) == 0 {
		allowedOrigins = DefaultOrigins
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", HeaderRequestID, "Authorization"},
		ExposedHeaders: []string{HeaderRequestID, "Retry-After"},
		MaxAge:         600,
	})
}
