package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
)

const ServiceTokenHeader = "X-Service-Token"

// Auth is a middleware factory that returns a new authentication middleware.
// It checks the shared-service credential in the X-Service-Token header.
func Auth(serviceToken string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get(ServiceTokenHeader)
			if token == "" {
				logger.Warn("service token missing from request", "remote_addr", r.RemoteAddr)
				http.Error(w, "Unauthorized: service token required", http.StatusUnauthorized)
				return
			}

			if subtle.ConstantTimeCompare([]byte(token), []byte(serviceToken)) != 1 {
				logger.Warn("invalid service token provided", "remote_addr", r.RemoteAddr)
				http.Error(w, "Unauthorized: invalid service token", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
