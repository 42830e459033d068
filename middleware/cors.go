package middleware

import (
	"net/http"
	"strconv"

	"github.com/ganeshkumar0x/Backend-Lysa-Exam-App/config"
)

// CORSMiddleware allows every origin, method and header. Browsers reject a
// literal "*" origin with credentials, so the request origin is echoed back.
func CORSMiddleware() func(http.Handler) http.Handler {
	maxAge := getCORSMaxAge()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				w.Header().Set("Access-Control-Allow-Origin", "*")
			} else {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			if requested := r.Header.Get("Access-Control-Request-Headers"); requested != "" {
				w.Header().Set("Access-Control-Allow-Headers", requested)
			} else {
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With, Accept, Origin")
			}
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Max-Age", maxAge)

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func getCORSMaxAge() string {
	value := config.GetEnvOrDefault("CORS_MAX_AGE", "")
	if _, err := strconv.Atoi(value); err == nil {
		return value
	}
	return "86400"
}
