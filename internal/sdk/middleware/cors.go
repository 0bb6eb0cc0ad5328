package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// MidFunc is net/http middleware applied around the gin engine.
type MidFunc func(http.Handler) http.Handler

// WrapMiddleware wraps h so the first middleware runs outermost.
func WrapMiddleware(h http.Handler, middlewares ...MidFunc) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		if middlewares[i] != nil {
			h = middlewares[i](h)
		}
	}
	return h
}

// CORS answers preflight requests and sets CORS headers for the allowed
// origins. "*" allows any origin.
func CORS(origins []string) MidFunc {
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", RequestIDHeader},
		ExposedHeaders: []string{RequestIDHeader},
		MaxAge:         300,
	})
}
