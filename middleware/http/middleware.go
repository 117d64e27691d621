// Package http provides net/http plumbing around the checkout API
// handler: route mounting plus request logging and panic recovery
// middleware for hosts that serve it directly.
package http

import (
	"net/http"
	"time"

	"github.com/cmorrow/formpay/pkg/api"
	"github.com/cmorrow/formpay/pkg/checkout"
)

// Mount registers the checkout endpoints on mux under basePath.
// An empty basePath mounts them at the root.
func Mount(mux *http.ServeMux, handler *api.Handler, basePath string) {
	mux.HandleFunc("POST "+basePath+"/checkout", handler.StartCheckout)
	mux.HandleFunc("POST "+basePath+"/checkout/resume", handler.ResumeCheckout)
	mux.HandleFunc("POST "+basePath+"/webhooks/stripe", handler.HandleWebhook)
}

// statusRecorder captures the status code written by the wrapped
// handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// RequestLogger logs one line per request with method, path, status
// and duration.
func RequestLogger(logger checkout.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			logger.Info("http request",
				checkout.Field{Key: "method", Value: r.Method},
				checkout.Field{Key: "path", Value: r.URL.Path},
				checkout.Field{Key: "status", Value: rec.status},
				checkout.Field{Key: "duration", Value: time.Since(start).String()},
			)
		})
	}
}

// Recoverer converts panics in downstream handlers into 500 responses
// instead of tearing down the connection.
func Recoverer(logger checkout.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic in handler",
						checkout.Field{Key: "path", Value: r.URL.Path},
						checkout.Field{Key: "panic", Value: rec},
					)
					http.Error(w, "internal server error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// Chain applies middleware left to right, so the first middleware is
// the outermost.
func Chain(handler http.Handler, middleware ...func(http.Handler) http.Handler) http.Handler {
	for i := len(middleware) - 1; i >= 0; i-- {
		handler = middleware[i](handler)
	}
	return handler
}
