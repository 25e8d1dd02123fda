// Package server assembles the HTTP router of the worker.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-kit/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/ndunkgo99/Viyey-worker/internal/file"
	appMiddleware "github.com/ndunkgo99/Viyey-worker/internal/middleware"
	"github.com/ndunkgo99/Viyey-worker/internal/response"
	"github.com/ndunkgo99/Viyey-worker/internal/stats"
)

const usage = "VIYEY Worker API\nEndpoints: /health, /summary, /upload, /delete"

var (
	allowedMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	allowedHeaders = []string{"Content-Type", "Authorization"}
)

// Options carries what the router needs beyond the handlers.
type Options struct {
	WorkerName string
	// JWTSecret protects /upload and /delete when non-empty.
	JWTSecret string
	Logger    log.Logger
}

// NewRouter wires middleware and routes.
func NewRouter(files *file.Handler, summary *stats.Handler, opts Options) http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(appMiddleware.Logger(opts.Logger))
	r.Use(appMiddleware.Metrics)
	r.Use(chiMiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: allowedMethods,
		AllowedHeaders: allowedHeaders,
		MaxAge:         300,
	}))

	r.NotFound(preflightOr(func(w http.ResponseWriter, r *http.Request) {
		response.Text(w, http.StatusNotFound, "404 Not Found")
	}))
	r.MethodNotAllowed(preflightOr(func(w http.ResponseWriter, r *http.Request) {
		response.Text(w, http.StatusMethodNotAllowed, "405 Method Not Allowed")
	}))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		response.Text(w, http.StatusOK, usage)
	})
	r.Get("/health", health(opts.WorkerName))
	r.Get("/summary", summary.Summary)

	r.Group(func(r chi.Router) {
		r.Use(appMiddleware.RequireAuth(opts.JWTSecret))
		r.Post("/upload", files.Upload)
		r.Post("/delete", files.Delete)
	})

	r.Handle("/metrics", promhttp.Handler())

	// Swagger UI at /swagger/index.html
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	return r
}

type healthBody struct {
	Status string `json:"status" example:"OK"`
	Worker string `json:"worker" example:"viyey-worker"`
}

// health godoc
//
//	@Summary	Liveness check
//	@Tags		system
//	@Produce	json
//	@Success	200	{object}	healthBody
//	@Router		/health [get]
func health(worker string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response.OK(w, healthBody{Status: "OK", Worker: worker})
	}
}

// preflightOr grants cross-origin access to OPTIONS requests that the cors
// handler let through (no Access-Control-Request-Method) and delegates the rest.
func preflightOr(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodOptions {
			next(w, r)
			return
		}
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.WriteHeader(http.StatusNoContent)
	}
}
