// Package http exposes the URL shortener use cases over a JSON HTTP API.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
	"github.com/go-playground/validator/v10"
	httpSwagger "github.com/swaggo/http-swagger"
	"github.com/vadimbarashkov/url-shortener/docs"
	"github.com/vadimbarashkov/url-shortener/pkg/middleware/recoverer"
)

// NewRouter builds the chi router with middleware, the /api/v1 routes, the
// short link redirect and the API docs. The shorten routes are also served at
// the root for clients that call /shorten directly.
func NewRouter(logger *httplog.Logger, urlUseCase urlUseCase) *chi.Mux {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*"},
		AllowedMethods:   []string{"POST", "GET", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Accept"},
		AllowCredentials: false,
		MaxAge:           84600,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httplog.RequestLogger(logger))
	r.Use(recoverer.New(logger.Logger))

	h := newURLHandler(urlUseCase, validator.New())

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/docs/swagger.yml"),
	))

	r.Get("/docs/swagger.yml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		w.Write(docs.Swagger)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/ping", handlePing)
		r.Route("/shorten", h.routes)
	})

	r.Route("/shorten", h.routes)
	r.Get("/{shortCode}", h.redirect)

	return r
}

// ReservedShortCodes are the first path segments taken by fixed routes.
// A short code equal to one of them could not be reached through the redirect.
var ReservedShortCodes = []string{"api", "docs", "shorten", "swagger"}

func (h *urlHandler) routes(r chi.Router) {
	r.Post("/", h.shortenURL)

	r.Route("/{shortCode}", func(r chi.Router) {
		r.Get("/", h.resolveShortCode)
		r.Put("/", h.modifyURL)
		r.Delete("/", h.deactivateURL)
		r.Get("/stats", h.getURLStats)
	})
}
