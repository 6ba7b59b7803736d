// Package httpapi serves a read-only HTTP view of the registry for
// dashboards and curl-level debugging. It exposes the same queries and
// documents as the agent protocol, with the same error-kind contract, but
// never any mutating operation.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/plugreg/plugreg/internal/discovery"
	"github.com/plugreg/plugreg/internal/registry"
	"github.com/plugreg/plugreg/internal/resource"
)

// Deps carries the service components the HTTP layer reads from.
type Deps struct {
	Store    *registry.Store
	Engine   *discovery.Engine
	Provider *resource.Provider
	Version  string
}

// Server is the read-only HTTP API.
type Server struct {
	Deps
	router chi.Router
}

// New assembles the router.
func New(deps Deps) *Server {
	s := &Server{Deps: deps}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/manifest", s.handleManifest)
		r.Get("/categories", s.handleCategories)
		r.Get("/categories/{category}", s.handleCategory)
		r.Get("/plugins", s.handlePlugins)
		r.Get("/plugins/search", s.handleSearch)
		r.Get("/plugins/{name}", s.handlePluginDetails)
		r.Get("/plugins/{name}/instructions", s.handleInstructions)
		r.Get("/plugins/{name}/readme", s.handleReadme)
		r.Get("/plugins/{name}/templates", s.handleTemplates)
		r.Get("/plugins/{name}/templates/*", s.handleTemplateFile)
	})

	s.router = r
	return s
}

// ServeHTTP makes the server a http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// requestLogger emits one structured line per request.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}
