// Package api exposes the lead finder over HTTP: search submission, result
// polling with persistence, and the saved-leads listing the frontend renders.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sells-group/lead-finder/internal/store"
	"github.com/sells-group/lead-finder/pkg/outscraper"
)

// Server holds the handlers' dependencies. Both the store and the vendor
// client are injected so tests can substitute fakes.
type Server struct {
	store    store.Store
	client   outscraper.Client
	apiKey   string
	defaults outscraper.SearchRequest
}

// Option configures a Server.
type Option func(*Server)

// WithSearchDefaults sets the vendor parameters merged into every search
// submission. The query field is ignored.
func WithSearchDefaults(defaults outscraper.SearchRequest) Option {
	return func(s *Server) {
		s.defaults = defaults
	}
}

// New creates a Server. apiKey is only inspected, never sent; the client
// carries its own credentials. An empty key makes result polling report a
// configuration error per request rather than failing at startup.
func New(st store.Store, client outscraper.Client, apiKey string, opts ...Option) *Server {
	s := &Server{
		store:  st,
		client: client,
		apiKey: apiKey,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router assembles the HTTP routes with logging, recovery, and CORS.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", s.handleHealth)
	r.Post("/search", s.handleSearch)
	r.Get("/request-results/{requestId}", s.handleRequestResults)
	r.Get("/leads", s.handleLeads)
	r.Delete("/leads/{placeID}", s.handleDeleteLead)

	return r
}
