package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

type Server struct{ mux *chi.Mux }

type options struct{ trustProxy bool }

type Option func(*options)

// TrustProxy lets X-Forwarded-For and X-Real-IP replace the peer address.
// Only enable it behind a proxy that overwrites those headers.
func TrustProxy(on bool) Option { return func(o *options) { o.trustProxy = on } }

func New(opts ...Option) *Server {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	m := chi.NewRouter()

	// All middlewares go here (before any routes are added)
	if o.trustProxy {
		m.Use(chimw.RealIP)
	}
	m.Use(chimw.RequestID)
	m.Use(chimw.Recoverer)
	m.Use(Timeout(15 * time.Second))
	m.Use(Metrics)
	m.Use(Logger(log.Logger))

	return &Server{mux: m}
}

func (s *Server) Mux() http.Handler { return s.mux }

// Mount attaches any extra handler (e.g., /metrics) to the router.
func (s *Server) Mount(path string, h http.Handler) {
	s.mux.Handle(path, h)
}

// MountHandlers registers the public, merchant and admin route groups.
// Role checks live in the services; the router only resolves identity.
func (s *Server) MountHandlers(h *Handlers, verifier TokenVerifier, limiter *RateLimiter) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })

	s.mux.Route("/v1/hotels", func(r chi.Router) {
		if limiter != nil {
			r.Use(limiter.Limit)
		}
		r.Get("/", h.listPublic)
		r.Get("/{id}", h.getPublic)
	})

	s.mux.Route("/v1/merchant", func(r chi.Router) {
		r.Use(Authenticate(verifier))
		r.Get("/stats", h.ownerStats)
		r.Get("/hotels", h.listOwner)
		r.Post("/hotels", h.create)
		r.Get("/hotels/{id}", h.getOwner)
		r.Put("/hotels/{id}", h.update)
		r.Post("/hotels/{id}/submit", h.submit)
		r.Post("/hotels/{id}/offline", h.selfOffline)
	})

	s.mux.Route("/v1/admin", func(r chi.Router) {
		r.Use(Authenticate(verifier))
		r.Get("/hotels", h.listAdmin)
		r.Get("/hotels/{id}", h.getAdmin)
		r.Delete("/hotels/{id}", h.softDelete)
		r.Post("/hotels/{id}/audit", h.audit)
		r.Post("/hotels/{id}/publish", h.publish)
		r.Post("/hotels/{id}/offline", h.offline)
	})
}
