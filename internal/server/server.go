// Package server exposes the bookmark service over a small local HTTP API
// for browser extensions and launchers.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/nikbrunner/minimark/internal/logger"
	"github.com/nikbrunner/minimark/internal/service"
)

// Options configures a Server.
type Options struct {
	Addr           string
	AllowedOrigins []string
	Logger         logger.Logger
}

// Server wraps the HTTP server and its dependencies.
type Server struct {
	http *http.Server
	svc  *service.Service
	log  logger.Logger
}

// New builds the HTTP server (router, middlewares, routes).
func New(svc *service.Service, opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	s := &Server{svc: svc, log: log}

	s.http = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.routes(opts.AllowedOrigins),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

func (s *Server) routes(origins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(Log(s.log))
	r.Use(CORS(origins))

	r.Get("/healthz", s.healthz)

	r.Route("/api", func(r chi.Router) {
		r.Get("/items", s.listItems)
		r.Get("/breadcrumbs", s.breadcrumbs)
		r.Get("/export", s.export)
		r.Post("/links", s.addLink)

		r.Route("/items/{id}", func(r chi.Router) {
			r.Get("/", s.getItem)
			r.Delete("/", s.deleteItem)
			r.Post("/click", s.click)
			r.Post("/check", s.check)
			r.Post("/pin", s.pin)
		})
	})

	return r
}

// Start runs the HTTP server (blocks until error or shutdown).
func (s *Server) Start() error {
	s.log.Infof("HTTP server listening on %s", s.http.Addr)
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop gracefully shuts down the server with the provided context deadline.
func (s *Server) Stop(ctx context.Context) error {
	s.log.Info("HTTP server shutting down")
	return s.http.Shutdown(ctx)
}
