// Package server exposes the library analysis over a local JSON API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/go-pkgz/rest"
	"github.com/go-pkgz/rest/logger"
	"github.com/go-pkgz/routegroup"

	"github.com/nikbrunner/bmlens/internal/culler"
	"github.com/nikbrunner/bmlens/internal/library"
	"github.com/nikbrunner/bmlens/internal/metrics"
)

// Server represents HTTP server instance
type Server struct {
	lib     *library.Library
	metrics *metrics.Metrics
	version string
	debug   bool
	now     func() time.Time

	checkLock   sync.Mutex
	lastInvalid []culler.InvalidBookmark
	checked     bool

	lock       sync.Mutex
	httpServer *http.Server
	router     *routegroup.Bundle
}

// Options configure a Server.
type Options struct {
	Version string
	Debug   bool
	Metrics *metrics.Metrics
	Now     func() time.Time
}

// New initializes a new server instance
func New(lib *library.Library, opts Options) *Server {
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	s := &Server{
		lib:     lib,
		metrics: opts.Metrics,
		version: opts.Version,
		debug:   opts.Debug,
		now:     opts.Now,
		router:  routegroup.New(http.NewServeMux()),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// Handler returns the router with all middleware.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run starts the HTTP server and handles graceful shutdown
func (s *Server) Run(ctx context.Context) error {
	listen := s.lib.Config().Server.Listen
	log.Printf("[INFO] starting server on %s", listen)

	s.lock.Lock()
	s.httpServer = &http.Server{
		Addr:              listen,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.lock.Unlock()

	go func() {
		<-ctx.Done()
		log.Printf("[INFO] shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("[WARN] server shutdown error: %v", err)
		}
	}()

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server error: %w", err)
	}

	return nil
}

// setupMiddleware configures standard middleware for the server
func (s *Server) setupMiddleware() {
	cfg := s.lib.Config().Server
	s.router.Use(rest.AppInfo("bmlens", "nikbrunner", s.version))
	s.router.Use(rest.Ping)

	if s.debug {
		s.router.Use(logger.New(logger.Log(lgr.Default()), logger.Prefix("[DEBUG]")).Handler)
	}

	s.router.Use(rest.Recoverer(lgr.Default()))
	s.router.Use(rest.Throttle(int64(cfg.Throttle)))
	s.router.Use(rest.SizeLimit(cfg.SizeLimit))
}

// setupRoutes configures application routes
func (s *Server) setupRoutes() {
	s.router.Mount("/api/v1").Route(func(r *routegroup.Bundle) {
		r.HandleFunc("GET /stats", s.statsHandler)
		r.HandleFunc("GET /wordcloud", s.wordCloudHandler)
		r.HandleFunc("GET /heatmap", s.heatmapHandler)
		r.HandleFunc("GET /duplicates", s.duplicatesHandler)
		r.HandleFunc("GET /empty-folders", s.emptyFoldersHandler)
		r.HandleFunc("GET /categories", s.categoriesHandler)
		r.HandleFunc("POST /check", s.checkHandler)
		r.HandleFunc("GET /export/{format}", s.exportHandler)
		r.HandleFunc("GET /search", s.searchHandler)
		r.HandleFunc("GET /recent", s.recentHandler)
		r.HandleFunc("DELETE /bookmarks/{id}", s.deleteBookmarkHandler)
		r.HandleFunc("DELETE /folders/{id}", s.deleteFolderHandler)
		r.HandleFunc("POST /cleanup/{kind}", s.cleanupHandler)
		r.HandleFunc("GET /notes", s.listNotesHandler)
		r.HandleFunc("GET /notes/{id}", s.getNoteHandler)
		r.HandleFunc("PUT /notes/{id}", s.putNoteHandler)
		r.HandleFunc("GET /settings", s.getSettingsHandler)
		r.HandleFunc("PUT /settings", s.putSettingsHandler)
		r.HandleFunc("GET /state", s.getStateHandler)
		r.HandleFunc("PUT /state", s.putStateHandler)
	})

	s.router.Handle("GET /metrics", s.metrics.Handler())
}

// renderJSON sends JSON response with the given status
func renderJSON(w http.ResponseWriter, code int, data any) {
	if code != http.StatusOK {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(code)
	}
	rest.RenderJSON(w, data)
}

// renderError logs err and sends {"error": msg}
func renderError(w http.ResponseWriter, r *http.Request, code int, err error, msg string) {
	rest.SendErrorJSON(w, r, lgr.Default(), code, err, msg)
}
