// Package server provides the HTTP API for Tansaku.
package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/tansaku/internal/config"
	"github.com/hyperjump/tansaku/internal/discovery"
	"github.com/hyperjump/tansaku/internal/indexer"
	"github.com/hyperjump/tansaku/internal/keyword"
	"github.com/hyperjump/tansaku/internal/metrics"
	"github.com/hyperjump/tansaku/internal/storage"
	"go.uber.org/zap"
)

// WatchService manages the watched import directories.
type WatchService interface {
	Directories() []string
	AddDirectory(path string, syncExisting bool) error
	RemoveDirectory(path string) error
}

// Server is the HTTP server for the Tansaku API.
type Server struct {
	dispatcher   *discovery.Dispatcher
	indexer      *indexer.Indexer
	storage      storage.Storage
	keywordIndex keyword.EntityIndex
	config       *config.Config
	configPath   string // when set, watch directory changes are saved here
	configMu     sync.Mutex
	watch        WatchService // nil when watching is disabled
	logger       *zap.Logger
	server       *http.Server
}

// NewServer creates a server with the given dependencies. watch may be nil.
func NewServer(
	dispatcher *discovery.Dispatcher,
	idx *indexer.Indexer,
	storage storage.Storage,
	keywordIndex keyword.EntityIndex,
	cfg *config.Config,
	logger *zap.Logger,
	watch WatchService,
	configPath string,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		dispatcher:   dispatcher,
		indexer:      idx,
		storage:      storage,
		keywordIndex: keywordIndex,
		config:       cfg,
		configPath:   configPath,
		watch:        watch,
		logger:       logger,
	}
}

// Router builds the HTTP handler with all routes and middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(jsonRecoverer(s.logger))
	r.Use(accessLog(s.logger))
	r.Use(metrics.Middleware())
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Get("/api/discovery/search", s.handleSearch)
	r.Get("/api/discovery/search/dsl", s.handleSearchDSL)
	r.Get("/api/discovery/search/fulltext", s.handleSearchFullText)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/types", s.handleListTypes)
		r.Post("/types", s.handleCreateType)
		r.Get("/entities", s.handleListEntities)
		r.Post("/entities", s.handleIndexEntity)
		r.Get("/entities/{guid}", s.handleGetEntity)
		r.Delete("/entities/{guid}", s.handleDeleteEntity)
		r.Post("/imports", s.handleImport)
		r.Get("/watch/directories", s.handleWatchDirectoriesList)
		r.Post("/watch/directories", s.handleWatchDirectoriesAdd)
		r.Delete("/watch/directories", s.handleWatchDirectoriesRemove)
		r.Get("/status", s.handleStatus)
	})

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", metrics.Handler())
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := s.config.Server.Addr()
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
