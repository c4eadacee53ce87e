package handlers

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"mamarr/internal/config"
	"mamarr/internal/core"
	"mamarr/internal/database"
	"mamarr/internal/utils"
)

// RebuildFunc reconstructs the manager after a settings change. It receives
// the full override set and returns the replacement manager.
type RebuildFunc func(overrides map[string]string) (*core.Manager, error)

type Server struct {
	config     *config.Config
	logger     *utils.Logger
	settings   *database.SettingsStore
	rebuild    RebuildFunc
	hub        *EventHub
	httpServer *http.Server
	apiHandler *APIHandler

	mu      sync.RWMutex
	manager *core.Manager
}

func NewServer(cfg *config.Config, manager *core.Manager, settings *database.SettingsStore, rebuild RebuildFunc, logger *utils.Logger) *Server {
	s := &Server{
		config:   cfg,
		logger:   logger,
		settings: settings,
		rebuild:  rebuild,
		hub:      NewEventHub(logger),
		manager:  manager,
	}
	s.apiHandler = NewAPIHandler(s, logger, cfg)
	manager.AddJobListener(s.hub.Broadcast)
	return s
}

// Manager returns the active manager. Settings updates and config reloads
// swap it at runtime, so handlers must not cache the pointer.
func (s *Server) Manager() *core.Manager {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.manager
}

// SwapManager replaces the active manager, stopping the old one.
func (s *Server) SwapManager(manager *core.Manager) {
	s.mu.Lock()
	old := s.manager
	s.manager = manager
	s.mu.Unlock()

	manager.AddJobListener(s.hub.Broadcast)
	if old != nil {
		go old.Stop()
	}
	s.logger.Info("Server: manager swapped")
}

// ApplySettings persists overrides and rebuilds the manager with them.
func (s *Server) ApplySettings(overrides map[string]string) error {
	if err := s.settings.Update(overrides); err != nil {
		return fmt.Errorf("failed to persist settings: %w", err)
	}

	all, err := s.settings.Load()
	if err != nil {
		return fmt.Errorf("failed to reload settings: %w", err)
	}

	manager, err := s.rebuild(all)
	if err != nil {
		return fmt.Errorf("failed to rebuild with new settings: %w", err)
	}
	s.SwapManager(manager)
	return nil
}

func (s *Server) routes() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/health", s.apiHandler.Health).Methods("GET")

	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(s.apiKeyMiddleware)

	api.HandleFunc("/indexer", s.apiHandler.GetIndexer).Methods("GET")
	api.HandleFunc("/indexer/categories", s.apiHandler.GetCategories).Methods("GET")
	api.HandleFunc("/search", s.apiHandler.Search).Methods("GET")
	api.HandleFunc("/search", s.apiHandler.SubmitDownload).Methods("POST")
	api.HandleFunc("/jobs", s.apiHandler.ListJobs).Methods("GET")
	api.HandleFunc("/jobs/{id}", s.apiHandler.GetJob).Methods("GET")
	api.HandleFunc("/jobs/{id}", s.apiHandler.DeleteJob).Methods("DELETE")
	api.HandleFunc("/settings", s.apiHandler.UpdateSettings).Methods("PUT")
	api.HandleFunc("/test-connection", s.apiHandler.TestConnection).Methods("GET", "POST")
	api.HandleFunc("/status", s.apiHandler.GetStatus).Methods("GET")
	api.HandleFunc("/events", s.hub.HandleWS).Methods("GET")

	return router
}

func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.App.Port),
		Handler:      s.routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	s.logger.Info("Starting server on port", s.config.App.Port)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// apiKeyMiddleware accepts the key either as the X-Api-Key header or the
// apikey query parameter, matching how Prowlarr-compatible clients send it.
func (s *Server) apiKeyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("X-Api-Key")
		if key == "" {
			key = r.URL.Query().Get("apikey")
		}
		if key != s.config.App.APIKey {
			respondError(w, http.StatusUnauthorized, "invalid api key")
			return
		}
		next.ServeHTTP(w, r)
	})
}
