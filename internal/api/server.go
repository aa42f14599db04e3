package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"hftcore/internal/config"
)

// Server runs the HTTP/WebSocket observability API described in §6.6.
// The engine pushes live events into the embedded Hub via SetEventSink;
// Server additionally polls Provider on a timer so breaker/position
// state reaches clients even between fills.
type Server struct {
	cfg      config.APIConfig
	provider Provider
	hub      *Hub
	handlers *Handlers
	server   *http.Server
	logger   *slog.Logger
	stopCh   chan struct{}
}

// NewServer wires the mux, handlers and hub together. Call Hub() to pass
// the returned *Hub to engine.SetEventSink.
func NewServer(cfg config.APIConfig, provider Provider, logger *slog.Logger) *Server {
	hub := NewHub(logger)
	handlers := NewHandlers(provider, cfg, hub, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", handlers.HandleHealth)
	mux.HandleFunc("/api/snapshot", handlers.HandleSnapshot)
	mux.HandleFunc("/api/export/audit", handlers.HandleAuditExport)
	mux.HandleFunc("/ws", handlers.HandleWebSocket)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		cfg:      cfg,
		provider: provider,
		hub:      hub,
		handlers: handlers,
		server:   server,
		logger:   logger.With("component", "api-server"),
		stopCh:   make(chan struct{}),
	}
}

// Hub returns the event sink the caller should hand to
// engine.Engine.SetEventSink.
func (s *Server) Hub() *Hub { return s.hub }

// Start runs the hub, the periodic snapshot broadcaster and the HTTP
// server. Blocks until Stop is called or ListenAndServe fails.
func (s *Server) Start() error {
	go s.hub.Run()
	go s.broadcastSnapshots()

	s.logger.Info("api server starting", "addr", s.server.Addr)

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop() error {
	s.logger.Info("stopping api server")
	close(s.stopCh)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}

func (s *Server) broadcastSnapshots() {
	interval := s.cfg.PingInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.hub.BroadcastEvent(newDashboardEvent("snapshot", BuildSnapshot(s.provider)))
		case <-s.stopCh:
			return
		}
	}
}
