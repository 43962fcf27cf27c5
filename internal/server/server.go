// ABOUTME: HTTP server for the music analyzer
// ABOUTME: Routes the streaming WebSocket, one-shot analysis, and health endpoints
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/keyscope/keyscope-go/internal/config"
	"github.com/keyscope/keyscope-go/internal/discovery"
)

// Version is reported by the health endpoint.
const Version = "0.4.1"

// Server hosts the streaming and one-shot analysis endpoints.
type Server struct {
	mu  sync.RWMutex
	cfg config.Config

	mux        *http.ServeMux
	httpServer *http.Server
	upgrader   websocket.Upgrader
	pool       *Pool

	mdnsManager *discovery.Manager
	startTime   time.Time

	stopChan chan struct{}
	stopOnce sync.Once
}

// New creates a server and its analysis worker pool.
func New(cfg config.Config) *Server {
	s := &Server{
		cfg:  cfg,
		mux:  http.NewServeMux(),
		pool: NewPool(cfg.Workers),
		upgrader: websocket.Upgrader{
			// Streaming clients are native apps without an Origin
			// header; browsers on trusted networks are accepted too.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		startTime: time.Now(),
		stopChan:  make(chan struct{}),
	}

	s.mux.HandleFunc("/ws/audio", s.handleWebSocket)
	s.mux.HandleFunc("/analyze", s.handleAnalyze)
	s.mux.HandleFunc("/healthz", s.handleHealth)

	return s
}

// Handler exposes the route table, used directly by tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start runs the server until Stop is called or the listener fails.
func (s *Server) Start() error {
	cfg := s.config()

	if cfg.EnableMDNS {
		s.mdnsManager = discovery.NewManager(discovery.Config{
			ServiceName: cfg.Name,
			Port:        cfg.Port,
		})
		if err := s.mdnsManager.Advertise(); err != nil {
			log.Printf("Failed to start mDNS advertisement: %v", err)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	log.Printf("Analyzer %q listening on %s", cfg.Name, addr)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.mux,
	}

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	var serverErr error
	select {
	case <-s.stopChan:
		log.Printf("Server shutting down...")
	case err := <-errChan:
		log.Printf("HTTP server error: %v", err)
		serverErr = err
	}

	if s.mdnsManager != nil {
		s.mdnsManager.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	s.pool.Stop()
	log.Printf("Server stopped cleanly")

	if serverErr != nil {
		return fmt.Errorf("HTTP server failed: %w", serverErr)
	}
	return nil
}

// Stop signals Start to shut down. Safe to call more than once.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
}

// Close releases the worker pool without going through Start's shutdown
// path. Used by tests that serve the handler directly.
func (s *Server) Close() {
	s.pool.Stop()
}

// UpdateConfig applies a reloaded configuration. Only the API key, debug
// flag, and idle timeout take effect live; port and worker count changes
// need a restart.
func (s *Server) UpdateConfig(cfg config.Config) {
	s.mu.Lock()
	cfg.Port = s.cfg.Port
	cfg.Workers = s.cfg.Workers
	s.cfg = cfg
	s.mu.Unlock()
	log.Printf("Applied reloaded configuration")
}

func (s *Server) config() config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// handleWebSocket upgrades the connection and hands it to a session.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	log.Printf("New streaming connection from %s", r.RemoteAddr)

	cfg := s.config()
	newSession(conn, s.pool, time.Duration(cfg.IdleTimeout), cfg.Debug).run()
}

type healthResponse struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Status  string `json:"status"`
	Uptime  string `json:"uptime"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Name:    s.config().Name,
		Version: Version,
		Status:  "ok",
		Uptime:  time.Since(s.startTime).Round(time.Second).String(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}
