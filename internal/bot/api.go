package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// APIServer exposes the registry over HTTP for status display and
// pause/resume/stop control. It is advisory plumbing: the dashboard
// consumes snapshots, never the live RunState.
type APIServer struct {
	server   *http.Server
	registry *Registry
	relay    *RelayClient
	logger   *zap.Logger
}

// NewAPIServer creates an APIServer on the given port.
func NewAPIServer(registry *Registry, relay *RelayClient, port int, logger *zap.Logger) *APIServer {
	mux := http.NewServeMux()
	s := &APIServer{
		server:   &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux},
		registry: registry,
		relay:    relay,
		logger:   logger.Named("api-server"),
	}
	mux.HandleFunc("/status", s.statusHandler)
	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/relays", s.relaysHandler)
	mux.HandleFunc("/bots/pause", s.controlHandler((*Handle).Pause))
	mux.HandleFunc("/bots/resume", s.controlHandler((*Handle).Resume))
	mux.HandleFunc("/bots/stop", s.stopHandler)
	mux.HandleFunc("/bots/cleanup", s.cleanupHandler)
	return s
}

// Start runs the HTTP server in a new goroutine.
func (s *APIServer) Start() {
	s.logger.Info("Starting API server", zap.String("address", s.server.Addr))
	go func() {
		if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
			s.logger.Error("API server failed", zap.Error(err))
		}
	}()
}

// Stop gracefully shuts down the server.
func (s *APIServer) Stop(ctx context.Context) error {
	s.logger.Info("Stopping API server...")
	return s.server.Shutdown(ctx)
}

func (s *APIServer) statusHandler(w http.ResponseWriter, _ *http.Request) {
	handles := s.registry.Handles()
	snapshots := make([]Snapshot, 0, len(handles))
	for _, h := range handles {
		snapshots = append(snapshots, h.loop.Snapshot())
	}
	s.writeJSON(w, snapshots)
}

func (s *APIServer) healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

func (s *APIServer) relaysHandler(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, s.relay.Stats())
}

func (s *APIServer) controlHandler(action func(*Handle)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h, ok := s.handleFor(w, r)
		if !ok {
			return
		}
		action(h)
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *APIServer) stopHandler(w http.ResponseWriter, r *http.Request) {
	h, ok := s.handleFor(w, r)
	if !ok {
		return
	}
	h.Stop()
	<-h.Done()
	h.MarkFinished()
	w.WriteHeader(http.StatusNoContent)
}

func (s *APIServer) cleanupHandler(w http.ResponseWriter, r *http.Request) {
	h, ok := s.handleFor(w, r)
	if !ok {
		return
	}
	if !h.Finished() {
		http.Error(w, "bot is still running; stop it first", http.StatusConflict)
		return
	}
	s.registry.Unregister(h.BotID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *APIServer) handleFor(w http.ResponseWriter, r *http.Request) (*Handle, bool) {
	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "missing id parameter", http.StatusBadRequest)
		return nil, false
	}
	h, ok := s.registry.Get(id)
	if !ok {
		http.Error(w, "unknown bot id", http.StatusNotFound)
		return nil, false
	}
	return h, true
}

func (s *APIServer) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to write response", zap.Error(err))
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}
