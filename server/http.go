package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"
)

// MaxRequestBodySize caps JSON-RPC request bodies.
const MaxRequestBodySize = 1 << 20 // 1 MiB

// healthPayload is what GET /health returns. The endpoint is
// unauthenticated so load balancers and the profile connection test can
// probe it.
type healthPayload struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// Handler returns the HTTP surface: POST /mcp for JSON-RPC and
// GET /health for liveness.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/mcp", s.handleHTTP)
	mux.HandleFunc("/health", s.handleHealth)
	return mux
}

// ListenAndServe runs the HTTP transport until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	s.logger.Info("http transport listening", "addr", addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, MaxRequestBodySize))
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	w.Header().Set("Mcp-Session-Id", s.sessionID)

	resp := s.HandleMessage(r.Context(), body)
	if resp == nil {
		// Notification: acknowledge with no body.
		w.WriteHeader(http.StatusAccepted)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(healthPayload{Status: "healthy", Service: ServiceName})
}
