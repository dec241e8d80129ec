// ABOUTME: HTTP surface of the event bridge: webhook ingest, SSE stream, health
// ABOUTME: Extracts text messages from webhook deliveries and queues them for fan-out

package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/2389/mcp-bridge/internal/dedupe"
)

// MaxRequestBodySize is the maximum allowed size for webhook bodies (1MB).
const MaxRequestBodySize = 1 << 20

// Recorder persists accepted events for audit and history. Failures are
// logged and never block the broadcast path.
type Recorder interface {
	SaveEvent(ctx context.Context, sender, text string, raw []byte) error
}

// ServerConfig holds the dependencies of the bridge HTTP server.
type ServerConfig struct {
	Broadcaster *Broadcaster
	Recorder    Recorder      // optional event ledger
	Seen        *dedupe.Cache // optional webhook dedupe
	Trigger     *Trigger      // optional agent trigger
	Logger      *slog.Logger
}

// Server exposes the bridge over HTTP: POST /webhook for ingest,
// GET /events for the SSE stream, GET /health for liveness.
type Server struct {
	broadcaster *Broadcaster
	recorder    Recorder
	seen        *dedupe.Cache
	trigger     *Trigger
	logger      *slog.Logger
}

// NewServer creates a bridge server. Broadcaster is required; recorder,
// dedupe cache, and trigger are optional.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Broadcaster == nil {
		return nil, errors.New("broadcaster is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		broadcaster: cfg.Broadcaster,
		recorder:    cfg.Recorder,
		seen:        cfg.Seen,
		trigger:     cfg.Trigger,
		logger:      logger.With("component", "bridge"),
	}, nil
}

// RegisterRoutes registers the bridge endpoints on the given ServeMux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/webhook", s.handleWebhook)
	mux.HandleFunc("/events", s.handleEvents)
	mux.HandleFunc("/health", s.handleHealth)
}

// handleWebhook accepts one inbound update. Payloads without extractable
// text are accepted (200) but ignored; malformed JSON is a client error.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, MaxRequestBodySize+1))
	if err != nil {
		s.sendJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "failed to read body"})
		return
	}
	if int64(len(body)) > MaxRequestBodySize {
		s.sendJSON(w, http.StatusRequestEntityTooLarge, map[string]any{"ok": false, "error": "body too large"})
		return
	}

	var u update
	if err := json.Unmarshal(body, &u); err != nil {
		s.sendJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "invalid JSON payload"})
		return
	}

	event, ok := extractEvent(body, &u)
	if !ok {
		s.logger.Info("received update without text message, ignoring")
		s.sendJSON(w, http.StatusOK, map[string]any{"ok": true, "ignored": true})
		return
	}

	if s.seen != nil && u.UpdateID != nil {
		key := strconv.FormatInt(*u.UpdateID, 10)
		if s.seen.CheckAndMark(key) {
			s.logger.Info("duplicate update, not re-queued", "update_id", key)
			s.sendJSON(w, http.StatusOK, map[string]any{"ok": true, "duplicate": true})
			return
		}
	}

	if s.recorder != nil {
		if err := s.recorder.SaveEvent(r.Context(), event.Sender, event.Text, body); err != nil {
			s.logger.Error("failed to persist event", "error", err)
		}
	}

	s.broadcaster.Ingest(event)

	if s.trigger != nil {
		s.trigger.Fire()
	}

	s.logger.Info("queued message", "sender", event.Sender, "text", event.Text)
	s.sendJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// handleEvents streams events to one subscriber as server-sent events.
// De-registration is guaranteed on every exit path.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.logger.Error("streaming not supported")
		s.sendJSON(w, http.StatusInternalServerError, map[string]any{"error": "streaming not supported"})
		return
	}

	sub := s.broadcaster.Subscribe()
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-sub.Events():
			if !ok {
				return
			}
			payload, err := json.Marshal(map[string]string{"query": event.Text})
			if err != nil {
				s.logger.Error("failed to marshal SSE data", "error", err)
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		}
	}
}

// handleHealth reports a static running status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	s.sendJSON(w, http.StatusOK, map[string]string{"status": "running"})
}

func (s *Server) sendJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("failed to write response", "error", err)
	}
}
