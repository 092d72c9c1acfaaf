package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/sbeier/audiosessions/internal/audio"
	"github.com/sbeier/audiosessions/internal/config"
	"github.com/sbeier/audiosessions/internal/logger"
	"github.com/sbeier/audiosessions/internal/store"
	"github.com/sbeier/audiosessions/internal/transcribe"
)

// Handler manages the API endpoints.
type Handler struct {
	config *config.Config
	store  *store.Store
	worker *transcribe.Worker
	hub    *Hub
	log    *logger.Logger
}

// NewHandler creates a new API handler. The worker's progress callback
// is wired to the websocket hub; completion callbacks are bound per job.
func NewHandler(cfg *config.Config, st *store.Store, worker *transcribe.Worker, log *logger.Logger) *Handler {
	h := &Handler{
		config: cfg,
		store:  st,
		worker: worker,
		hub:    NewHub(log),
		log:    log,
	}
	worker.OnProgress = func(current, total int) {
		h.hub.Broadcast(Event{Type: "progress", Current: current, Total: total})
	}
	return h
}

// RegisterRoutes registers all API routes on the given mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/settings", h.handleSettings)
	mux.HandleFunc("/api/devices", h.handleDevices)
	mux.HandleFunc("/api/sessions", h.handleSessions)
	mux.HandleFunc("/api/sessions/", h.handleSession)
	mux.HandleFunc("/ws", h.hub.handleWS)
}

// Event is one message on the websocket progress feed.
type Event struct {
	Type      string `json:"type"`
	SessionID int64  `json:"session_id,omitempty"`
	Current   int    `json:"current,omitempty"`
	Total     int    `json:"total,omitempty"`
	Text      string `json:"text,omitempty"`
	Error     string `json:"error,omitempty"`
}

// handleSettings handles GET and PUT /api/settings.
func (h *Handler) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		// Never expose the key over HTTP.
		shown := h.config.Clone()
		if shown.APIKey != "" {
			shown.APIKey = "****"
		}
		writeJSON(w, shown)
	case http.MethodPut:
		var updates map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if err := h.config.Update(updates); err != nil {
			http.Error(w, "Failed to update config: "+err.Error(), http.StatusBadRequest)
			return
		}
		if err := h.config.Save(config.GetConfigPath()); err != nil {
			http.Error(w, "Failed to save config: "+err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]string{"status": "ok"})
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleDevices returns the available audio input devices.
func (h *Handler) handleDevices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := audio.Initialize(); err != nil {
		http.Error(w, "Audio subsystem unavailable: "+err.Error(), http.StatusServiceUnavailable)
		return
	}
	defer audio.Terminate()

	devices, err := audio.ListInputDevices()
	if err != nil {
		http.Error(w, "Failed to list devices: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, devices)
}

// handleSessions handles GET /api/sessions.
func (h *Handler) handleSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sessions, err := h.store.List(r.URL.Query().Get("q"))
	if err != nil {
		http.Error(w, "Failed to list sessions: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if sessions == nil {
		sessions = []*store.Session{}
	}
	writeJSON(w, sessions)
}

// handleSession handles /api/sessions/{id} and /api/sessions/{id}/transcribe.
func (h *Handler) handleSession(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/sessions/")
	idStr, action, _ := strings.Cut(rest, "/")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		http.Error(w, "Invalid session id", http.StatusBadRequest)
		return
	}

	sess, err := h.store.Get(id)
	if err != nil {
		http.Error(w, "Failed to load session: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if sess == nil {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		writeJSON(w, sess)
	case action == "" && r.Method == http.MethodDelete:
		if err := h.store.Delete(id); err != nil {
			http.Error(w, "Failed to delete session: "+err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]string{"status": "deleted"})
	case action == "transcribe" && r.Method == http.MethodPost:
		h.startTranscription(w, sess)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// startTranscription kicks off a background transcription for a session.
// Progress and completion are reported on the websocket feed. The done
// callback is bound to this session when the job starts; a rejected
// start leaves the running job's callback untouched.
func (h *Handler) startTranscription(w http.ResponseWriter, sess *store.Session) {
	id := sess.ID
	done := func(res transcribe.Result) {
		if res.Err != nil {
			if err := h.store.UpdateStatus(id, store.StatusError); err != nil {
				h.log.Error("Failed to mark session %d as errored: %v", id, err)
			}
			h.hub.Broadcast(Event{Type: "error", SessionID: id, Error: res.Err.Error()})
			return
		}
		if err := h.store.UpdateTranscript(id, res.Text, res.Tokens, store.StatusCompleted); err != nil {
			h.log.Error("Failed to store transcript for session %d: %v", id, err)
		}
		h.hub.Broadcast(Event{Type: "done", SessionID: id, Text: res.Text})
	}

	if !h.worker.TranscribeAsync(context.Background(), sess.Path, done) {
		http.Error(w, "A transcription is already running", http.StatusConflict)
		return
	}
	if err := h.store.UpdateStatus(id, store.StatusPending); err != nil {
		h.log.Error("Failed to mark session %d as pending: %v", id, err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]interface{}{"status": "started", "session_id": id})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}
