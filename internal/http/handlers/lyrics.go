package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ivlis-studio/ivlyrics-helper/internal/lyrics"
)

// LyricsHandler relays lyrics and playback state between the extension and
// overlay clients. Writers replace the stored payload wholesale; readers get
// the latest copy or JSON null.
type LyricsHandler struct {
	store  *lyrics.Store
	logger *slog.Logger
}

// NewLyricsHandler creates the handler.
func NewLyricsHandler(store *lyrics.Store, logger *slog.Logger) *LyricsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LyricsHandler{
		store:  store,
		logger: logger.With("component", "http"),
	}
}

// Register mounts the lyrics routes.
func (h *LyricsHandler) Register(r chi.Router) {
	r.Post("/lyrics/sender", h.handleSetLyrics)
	r.Post("/lyrics/progress", h.handleSetProgress)
	r.Get("/lyrics/progress", h.handleGetProgress)
	r.Get("/lyrics/getfull", h.handleGetLyrics)
	r.Get("/lyrics/getnow", h.handleGetNow)
	r.Get("/lyrics/health", h.handleHealth)
}

func (h *LyricsHandler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Write([]byte("Lyrics Server OK"))
}

func (h *LyricsHandler) handleSetLyrics(w http.ResponseWriter, r *http.Request) {
	var data lyrics.LyricsData
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		h.logger.Warn("rejecting malformed lyrics payload", "error", err)
		http.Error(w, "invalid lyrics payload", http.StatusBadRequest)
		return
	}
	h.store.SetLyrics(data)
	w.Write([]byte("OK"))
}

func (h *LyricsHandler) handleSetProgress(w http.ResponseWriter, r *http.Request) {
	var data lyrics.ProgressData
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		h.logger.Warn("rejecting malformed progress payload", "error", err)
		http.Error(w, "invalid progress payload", http.StatusBadRequest)
		return
	}
	h.store.SetProgress(data)
	w.Write([]byte("OK"))
}

func (h *LyricsHandler) handleGetLyrics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.store.Lyrics())
}

func (h *LyricsHandler) handleGetProgress(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.store.Progress())
}

func (h *LyricsHandler) handleGetNow(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.store.CurrentLine())
}
