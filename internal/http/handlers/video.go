// Package handlers implements the API endpoints served to the extension.
package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ivlis-studio/ivlyrics-helper/internal/cache"
	"github.com/ivlis-studio/ivlyrics-helper/internal/download"
	"github.com/ivlis-studio/ivlyrics-helper/internal/progress"
)

// maxVideoIDLength bounds the id query parameter; real video ids are 11
// characters, the slack tolerates format changes without accepting garbage.
const maxVideoIDLength = 20

// VideoResponse is the JSON reply for non-streaming video endpoints.
type VideoResponse struct {
	Success bool    `json:"success"`
	VideoID string  `json:"video_id"`
	URL     *string `json:"url"`
	Message *string `json:"message"`
}

// VideoHandler serves video requests: cache hits as plain JSON, cache misses
// as an SSE progress stream that ends once the download settles.
type VideoHandler struct {
	coordinator       *download.Coordinator
	store             *cache.Store
	heartbeatInterval time.Duration
	logger            *slog.Logger
}

// NewVideoHandler creates the handler.
func NewVideoHandler(coordinator *download.Coordinator, store *cache.Store, logger *slog.Logger) *VideoHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &VideoHandler{
		coordinator:       coordinator,
		store:             store,
		heartbeatInterval: 30 * time.Second,
		logger:            logger.With("component", "http"),
	}
}

// SetHeartbeatInterval overrides the SSE heartbeat interval (for testing).
func (h *VideoHandler) SetHeartbeatInterval(interval time.Duration) {
	h.heartbeatInterval = interval
}

// Register mounts the video routes.
func (h *VideoHandler) Register(r chi.Router) {
	r.Get("/video/request", h.handleRequest)
	r.Get("/video/status", h.handleStatus)
	r.Get("/health", h.handleHealth)
	r.Handle("/video/files/*", http.StripPrefix("/video/files/", http.FileServer(http.Dir(h.store.Dir()))))
}

func (h *VideoHandler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Write([]byte("OK"))
}

// handleRequest answers GET /video/request?id=<video_id>. A cached video gets
// its URL immediately; anything else joins or starts a download and streams
// progress over SSE.
func (h *VideoHandler) handleRequest(w http.ResponseWriter, r *http.Request) {
	videoID := strings.TrimSpace(r.URL.Query().Get("id"))

	if videoID == "" || len(videoID) > maxVideoIDLength {
		writeJSON(w, http.StatusBadRequest, VideoResponse{
			Success: false,
			VideoID: videoID,
			Message: ptr("Invalid video ID"),
		})
		return
	}

	if filename, ok := h.store.Lookup(videoID); ok {
		writeJSON(w, http.StatusOK, VideoResponse{
			Success: true,
			VideoID: videoID,
			URL:     ptr(h.coordinator.FileURL(filename)),
			Message: ptr("Video already available"),
		})
		return
	}

	sub := h.coordinator.StartOrSubscribe(videoID)
	defer sub.Cancel()
	h.streamProgress(w, r, sub)
}

// handleStatus answers GET /video/status?id=<video_id> without triggering a
// download.
func (h *VideoHandler) handleStatus(w http.ResponseWriter, r *http.Request) {
	videoID := strings.TrimSpace(r.URL.Query().Get("id"))

	if videoID == "" || len(videoID) > maxVideoIDLength {
		writeJSON(w, http.StatusBadRequest, VideoResponse{
			Success: false,
			VideoID: videoID,
			Message: ptr("Invalid video ID"),
		})
		return
	}

	if filename, ok := h.store.Lookup(videoID); ok {
		writeJSON(w, http.StatusOK, VideoResponse{
			Success: true,
			VideoID: videoID,
			URL:     ptr(h.coordinator.FileURL(filename)),
			Message: ptr("Video available"),
		})
		return
	}

	writeJSON(w, http.StatusOK, VideoResponse{
		Success: false,
		VideoID: videoID,
		Message: ptr("Video not downloaded"),
	})
}

// streamProgress relays subscription events as SSE until the stream ends or
// the client goes away. Terminal events are named "complete" so EventSource
// clients can close without treating the server-side EOF as an error.
func (h *VideoHandler) streamProgress(w http.ResponseWriter, r *http.Request, sub *progress.Subscription) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	rc := http.NewResponseController(w)

	fmt.Fprintf(w, ":connected\n\n")
	if err := rc.Flush(); err != nil {
		h.logger.Error("failed to flush initial SSE response", "error", err)
		return
	}

	heartbeat := time.NewTicker(h.heartbeatInterval)
	defer heartbeat.Stop()

	ctx := r.Context()

	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			fmt.Fprintf(w, ":heartbeat %d\n\n", time.Now().Unix())
			if err := rc.Flush(); err != nil {
				h.logger.Debug("heartbeat flush failed, client likely disconnected", "error", err)
				return
			}
		case event, ok := <-sub.Events:
			if !ok {
				return
			}
			if err := writeSSEEvent(w, event); err != nil {
				h.logger.Error("failed to write SSE event",
					"video_id", event.VideoID,
					"status", event.Status,
					"error", err,
				)
				return
			}
			if err := rc.Flush(); err != nil {
				h.logger.Debug("event flush failed, client likely disconnected", "error", err)
				return
			}
		}
	}
}

// writeSSEEvent frames one progress event.
func writeSSEEvent(w http.ResponseWriter, event progress.Event) error {
	name := "progress"
	if event.Status.IsTerminal() {
		name = "complete"
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	// One write per message keeps the frame intact under concurrent flushes.
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data)
	return err
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Debug("failed to encode response", "error", err)
	}
}

func ptr[T any](v T) *T { return &v }
