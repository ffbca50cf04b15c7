package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlis-studio/ivlyrics-helper/internal/cache"
	"github.com/ivlis-studio/ivlyrics-helper/internal/credentials"
	"github.com/ivlis-studio/ivlyrics-helper/internal/download"
	"github.com/ivlis-studio/ivlyrics-helper/internal/extractor"
	"github.com/ivlis-studio/ivlyrics-helper/internal/progress"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// stubFetcher simulates one extractor run writing a file into the store.
type stubFetcher struct {
	store *cache.Store
	err   error
}

func (f *stubFetcher) Ensure(context.Context) error { return nil }

func (f *stubFetcher) Fetch(_ context.Context, videoID string, sink extractor.Sink, _ credentials.Credential) (string, error) {
	sink(progress.NewEvent(videoID, progress.StatusChecking, "Checking video availability...").WithPercent(0))
	if f.err != nil {
		return "", f.err
	}
	sink(progress.NewEvent(videoID, progress.StatusDownloading, "Downloading: 50.0%").WithPercent(50))
	name := videoID + ".webm"
	if err := os.WriteFile(f.store.Path(name), []byte("video-bytes"), 0o644); err != nil {
		return "", err
	}
	return name, nil
}

type stubResolver struct{}

func (stubResolver) Ordered() []credentials.Credential { return nil }

func newTestServer(t *testing.T, fetchErr error) (*httptest.Server, *cache.Store) {
	t.Helper()
	store := cache.NewStore(t.TempDir(), func() int64 { return 0 }, testLogger())
	coordinator := download.NewCoordinator(&stubFetcher{store: store, err: fetchErr}, stubResolver{}, store, "http://localhost:15123", testLogger())

	h := NewVideoHandler(coordinator, store, testLogger())
	h.SetHeartbeatInterval(time.Hour)

	router := chi.NewRouter()
	h.Register(router)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, store
}

func getJSON(t *testing.T, url string) (int, VideoResponse) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body VideoResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func TestVideoRequest_InvalidID(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	for _, id := range []string{"", "   ", "thisvideoidiswaytoolong"} {
		code, body := getJSON(t, srv.URL+"/video/request?id="+strings.TrimSpace(id))
		assert.Equal(t, http.StatusBadRequest, code)
		assert.False(t, body.Success)
		require.NotNil(t, body.Message)
		assert.Equal(t, "Invalid video ID", *body.Message)
	}
}

func TestVideoRequest_CacheHitIsPlainJSON(t *testing.T) {
	srv, store := newTestServer(t, nil)
	require.NoError(t, os.WriteFile(filepath.Join(store.Dir(), "abc123.webm"), []byte("x"), 0o644))

	code, body := getJSON(t, srv.URL+"/video/request?id=abc123")
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, body.Success)
	assert.Equal(t, "abc123", body.VideoID)
	require.NotNil(t, body.URL)
	assert.Equal(t, "http://localhost:15123/video/files/abc123.webm", *body.URL)
	require.NotNil(t, body.Message)
	assert.Equal(t, "Video already available", *body.Message)
}

func TestVideoRequest_CacheMissStreamsSSE(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	resp, err := http.Get(srv.URL + "/video/request?id=abc123")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	body := string(raw)

	assert.Contains(t, body, ":connected")
	assert.Contains(t, body, "event: progress")
	assert.Contains(t, body, "event: complete")

	// The terminal frame carries the completed event with the file URL.
	idx := strings.Index(body, "event: complete")
	require.NotEqual(t, -1, idx)
	dataLine := strings.TrimPrefix(strings.SplitN(body[idx:], "\n", 3)[1], "data: ")

	var event progress.Event
	require.NoError(t, json.Unmarshal([]byte(dataLine), &event))
	assert.Equal(t, progress.StatusCompleted, event.Status)
	require.NotNil(t, event.Message)
	assert.Equal(t, "http://localhost:15123/video/files/abc123.webm", *event.Message)
}

func TestVideoRequest_FailureEndsStreamWithError(t *testing.T) {
	fetchErr := &extractor.RunError{Kind: extractor.FailureOther, Stderr: "ERROR: Video unavailable"}
	srv, _ := newTestServer(t, fetchErr)

	resp, err := http.Get(srv.URL + "/video/request?id=abc123")
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	body := string(raw)

	assert.Contains(t, body, "event: complete")
	assert.Contains(t, body, `"status":"error"`)
	assert.Contains(t, body, "Video unavailable")
}

func TestVideoStatus(t *testing.T) {
	srv, store := newTestServer(t, nil)

	code, body := getJSON(t, srv.URL+"/video/status?id=abc123")
	assert.Equal(t, http.StatusOK, code)
	assert.False(t, body.Success)
	require.NotNil(t, body.Message)
	assert.Equal(t, "Video not downloaded", *body.Message)

	require.NoError(t, os.WriteFile(filepath.Join(store.Dir(), "abc123.webm"), []byte("x"), 0o644))

	code, body = getJSON(t, srv.URL+"/video/status?id=abc123")
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, body.Success)
	require.NotNil(t, body.URL)
	assert.Equal(t, "http://localhost:15123/video/files/abc123.webm", *body.URL)
	require.NotNil(t, body.Message)
	assert.Equal(t, "Video available", *body.Message)
}

func TestVideoStatus_InvalidID(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	code, body := getJSON(t, srv.URL+"/video/status?id=thisvideoidiswaytoolong")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.False(t, body.Success)
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", string(raw))
}

func TestVideoFiles_ServesCachedFile(t *testing.T) {
	srv, store := newTestServer(t, nil)
	require.NoError(t, os.WriteFile(filepath.Join(store.Dir(), "abc123.webm"), []byte("video-bytes"), 0o644))

	resp, err := http.Get(srv.URL + "/video/files/abc123.webm")
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "video-bytes", string(raw))
}
