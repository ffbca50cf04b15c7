// Package download coordinates video acquisitions: one extractor run per
// video id regardless of how many clients ask, with progress fanned out to
// every subscriber and an automatic credential retry chain for
// age-restricted videos.
package download

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ivlis-studio/ivlyrics-helper/internal/cache"
	"github.com/ivlis-studio/ivlyrics-helper/internal/credentials"
	"github.com/ivlis-studio/ivlyrics-helper/internal/extractor"
	"github.com/ivlis-studio/ivlyrics-helper/internal/progress"
)

// Fetcher runs the extractor. It is the Supervisor in production and a stub
// in tests.
type Fetcher interface {
	Ensure(ctx context.Context) error
	Fetch(ctx context.Context, videoID string, sink extractor.Sink, cred credentials.Credential) (string, error)
}

// CredentialSource yields the retry chain for age-restricted videos.
type CredentialSource interface {
	Ordered() []credentials.Credential
}

// Coordinator serializes acquisitions per video id. Concurrent requests for
// the same id share one broadcaster and one extractor run.
type Coordinator struct {
	mu     sync.Mutex
	active map[string]*progress.Broadcaster

	fetcher  Fetcher
	resolver CredentialSource
	store    *cache.Store
	baseURL  string
	logger   *slog.Logger
}

// NewCoordinator wires the coordinator. baseURL is the externally reachable
// server root used to build file URLs, e.g. "http://localhost:15123".
func NewCoordinator(fetcher Fetcher, resolver CredentialSource, store *cache.Store, baseURL string, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		active:   make(map[string]*progress.Broadcaster),
		fetcher:  fetcher,
		resolver: resolver,
		store:    store,
		baseURL:  baseURL,
		logger:   logger.With("component", "download"),
	}
}

// FileURL returns the URL a client fetches the cached file from.
func (c *Coordinator) FileURL(filename string) string {
	return c.baseURL + "/video/files/" + filename
}

// StartOrSubscribe joins the acquisition for the id, starting it if none is
// in flight. The returned subscription ends with exactly one terminal event
// unless the subscriber falls too far behind.
func (c *Coordinator) StartOrSubscribe(videoID string) *progress.Subscription {
	c.mu.Lock()
	if b, ok := c.active[videoID]; ok {
		sub := b.Subscribe()
		c.mu.Unlock()
		c.logger.Debug("joined in-flight acquisition", "video_id", videoID)
		return sub
	}

	b := progress.NewBroadcaster(c.logger)
	c.active[videoID] = b
	sub := b.Subscribe()
	c.mu.Unlock()

	go c.run(videoID, b)
	return sub
}

// Active reports whether an acquisition for the id is in flight.
func (c *Coordinator) Active(videoID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.active[videoID]
	return ok
}

// run owns the whole lifecycle of one acquisition. It always publishes
// exactly one terminal event, then retires the registry entry before closing
// the broadcaster so a request arriving after the terminal event starts
// fresh instead of joining a closed stream.
func (c *Coordinator) run(videoID string, b *progress.Broadcaster) {
	defer func() {
		c.mu.Lock()
		delete(c.active, videoID)
		c.mu.Unlock()
		b.Close()
	}()

	ctx := context.Background()

	if filename, ok := c.store.Lookup(videoID); ok {
		c.logger.Info("video already cached", "video_id", videoID, "file", filename)
		b.Publish(progress.NewEvent(videoID, progress.StatusAlreadyExists, c.FileURL(filename)).WithPercent(100))
		return
	}

	if err := c.fetcher.Ensure(ctx); err != nil {
		c.logger.Error("extractor unavailable", "error", err)
		b.Publish(progress.NewEvent(videoID, progress.StatusError, fmt.Sprintf("Failed to prepare downloader: %v", err)))
		return
	}

	filename, err := c.fetcher.Fetch(ctx, videoID, b.Publish, credentials.None)
	if err != nil && extractor.IsAgeRestricted(err) {
		filename, err = c.retryWithCredentials(ctx, videoID, b)
	}

	if err != nil {
		c.logger.Warn("acquisition failed", "video_id", videoID, "error", err)
		b.Publish(progress.NewEvent(videoID, progress.StatusError, err.Error()))
		return
	}

	if err := c.store.Prune(); err != nil {
		c.logger.Warn("cache prune failed", "error", err)
	}

	c.logger.Info("acquisition completed", "video_id", videoID, "file", filename)
	b.Publish(progress.NewEvent(videoID, progress.StatusCompleted, c.FileURL(filename)).WithPercent(100))
}

// retryWithCredentials walks the credential chain for an age-restricted
// video. Age-restriction and cookie extraction failures advance to the next
// credential; any other failure aborts the chain.
func (c *Coordinator) retryWithCredentials(ctx context.Context, videoID string, b *progress.Broadcaster) (string, error) {
	creds := c.resolver.Ordered()
	if len(creds) == 0 {
		return "", errors.New("Age-restricted video. No cookies.txt or supported browsers found. Please set a cookies.txt file in Settings.")
	}

	for _, cred := range creds {
		c.logger.Info("retrying age-restricted video", "video_id", videoID, "credential", cred.String())
		b.Publish(progress.NewEvent(videoID, progress.StatusChecking, fmt.Sprintf("Trying with %s...", cred.Describe())).WithPercent(0))

		filename, err := c.fetcher.Fetch(ctx, videoID, b.Publish, cred)
		if err == nil {
			return filename, nil
		}
		if extractor.IsAgeRestricted(err) || extractor.IsCookieFailure(err) {
			continue
		}
		return "", err
	}

	return "", errors.New("Age-restricted video. Please set a valid cookies.txt file in Settings. See the help (?) for instructions.")
}
