package download

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlis-studio/ivlyrics-helper/internal/cache"
	"github.com/ivlis-studio/ivlyrics-helper/internal/credentials"
	"github.com/ivlis-studio/ivlyrics-helper/internal/extractor"
	"github.com/ivlis-studio/ivlyrics-helper/internal/progress"
)

const testBaseURL = "http://localhost:15123"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// stubFetcher scripts per-credential outcomes keyed by Credential.String().
type stubFetcher struct {
	mu       sync.Mutex
	results  map[string]error
	filename string
	calls    []string
	fetches  atomic.Int32
	delay    time.Duration
	store    *cache.Store
}

func (f *stubFetcher) Ensure(context.Context) error { return nil }

func (f *stubFetcher) Fetch(_ context.Context, videoID string, sink extractor.Sink, cred credentials.Credential) (string, error) {
	f.fetches.Add(1)
	f.mu.Lock()
	f.calls = append(f.calls, cred.String())
	err := f.results[cred.String()]
	f.mu.Unlock()

	sink(progress.NewEvent(videoID, progress.StatusChecking, "Checking video availability...").WithPercent(0))
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if err != nil {
		return "", err
	}
	name := f.filename
	if name == "" {
		name = videoID + ".webm"
	}
	if f.store != nil {
		_ = os.WriteFile(f.store.Path(name), []byte("x"), 0o644)
	}
	return name, nil
}

type stubResolver struct {
	creds []credentials.Credential
}

func (r *stubResolver) Ordered() []credentials.Credential { return r.creds }

func newTestStore(t *testing.T) *cache.Store {
	t.Helper()
	return cache.NewStore(t.TempDir(), func() int64 { return 0 }, testLogger())
}

func drain(t *testing.T, sub *progress.Subscription) []progress.Event {
	t.Helper()
	var events []progress.Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case e, ok := <-sub.Events:
			if !ok {
				return events
			}
			events = append(events, e)
		case <-timeout:
			t.Fatal("timed out waiting for the stream to end")
		}
	}
}

func lastEvent(t *testing.T, events []progress.Event) progress.Event {
	t.Helper()
	require.NotEmpty(t, events)
	return events[len(events)-1]
}

func TestAcquisition_Success(t *testing.T) {
	store := newTestStore(t)
	fetcher := &stubFetcher{results: map[string]error{}, store: store}
	c := NewCoordinator(fetcher, &stubResolver{}, store, testBaseURL, testLogger())

	events := drain(t, c.StartOrSubscribe("abc123"))

	last := lastEvent(t, events)
	assert.Equal(t, progress.StatusCompleted, last.Status)
	require.NotNil(t, last.Message)
	assert.Equal(t, testBaseURL+"/video/files/abc123.webm", *last.Message)

	// Exactly one terminal event, and it is the last.
	terminals := 0
	for _, e := range events {
		if e.Status.IsTerminal() {
			terminals++
		}
	}
	assert.Equal(t, 1, terminals)
}

func TestAcquisition_AlreadyCached(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, os.WriteFile(filepath.Join(store.Dir(), "abc123.webm"), []byte("x"), 0o644))

	fetcher := &stubFetcher{results: map[string]error{}}
	c := NewCoordinator(fetcher, &stubResolver{}, store, testBaseURL, testLogger())

	events := drain(t, c.StartOrSubscribe("abc123"))

	require.Len(t, events, 1)
	assert.Equal(t, progress.StatusAlreadyExists, events[0].Status)
	require.NotNil(t, events[0].Message)
	assert.Equal(t, testBaseURL+"/video/files/abc123.webm", *events[0].Message)
	assert.Zero(t, fetcher.fetches.Load(), "no extractor run for a cached video")
}

func TestAcquisition_SingleFlight(t *testing.T) {
	store := newTestStore(t)
	fetcher := &stubFetcher{results: map[string]error{}, store: store, delay: 50 * time.Millisecond}
	c := NewCoordinator(fetcher, &stubResolver{}, store, testBaseURL, testLogger())

	const n = 8
	var wg sync.WaitGroup
	results := make([][]progress.Event, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = drain(t, c.StartOrSubscribe("abc123"))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), fetcher.fetches.Load(), "one extractor run for concurrent requests")
	for i := 0; i < n; i++ {
		// A request landing after the run finished sees the cache instead.
		last := lastEvent(t, results[i])
		assert.True(t, last.Status == progress.StatusCompleted || last.Status == progress.StatusAlreadyExists,
			"terminal status was %s", last.Status)
	}
	assert.False(t, c.Active("abc123"))
}

func TestAcquisition_RetriesCredentialsInOrder(t *testing.T) {
	store := newTestStore(t)
	ageErr := &extractor.RunError{Kind: extractor.FailureAgeRestricted, Stderr: "Sign in to confirm your age"}
	copyErr := &extractor.RunError{Kind: extractor.FailureCookieDBCopy, Stderr: "Could not copy Chrome cookie database"}

	jar := credentials.FromCookieFile("/tmp/youtube_cookie.txt")
	firefox := credentials.FromBrowser("firefox")
	chrome := credentials.FromBrowser("chrome")

	fetcher := &stubFetcher{
		store: store,
		results: map[string]error{
			credentials.None.String(): ageErr,
			jar.String():              ageErr,
			firefox.String():          copyErr,
			chrome.String():           nil,
		},
	}
	c := NewCoordinator(fetcher, &stubResolver{creds: []credentials.Credential{jar, firefox, chrome}}, store, testBaseURL, testLogger())

	events := drain(t, c.StartOrSubscribe("abc123"))

	last := lastEvent(t, events)
	assert.Equal(t, progress.StatusCompleted, last.Status)
	assert.Equal(t, []string{
		credentials.None.String(),
		jar.String(),
		firefox.String(),
		chrome.String(),
	}, fetcher.calls)

	var messages []string
	for _, e := range events {
		if e.Message != nil {
			messages = append(messages, *e.Message)
		}
	}
	assert.Contains(t, messages, "Trying with cookies.txt file...")
	assert.Contains(t, messages, "Trying with firefox cookies...")
	assert.Contains(t, messages, "Trying with chrome cookies...")
}

func TestAcquisition_ChainExhausted(t *testing.T) {
	store := newTestStore(t)
	ageErr := &extractor.RunError{Kind: extractor.FailureAgeRestricted, Stderr: "Sign in to confirm your age"}

	firefox := credentials.FromBrowser("firefox")
	fetcher := &stubFetcher{
		results: map[string]error{
			credentials.None.String(): ageErr,
			firefox.String():          ageErr,
		},
	}
	c := NewCoordinator(fetcher, &stubResolver{creds: []credentials.Credential{firefox}}, store, testBaseURL, testLogger())

	events := drain(t, c.StartOrSubscribe("abc123"))

	last := lastEvent(t, events)
	assert.Equal(t, progress.StatusError, last.Status)
	require.NotNil(t, last.Message)
	assert.Contains(t, *last.Message, "Please set a valid cookies.txt file")
}

func TestAcquisition_NoCredentialsAvailable(t *testing.T) {
	store := newTestStore(t)
	ageErr := &extractor.RunError{Kind: extractor.FailureAgeRestricted, Stderr: "Sign in to confirm your age"}

	fetcher := &stubFetcher{results: map[string]error{credentials.None.String(): ageErr}}
	c := NewCoordinator(fetcher, &stubResolver{}, store, testBaseURL, testLogger())

	events := drain(t, c.StartOrSubscribe("abc123"))

	last := lastEvent(t, events)
	assert.Equal(t, progress.StatusError, last.Status)
	require.NotNil(t, last.Message)
	assert.Contains(t, *last.Message, "No cookies.txt or supported browsers found")
}

func TestAcquisition_NonRetryableFailure(t *testing.T) {
	store := newTestStore(t)
	fetcher := &stubFetcher{
		results: map[string]error{
			credentials.None.String(): &extractor.RunError{Kind: extractor.FailureOther, Stderr: "ERROR: Video unavailable"},
		},
	}
	c := NewCoordinator(fetcher, &stubResolver{creds: []credentials.Credential{credentials.FromBrowser("firefox")}}, store, testBaseURL, testLogger())

	events := drain(t, c.StartOrSubscribe("abc123"))

	last := lastEvent(t, events)
	assert.Equal(t, progress.StatusError, last.Status)
	require.NotNil(t, last.Message)
	assert.Contains(t, *last.Message, "Video unavailable")
	assert.Equal(t, int32(1), fetcher.fetches.Load(), "no credential retry for non-restriction failures")
}

func TestAcquisition_AbortsChainOnOtherFailure(t *testing.T) {
	store := newTestStore(t)
	ageErr := &extractor.RunError{Kind: extractor.FailureAgeRestricted, Stderr: "Sign in to confirm your age"}

	firefox := credentials.FromBrowser("firefox")
	chrome := credentials.FromBrowser("chrome")
	fetcher := &stubFetcher{
		results: map[string]error{
			credentials.None.String(): ageErr,
			firefox.String():          &extractor.RunError{Kind: extractor.FailureOther, Stderr: "ERROR: network is unreachable"},
			chrome.String():           nil,
		},
	}
	c := NewCoordinator(fetcher, &stubResolver{creds: []credentials.Credential{firefox, chrome}}, store, testBaseURL, testLogger())

	events := drain(t, c.StartOrSubscribe("abc123"))

	last := lastEvent(t, events)
	assert.Equal(t, progress.StatusError, last.Status)
	assert.Equal(t, []string{credentials.None.String(), firefox.String()}, fetcher.calls)
}

func TestAcquisition_RegistryClearsAfterTerminal(t *testing.T) {
	store := newTestStore(t)
	fetcher := &stubFetcher{results: map[string]error{}, store: store}
	c := NewCoordinator(fetcher, &stubResolver{}, store, testBaseURL, testLogger())

	drain(t, c.StartOrSubscribe("abc123"))

	// Second request finds the cache populated and terminates immediately.
	events := drain(t, c.StartOrSubscribe("abc123"))
	assert.Equal(t, progress.StatusAlreadyExists, lastEvent(t, events).Status)
	assert.Equal(t, int32(1), fetcher.fetches.Load())
}
