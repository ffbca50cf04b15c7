// Package extractor supervises the external yt-dlp binary: provisioning it
// from the release feed, invoking it per video, and translating its output
// into progress events and a typed failure taxonomy.
package extractor

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ivlis-studio/ivlyrics-helper/internal/credentials"
	"github.com/ivlis-studio/ivlyrics-helper/internal/progress"
)

// watchURLPrefix is where the opaque video id is appended verbatim.
const watchURLPrefix = "https://www.youtube.com/watch?v="

// Sink receives progress events parsed from the extractor's stdout.
type Sink func(progress.Event)

// Supervisor owns the extractor binary and the cache directory it writes to.
type Supervisor struct {
	binaryPath string
	cacheDir   string
	client     *http.Client
	logger     *slog.Logger

	// releaseAPI is the release feed endpoint, overridable in tests.
	releaseAPI string
}

// NewSupervisor creates a supervisor for the binary at binaryPath writing
// downloads into cacheDir.
func NewSupervisor(binaryPath, cacheDir string, logger *slog.Logger) *Supervisor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Supervisor{
		binaryPath: binaryPath,
		cacheDir:   cacheDir,
		client:     &http.Client{Timeout: 5 * time.Minute},
		logger:     logger.With("component", "extractor"),
		releaseAPI: defaultReleaseAPI,
	}
}

// BinaryPath returns the expected binary location.
func (s *Supervisor) BinaryPath() string {
	return s.binaryPath
}

// Fetch runs the extractor for one video id and blocks until it exits.
// Progress parsed from stdout goes to sink; stderr is collected for error
// classification. On success it returns the filename of the cache entry the
// extractor produced. Fetch never emits a terminal event; the coordinator
// owns those.
func (s *Supervisor) Fetch(ctx context.Context, videoID string, sink Sink, cred credentials.Credential) (string, error) {
	checking := "Checking video availability..."
	if !cred.IsNone() {
		checking = fmt.Sprintf("Checking video with %s...", cred.Describe())
	}
	sink(progress.NewEvent(videoID, progress.StatusChecking, checking).WithPercent(0))

	args := s.buildArgs(videoID, cred)
	s.logger.Debug("invoking extractor", "video_id", videoID, "credential", cred.String())

	cmd := exec.CommandContext(ctx, s.binaryPath, args...)
	hideWindow(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", fmt.Errorf("getting stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return "", fmt.Errorf("getting stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("starting extractor: %w", err)
	}

	// Both pipes are drained concurrently with the child running; draining
	// stdout before waiting on stderr would deadlock once a pipe fills.
	var stderrLines []string
	g := new(errgroup.Group)
	g.Go(func() error {
		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			line := scanner.Text()
			s.logger.Debug("extractor stdout", "line", line)
			if event, ok := parseProgressLine(videoID, line); ok {
				sink(event)
			}
		}
		return scanner.Err()
	})
	g.Go(func() error {
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			line := scanner.Text()
			s.logger.Warn("extractor stderr", "line", line)
			stderrLines = append(stderrLines, line)
		}
		return scanner.Err()
	})

	readErr := g.Wait()
	waitErr := cmd.Wait()

	if waitErr != nil {
		combined := strings.Join(stderrLines, "\n")
		if combined == "" {
			combined = fmt.Sprintf("extractor exited with status: %v", waitErr)
		} else {
			combined = "ERROR: " + combined
		}
		return "", &RunError{Kind: Classify(combined), Stderr: combined}
	}
	if readErr != nil {
		return "", fmt.Errorf("reading extractor output: %w", readErr)
	}

	filename, ok := s.findDownloaded(videoID)
	if !ok {
		return "", fmt.Errorf("downloaded file not found for %q", videoID)
	}
	return filename, nil
}

// buildArgs assembles the fixed invocation: prefer a <=1080p video-only webm,
// no playlist expansion, newline-delimited machine progress, the web player
// client, restricted filenames, and an "{id}.{ext}" output template in the
// cache directory. Credentials append their own flags.
func (s *Supervisor) buildArgs(videoID string, cred credentials.Credential) []string {
	args := []string{
		"-f", "bestvideo[height<=1080][ext=webm]/bestvideo[height<=1080]/bestvideo[ext=webm]/bestvideo",
		"--no-playlist",
		"--progress",
		"--newline",
		"--extractor-args", "youtube:player_client=web",
		"--restrict-filenames",
	}
	args = append(args, cred.ExtractorArgs()...)
	args = append(args,
		"-o", filepath.Join(s.cacheDir, "%(id)s.%(ext)s"),
		watchURLPrefix+videoID,
	)
	return args
}

// findDownloaded locates the file the extractor produced for the id.
func (s *Supervisor) findDownloaded(videoID string) (string, bool) {
	entries, err := os.ReadDir(s.cacheDir)
	if err != nil {
		return "", false
	}
	for _, entry := range entries {
		if entry.Type().IsRegular() && strings.HasPrefix(entry.Name(), videoID) {
			return entry.Name(), true
		}
	}
	return "", false
}
