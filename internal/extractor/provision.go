package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"

	"github.com/ivlis-studio/ivlyrics-helper/internal/version"
)

const defaultReleaseAPI = "https://api.github.com/repos/yt-dlp/yt-dlp/releases/latest"

type releaseAsset struct {
	Name        string `json:"name"`
	DownloadURL string `json:"browser_download_url"`
}

type release struct {
	TagName string         `json:"tag_name"`
	Assets  []releaseAsset `json:"assets"`
}

// assetName returns the release asset matching the current platform.
func assetName() string {
	switch runtime.GOOS {
	case "windows":
		return "yt-dlp.exe"
	case "darwin":
		return "yt-dlp_macos"
	default:
		return "yt-dlp"
	}
}

// Installed reports whether the extractor binary is already present.
func (s *Supervisor) Installed() bool {
	info, err := os.Stat(s.binaryPath)
	return err == nil && info.Mode().IsRegular()
}

// Ensure downloads the extractor binary from the latest release if it is not
// already installed. It is safe to call repeatedly; an existing binary is
// left untouched.
func (s *Supervisor) Ensure(ctx context.Context) error {
	if s.Installed() {
		s.logger.Debug("extractor binary present", "path", s.binaryPath)
		return nil
	}

	rel, err := s.latestRelease(ctx)
	if err != nil {
		return fmt.Errorf("querying latest release: %w", err)
	}

	want := assetName()
	var url string
	for _, asset := range rel.Assets {
		if asset.Name == want {
			url = asset.DownloadURL
			break
		}
	}
	if url == "" {
		return fmt.Errorf("release %s has no asset %q", rel.TagName, want)
	}

	s.logger.Info("installing extractor binary", "version", rel.TagName, "asset", want)
	if err := s.download(ctx, url); err != nil {
		return err
	}
	s.logger.Info("extractor binary installed", "path", s.binaryPath)
	return nil
}

func (s *Supervisor) latestRelease(ctx context.Context) (*release, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.releaseAPI, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", version.UserAgent())
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("release feed returned %s", resp.Status)
	}

	var rel release
	if err := json.NewDecoder(resp.Body).Decode(&rel); err != nil {
		return nil, fmt.Errorf("decoding release feed: %w", err)
	}
	return &rel, nil
}

// download fetches the asset to a temp file next to the target and renames it
// into place so a crashed download never leaves a half-written binary.
func (s *Supervisor) download(ctx context.Context, url string) error {
	if err := os.MkdirAll(filepath.Dir(s.binaryPath), 0o755); err != nil {
		return fmt.Errorf("creating binary directory: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("downloading extractor: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("asset download returned %s", resp.Status)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.binaryPath), ".yt-dlp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("writing extractor binary: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o755); err != nil {
		return fmt.Errorf("marking extractor executable: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.binaryPath); err != nil {
		return fmt.Errorf("installing extractor binary: %w", err)
	}
	return nil
}
