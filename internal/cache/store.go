// Package cache manages the on-disk video cache: one file per video id,
// size-bounded with oldest-first eviction by modification time.
package cache

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// DefaultExtension is the container most downloads land in; the exact-name
// probe for "<id>.webm" is a fast path only. The directory-prefix scan is the
// authoritative existence test because the extractor picks the extension.
const DefaultExtension = ".webm"

// Store is the cache directory handle. MaxBytes is read per pruning pass so
// configuration changes apply without restart; zero means unbounded.
type Store struct {
	dir      string
	maxBytes func() int64
	logger   *slog.Logger
}

// NewStore creates a store rooted at dir.
func NewStore(dir string, maxBytes func() int64, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		dir:      dir,
		maxBytes: maxBytes,
		logger:   logger.With("component", "cache"),
	}
}

// Dir returns the cache directory.
func (s *Store) Dir() string {
	return s.dir
}

// EnsureDir creates the cache directory if missing.
func (s *Store) EnsureDir() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}
	return nil
}

// Exists reports whether a cached file is present for the id.
func (s *Store) Exists(videoID string) bool {
	_, ok := s.Lookup(videoID)
	return ok
}

// Lookup returns the filename of the cache entry for the id. The exact
// "<id>.webm" name is checked first; otherwise the first directory entry whose
// name begins with the id is authoritative.
func (s *Store) Lookup(videoID string) (string, bool) {
	exact := videoID + DefaultExtension
	if _, err := os.Stat(filepath.Join(s.dir, exact)); err == nil {
		return exact, true
	}

	entries, err := os.ReadDir(s.dir)
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

// Path returns the absolute path for a cache filename.
func (s *Store) Path(filename string) string {
	return filepath.Join(s.dir, filename)
}

// Usage returns the total byte size of all regular files in the cache.
func (s *Store) Usage() (int64, error) {
	_, total, err := s.scan()
	return total, err
}

// Prune deletes the oldest files until total usage fits the configured bound.
// It is best effort: a file vanishing between stat and remove is not an
// error, and one failed deletion does not stop the pass. Freshly written
// files are youngest and therefore survive the pass that follows them.
func (s *Store) Prune() error {
	maxBytes := s.maxBytes()
	if maxBytes <= 0 {
		return nil
	}

	files, total, err := s.scan()
	if err != nil {
		return err
	}
	if total <= maxBytes {
		return nil
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].modTime.Before(files[j].modTime)
	})

	for _, f := range files {
		if total <= maxBytes {
			break
		}
		if err := os.Remove(f.path); err != nil {
			if !os.IsNotExist(err) {
				s.logger.Warn("failed to evict cache file", "path", f.path, "error", err)
				continue
			}
		}
		total -= f.size
		s.logger.Info("evicted cache file",
			"path", f.path,
			"size", humanize.IBytes(uint64(f.size)),
		)
	}

	s.logger.Info("cache pruned",
		"usage", humanize.IBytes(uint64(total)),
		"limit", humanize.IBytes(uint64(maxBytes)),
	)
	return nil
}

// Clear deletes all regular files in the cache directory.
func (s *Store) Clear() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading cache directory: %w", err)
	}
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, entry.Name())); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("failed to remove cache file", "name", entry.Name(), "error", err)
		}
	}
	return nil
}

type cacheFile struct {
	path    string
	size    int64
	modTime time.Time
}

func (s *Store) scan() ([]cacheFile, int64, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("reading cache directory: %w", err)
	}

	var files []cacheFile
	var total int64
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// Entry vanished mid-scan; skip it.
			continue
		}
		files = append(files, cacheFile{
			path:    filepath.Join(s.dir, entry.Name()),
			size:    info.Size(),
			modTime: info.ModTime(),
		})
		total += info.Size()
	}
	return files, total, nil
}
