// Package config manages the persisted helper configuration using Viper.
// The on-disk file is config.json in the per-user data directory; field names
// are camelCase because the player extension UI reads and writes the same file.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

// Default configuration values.
const (
	// DefaultMaxCacheGB bounds the video cache; 0 disables pruning.
	DefaultMaxCacheGB = 10
	// DefaultPruneSchedule runs the maintenance prune daily at 04:30 (6-field cron).
	DefaultPruneSchedule = "0 30 4 * * *"

	defaultLanguage = "en"
)

// App holds the persisted helper configuration.
type App struct {
	SetupComplete  bool   `mapstructure:"setupComplete" json:"setupComplete"`
	VideoFolder    string `mapstructure:"videoFolder" json:"videoFolder"`
	MaxCacheGB     int    `mapstructure:"maxCacheGB" json:"maxCacheGB"`
	StartMinimized bool   `mapstructure:"startMinimized" json:"startMinimized"`
	StartOnBoot    bool   `mapstructure:"startOnBoot" json:"startOnBoot"`
	Language       string `mapstructure:"language" json:"language"`
	// CookiesFile is the path of a Netscape cookie jar used for age-restricted
	// videos. Empty means none is installed.
	CookiesFile string `mapstructure:"cookiesFile" json:"cookiesFile"`
	// PruneSchedule is a 6-field cron expression for the periodic cache sweep.
	PruneSchedule string `mapstructure:"pruneSchedule" json:"pruneSchedule"`
}

// Logging holds logging configuration, sourced from flags and environment
// rather than config.json.
type Logging struct {
	Level      string
	Format     string
	AddSource  bool
	TimeFormat string
}

// VideoDir returns the effective cache directory.
func (a *App) VideoDir() string {
	if a.VideoFolder == "" {
		return DefaultVideoDir()
	}
	return a.VideoFolder
}

// MaxCacheBytes converts the configured bound to bytes. Zero means unbounded.
func (a *App) MaxCacheBytes() int64 {
	if a.MaxCacheGB <= 0 {
		return 0
	}
	return int64(a.MaxCacheGB) << 30
}

// SetDefaults configures default values on the given Viper instance.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("setupComplete", false)
	v.SetDefault("videoFolder", "")
	v.SetDefault("maxCacheGB", DefaultMaxCacheGB)
	v.SetDefault("startMinimized", false)
	v.SetDefault("startOnBoot", false)
	v.SetDefault("language", defaultLanguage)
	v.SetDefault("cookiesFile", "")
	v.SetDefault("pruneSchedule", DefaultPruneSchedule)
}

// Load reads the configuration file at path, falling back to defaults when the
// file does not exist. Environment variables with the IVLYRICS_ prefix take
// precedence over file values.
func Load(path string) (*App, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetConfigFile(path)
	v.SetConfigType("json")

	v.SetEnvPrefix("IVLYRICS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var pathErr *fs.PathError
		if !errors.As(err, &pathErr) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Missing file is fine; defaults and env vars apply.
	}

	var cfg App
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return &cfg, nil
}

// Manager provides synchronized access to the persisted configuration.
// Reads return snapshots; the lock is never held during file I/O performed by
// callers.
type Manager struct {
	mu   sync.RWMutex
	path string
	cfg  App
}

// NewManager loads the configuration from path and returns a manager for it.
// The parent directory is created if needed.
func NewManager(path string) (*Manager, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	return &Manager{path: path, cfg: *cfg}, nil
}

// Path returns the config file path.
func (m *Manager) Path() string {
	return m.path
}

// Snapshot returns a copy of the current configuration.
func (m *Manager) Snapshot() App {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// Save replaces the configuration and writes it to disk.
func (m *Manager) Save(cfg App) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg = cfg
	return m.writeLocked()
}

// Update applies fn to a copy of the configuration, then persists the result.
func (m *Manager) Update(fn func(*App)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cfg := m.cfg
	fn(&cfg)
	m.cfg = cfg
	return m.writeLocked()
}

func (m *Manager) writeLocked() error {
	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	if dir := m.cfg.VideoFolder; dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating video folder: %w", err)
		}
	}
	data, err := json.MarshalIndent(m.cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(m.path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}
