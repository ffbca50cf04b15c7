package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// appDirName is the directory created under the per-user local data dir.
// The name is shared with the player extension, which probes it to decide
// whether the helper is installed.
const appDirName = "ivLyrics-helper"

// DataDir returns the per-user data directory for the helper
// (%LOCALAPPDATA% on Windows, ~/Library/Application Support on macOS,
// $XDG_DATA_HOME or ~/.local/share elsewhere).
func DataDir() string {
	return filepath.Join(dataLocalDir(), appDirName)
}

func dataLocalDir() string {
	switch runtime.GOOS {
	case "windows":
		if dir := os.Getenv("LOCALAPPDATA"); dir != "" {
			return dir
		}
	case "darwin":
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, "Library", "Application Support")
		}
	default:
		if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
			return dir
		}
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, ".local", "share")
		}
	}
	return "."
}

// ConfigPath returns the path of the persisted configuration file.
func ConfigPath() string {
	return filepath.Join(DataDir(), "config.json")
}

// ExtractorPath returns the expected location of the yt-dlp binary.
func ExtractorPath() string {
	name := "yt-dlp"
	if runtime.GOOS == "windows" {
		name = "yt-dlp.exe"
	}
	return filepath.Join(DataDir(), name)
}

// CookieJarPath returns the location an installed cookie file is copied to.
func CookieJarPath() string {
	return filepath.Join(DataDir(), "youtube_cookie.txt")
}

// DefaultVideoDir returns the default cache directory for downloaded videos.
func DefaultVideoDir() string {
	return filepath.Join(DataDir(), "videos")
}
