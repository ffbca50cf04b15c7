//go:build darwin

package credentials

import (
	"os"
	"path/filepath"
	"strings"
)

var browserPriority = []string{"chrome", "edge", "firefox", "vivaldi", "opera", "brave", "whale", "safari"}

var darwinProbes = []struct {
	tag     string
	bundles []string
}{
	{"chrome", []string{"/Applications/Google Chrome.app", "~/Applications/Google Chrome.app"}},
	{"edge", []string{"/Applications/Microsoft Edge.app", "~/Applications/Microsoft Edge.app"}},
	{"firefox", []string{"/Applications/Firefox.app", "~/Applications/Firefox.app"}},
	{"vivaldi", []string{"/Applications/Vivaldi.app", "~/Applications/Vivaldi.app"}},
	{"opera", []string{"/Applications/Opera.app", "~/Applications/Opera.app"}},
	{"brave", []string{"/Applications/Brave Browser.app", "~/Applications/Brave Browser.app"}},
	{"whale", []string{"/Applications/Whale.app", "~/Applications/Whale.app"}},
	{"safari", []string{"/Applications/Safari.app"}},
}

func detectBrowsers() []string {
	home, _ := os.UserHomeDir()

	var found []string
	for _, probe := range darwinProbes {
		for _, bundle := range probe.bundles {
			path := bundle
			if strings.HasPrefix(bundle, "~/") && home != "" {
				path = filepath.Join(home, bundle[2:])
			}
			if _, err := os.Stat(path); err == nil {
				found = append(found, probe.tag)
				break
			}
		}
	}
	return found
}
