//go:build !windows && !darwin

package credentials

import "os/exec"

var browserPriority = []string{"chrome", "edge", "firefox", "vivaldi", "opera", "brave", "chromium"}

var linuxProbes = []struct {
	tag      string
	commands []string
}{
	{"chrome", []string{"google-chrome", "google-chrome-stable", "chrome"}},
	{"chromium", []string{"chromium", "chromium-browser"}},
	{"edge", []string{"microsoft-edge", "microsoft-edge-stable"}},
	{"firefox", []string{"firefox"}},
	{"vivaldi", []string{"vivaldi", "vivaldi-stable"}},
	{"opera", []string{"opera"}},
	{"brave", []string{"brave", "brave-browser"}},
}

func detectBrowsers() []string {
	var found []string
	for _, probe := range linuxProbes {
		for _, cmd := range probe.commands {
			if _, err := exec.LookPath(cmd); err == nil {
				found = append(found, probe.tag)
				break
			}
		}
	}
	return found
}
