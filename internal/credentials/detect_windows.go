//go:build windows

package credentials

import (
	"os"
	"path/filepath"
)

// browserPriority ranks Firefox and Whale ahead of the Chromium family, whose
// DPAPI-encrypted cookie stores frequently fail to decrypt on Windows.
var browserPriority = []string{"firefox", "whale", "chrome", "edge", "vivaldi", "opera", "brave"}

type windowsProbe struct {
	tag string
	// systemPaths are absolute install locations under Program Files.
	systemPaths []string
	// localSuffix is joined to %LOCALAPPDATA% for per-user installs.
	localSuffix string
}

var windowsProbes = []windowsProbe{
	{
		tag: "chrome",
		systemPaths: []string{
			`C:\Program Files\Google\Chrome\Application\chrome.exe`,
			`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
		},
		localSuffix: `Google\Chrome\Application\chrome.exe`,
	},
	{
		tag: "edge",
		systemPaths: []string{
			`C:\Program Files (x86)\Microsoft\Edge\Application\msedge.exe`,
			`C:\Program Files\Microsoft\Edge\Application\msedge.exe`,
		},
	},
	{
		tag: "firefox",
		systemPaths: []string{
			`C:\Program Files\Mozilla Firefox\firefox.exe`,
			`C:\Program Files (x86)\Mozilla Firefox\firefox.exe`,
		},
	},
	{
		tag:         "vivaldi",
		systemPaths: []string{`C:\Program Files\Vivaldi\Application\vivaldi.exe`},
		localSuffix: `Vivaldi\Application\vivaldi.exe`,
	},
	{
		tag: "opera",
		systemPaths: []string{
			`C:\Program Files\Opera\launcher.exe`,
			`C:\Program Files (x86)\Opera\launcher.exe`,
		},
		localSuffix: `Programs\Opera\launcher.exe`,
	},
	{
		tag: "brave",
		systemPaths: []string{
			`C:\Program Files\BraveSoftware\Brave-Browser\Application\brave.exe`,
			`C:\Program Files (x86)\BraveSoftware\Brave-Browser\Application\brave.exe`,
		},
		localSuffix: `BraveSoftware\Brave-Browser\Application\brave.exe`,
	},
	{
		tag: "whale",
		systemPaths: []string{
			`C:\Program Files\Naver\Naver Whale\Application\whale.exe`,
			`C:\Program Files (x86)\Naver\Naver Whale\Application\whale.exe`,
		},
		localSuffix: `Naver\Naver Whale\Application\whale.exe`,
	},
}

func detectBrowsers() []string {
	localAppData := os.Getenv("LOCALAPPDATA")

	var found []string
	for _, probe := range windowsProbes {
		if probeExists(probe, localAppData) {
			found = append(found, probe.tag)
		}
	}
	return found
}

func probeExists(probe windowsProbe, localAppData string) bool {
	for _, path := range probe.systemPaths {
		if _, err := os.Stat(path); err == nil {
			return true
		}
	}
	if probe.localSuffix != "" && localAppData != "" {
		if _, err := os.Stat(filepath.Join(localAppData, probe.localSuffix)); err == nil {
			return true
		}
	}
	return false
}
