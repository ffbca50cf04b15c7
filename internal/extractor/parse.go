package extractor

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/ivlis-studio/ivlyrics-helper/internal/progress"
)

// downloadLineRe matches yt-dlp's machine progress lines, e.g.
// "[download]  42.3% of 12.34MiB at 1.23MiB/s ETA 00:12".
var downloadLineRe = regexp.MustCompile(`\[download\]\s+(\d+\.?\d*)%\s+of\s+~?[\d.]+\w*\s+at\s+([\d.]+\w*/s)\s+ETA\s+(\S+)`)

// parseProgressLine translates one stdout line into a progress event.
// It returns false for lines that carry no progress information.
func parseProgressLine(videoID, line string) (progress.Event, bool) {
	if m := downloadLineRe.FindStringSubmatch(line); m != nil {
		percent, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			percent = 0
		}
		speed := m[2]
		eta := m[3]
		msg := "Downloading: " + strconv.FormatFloat(percent, 'f', 1, 64) + "%"
		return progress.Event{
			VideoID: videoID,
			Status:  progress.StatusDownloading,
			Percent: &percent,
			Speed:   &speed,
			ETA:     &eta,
			Message: &msg,
		}, true
	}

	if strings.Contains(line, "[Merger]") ||
		strings.Contains(line, "[ExtractAudio]") ||
		strings.Contains(line, "Deleting") {
		return progress.NewEvent(videoID, progress.StatusProcessing, "Processing...").WithPercent(99), true
	}

	return progress.Event{}, false
}
