// Package progress defines the download progress model and the broadcast
// primitive used to fan events out to SSE subscribers.
package progress

// Status is the state of a video acquisition as seen by subscribers.
type Status string

// Acquisition states. Completed, Error and AlreadyExists are terminal.
const (
	StatusChecking      Status = "checking"
	StatusDownloading   Status = "downloading"
	StatusProcessing    Status = "processing"
	StatusCompleted     Status = "completed"
	StatusError         Status = "error"
	StatusAlreadyExists Status = "already-exists"
)

// IsTerminal reports whether the status ends an acquisition.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusError, StatusAlreadyExists:
		return true
	}
	return false
}

// Event is a single progress update for a video acquisition.
//
// Percent is 0-100. Speed and ETA are opaque human strings as printed by the
// extractor. Message carries a human status string, the final URL on
// completed/already-exists, or the error description on error.
type Event struct {
	VideoID string   `json:"video_id"`
	Status  Status   `json:"status"`
	Percent *float64 `json:"percent"`
	Speed   *string  `json:"speed"`
	ETA     *string  `json:"eta"`
	Message *string  `json:"message"`
}

// NewEvent builds an event with the given status and message.
func NewEvent(videoID string, status Status, message string) Event {
	return Event{VideoID: videoID, Status: status, Message: &message}
}

// WithPercent returns a copy of the event with the percent set.
func (e Event) WithPercent(p float64) Event {
	e.Percent = &p
	return e
}
