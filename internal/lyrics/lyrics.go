// Package lyrics relays synced lyrics and playback state between the music
// player extension and overlay clients. The daemon interprets nothing beyond
// picking the current line; payloads pass through as received.
package lyrics

import "sync"

// TrackInfo identifies the playing track.
type TrackInfo struct {
	Title    string  `json:"title"`
	Artist   string  `json:"artist"`
	Album    string  `json:"album"`
	AlbumArt *string `json:"albumArt"`
	Duration uint64  `json:"duration"`
}

// LyricLine is one timed line. Times are in milliseconds; a missing EndTime
// means the line has no explicit duration. PronText and TransText carry
// optional pronunciation and translation renderings.
type LyricLine struct {
	StartTime int64   `json:"startTime"`
	EndTime   *int64  `json:"endTime"`
	Text      string  `json:"text"`
	PronText  *string `json:"pronText,omitempty"`
	TransText *string `json:"transText,omitempty"`
}

// LyricsData is the full lyrics payload for a track.
type LyricsData struct {
	Track    TrackInfo   `json:"track"`
	Lyrics   []LyricLine `json:"lyrics"`
	IsSynced bool        `json:"isSynced"`
}

// NextTrackInfo previews the upcoming track.
type NextTrackInfo struct {
	Title    string  `json:"title"`
	Artist   string  `json:"artist"`
	AlbumArt *string `json:"albumArt"`
}

// ProgressData is the playback position report. Position is in milliseconds.
type ProgressData struct {
	Position  uint64         `json:"position"`
	IsPlaying bool           `json:"isPlaying"`
	Duration  *uint64        `json:"duration,omitempty"`
	Remaining *float64       `json:"remaining,omitempty"`
	NextTrack *NextTrackInfo `json:"nextTrack,omitempty"`
}

// Store holds the latest lyrics and progress payloads. Each cell is replaced
// wholesale by its writer; readers get a copy or nil when nothing has been
// posted yet.
type Store struct {
	mu       sync.Mutex
	lyrics   *LyricsData
	progress *ProgressData
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

// SetLyrics replaces the stored lyrics payload.
func (s *Store) SetLyrics(data LyricsData) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lyrics = &data
}

// SetProgress replaces the stored playback state.
func (s *Store) SetProgress(data ProgressData) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress = &data
}

// Lyrics returns the stored lyrics payload, or nil.
func (s *Store) Lyrics() *LyricsData {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lyrics == nil {
		return nil
	}
	copied := *s.lyrics
	return &copied
}

// Progress returns the stored playback state, or nil.
func (s *Store) Progress() *ProgressData {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.progress == nil {
		return nil
	}
	copied := *s.progress
	return &copied
}

// CurrentLine derives the line for the stored position, or nil when either
// payload is missing or playback has not reached the first line. A line with
// no end time ends at its own start; the previous line carries through gaps
// until the next one begins.
func (s *Store) CurrentLine() *LyricLine {
	s.mu.Lock()
	lyricsData := s.lyrics
	progressData := s.progress
	s.mu.Unlock()

	if lyricsData == nil || progressData == nil {
		return nil
	}

	position := int64(progressData.Position)
	var current *LyricLine
	for i := range lyricsData.Lyrics {
		line := lyricsData.Lyrics[i]
		end := line.StartTime
		if line.EndTime != nil {
			end = *line.EndTime
		}
		if line.StartTime <= position && position <= end {
			current = &line
			break
		}
		if line.StartTime > position {
			break
		}
		current = &line
	}
	return current
}
