package lyrics

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func syncedLyrics() LyricsData {
	return LyricsData{
		Track:    TrackInfo{Title: "Song", Artist: "Artist", Album: "Album", Duration: 180000},
		IsSynced: true,
		Lyrics: []LyricLine{
			{StartTime: 0, EndTime: ptr(int64(2000)), Text: "line zero"},
			{StartTime: 2000, EndTime: ptr(int64(4000)), Text: "line one"},
			{StartTime: 5000, Text: "line two"},
		},
	}
}

func TestCurrentLine(t *testing.T) {
	tests := []struct {
		name     string
		position uint64
		want     string
	}{
		{"inside first line", 500, "line zero"},
		{"boundary belongs to first", 1500, "line zero"},
		{"inside second line", 2500, "line one"},
		{"second line still current", 3500, "line one"},
		{"gap carries previous line", 4500, "line one"},
		{"open-ended line carries forward", 5500, "line two"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore()
			s.SetLyrics(syncedLyrics())
			s.SetProgress(ProgressData{Position: tt.position, IsPlaying: true})

			line := s.CurrentLine()
			require.NotNil(t, line)
			assert.Equal(t, tt.want, line.Text)
		})
	}
}

func TestCurrentLine_BeforeFirstLine(t *testing.T) {
	s := NewStore()
	s.SetLyrics(LyricsData{Lyrics: []LyricLine{{StartTime: 3000, Text: "late start"}}})
	s.SetProgress(ProgressData{Position: 1000, IsPlaying: true})

	assert.Nil(t, s.CurrentLine())
}

func TestCurrentLine_MissingState(t *testing.T) {
	s := NewStore()
	assert.Nil(t, s.CurrentLine())

	s.SetLyrics(syncedLyrics())
	assert.Nil(t, s.CurrentLine(), "no progress posted yet")

	s2 := NewStore()
	s2.SetProgress(ProgressData{Position: 1000})
	assert.Nil(t, s2.CurrentLine(), "no lyrics posted yet")
}

func TestStore_ReplacesWholesale(t *testing.T) {
	s := NewStore()
	s.SetProgress(ProgressData{Position: 1000, IsPlaying: true, Duration: ptr(uint64(200000))})
	s.SetProgress(ProgressData{Position: 2000, IsPlaying: false})

	p := s.Progress()
	require.NotNil(t, p)
	assert.Equal(t, uint64(2000), p.Position)
	assert.False(t, p.IsPlaying)
	assert.Nil(t, p.Duration, "fields absent from the new payload do not linger")
}

func TestStore_EmptyReadsReturnNil(t *testing.T) {
	s := NewStore()
	assert.Nil(t, s.Lyrics())
	assert.Nil(t, s.Progress())
}

func TestJSONFieldNames(t *testing.T) {
	data, err := json.Marshal(LyricLine{StartTime: 100, EndTime: ptr(int64(200)), Text: "x", PronText: ptr("p")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"startTime":100,"endTime":200,"text":"x","pronText":"p"}`, string(data))

	progress, err := json.Marshal(ProgressData{Position: 5, IsPlaying: true})
	require.NoError(t, err)
	assert.JSONEq(t, `{"position":5,"isPlaying":true}`, string(progress))

	var payload ProgressData
	require.NoError(t, json.Unmarshal([]byte(`{"position":10,"isPlaying":false,"nextTrack":{"title":"t","artist":"a","albumArt":null}}`), &payload))
	require.NotNil(t, payload.NextTrack)
	assert.Equal(t, "t", payload.NextTrack.Title)
}
