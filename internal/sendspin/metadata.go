// Package sendspin follows a Sendspin server's now-playing metadata. A
// client joins the server with the metadata role only, so it receives track
// updates without taking part in playback.
package sendspin

import "time"

// MetadataRole is the role requested in client/hello.
const MetadataRole = "metadata@v1"

// StaleAfter is how old metadata may get before it is reported stale.
const StaleAfter = 30 * time.Second

// Metadata is the track a server last reported.
type Metadata struct {
	Title      string    `json:"title"`
	Artist     string    `json:"artist"`
	Album      string    `json:"album"`
	ArtworkURL string    `json:"artwork_url"`
	Year       *int      `json:"year,omitempty"`
	Track      *int      `json:"track_number,omitempty"`
	ProgressMS int       `json:"track_progress_ms"`
	DurationMS int       `json:"track_duration_ms"`
	Playing    bool      `json:"is_playing"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Stale reports whether m is older than StaleAfter at now.
func (m Metadata) Stale(now time.Time) bool {
	return now.Sub(m.UpdatedAt) > StaleAfter
}

// ProgressPercent is the playback position as 0..100. Unknown durations
// report 0.
func (m Metadata) ProgressPercent() int {
	if m.DurationMS <= 0 {
		return 0
	}
	pct := m.ProgressMS * 100 / m.DurationMS
	switch {
	case pct < 0:
		return 0
	case pct > 100:
		return 100
	}
	return pct
}

// NowPlaying is a client's view of its server.
type NowPlaying struct {
	Metadata
	Connected bool `json:"connected"`
	Stale     bool `json:"stale"`
}
