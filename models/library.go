package models

import "time"

// Favorite is a title the user pinned, keyed by "sourceKey+videoID".
type Favorite struct {
	SourceKey  string    `json:"source"`
	VideoID    string    `json:"videoId"`
	Title      string    `json:"title"`
	Poster     string    `json:"poster,omitempty"`
	Year       string    `json:"year,omitempty"`
	SavedAt    time.Time `json:"savedAt"`
	TotalEps   int       `json:"totalEpisodes,omitempty"`
	SourceName string    `json:"sourceName,omitempty"`
}

// PlayRecord remembers where playback stopped for one title so a later
// search can resume from the same source (the preferred-source fast path).
type PlayRecord struct {
	SourceKey    string    `json:"source"`
	VideoID      string    `json:"videoId"`
	Title        string    `json:"title"`
	EpisodeIndex int       `json:"episodeIndex"`
	Position     float64   `json:"position"`
	Duration     float64   `json:"duration"`
	PlayedAt     time.Time `json:"playedAt"`
}
