// Package models defines types shared across internal packages.
package models

// NowPlaying is the projection of the user's currently playing track.
// Field order is the JSON order clients see.
type NowPlaying struct {
	TrackName   string   `json:"trackName"`
	TrackURL    string   `json:"trackUrl"`
	ArtistNames []string `json:"artistNames"`
	AlbumName   string   `json:"albumName"`
}
