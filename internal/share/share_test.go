package share

import (
	"net/url"
	"strings"
	"testing"

	"github.com/alexjbarnes/npbtn/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTrack() *models.NowPlaying {
	return &models.NowPlaying{
		TrackName:   "Song",
		TrackURL:    "https://open.example/track/1",
		ArtistNames: []string{"A", "B"},
		AlbumName:   "Album",
	}
}

func TestText(t *testing.T) {
	assert.Equal(t, "NowPlaying A, B - Song", Text(testTrack()))
}

func TestText_SingleArtist(t *testing.T) {
	np := testTrack()
	np.ArtistNames = []string{"Solo"}
	assert.Equal(t, "NowPlaying Solo - Song", Text(np))
}

func TestText_NormalizesToNFC(t *testing.T) {
	np := testTrack()
	// Katakana ka followed by a combining voiced sound mark, and a
	// combining acute accent.
	np.TrackName = "\u30ab\u3099"
	np.ArtistNames = []string{"Cafe\u0301"}

	assert.Equal(t, "NowPlaying Caf\u00e9 - \u30ac", Text(np))
}

func TestIntentURL(t *testing.T) {
	got := IntentURL(testTrack())
	require.True(t, strings.HasPrefix(got, IntentBaseURL+"?"))

	u, err := url.Parse(got)
	require.NoError(t, err)
	assert.Equal(t, "NowPlaying A, B - Song", u.Query().Get("text"))
	assert.Equal(t, "https://open.example/track/1", u.Query().Get("url"))
}

func TestIntentURL_EscapesReservedCharacters(t *testing.T) {
	np := testTrack()
	np.TrackName = "Rock & Roll #1?"

	got := IntentURL(np)
	assert.NotContains(t, got, "&Roll")
	assert.NotContains(t, got, "#1")

	u, err := url.Parse(got)
	require.NoError(t, err)
	assert.Equal(t, "NowPlaying A, B - Rock & Roll #1?", u.Query().Get("text"))
}
