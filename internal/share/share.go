// Package share composes the "now playing" post a user can publish.
package share

import (
	"net/url"
	"strings"

	"github.com/alexjbarnes/npbtn/internal/models"
	"golang.org/x/text/unicode/norm"
)

// IntentBaseURL is the tweet composer endpoint.
const IntentBaseURL = "https://twitter.com/intent/tweet"

// Text renders np as "NowPlaying <artists> - <track>". Track metadata
// arrives in whatever normalization form the provider stored it in, so
// the result is converted to NFC.
func Text(np *models.NowPlaying) string {
	var b strings.Builder

	b.WriteString("NowPlaying ")
	b.WriteString(strings.Join(np.ArtistNames, ", "))
	b.WriteString(" - ")
	b.WriteString(np.TrackName)

	return norm.NFC.String(b.String())
}

// IntentURL returns a composer URL prefilled with Text(np) and the track
// link.
func IntentURL(np *models.NowPlaying) string {
	q := url.Values{}
	q.Set("text", Text(np))
	q.Set("url", np.TrackURL)

	return IntentBaseURL + "?" + q.Encode()
}
