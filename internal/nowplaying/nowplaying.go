// Package nowplaying answers "what is this user listening to" from an
// opaque token alone. Each query makes exactly one provider call and
// never refreshes the token.
package nowplaying

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	apperrors "github.com/alexjbarnes/npbtn/internal/errors"
	"github.com/alexjbarnes/npbtn/internal/models"
	"github.com/alexjbarnes/npbtn/internal/token"
	"github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"
)

// DefaultTimeout bounds a single provider call when none is configured.
const DefaultTimeout = 10 * time.Second

//go:generate mockgen -destination=mock_player.go -package=nowplaying . Player

// Player is the slice of the Spotify client used here. *spotify.Client
// satisfies it.
type Player interface {
	PlayerCurrentlyPlaying(ctx context.Context, opts ...spotify.RequestOption) (*spotify.CurrentlyPlaying, error)
}

// PlayerFactory builds a Player that authenticates with the given client.
type PlayerFactory func(httpClient *http.Client) Player

// SpotifyPlayers returns a factory for real Spotify clients rooted at
// apiURL. An empty apiURL keeps the library default.
func SpotifyPlayers(apiURL string) PlayerFactory {
	return func(httpClient *http.Client) Player {
		var opts []spotify.ClientOption
		if apiURL != "" {
			opts = append(opts, spotify.WithBaseURL(apiURL))
		}

		return spotify.New(httpClient, opts...)
	}
}

// Options configures a Service.
type Options struct {
	// NewPlayer defaults to SpotifyPlayers("").
	NewPlayer PlayerFactory

	// HTTPClient supplies the base transport for provider calls.
	HTTPClient *http.Client

	Timeout time.Duration
	Logger  *slog.Logger
}

// Service runs now-playing queries.
type Service struct {
	codec      *token.Codec
	newPlayer  PlayerFactory
	httpClient *http.Client
	timeout    time.Duration
	now        func() time.Time
	logger     *slog.Logger
}

// NewService creates a Service that decodes tokens with codec.
func NewService(codec *token.Codec, opts Options) *Service {
	s := &Service{
		codec:      codec,
		newPlayer:  opts.NewPlayer,
		httpClient: opts.HTTPClient,
		timeout:    opts.Timeout,
		now:        time.Now,
		logger:     opts.Logger,
	}

	if s.newPlayer == nil {
		s.newPlayer = SpotifyPlayers("")
	}

	if s.timeout <= 0 {
		s.timeout = DefaultTimeout
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}

	return s
}

// Query decodes opaque, asks the provider for the current playback and
// projects the result. A nil result with a nil error means nothing
// projectable is playing.
func (s *Service) Query(ctx context.Context, opaque string) (*models.NowPlaying, error) {
	rec, err := s.codec.Decode(opaque)
	if err != nil {
		return nil, err
	}

	if rec.Expired(s.now()) {
		return nil, fmt.Errorf("%w: expired at %s", apperrors.ErrTokenExpired, rec.Expiry.Format(time.RFC3339))
	}

	if s.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(rec.OAuth2()))

	cp, err := s.newPlayer(client).PlayerCurrentlyPlaying(ctx, spotify.AdditionalTypes(spotify.TrackAdditionalType))
	if err != nil {
		s.logger.Warn("currently playing request failed", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: currently playing: %v", apperrors.ErrProviderRequest, err)
	}

	return Project(cp), nil
}

// Project maps a provider response to the result model. It returns nil
// when nothing is playing, the item is not a track, or the track has no
// Spotify URL.
func Project(cp *spotify.CurrentlyPlaying) *models.NowPlaying {
	if cp == nil || cp.Item == nil {
		return nil
	}

	item := cp.Item
	if item.Type != "" && item.Type != "track" {
		return nil
	}

	trackURL := item.ExternalURLs["spotify"]
	if trackURL == "" {
		return nil
	}

	artists := make([]string, 0, len(item.Artists))
	for _, a := range item.Artists {
		artists = append(artists, a.Name)
	}

	return &models.NowPlaying{
		TrackName:   item.Name,
		TrackURL:    trackURL,
		ArtistNames: artists,
		AlbumName:   item.Album.Name,
	}
}
