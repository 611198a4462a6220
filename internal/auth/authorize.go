package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	apperrors "github.com/alexjbarnes/npbtn/internal/errors"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
)

// stateBytes is the number of random bytes used to generate a state
// token (hex-encoded to twice this length).
const stateBytes = 32

// DefaultScopes is the capability set requested when none is configured:
// read the current playback, modify private playlists, read top items.
var DefaultScopes = []string{
	spotifyauth.ScopeUserReadCurrentlyPlaying,
	spotifyauth.ScopePlaylistModifyPrivate,
	spotifyauth.ScopeUserTopRead,
}

// Options configures an Authorizer.
type Options struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Scopes       []string
	AuthURL      string
	TokenURL     string

	// HTTPClient is used for the token exchange. Nil means the oauth2
	// package default.
	HTTPClient *http.Client
}

// CallbackParams holds the query parameters Spotify sends to the
// redirect URI.
type CallbackParams struct {
	Code             string
	State            string
	Error            string
	ErrorDescription string
}

// Authorizer starts authorization flows and completes them when the
// provider redirects back.
type Authorizer struct {
	config     *oauth2.Config
	store      *Store
	httpClient *http.Client
	logger     *slog.Logger
}

// NewAuthorizer creates an Authorizer that registers flows in store.
func NewAuthorizer(opts Options, store *Store, logger *slog.Logger) *Authorizer {
	scopes := opts.Scopes
	if len(scopes) == 0 {
		scopes = DefaultScopes
	}

	authURL := opts.AuthURL
	if authURL == "" {
		authURL = spotifyauth.AuthURL
	}

	tokenURL := opts.TokenURL
	if tokenURL == "" {
		tokenURL = spotifyauth.TokenURL
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Authorizer{
		config: &oauth2.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			RedirectURL:  opts.RedirectURI,
			Scopes:       append([]string(nil), scopes...),
			Endpoint: oauth2.Endpoint{
				AuthURL:   authURL,
				TokenURL:  tokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		store:      store,
		httpClient: opts.HTTPClient,
		logger:     logger,
	}
}

// Begin generates a state token and PKCE verifier, registers the pending
// flow and returns the provider authorization URL. The URL is built
// before registration so a failure never leaves an entry behind.
func (a *Authorizer) Begin() (string, error) {
	state, err := RandomHex(stateBytes)
	if err != nil {
		return "", fmt.Errorf("generating state: %w", err)
	}

	verifier := oauth2.GenerateVerifier()
	authURL := a.config.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))

	a.store.Put(state, &PendingFlow{
		State:    state,
		Verifier: verifier,
		Config:   a.config,
	})

	a.logger.Debug("authorization flow started", slog.Int("pending", a.store.Len()))

	return authURL, nil
}

// Complete consumes the pending flow for p.State and exchanges the code
// for a token. The flow is consumed even when the provider reports an
// error or the code is missing, so a state can never be used twice.
func (a *Authorizer) Complete(ctx context.Context, p CallbackParams) (*oauth2.Token, error) {
	if p.State == "" {
		return nil, fmt.Errorf("%w: missing state", apperrors.ErrInvalidRequest)
	}

	flow, err := a.store.Take(p.State)
	if err != nil {
		return nil, err
	}

	if p.Error != "" {
		return nil, fmt.Errorf("%w: %s %s", apperrors.ErrAccessDenied, p.Error, p.ErrorDescription)
	}

	if p.Code == "" {
		return nil, fmt.Errorf("%w: missing code", apperrors.ErrInvalidRequest)
	}

	if a.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)
	}

	token, err := flow.Config.Exchange(ctx, p.Code, oauth2.VerifierOption(flow.Verifier))
	if err != nil {
		return nil, fmt.Errorf("%w: token exchange: %v", apperrors.ErrProviderRequest, err)
	}

	return token, nil
}
