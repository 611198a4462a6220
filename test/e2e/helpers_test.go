package e2e_test

import (
	"crypto/sha256"
	"encoding/base64"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/alexjbarnes/npbtn/internal/auth"
	"github.com/alexjbarnes/npbtn/internal/mcpserver"
	"github.com/alexjbarnes/npbtn/internal/nowplaying"
	"github.com/alexjbarnes/npbtn/internal/server"
	"github.com/alexjbarnes/npbtn/internal/token"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"
)

const (
	testClientID = "e2e-test-client"
	testSecret   = "e2e-test-secret-value"
	accessToken  = "e2e-access-token"
)

// Playback modes served by the fake currently-playing endpoint.
const (
	playbackTrack   = "track"
	playbackNone    = "none"
	playbackEpisode = "episode"
	playbackRevoked = "revoked"
)

const trackJSON = `{
  "is_playing": true,
  "currently_playing_type": "track",
  "item": {
    "name": "Song",
    "external_urls": {"spotify": "https://open.example/track/1"},
    "artists": [{"name": "A"}, {"name": "B"}],
    "album": {"name": "Album"}
  }
}`

// fakeSpotify plays both the accounts service and the Web API. Its
// authorize endpoint approves (or denies) immediately and redirects back
// like a browser would.
type fakeSpotify struct {
	*httptest.Server

	mu         sync.Mutex
	challenges map[string]string // code -> PKCE challenge
	deny       bool
	playback   string
	apiCalls   int
	exchanges  int
}

func newFakeSpotify(t *testing.T) *fakeSpotify {
	t.Helper()

	f := &fakeSpotify{
		challenges: make(map[string]string),
		playback:   playbackTrack,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /authorize", f.handleAuthorize)
	mux.HandleFunc("POST /api/token", f.handleToken)
	mux.HandleFunc("GET /v1/me/player/currently-playing", f.handleCurrentlyPlaying)

	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)

	return f
}

func (f *fakeSpotify) setPlayback(mode string) {
	f.mu.Lock()
	f.playback = mode
	f.mu.Unlock()
}

func (f *fakeSpotify) setDeny(deny bool) {
	f.mu.Lock()
	f.deny = deny
	f.mu.Unlock()
}

func (f *fakeSpotify) counts() (exchanges, apiCalls int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.exchanges, f.apiCalls
}

func (f *fakeSpotify) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("client_id") != testClientID || q.Get("code_challenge_method") != "S256" {
		http.Error(w, "bad authorize request", http.StatusBadRequest)
		return
	}

	back := url.Values{"state": {q.Get("state")}}

	f.mu.Lock()
	if f.deny {
		back.Set("error", "access_denied")
	} else {
		code := "code-" + q.Get("state")[:8]
		f.challenges[code] = q.Get("code_challenge")
		back.Set("code", code)
	}
	f.mu.Unlock()

	http.Redirect(w, r, q.Get("redirect_uri")+"?"+back.Encode(), http.StatusFound)
}

func (f *fakeSpotify) handleToken(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.exchanges++
	f.mu.Unlock()

	user, pass, ok := r.BasicAuth()
	if !ok || user != testClientID || pass != testSecret {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid_client"}`))
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}

	code := r.PostForm.Get("code")

	f.mu.Lock()
	challenge, known := f.challenges[code]
	delete(f.challenges, code)
	f.mu.Unlock()

	if !known || challenge != pkceChallenge(r.PostForm.Get("code_verifier")) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{
  "access_token": "` + accessToken + `",
  "token_type": "Bearer",
  "expires_in": 3600,
  "refresh_token": "e2e-refresh-token",
  "scope": "user-read-currently-playing playlist-modify-private user-top-read"
}`))
}

func (f *fakeSpotify) handleCurrentlyPlaying(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.apiCalls++
	mode := f.playback
	f.mu.Unlock()

	if mode == playbackRevoked || r.Header.Get("Authorization") != "Bearer "+accessToken {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"status":401,"message":"Invalid access token"}}`))
		return
	}

	switch mode {
	case playbackNone:
		w.WriteHeader(http.StatusNoContent)
	case playbackEpisode:
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"is_playing": true, "currently_playing_type": "episode",
			"item": {"type": "episode", "name": "Ep 1", "external_urls": {"spotify": "https://open.example/episode/9"}}}`))
	default:
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(trackJSON))
	}
}

// harness holds the full e2e test stack: the real HTTP handler built by
// server.NewMux, backed by a fake Spotify.
type harness struct {
	URL     string
	Store   *auth.Store
	Codec   *token.Codec
	Spotify *fakeSpotify
	Client  *http.Client
}

// newHarness starts the fake provider and the application server. A
// non-nil sealKey enables sealed tokens.
func newHarness(t *testing.T, sealKey []byte) *harness {
	t.Helper()

	spotify := newFakeSpotify(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	codec, err := token.New(sealKey)
	require.NoError(t, err)

	store := auth.NewStore(time.Minute, time.Minute, logger)
	t.Cleanup(store.Stop)

	// The redirect URI must point at the app server, so its address is
	// needed before the mux exists.
	ts := httptest.NewUnstartedServer(nil)
	serverURL := "http://" + ts.Listener.Addr().String()

	providerClient := &http.Client{Timeout: 5 * time.Second}

	authorizer := auth.NewAuthorizer(auth.Options{
		ClientID:     testClientID,
		ClientSecret: testSecret,
		RedirectURI:  serverURL + server.PathCallback,
		AuthURL:      spotify.URL + "/authorize",
		TokenURL:     spotify.URL + "/api/token",
		HTTPClient:   providerClient,
	}, store, logger)

	svc := nowplaying.NewService(codec, nowplaying.Options{
		NewPlayer:  nowplaying.SpotifyPlayers(spotify.URL + "/v1/"),
		HTTPClient: providerClient,
		Timeout:    5 * time.Second,
		Logger:     logger,
	})

	mcpServer := mcp.NewServer(
		&mcp.Implementation{Name: "npbtn-e2e", Version: "test"},
		nil,
	)
	mcpserver.RegisterTools(mcpServer, svc, logger)

	mcpHandler := mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
		return mcpServer
	}, nil)

	ts.Config.Handler = server.NewMux(server.MuxConfig{
		Authorizer:  authorizer,
		Store:       store,
		Codec:       codec,
		NowPlaying:  svc,
		Logger:      logger,
		LandingPath: "/",
		MCPHandler:  mcpHandler,
	})
	ts.Start()
	t.Cleanup(ts.Close)

	client := &http.Client{
		Timeout: 10 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	return &harness{
		URL:     serverURL,
		Store:   store,
		Codec:   codec,
		Spotify: spotify,
		Client:  client,
	}
}

// doGet performs a GET request with t.Context() without following
// redirects.
func (h *harness) doGet(t *testing.T, fullURL string) *http.Response {
	t.Helper()

	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, fullURL, nil)
	require.NoError(t, err)

	resp, err := h.Client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	return resp
}

// location returns the absolute redirect target of resp.
func location(t *testing.T, resp *http.Response) string {
	t.Helper()

	loc, err := resp.Location()
	require.NoError(t, err)

	return loc.String()
}

// startAuthorization follows /spotify/auth through the fake provider and
// returns the callback URL the browser would be sent to.
func (h *harness) startAuthorization(t *testing.T) string {
	t.Helper()

	resp := h.doGet(t, h.URL+server.PathAuth)
	require.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)

	resp = h.doGet(t, location(t, resp))
	require.Equal(t, http.StatusFound, resp.StatusCode)

	return location(t, resp)
}

// authorize runs the whole flow and returns the opaque token handed to
// the landing page.
func (h *harness) authorize(t *testing.T) string {
	t.Helper()

	resp := h.doGet(t, h.startAuthorization(t))
	require.Equal(t, http.StatusFound, resp.StatusCode)

	loc, err := resp.Location()
	require.NoError(t, err)
	require.Equal(t, "/", loc.Path)

	opaque := loc.Query().Get("token")
	require.NotEmpty(t, opaque)

	return opaque
}

// mcpSession connects an MCP client to the /mcp endpoint.
func (h *harness) mcpSession(t *testing.T) *mcp.ClientSession {
	t.Helper()

	transport := &mcp.StreamableClientTransport{
		Endpoint:             h.URL + server.PathMCP,
		DisableStandaloneSSE: true,
	}

	client := mcp.NewClient(
		&mcp.Implementation{Name: "e2e-test-client", Version: "test"},
		nil,
	)

	session, err := client.Connect(t.Context(), transport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })

	return session
}

// pkceChallenge computes the S256 code challenge for a verifier.
func pkceChallenge(verifier string) string {
	h := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(h[:])
}
