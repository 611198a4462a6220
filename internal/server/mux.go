// Package server provides HTTP server construction for npbtn.
package server

import (
	"log/slog"
	"net/http"

	"github.com/alexjbarnes/npbtn/internal/auth"
	"github.com/alexjbarnes/npbtn/internal/nowplaying"
	"github.com/alexjbarnes/npbtn/internal/token"
)

// Route paths.
const (
	PathAuth     = "/spotify/auth"
	PathCallback = "/spotify/callback"
	PathNP       = "/np"
	PathShare    = "/share"
	PathHealth   = "/healthz"
	PathMCP      = "/mcp"
)

// MuxConfig holds dependencies for building the HTTP mux.
type MuxConfig struct {
	Authorizer *auth.Authorizer
	Store      *auth.Store
	Codec      *token.Codec
	NowPlaying *nowplaying.Service
	Logger     *slog.Logger

	// LandingPath receives the browser after a successful callback.
	LandingPath string

	// MCPHandler is mounted at /mcp when non-nil.
	MCPHandler http.Handler
}

// NewMux builds the HTTP handler with the authorization, now-playing,
// share, landing and health endpoints, wrapped in request ID and access
// log middleware.
func NewMux(cfg MuxConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	landing := cfg.LandingPath
	if landing == "" {
		landing = "/"
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET "+PathAuth, HandleAuth(cfg.Authorizer, logger))
	mux.HandleFunc("GET "+PathCallback, HandleCallback(cfg.Authorizer, cfg.Codec, landing, logger))
	mux.HandleFunc("GET "+PathNP, HandleNowPlaying(cfg.NowPlaying, logger))
	mux.HandleFunc("GET "+PathShare, HandleShare(cfg.NowPlaying, logger))
	mux.HandleFunc("GET "+PathHealth, HandleHealth(cfg.Store))
	mux.HandleFunc("GET /{$}", HandleLanding(logger))

	if cfg.MCPHandler != nil {
		mux.Handle(PathMCP, cfg.MCPHandler)
	}

	return RequestID(AccessLog(logger)(mux))
}
