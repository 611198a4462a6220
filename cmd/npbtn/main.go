package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexjbarnes/npbtn/internal/auth"
	"github.com/alexjbarnes/npbtn/internal/config"
	"github.com/alexjbarnes/npbtn/internal/logging"
	"github.com/alexjbarnes/npbtn/internal/mcpserver"
	"github.com/alexjbarnes/npbtn/internal/nowplaying"
	"github.com/alexjbarnes/npbtn/internal/server"
	"github.com/alexjbarnes/npbtn/internal/token"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/sync/errgroup"
)

var Version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := logging.NewLogger(cfg.Environment, cfg.LogLevel)
	logger.Info("npbtn starting",
		slog.String("version", Version),
		slog.Bool("mcp", cfg.EnableMCP),
	)

	sealKey, err := cfg.SealKey()
	if err != nil {
		return err
	}

	codec, err := token.New(sealKey)
	if err != nil {
		return fmt.Errorf("creating token codec: %w", err)
	}

	if codec.Sealed() {
		logger.Info("opaque tokens are sealed")
	}

	store := auth.NewStore(cfg.FlowTTL, cfg.FlowSweepInterval, logger.With(slog.String("component", "flows")))
	defer store.Stop()

	providerClient := &http.Client{Timeout: cfg.ProviderTimeout}

	authorizer := auth.NewAuthorizer(auth.Options{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURI:  cfg.RedirectURI,
		Scopes:       cfg.ScopeList(),
		AuthURL:      cfg.AuthURL,
		TokenURL:     cfg.TokenURL,
		HTTPClient:   providerClient,
	}, store, logger)

	svc := nowplaying.NewService(codec, nowplaying.Options{
		NewPlayer:  nowplaying.SpotifyPlayers(cfg.APIURL),
		HTTPClient: providerClient,
		Timeout:    cfg.ProviderTimeout,
		Logger:     logger,
	})

	var mcpHandler http.Handler
	if cfg.EnableMCP {
		mcpServer := mcp.NewServer(
			&mcp.Implementation{Name: "npbtn", Version: Version},
			nil,
		)
		mcpserver.RegisterTools(mcpServer, svc, logger.With(slog.String("service", "mcp")))

		mcpHandler = mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
			return mcpServer
		}, nil)
	}

	handler := server.NewMux(server.MuxConfig{
		Authorizer:  authorizer,
		Store:       store,
		Codec:       codec,
		NowPlaying:  svc,
		Logger:      logger,
		LandingPath: cfg.LandingPath,
		MCPHandler:  mcpHandler,
	})

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting server",
			slog.String("listen", cfg.ListenAddr),
			slog.String("redirect_uri", cfg.RedirectURI),
		)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

		return nil
	})

	// Shutdown when context is cancelled.
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
