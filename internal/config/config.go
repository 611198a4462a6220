package config

import (
	"encoding/hex"
	"fmt"
	"log"
	"net/url"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/alexjbarnes/npbtn/internal/auth"
	apperrors "github.com/alexjbarnes/npbtn/internal/errors"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// sealKeyLen is the key size XChaCha20-Poly1305 requires.
const sealKeyLen = 32

// Config holds all environment-based configuration for npbtn.
type Config struct {
	// Spotify application credentials. All three are required.
	ClientID     string `env:"SPOTIFY_CLIENT_ID"`
	ClientSecret string `env:"SPOTIFY_CLIENT_SECRET"`
	RedirectURI  string `env:"SPOTIFY_REDIRECT_URI"`

	// Comma-separated scope list. Empty means auth.DefaultScopes.
	Scopes string `env:"SPOTIFY_SCOPES"`

	// Provider endpoints. Overridable for staging and tests.
	AuthURL  string `env:"SPOTIFY_AUTH_URL" envDefault:"https://accounts.spotify.com/authorize"`
	TokenURL string `env:"SPOTIFY_TOKEN_URL" envDefault:"https://accounts.spotify.com/api/token"`
	APIURL   string `env:"SPOTIFY_API_URL" envDefault:"https://api.spotify.com/v1/"`

	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8000"`

	// LandingPath receives the browser after a successful callback,
	// with the opaque token appended as ?token=.
	LandingPath string `env:"LANDING_PATH" envDefault:"/"`

	// Pending authorization flows older than FlowTTL are discarded.
	FlowTTL           time.Duration `env:"FLOW_TTL" envDefault:"10m"`
	FlowSweepInterval time.Duration `env:"FLOW_SWEEP_INTERVAL" envDefault:"1m"`

	// ProviderTimeout bounds every call to Spotify.
	ProviderTimeout time.Duration `env:"PROVIDER_TIMEOUT" envDefault:"10s"`

	// TokenSealKey is an optional 64 character hex key. When set, opaque
	// tokens handed to clients are encrypted rather than only encoded.
	TokenSealKey string `env:"TOKEN_SEAL_KEY"`

	EnableMCP bool `env:"ENABLE_MCP" envDefault:"false"`

	// Environment controls log format
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL"`
}

// warnInsecureEnvFile checks whether the .env file (if present) has
// overly permissive permissions. The file holds the client secret.
func warnInsecureEnvFile() {
	if runtime.GOOS == "windows" {
		return
	}

	info, err := os.Stat(".env")
	if err != nil {
		return
	}

	mode := info.Mode().Perm()
	if mode&0o077 != 0 {
		log.Printf("WARNING: .env file has insecure permissions %04o; recommended 0600", mode)
	}
}

// Load reads configuration from environment variables.
// It first attempts to load a .env file if present, then parses env vars.
func Load() (*Config, error) {
	_ = godotenv.Load()

	warnInsecureEnvFile()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	var missing []string
	if c.ClientID == "" {
		missing = append(missing, "SPOTIFY_CLIENT_ID")
	}

	if c.ClientSecret == "" {
		missing = append(missing, "SPOTIFY_CLIENT_SECRET")
	}

	if c.RedirectURI == "" {
		missing = append(missing, "SPOTIFY_REDIRECT_URI")
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", apperrors.ErrConfigMissing, strings.Join(missing, ", "))
	}

	if _, err := url.ParseRequestURI(c.RedirectURI); err != nil {
		return fmt.Errorf("SPOTIFY_REDIRECT_URI is not a valid URL: %w", err)
	}

	if !strings.HasSuffix(c.APIURL, "/") {
		return fmt.Errorf("SPOTIFY_API_URL must end with a slash")
	}

	if !strings.HasPrefix(c.LandingPath, "/") {
		return fmt.Errorf("LANDING_PATH must be an absolute path")
	}

	// Browsers resolve "//host" and "/\host" against the scheme only.
	if strings.HasPrefix(c.LandingPath, "//") || strings.HasPrefix(c.LandingPath, `/\`) {
		return fmt.Errorf("LANDING_PATH must not name another host")
	}

	if strings.ContainsAny(c.LandingPath, "?#") {
		return fmt.Errorf("LANDING_PATH must not contain a query or fragment")
	}

	if c.FlowTTL <= 0 {
		return fmt.Errorf("FLOW_TTL must be positive")
	}

	if c.FlowSweepInterval <= 0 {
		return fmt.Errorf("FLOW_SWEEP_INTERVAL must be positive")
	}

	if c.ProviderTimeout <= 0 {
		return fmt.Errorf("PROVIDER_TIMEOUT must be positive")
	}

	if _, err := c.SealKey(); err != nil {
		return err
	}

	return nil
}

// ScopeList returns the configured scopes, falling back to the fixed
// default capability set when SPOTIFY_SCOPES is empty.
func (c *Config) ScopeList() []string {
	var scopes []string

	for _, s := range strings.Split(c.Scopes, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			scopes = append(scopes, s)
		}
	}

	if len(scopes) == 0 {
		return append([]string(nil), auth.DefaultScopes...)
	}

	return scopes
}

// SealKey decodes TOKEN_SEAL_KEY. It returns nil when no key is set.
func (c *Config) SealKey() ([]byte, error) {
	if c.TokenSealKey == "" {
		return nil, nil
	}

	key, err := hex.DecodeString(c.TokenSealKey)
	if err != nil {
		return nil, fmt.Errorf("TOKEN_SEAL_KEY must be hex encoded: %w", err)
	}

	if len(key) != sealKeyLen {
		return nil, fmt.Errorf("TOKEN_SEAL_KEY must decode to %d bytes, got %d", sealKeyLen, len(key))
	}

	return key, nil
}

// IsProduction returns true when the environment is set to production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
