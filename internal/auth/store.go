// Package auth coordinates the Spotify authorization-code flow with PKCE.
// Pending flows live in memory only and are lost on restart; users simply
// start authorization again.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"sync"
	"time"

	apperrors "github.com/alexjbarnes/npbtn/internal/errors"
	"golang.org/x/oauth2"
)

const (
	// DefaultFlowTTL controls how long an authorization may stay pending.
	DefaultFlowTTL = 10 * time.Minute

	// DefaultSweepInterval controls how often expired flows are reaped.
	DefaultSweepInterval = time.Minute
)

// PendingFlow is an authorization that was started but not yet
// completed. It is never mutated after registration.
type PendingFlow struct {
	State     string
	Verifier  string
	Config    *oauth2.Config
	CreatedAt time.Time
}

// Store holds pending flows keyed by state token.
type Store struct {
	mu       sync.Mutex
	flows    map[string]*PendingFlow
	ttl      time.Duration
	interval time.Duration
	now      func() time.Time
	logger   *slog.Logger
	stopGC   chan struct{}
	stopOnce sync.Once
}

// NewStore creates an empty flow store and starts a background goroutine
// that periodically removes flows older than ttl. Non-positive durations
// fall back to the defaults. Call Stop() to clean up the goroutine.
func NewStore(ttl, interval time.Duration, logger *slog.Logger) *Store {
	return newStore(ttl, interval, logger, time.Now)
}

func newStore(ttl, interval time.Duration, logger *slog.Logger, now func() time.Time) *Store {
	if ttl <= 0 {
		ttl = DefaultFlowTTL
	}

	if interval <= 0 {
		interval = DefaultSweepInterval
	}

	if logger == nil {
		logger = slog.Default()
	}

	s := &Store{
		flows:    make(map[string]*PendingFlow),
		ttl:      ttl,
		interval: interval,
		now:      now,
		logger:   logger,
		stopGC:   make(chan struct{}),
	}
	go s.gcLoop()

	return s
}

// Stop terminates the background cleanup goroutine. Safe to call twice.
func (s *Store) Stop() {
	s.stopOnce.Do(func() { close(s.stopGC) })
}

func (s *Store) gcLoop() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := s.sweep(); n > 0 {
				s.logger.Debug("swept expired authorization flows", slog.Int("count", n))
			}
		case <-s.stopGC:
			return
		}
	}
}

// sweep removes every expired flow and returns how many were removed.
func (s *Store) sweep() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0

	for k, f := range s.flows {
		if s.expired(f, now) {
			delete(s.flows, k)
			removed++
		}
	}

	return removed
}

func (s *Store) expired(f *PendingFlow, now time.Time) bool {
	return now.Sub(f.CreatedAt) > s.ttl
}

// Put registers a flow under its state token. An existing entry with the
// same state is overwritten. A zero CreatedAt is stamped with the current
// time.
func (s *Store) Put(state string, f *PendingFlow) {
	if f.CreatedAt.IsZero() {
		f.CreatedAt = s.now()
	}

	s.mu.Lock()
	s.flows[state] = f
	s.mu.Unlock()
}

// Take removes and returns the flow for state. Unknown, already taken
// and expired states all return ErrFlowNotFound.
func (s *Store) Take(state string) (*PendingFlow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.flows[state]
	if !ok {
		return nil, apperrors.ErrFlowNotFound
	}
	delete(s.flows, state)

	if s.expired(f, s.now()) {
		return nil, apperrors.ErrFlowNotFound
	}

	return f, nil
}

// Len returns the number of resident flows, expired or not.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.flows)
}

// RandomHex generates a cryptographically random hex string of the given byte length.
func RandomHex(byteLen int) (string, error) {
	b := make([]byte, byteLen)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	return hex.EncodeToString(b), nil
}
