package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/desertthunder/fitplay/internal/models"
	"github.com/desertthunder/fitplay/internal/session"
	"github.com/desertthunder/fitplay/internal/shared"
)

type fakeProxy struct {
	mu        sync.Mutex
	exchanges []string
	refreshes []string
	response  *TokenResponse
	err       error
}

func (p *fakeProxy) Exchange(_ context.Context, code, _ string) (*TokenResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.exchanges = append(p.exchanges, code)
	return p.response, p.err
}

func (p *fakeProxy) Refresh(_ context.Context, refreshToken string) (*TokenResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refreshes = append(p.refreshes, refreshToken)
	return p.response, p.err
}

func (p *fakeProxy) calls() (int, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.exchanges), len(p.refreshes)
}

type fakeWindow struct {
	urls []string
	err  error
}

func (w *fakeWindow) OpenPopup(url, _ string, _ PopupFeatures) error {
	if w.err != nil {
		return w.err
	}
	w.urls = append(w.urls, url)
	return nil
}

var errRevoked = errors.New("invalid_grant")

func newTestTokenStore(now time.Time) (*TokenStore, session.Store) {
	store := session.NewMemoryStore("tab")
	ts := NewTokenStore(store, shared.NewLogger(nil))
	ts.now = func() time.Time { return now }
	return ts, store
}

func tokensExpiringIn(now time.Time, d time.Duration) models.TokenSet {
	return models.TokenSet{AccessToken: "access-1", RefreshToken: "refresh-1", ExpiresAt: now.Add(d).UnixMilli()}
}

// brokenSetStore fails every Set once broken is true.
type brokenSetStore struct {
	session.Store
	broken bool
}

func (s *brokenSetStore) Set(ctx context.Context, key, value string) error {
	if s.broken {
		return errors.New("disk full")
	}
	return s.Store.Set(ctx, key, value)
}
