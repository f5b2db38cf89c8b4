package auth

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/fitplay/internal/models"
	"github.com/desertthunder/fitplay/internal/shared"
)

// Manager hands out valid access tokens, refreshing through the proxy when needed.
type Manager struct {
	tokens *TokenStore
	proxy  TokenProxy
	logger *log.Logger

	mu sync.Mutex // serializes refreshes

	hmu   sync.Mutex
	hooks []func(context.Context)
}

func NewManager(tokens *TokenStore, proxy TokenProxy, logger *log.Logger) *Manager {
	return &Manager{tokens: tokens, proxy: proxy, logger: logger}
}

// OnAuthLost registers fn to run after the token set was cleared because it cannot be refreshed.
func (m *Manager) OnAuthLost(fn func(context.Context)) {
	m.hmu.Lock()
	defer m.hmu.Unlock()
	m.hooks = append(m.hooks, fn)
}

// GetValidToken returns a token usable for at least [ExpiryBuffer].
//
// It returns [shared.ErrNotAuthenticated] when no token set is stored.
func (m *Manager) GetValidToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	t := m.tokens.Load(ctx)
	if t == nil {
		m.mu.Unlock()
		return "", shared.ErrNotAuthenticated
	}
	if m.tokens.IsValid(t, ExpiryBuffer) {
		m.mu.Unlock()
		return t.AccessToken, nil
	}

	access, err := m.refreshLocked(ctx, t)
	m.mu.Unlock()
	if err != nil {
		m.authLost(ctx)
		return "", err
	}
	return access, nil
}

// Refresh unconditionally exchanges the stored refresh token for a new token set.
func (m *Manager) Refresh(ctx context.Context) (string, error) {
	m.mu.Lock()
	t := m.tokens.Load(ctx)
	if t == nil {
		m.mu.Unlock()
		return "", shared.ErrNotAuthenticated
	}

	access, err := m.refreshLocked(ctx, t)
	m.mu.Unlock()
	if err != nil {
		m.authLost(ctx)
		return "", err
	}
	return access, nil
}

// Authenticated reports whether a token set is stored, valid or not.
func (m *Manager) Authenticated(ctx context.Context) bool {
	return m.tokens.Load(ctx) != nil
}

// Invalidate clears the stored tokens. Used when the SDK rejects the access token.
func (m *Manager) Invalidate(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tokens.Clear(ctx)
}

// refreshLocked refreshes t and persists the result. On failure the store is cleared. Caller holds m.mu.
func (m *Manager) refreshLocked(ctx context.Context, t *models.TokenSet) (string, error) {
	if t.RefreshToken == "" {
		m.clear(ctx)
		return "", shared.ErrNoRefreshToken
	}

	m.logger.Debug("refreshing access token", "expires_at", t.Expiry())
	resp, err := m.proxy.Refresh(ctx, t.RefreshToken)
	if err != nil {
		m.logger.Warn("token refresh failed, re-authentication required", "error", err)
		m.clear(ctx)
		return "", fmt.Errorf("%w: %w", shared.ErrRefreshFailed, err)
	}

	refresh := resp.RefreshToken
	if refresh == "" {
		refresh = t.RefreshToken
	}
	next := models.NewTokenSet(resp.AccessToken, refresh, resp.ExpiresIn, m.tokens.now())
	if err := m.tokens.Save(ctx, next); err != nil {
		m.logger.Error("failed to persist refreshed tokens", "error", err)
		m.clear(ctx)
		return "", fmt.Errorf("%w: %w", shared.ErrRefreshFailed, err)
	}
	return next.AccessToken, nil
}

func (m *Manager) clear(ctx context.Context) {
	if err := m.tokens.Clear(ctx); err != nil {
		m.logger.Error("failed to clear tokens", "error", err)
	}
}

func (m *Manager) authLost(ctx context.Context) {
	m.hmu.Lock()
	hooks := append([]func(context.Context){}, m.hooks...)
	m.hmu.Unlock()

	for _, fn := range hooks {
		fn(ctx)
	}
}
