package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/fitplay/internal/models"
	"github.com/desertthunder/fitplay/internal/session"
)

// ExpiryBuffer is how long before expiry a token stops being handed out.
const ExpiryBuffer = 5 * time.Minute

// TokenStore serializes the token set into session storage.
type TokenStore struct {
	store  session.Store
	now    func() time.Time
	logger *log.Logger
}

func NewTokenStore(store session.Store, logger *log.Logger) *TokenStore {
	return &TokenStore{store: store, now: time.Now, logger: logger}
}

func (s *TokenStore) Save(ctx context.Context, t models.TokenSet) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to encode tokens: %w", err)
	}
	return s.store.Set(ctx, session.KeyTokens, string(data))
}

// Load returns the stored token set, or nil when it is missing, unreadable, or corrupt.
func (s *TokenStore) Load(ctx context.Context) *models.TokenSet {
	raw, ok, err := s.store.Get(ctx, session.KeyTokens)
	if err != nil {
		s.logger.Warn("failed to read tokens", "error", err)
		return nil
	}
	if !ok {
		return nil
	}

	var t models.TokenSet
	if err := json.Unmarshal([]byte(raw), &t); err != nil || t.AccessToken == "" {
		s.logger.Warn("discarding corrupt token set", "error", err)
		return nil
	}
	return &t
}

func (s *TokenStore) Clear(ctx context.Context) error {
	return s.store.Delete(ctx, session.KeyTokens)
}

// IsValid reports whether t expires strictly after now+buffer.
func (s *TokenStore) IsValid(t *models.TokenSet, buffer time.Duration) bool {
	return IsValidAt(t, buffer, s.now())
}

// IsValidAt is [TokenStore.IsValid] against an explicit clock.
func IsValidAt(t *models.TokenSet, buffer time.Duration, now time.Time) bool {
	if t == nil {
		return false
	}
	return t.ExpiresAt > now.Add(buffer).UnixMilli()
}
