// Package session provides session-scoped key/value storage.
//
// A session corresponds to one host page lifetime. Tokens and the pending OAuth nonce are stored
// under distinct keys so clearing one never disturbs the other.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/fitplay/internal/shared"
)

const (
	KeyTokens     = "spotify.tokens"
	KeyOAuthState = "spotify.oauth_state"
)

// Store is a string key/value store scoped to one session.
//
// Get reports ok=false for a missing key instead of returning an error.
type Store interface {
	ID() string
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

// Open builds the backend selected by cfg for the given session id.
//
// The returned close function releases backend connections.
func Open(ctx context.Context, cfg shared.SessionConfig, id string, logger *log.Logger) (Store, func() error, error) {
	noop := func() error { return nil }
	if id == "" {
		id = shared.GenerateID()
	}

	switch cfg.Backend {
	case "", "memory":
		return NewMemoryStore(id), noop, nil
	case "sqlite":
		db, err := shared.NewDatabase(cfg.Path)
		if err != nil {
			return nil, noop, err
		}
		return NewSQLiteStore(db, id, cfg.TTL()), db.Close, nil
	case "redis":
		client, err := ConnectRedis(ctx, cfg.RedisAddr, logger)
		if err != nil {
			return nil, noop, err
		}
		return NewRedisStore(client, id, cfg.TTL()), client.Close, nil
	default:
		return nil, noop, fmt.Errorf("%w: session backend %q", shared.ErrInvalidConfig, cfg.Backend)
	}
}

// expiry returns the absolute expiry for a value written now, or the zero time if ttl is zero.
func expiry(now time.Time, ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return now.Add(ttl)
}
