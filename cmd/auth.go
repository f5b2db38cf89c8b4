package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/fitplay/internal/auth"
	"github.com/desertthunder/fitplay/internal/session"
	"github.com/desertthunder/fitplay/internal/shared"
	"github.com/urfave/cli/v3"
)

// openTokens opens the configured session backend for commands that run beside a server.
func (r *Runner) openTokens(ctx context.Context, cmd *cli.Command) (*auth.TokenStore, session.Store, func() error, error) {
	if err := r.loadConfig(cmd); err != nil {
		return nil, nil, nil, err
	}
	if r.config.Session.Backend == "" || r.config.Session.Backend == "memory" {
		return nil, nil, nil, fmt.Errorf("%w: session backend %q does not outlive the server", shared.ErrInvalidConfig, r.config.Session.Backend)
	}
	if r.config.Session.ID == "" {
		return nil, nil, nil, fmt.Errorf("%w: session.id is required", shared.ErrInvalidConfig)
	}

	store, closeStore, err := session.Open(ctx, r.config.Session, r.config.Session.ID, r.logger)
	if err != nil {
		return nil, nil, nil, err
	}
	return auth.NewTokenStore(store, r.logger), store, closeStore, nil
}

// AuthStatus reports whether the persisted session holds usable tokens.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	tokens, store, closeStore, err := r.openTokens(ctx, cmd)
	if err != nil {
		return err
	}
	defer closeStore()

	r.writePlainHeader("Spotify Authorization")
	r.writePlain("Session: %s (%s)\n", store.ID(), r.config.Session.Backend)

	t := tokens.Load(ctx)
	switch {
	case t == nil:
		r.writePlain("Status: ✗ Not connected\n")
	case tokens.IsValid(t, auth.ExpiryBuffer):
		r.writePlain("Status: ✓ Connected\n")
		r.writePlain("Expires: %s\n", t.Expiry().Format(time.RFC3339))
	case t.RefreshToken != "":
		r.writePlain("Status: ⟳ Expired, will refresh on next use\n")
	default:
		r.writePlain("Status: ✗ Expired\n")
	}
	return nil
}

// AuthLogout clears every value of the persisted session, tokens and pending nonce alike.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	_, store, closeStore, err := r.openTokens(ctx, cmd)
	if err != nil {
		return err
	}
	defer closeStore()

	if err := store.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	r.logger.Info("session cleared", "session", store.ID())
	return r.writePlain("✓ Logged out\n")
}
