package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/desertthunder/fitplay/internal/shared"
)

func TestChannel(t *testing.T) {
	ctx := context.Background()
	const origin = "http://127.0.0.1:3000"

	t.Run("Delivers From App Origin", func(t *testing.T) {
		ch := NewChannel(origin)
		var got Envelope
		ch.Listen(func(_ context.Context, env Envelope) error {
			got = env
			return nil
		})

		env := Envelope{Type: MessageOAuthCallback, Code: "abc", State: "n1"}
		if err := ch.Deliver(ctx, origin, env); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got != env {
			t.Errorf("expected %+v, got %+v", env, got)
		}
	})

	t.Run("Rejects Foreign Origin", func(t *testing.T) {
		ch := NewChannel(origin)
		called := false
		ch.Listen(func(context.Context, Envelope) error {
			called = true
			return nil
		})

		for _, o := range []string{"https://evil.example", "*", "http://127.0.0.1:3001", ""} {
			err := ch.Deliver(ctx, o, Envelope{Type: MessageOAuthCallback})
			if !errors.Is(err, shared.ErrForbiddenOrigin) {
				t.Errorf("origin %q: expected ErrForbiddenOrigin, got %v", o, err)
			}
		}
		if called {
			t.Error("listener must not see foreign messages")
		}
	})

	t.Run("No Listener", func(t *testing.T) {
		ch := NewChannel(origin)
		stop := ch.Listen(func(context.Context, Envelope) error { return nil })
		stop()

		if err := ch.Deliver(ctx, origin, Envelope{}); !errors.Is(err, shared.ErrNoOpener) {
			t.Errorf("expected ErrNoOpener, got %v", err)
		}
	})
}
