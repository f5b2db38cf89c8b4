package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/desertthunder/fitplay/internal/shared"
)

// MessageOAuthCallback is the envelope type the callback page posts to its opener.
const MessageOAuthCallback = "oauth-callback"

// Envelope is a message posted from the callback popup to the page that opened it.
type Envelope struct {
	Type  string `json:"type"`
	Code  string `json:"code,omitempty"`
	State string `json:"state,omitempty"`
	Error string `json:"error,omitempty"`
}

// Channel delivers popup envelopes to listeners after checking the sender's origin.
type Channel struct {
	origin string

	mu        sync.Mutex
	listeners map[int]func(context.Context, Envelope) error
	next      int
}

// NewChannel creates a [Channel] accepting only messages from origin.
func NewChannel(origin string) *Channel {
	return &Channel{origin: origin, listeners: map[int]func(context.Context, Envelope) error{}}
}

// Listen registers fn and returns a function that removes it.
func (c *Channel) Listen(fn func(context.Context, Envelope) error) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.next
	c.next++
	c.listeners[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.listeners, id)
	}
}

// Deliver hands env to every listener. The origin must match exactly.
func (c *Channel) Deliver(ctx context.Context, origin string, env Envelope) error {
	if origin != c.origin {
		return fmt.Errorf("%w: %q", shared.ErrForbiddenOrigin, origin)
	}

	c.mu.Lock()
	fns := make([]func(context.Context, Envelope) error, 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	if len(fns) == 0 {
		return shared.ErrNoOpener
	}

	var errs []error
	for _, fn := range fns {
		errs = append(errs, fn(ctx, env))
	}
	return errors.Join(errs...)
}
