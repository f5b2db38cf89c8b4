package player

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/desertthunder/fitplay/internal/shared"
)

// Slot owns at most one live player.
//
// Every Replace or Release bumps the generation before the old player is released, so callbacks
// still in flight from the old player can check [Slot.IsCurrent] and drop themselves.
//
// Requests that must wait before creating a player (for an SDK load, a token) take a ticket with
// [Slot.Reserve] first. A newer ticket or a Release supersedes every older ticket.
type Slot[T any] struct {
	mu      sync.Mutex
	cur     T
	ok      bool
	gen     atomic.Uint64
	tickets atomic.Uint64
	release func(T)
}

// NewSlot creates an empty [Slot] that calls release on players it discards.
func NewSlot[T any](release func(T)) *Slot[T] {
	return &Slot[T]{release: release}
}

// Reserve takes a ticket for a later [Slot.Replace].
func (s *Slot[T]) Reserve() uint64 {
	return s.tickets.Add(1)
}

// Superseded reports whether a newer ticket or a Release came after ticket.
func (s *Slot[T]) Superseded(ticket uint64) bool {
	return s.tickets.Load() != ticket
}

// Replace destroys the current player, if any, then stores the result of create.
//
// A superseded ticket fails with [shared.ErrSuperseded] and leaves the slot untouched. create
// receives the new generation so it can tag the player's callbacks. If create fails the slot
// stays empty.
func (s *Slot[T]) Replace(ticket uint64, create func(gen uint64) (T, error)) (T, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero T
	if s.Superseded(ticket) {
		return zero, s.gen.Load(), fmt.Errorf("ticket %d: %w", ticket, shared.ErrSuperseded)
	}

	gen := s.gen.Add(1)
	s.discard()

	v, err := create(gen)
	if err != nil {
		return zero, gen, err
	}
	s.cur, s.ok = v, true
	return v, gen, nil
}

// Release destroys the current player and supersedes pending tickets. It reports whether there
// was a player.
func (s *Slot[T]) Release() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tickets.Add(1)
	s.gen.Add(1)
	had := s.ok
	s.discard()
	return had
}

// Get returns the current player and its generation.
func (s *Slot[T]) Get() (T, uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur, s.gen.Load(), s.ok
}

// IsCurrent reports whether gen is the latest generation. It never blocks.
func (s *Slot[T]) IsCurrent(gen uint64) bool {
	return s.gen.Load() == gen
}

// Caller holds s.mu.
func (s *Slot[T]) discard() {
	if !s.ok {
		return
	}
	old := s.cur
	var zero T
	s.cur, s.ok = zero, false
	if s.release != nil {
		s.release(old)
	}
}
