package sdk

import "sync"

// Globals holds named callbacks that third-party scripts invoke when they finish loading.
type Globals struct {
	mu        sync.Mutex
	callbacks map[string]func()
}

// NewGlobals creates an empty registry. Most code should share [DefaultGlobals].
func NewGlobals() *Globals {
	return &Globals{callbacks: map[string]func(){}}
}

// DefaultGlobals is the page-wide callback registry.
var DefaultGlobals = NewGlobals()

// Compose chains fn after any callback already registered under name.
func (g *Globals) Compose(name string, fn func()) {
	g.mu.Lock()
	defer g.mu.Unlock()

	prev := g.callbacks[name]
	if prev == nil {
		g.callbacks[name] = fn
		return
	}
	g.callbacks[name] = func() {
		prev()
		fn()
	}
}

// Fire invokes the callback registered under name, if any.
//
// The callback runs without holding the registry lock so it may compose further hooks.
func (g *Globals) Fire(name string) bool {
	g.mu.Lock()
	fn := g.callbacks[name]
	g.mu.Unlock()

	if fn == nil {
		return false
	}
	fn()
	return true
}

// Reset drops every callback. Used when the page the callbacks belonged to goes away.
func (g *Globals) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	clear(g.callbacks)
}
