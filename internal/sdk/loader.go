package sdk

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/fitplay/internal/shared"
)

type entry struct {
	status LoadStatus
	done   chan struct{} // closed when the current load attempt settles
	err    error
}

// Loader tracks load state per SDK and coordinates concurrent callers.
type Loader struct {
	doc     Document
	globals *Globals
	logger  *log.Logger

	mu      sync.Mutex
	entries map[Key]*entry
	epoch   uint64 // bumped by Invalidate so hooks from an old page are ignored
}

// NewLoader creates a [Loader]. A nil globals uses [DefaultGlobals].
func NewLoader(doc Document, globals *Globals, logger *log.Logger) *Loader {
	if globals == nil {
		globals = DefaultGlobals
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Loader{
		doc:     doc,
		globals: globals,
		logger:  shared.WithLogger(logger, "component", "sdk"),
		entries: map[Key]*entry{},
	}
}

// Status reports the current [LoadStatus] for key.
func (l *Loader) Status(key Key) LoadStatus {
	l.mu.Lock()
	defer l.mu.Unlock()
	if e, ok := l.entries[key]; ok {
		return e.status
	}
	return Unloaded
}

// EnsureLoaded returns once the SDK for key is ready, starting the load if nobody has.
//
// Cancelling ctx abandons the wait but not the load itself.
func (l *Loader) EnsureLoaded(ctx context.Context, key Key) error {
	desc, err := Lookup(key)
	if err != nil {
		return err
	}

	l.mu.Lock()
	e, ok := l.entries[key]
	inject := false
	if !ok || e.status == Unloaded {
		e, inject = l.begin(key, desc)
	}
	if e.status == Ready {
		l.mu.Unlock()
		return nil
	}
	done, epoch := e.done, l.epoch
	l.mu.Unlock()

	if inject {
		l.logger.Info("injecting sdk script", "sdk", key, "src", desc.ScriptURL)
		onError := func(err error) {
			l.settle(key, e, epoch, fmt.Errorf("%w: %s: %v", shared.ErrSDKLoad, key, err))
		}
		if err := l.doc.InjectScript(desc.ScriptURL, onError); err != nil {
			onError(err)
		}
	}

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	return e.err
}

// begin registers a new load attempt and reports whether the script still has to be injected.
// Caller holds l.mu.
func (l *Loader) begin(key Key, desc Descriptor) (*entry, bool) {
	e := &entry{status: Loading, done: make(chan struct{})}
	l.entries[key] = e
	epoch := l.epoch

	if l.doc.HasGlobal(desc.GlobalObject) {
		l.logger.Debug("sdk already present", "sdk", key)
		e.status = Ready
		close(e.done)
		return e, false
	}

	l.globals.Compose(desc.ReadyCallback, func() { l.settle(key, e, epoch, nil) })

	if l.doc.HasScript(desc.ScriptURL) {
		l.logger.Debug("script tag already present, waiting on ready callback", "sdk", key)
		return e, false
	}
	return e, true
}

// settle resolves a load attempt once. Failures leave the SDK unloaded so a later call retries.
func (l *Loader) settle(key Key, e *entry, epoch uint64, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if epoch != l.epoch || e.status != Loading {
		return
	}
	if err != nil {
		l.logger.Error("sdk load failed", "sdk", key, "error", err)
		e.status = Unloaded
		e.err = err
	} else {
		l.logger.Info("sdk ready", "sdk", key)
		e.status = Ready
	}
	close(e.done)
}

// Invalidate marks every SDK unloaded, failing any pending waiters.
//
// Called when the host page reloads and its scripts are gone.
func (l *Loader) Invalidate() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.epoch++
	for key, e := range l.entries {
		if e.status == Loading {
			e.err = fmt.Errorf("%w: %s: page reloaded", shared.ErrSDKLoad, key)
			close(e.done)
		}
		e.status = Unloaded
	}
}
