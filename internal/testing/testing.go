// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/fitplay/internal/auth"
	"github.com/desertthunder/fitplay/internal/models"
	"github.com/desertthunder/fitplay/internal/player"
)

// FakeController is a test double for [player.Controller] that records every call.
//
// SetVolume updates the snapshot but nothing is published unless a test calls Events.Publish.
type FakeController struct {
	Events *player.Broadcaster

	mu       sync.Mutex
	provider models.Provider
	snapshot models.Snapshot
	calls    []string
	err      error
	closed   int
}

var _ player.Controller = (*FakeController)(nil)

func NewFakeController(p models.Provider) *FakeController {
	return &FakeController{
		Events:   player.NewBroadcaster(),
		provider: p,
		snapshot: models.Snapshot{Provider: p, Status: models.StatusReady, Volume: 50},
	}
}

// SetErr makes every following command fail with err.
func (f *FakeController) SetErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *FakeController) SetSnapshot(s models.Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshot = s
}

func (f *FakeController) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// Last returns the most recent call, or "" when there was none.
func (f *FakeController) Last() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return ""
	}
	return f.calls[len(f.calls)-1]
}

func (f *FakeController) Closed() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *FakeController) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	return f.err
}

func (f *FakeController) Provider() models.Provider { return f.provider }

func (f *FakeController) Snapshot() models.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshot
}

func (f *FakeController) Subscribe() (<-chan models.Snapshot, func()) { return f.Events.Subscribe() }

func (f *FakeController) Play(_ context.Context, raw string) error { return f.record("play " + raw) }
func (f *FakeController) Pause(context.Context) error              { return f.record("pause") }
func (f *FakeController) Resume(context.Context) error             { return f.record("resume") }
func (f *FakeController) Next(context.Context) error               { return f.record("next") }
func (f *FakeController) Previous(context.Context) error           { return f.record("previous") }
func (f *FakeController) ToggleMute(context.Context) error         { return f.record("mute") }

func (f *FakeController) SetVolume(_ context.Context, v int) error {
	if err := f.record(fmt.Sprintf("volume %d", v)); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshot.Volume = v
	return nil
}

func (f *FakeController) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
}

// FakeConnector is a test double for the login flow.
type FakeConnector struct {
	ConnectErr error

	mu          sync.Mutex
	state       auth.FlowState
	connects    int
	disconnects int
}

func (f *FakeConnector) Connect(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connects++
	if f.ConnectErr != nil {
		f.state = auth.FlowFailed
		return "", f.ConnectErr
	}
	f.state = auth.FlowAwaitingPopup
	return "nonce", nil
}

func (f *FakeConnector) Disconnect(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnects++
	f.state = auth.FlowIdle
	return nil
}

func (f *FakeConnector) State() (auth.FlowState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state, nil
}

// Counts returns the number of Connect and Disconnect calls.
func (f *FakeConnector) Counts() (connects, disconnects int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connects, f.disconnects
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
