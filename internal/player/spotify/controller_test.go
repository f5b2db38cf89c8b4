package spotify

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/fitplay/internal/auth"
	"github.com/desertthunder/fitplay/internal/models"
	"github.com/desertthunder/fitplay/internal/sdk"
	"github.com/desertthunder/fitplay/internal/session"
	"github.com/desertthunder/fitplay/internal/shared"
	spotifyapi "github.com/zmb3/spotify/v2"
)

const testOrigin = "http://127.0.0.1:3000"

type fakePlayer struct {
	mu           sync.Mutex
	opts         PlayerOptions
	listeners    map[Event]func(Payload)
	device       string
	connected    bool
	disconnected int
	volume       float64
	calls        []string
	err          error
}

func (p *fakePlayer) Connect(context.Context) error {
	p.mu.Lock()
	p.connected = true
	fn := p.listeners[EventReady]
	device := p.device
	p.mu.Unlock()

	if device != "" && fn != nil {
		fn(Payload{DeviceID: device})
	}
	return nil
}

func (p *fakePlayer) Disconnect() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.disconnected++
}

func (p *fakePlayer) AddListener(event Event, fn func(Payload)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners[event] = fn
}

func (p *fakePlayer) RemoveListener(event Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.listeners, event)
}

// emit fires event on whatever listener is registered, mimicking a late SDK callback.
func (p *fakePlayer) emit(event Event, pl Payload) {
	p.mu.Lock()
	fn := p.listeners[event]
	p.mu.Unlock()
	if fn != nil {
		fn(pl)
	}
}

// capture returns the registered listener so a test can fire it after the player is released.
func (p *fakePlayer) capture(event Event) func(Payload) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.listeners[event]
}

func (p *fakePlayer) record(name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, name)
	return p.err
}

func (p *fakePlayer) Resume(context.Context) error        { return p.record("resume") }
func (p *fakePlayer) Pause(context.Context) error         { return p.record("pause") }
func (p *fakePlayer) TogglePlay(context.Context) error    { return p.record("toggle") }
func (p *fakePlayer) NextTrack(context.Context) error     { return p.record("next") }
func (p *fakePlayer) PreviousTrack(context.Context) error { return p.record("previous") }

func (p *fakePlayer) SetVolume(_ context.Context, v float64) error {
	p.mu.Lock()
	p.volume = v
	p.mu.Unlock()
	return p.record("volume")
}

type fakeSDK struct {
	mu      sync.Mutex
	device  string
	players []*fakePlayer
	err     error
}

func (s *fakeSDK) NewPlayer(opts PlayerOptions) (Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	p := &fakePlayer{opts: opts, listeners: map[Event]func(Payload){}, device: s.device}
	s.players = append(s.players, p)
	return p, nil
}

func (s *fakeSDK) last() *fakePlayer {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.players) == 0 {
		return nil
	}
	return s.players[len(s.players)-1]
}

type fakeLoader struct {
	mu   sync.Mutex
	err  error
	keys []sdk.Key

	// When hold is set, the first EnsureLoaded closes waiting and blocks until hold is closed.
	hold    chan struct{}
	waiting chan struct{}
}

func (l *fakeLoader) EnsureLoaded(ctx context.Context, key sdk.Key) error {
	l.mu.Lock()
	l.keys = append(l.keys, key)
	first := len(l.keys) == 1
	l.mu.Unlock()

	if first && l.hold != nil {
		close(l.waiting)
		select {
		case <-l.hold:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return l.err
}

func (l *fakeLoader) gate() {
	l.hold, l.waiting = make(chan struct{}), make(chan struct{})
}

type fakeRemote struct {
	mu      sync.Mutex
	device  models.DeviceHandle
	sources []models.PlaybackSource
	err     error
}

func (r *fakeRemote) PlayOnDevice(_ context.Context, device models.DeviceHandle, src models.PlaybackSource) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.device = device
	r.sources = append(r.sources, src)
	return r.err
}

type fakeProfiles struct {
	profile *models.Profile
	err     error
}

func (f fakeProfiles) Profile(context.Context) (*models.Profile, error) { return f.profile, f.err }

type fakeProxy struct {
	mu        sync.Mutex
	refreshes int
	exchanges int
	response  *auth.TokenResponse
	err       error
}

func (p *fakeProxy) Exchange(context.Context, string, string) (*auth.TokenResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.exchanges++
	return p.response, p.err
}

func (p *fakeProxy) Refresh(context.Context, string) (*auth.TokenResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refreshes++
	return p.response, p.err
}

type fakeWindow struct {
	urls []string
}

func (w *fakeWindow) OpenPopup(u, _ string, _ auth.PopupFeatures) error {
	w.urls = append(w.urls, u)
	return nil
}

type fixture struct {
	ctrl    *Controller
	sdk     *fakeSDK
	loader  *fakeLoader
	remote  *fakeRemote
	store   session.Store
	tokens  *auth.TokenStore
	manager *auth.Manager
	proxy   *fakeProxy
}

func newFixture() *fixture {
	logger := shared.NewLogger(nil)
	store := session.NewMemoryStore("tab")
	tokens := auth.NewTokenStore(store, logger)
	proxy := &fakeProxy{response: &auth.TokenResponse{AccessToken: "access-1", RefreshToken: "refresh-1", ExpiresIn: 3600}}
	manager := auth.NewManager(tokens, proxy, logger)

	f := &fixture{
		sdk:     &fakeSDK{device: "device-1"},
		loader:  &fakeLoader{},
		remote:  &fakeRemote{},
		store:   store,
		tokens:  tokens,
		manager: manager,
		proxy:   proxy,
	}
	f.ctrl = NewController(Opts{
		SDK:    f.sdk,
		Loader: f.loader,
		Tokens: manager,
		Remote: f.remote,
		Volume: 50,
		Logger: logger,
	})
	return f
}

func (f *fixture) saveTokens(t *testing.T, expiresIn time.Duration) {
	t.Helper()
	err := f.tokens.Save(context.Background(), models.TokenSet{
		AccessToken:  "access-0",
		RefreshToken: "refresh-0",
		ExpiresAt:    time.Now().Add(expiresIn).UnixMilli(),
	})
	if err != nil {
		t.Fatalf("expected no error saving tokens, got %v", err)
	}
}

func (f *fixture) ready(t *testing.T) *fakePlayer {
	t.Helper()
	f.saveTokens(t, time.Hour)
	if err := f.ctrl.Initialize(context.Background()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if s := f.ctrl.Snapshot(); s.Status != models.StatusReady {
		t.Fatalf("expected ready, got %s", s.Status)
	}
	return f.sdk.last()
}

func TestController(t *testing.T) {
	ctx := context.Background()

	t.Run("Initialize Without Tokens Stays Disconnected", func(t *testing.T) {
		f := newFixture()

		err := f.ctrl.Initialize(ctx)
		if !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Fatalf("expected ErrNotAuthenticated, got %v", err)
		}
		if s := f.ctrl.Snapshot(); s.Status != models.StatusDisconnected || s.Error != nil {
			t.Errorf("expected disconnected without error, got %s %+v", s.Status, s.Error)
		}
		if f.sdk.last() != nil {
			t.Error("expected no player to be created")
		}
	})

	t.Run("Ready Event Sets Device Handle", func(t *testing.T) {
		f := newFixture()
		p := f.ready(t)

		s := f.ctrl.Snapshot()
		if s.Device != "device-1" {
			t.Errorf("expected device-1, got %q", s.Device)
		}
		if p.opts.Volume != 0.5 {
			t.Errorf("expected initial volume 0.5, got %v", p.opts.Volume)
		}
		if len(f.loader.keys) != 1 || f.loader.keys[0] != sdk.Spotify {
			t.Errorf("expected spotify sdk load, got %v", f.loader.keys)
		}
	})

	t.Run("Player Pulls Tokens Lazily", func(t *testing.T) {
		f := newFixture()
		p := f.ready(t)

		token, err := p.opts.GetOAuthToken(ctx)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if token != "access-0" {
			t.Errorf("expected access-0, got %s", token)
		}
	})

	t.Run("Loader Failure Is Initialization Error", func(t *testing.T) {
		f := newFixture()
		f.saveTokens(t, time.Hour)
		f.loader.err = shared.ErrSDKLoad

		if err := f.ctrl.Initialize(ctx); err == nil {
			t.Fatal("expected error")
		}
		s := f.ctrl.Snapshot()
		if s.Status != models.StatusError || s.Error == nil {
			t.Fatalf("expected error status, got %s", s.Status)
		}
		if s.Error.Category != models.CategoryInitialization || !s.Error.Retryable {
			t.Errorf("expected retryable initialization error, got %+v", s.Error)
		}
	})

	t.Run("State Changes Map To Status", func(t *testing.T) {
		f := newFixture()
		p := f.ready(t)

		tests := []struct {
			name  string
			state *State
			want  models.PlayerStatus
		}{
			{"Playing", &State{Track: &Track{Name: "Song", Artists: []string{"A", "B"}}}, models.StatusPlaying},
			{"Paused", &State{Paused: true, Track: &Track{Name: "Song"}}, models.StatusPaused},
			{"Loading", &State{Loading: true, Track: &Track{Name: "Song"}}, models.StatusBuffering},
			{"Moved Away", nil, models.StatusReady},
		}
		for _, tt := range tests {
			p.emit(EventStateChanged, Payload{State: tt.state})
			if got := f.ctrl.Snapshot().Status; got != tt.want {
				t.Errorf("%s: expected %s, got %s", tt.name, tt.want, got)
			}
		}

		if f.ctrl.Snapshot().Track != nil {
			t.Error("expected track cleared when playback moved away")
		}
	})

	t.Run("Track Info Is Replaced Wholesale", func(t *testing.T) {
		f := newFixture()
		p := f.ready(t)

		p.emit(EventStateChanged, Payload{State: &State{
			Position: 1000,
			Duration: 200000,
			Track:    &Track{Name: "First", Artists: []string{"A", "B"}, ImageURL: "https://i.scdn.co/1"},
		}})
		tr := f.ctrl.Snapshot().Track
		if tr == nil || tr.Artist != "A, B" || tr.ArtworkURL == "" {
			t.Fatalf("expected first track with artwork, got %+v", tr)
		}

		p.emit(EventStateChanged, Payload{State: &State{Track: &Track{Name: "Second"}}})
		tr = f.ctrl.Snapshot().Track
		if tr.Name != "Second" || tr.ArtworkURL != "" || tr.PositionMS != 0 {
			t.Errorf("expected fields from second state only, got %+v", tr)
		}
	})

	t.Run("Not Ready Clears Device", func(t *testing.T) {
		f := newFixture()
		p := f.ready(t)

		p.emit(EventNotReady, Payload{DeviceID: "device-1"})
		s := f.ctrl.Snapshot()
		if s.Device != "" || s.Status != models.StatusConnecting {
			t.Errorf("expected connecting without device, got %s %q", s.Status, s.Device)
		}
		if err := f.ctrl.Play(ctx, "spotify:track:6rqhFgbbKwnb9MLmUQDhG6"); !errors.Is(err, shared.ErrPlayerNotReady) {
			t.Errorf("expected ErrPlayerNotReady, got %v", err)
		}
	})

	t.Run("Error Events Map To Categories", func(t *testing.T) {
		tests := []struct {
			event Event
			want  models.ErrorCategory
		}{
			{EventInitializationError, models.CategoryInitialization},
			{EventAccountError, models.CategoryEligibility},
			{EventPlaybackError, models.CategoryTransient},
		}
		for _, tt := range tests {
			f := newFixture()
			p := f.ready(t)

			p.emit(tt.event, Payload{Message: "boom"})
			s := f.ctrl.Snapshot()
			if s.Status != models.StatusError || s.Error == nil || s.Error.Category != tt.want {
				t.Errorf("%s: expected %s error, got %s %+v", tt.event, tt.want, s.Status, s.Error)
			}
			if f.tokens.Load(ctx) == nil {
				t.Errorf("%s: expected tokens to be kept", tt.event)
			}
		}
	})

	t.Run("Authentication Error Clears Tokens And Disconnects", func(t *testing.T) {
		f := newFixture()
		p := f.ready(t)

		p.emit(EventAuthenticationError, Payload{Message: "Invalid token scopes."})

		s := f.ctrl.Snapshot()
		if s.Status != models.StatusDisconnected || s.Error != nil {
			t.Errorf("expected disconnected without error, got %s %+v", s.Status, s.Error)
		}
		if f.tokens.Load(ctx) != nil {
			t.Error("expected tokens to be cleared")
		}
		if p.disconnected != 1 {
			t.Errorf("expected player disconnected once, got %d", p.disconnected)
		}
	})

	t.Run("Stale Player Callbacks Are Ignored", func(t *testing.T) {
		f := newFixture()
		first := f.ready(t)
		stale := first.capture(EventStateChanged)

		if err := f.ctrl.Initialize(ctx); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if first.disconnected != 1 {
			t.Fatalf("expected first player disconnected, got %d", first.disconnected)
		}

		stale(Payload{State: &State{Track: &Track{Name: "Ghost"}}})
		s := f.ctrl.Snapshot()
		if s.Status != models.StatusReady || s.Track != nil {
			t.Errorf("expected stale event ignored, got %s %+v", s.Status, s.Track)
		}
	})

	t.Run("Newer Initialize Wins While Older Waits For SDK", func(t *testing.T) {
		f := newFixture()
		f.saveTokens(t, time.Hour)
		f.loader.gate()

		older := make(chan error, 1)
		go func() { older <- f.ctrl.Initialize(ctx) }()
		<-f.loader.waiting

		if err := f.ctrl.Initialize(ctx); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		close(f.loader.hold)
		if err := <-older; !errors.Is(err, shared.ErrSuperseded) {
			t.Errorf("expected ErrSuperseded, got %v", err)
		}

		f.sdk.mu.Lock()
		players := len(f.sdk.players)
		f.sdk.mu.Unlock()
		if players != 1 {
			t.Fatalf("expected 1 player, got %d", players)
		}
		if p := f.sdk.last(); p.disconnected != 0 {
			t.Errorf("expected newest player to stay connected, got %d disconnects", p.disconnected)
		}
		if s := f.ctrl.Snapshot(); s.Status != models.StatusReady || s.Device != "device-1" {
			t.Errorf("expected ready on device-1, got %s %q", s.Status, s.Device)
		}
	})

	t.Run("Disconnect Cancels Pending Initialize", func(t *testing.T) {
		f := newFixture()
		f.saveTokens(t, time.Hour)
		f.loader.gate()

		pending := make(chan error, 1)
		go func() { pending <- f.ctrl.Initialize(ctx) }()
		<-f.loader.waiting

		f.ctrl.Disconnect()
		close(f.loader.hold)
		if err := <-pending; !errors.Is(err, shared.ErrSuperseded) {
			t.Errorf("expected ErrSuperseded, got %v", err)
		}
		if p := f.sdk.last(); p != nil {
			t.Error("expected no player to be created")
		}
		if s := f.ctrl.Snapshot(); s.Status != models.StatusDisconnected {
			t.Errorf("expected disconnected, got %s", s.Status)
		}
	})

	t.Run("Disconnect Before Ready", func(t *testing.T) {
		f := newFixture()
		f.sdk.device = ""
		f.saveTokens(t, time.Hour)

		if err := f.ctrl.Initialize(ctx); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		p := f.sdk.last()
		ready := p.capture(EventReady)
		f.ctrl.Disconnect()

		ready(Payload{DeviceID: "late-device"})
		s := f.ctrl.Snapshot()
		if s.Status != models.StatusDisconnected || s.Device != "" {
			t.Errorf("expected disconnected without device, got %s %q", s.Status, s.Device)
		}
	})

	t.Run("Disconnect Is Idempotent", func(t *testing.T) {
		f := newFixture()
		f.ctrl.Disconnect()
		f.ctrl.Close()
		if s := f.ctrl.Snapshot(); s.Status != models.StatusDisconnected {
			t.Errorf("expected disconnected, got %s", s.Status)
		}

		p := f.ready(t)
		f.ctrl.Close()
		f.ctrl.Close()
		if p.disconnected != 1 {
			t.Errorf("expected single disconnect, got %d", p.disconnected)
		}
	})

	t.Run("Play Sends Source To Device", func(t *testing.T) {
		f := newFixture()
		f.ready(t)

		if err := f.ctrl.Play(ctx, "https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M?si=abc"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if f.remote.device != "device-1" {
			t.Errorf("expected device-1, got %q", f.remote.device)
		}
		src := f.remote.sources[0]
		if !src.IsCollection() || src.ID != "spotify:playlist:37i9dQZF1DXcBWIGoYBM5M" {
			t.Errorf("expected playlist collection, got %+v", src)
		}
		if s := f.ctrl.Snapshot(); s.Source == nil || s.Source.ID != src.ID {
			t.Errorf("expected source recorded, got %+v", s.Source)
		}
	})

	t.Run("Play Empty Resumes", func(t *testing.T) {
		f := newFixture()
		p := f.ready(t)

		if err := f.ctrl.Play(ctx, ""); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(p.calls) != 1 || p.calls[0] != "resume" {
			t.Errorf("expected resume, got %v", p.calls)
		}
		if len(f.remote.sources) != 0 {
			t.Error("expected no remote call")
		}
	})

	t.Run("Remote Failures Are Classified", func(t *testing.T) {
		tests := []struct {
			status int
			want   models.ErrorCategory
		}{
			{http.StatusForbidden, models.CategoryEligibility},
			{http.StatusNotFound, models.CategoryContent},
			{http.StatusInternalServerError, models.CategoryTransient},
		}
		for _, tt := range tests {
			f := newFixture()
			f.ready(t)
			f.remote.err = spotifyapi.Error{Message: "nope", Status: tt.status}

			if err := f.ctrl.Play(ctx, "spotify:album:4aawyAB9vmqN3uQ7FjRGTy"); err == nil {
				t.Fatalf("%d: expected error", tt.status)
			}
			s := f.ctrl.Snapshot()
			if s.Error == nil || s.Error.Category != tt.want {
				t.Errorf("%d: expected %s, got %+v", tt.status, tt.want, s.Error)
			}
		}
	})

	t.Run("Remote Unauthorized Drops Authorization", func(t *testing.T) {
		f := newFixture()
		f.ready(t)
		f.remote.err = spotifyapi.Error{Message: "expired", Status: http.StatusUnauthorized}

		if err := f.ctrl.Play(ctx, "spotify:track:6rqhFgbbKwnb9MLmUQDhG6"); err == nil {
			t.Fatal("expected error")
		}
		s := f.ctrl.Snapshot()
		if s.Status != models.StatusDisconnected || s.Error != nil {
			t.Errorf("expected quiet disconnect, got %s %+v", s.Status, s.Error)
		}
		if f.tokens.Load(ctx) != nil {
			t.Error("expected tokens cleared")
		}
	})

	t.Run("Invalid Source Leaves State Alone", func(t *testing.T) {
		f := newFixture()
		f.ready(t)

		if err := f.ctrl.Play(ctx, "https://example.com/track/1"); !errors.Is(err, shared.ErrInvalidSource) {
			t.Fatalf("expected ErrInvalidSource, got %v", err)
		}
		if s := f.ctrl.Snapshot(); s.Status != models.StatusReady || s.Error != nil {
			t.Errorf("expected ready without error, got %s %+v", s.Status, s.Error)
		}
	})

	t.Run("Volume And Mute", func(t *testing.T) {
		f := newFixture()
		p := f.ready(t)

		if err := f.ctrl.SetVolume(ctx, 80); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if p.volume != 0.8 {
			t.Errorf("expected 0.8, got %v", p.volume)
		}

		_ = f.ctrl.ToggleMute(ctx)
		if s := f.ctrl.Snapshot(); !s.Muted || s.Volume != 0 || p.volume != 0 {
			t.Errorf("expected muted at 0, got %+v player=%v", s, p.volume)
		}

		_ = f.ctrl.ToggleMute(ctx)
		if s := f.ctrl.Snapshot(); s.Muted || s.Volume != 80 {
			t.Errorf("expected restored to 80, got %+v", s)
		}
	})

	t.Run("Transport Requires Ready Player", func(t *testing.T) {
		f := newFixture()
		for name, fn := range map[string]func(context.Context) error{
			"pause":    f.ctrl.Pause,
			"resume":   f.ctrl.Resume,
			"next":     f.ctrl.Next,
			"previous": f.ctrl.Previous,
		} {
			if err := fn(ctx); !errors.Is(err, shared.ErrPlayerNotReady) {
				t.Errorf("%s: expected ErrPlayerNotReady, got %v", name, err)
			}
		}
	})

	t.Run("Non Premium Account Is Ineligible", func(t *testing.T) {
		f := newFixture()
		f.ctrl.profiles = fakeProfiles{profile: &models.Profile{ID: "u1", Product: "free"}}
		f.saveTokens(t, time.Hour)

		if err := f.ctrl.Initialize(ctx); !errors.Is(err, shared.ErrNotEligible) {
			t.Fatalf("expected ErrNotEligible, got %v", err)
		}
		s := f.ctrl.Snapshot()
		if s.Error == nil || s.Error.Category != models.CategoryEligibility || s.Error.Retryable {
			t.Errorf("expected non-retryable eligibility error, got %+v", s.Error)
		}
		if f.sdk.last() != nil {
			t.Error("expected no player to be created")
		}
	})

	t.Run("Unreadable Profile Does Not Block", func(t *testing.T) {
		f := newFixture()
		f.ctrl.profiles = fakeProfiles{err: errors.New("timeout")}
		f.ready(t)
	})

	t.Run("Subscribers Receive Snapshots", func(t *testing.T) {
		f := newFixture()
		ch, unsubscribe := f.ctrl.Subscribe()
		defer unsubscribe()

		f.ready(t)

		var last models.Snapshot
		for {
			select {
			case s := <-ch:
				last = s
				continue
			default:
			}
			break
		}
		if last.Status != models.StatusReady {
			t.Errorf("expected last published status ready, got %s", last.Status)
		}
	})
}

// Full connect flow: popup, callback with matching state, exchange, then a ready player.
func TestConnectToReady(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	window := &fakeWindow{}
	channel := auth.NewChannel(testOrigin)

	flow := auth.NewFlow(auth.FlowOpts{
		Config:  auth.FlowConfig{ClientID: "client-123", RedirectURI: testOrigin + "/callback/spotify"},
		Store:   f.store,
		Tokens:  f.tokens,
		Proxy:   f.proxy,
		Window:  window,
		Channel: channel,
		Logger:  shared.NewLogger(nil),
	})
	flow.OnConnected(func(ctx context.Context) {
		if err := f.ctrl.Initialize(ctx); err != nil {
			t.Errorf("expected no error initializing, got %v", err)
		}
	})

	authURL, err := flow.Connect(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	u, _ := url.Parse(authURL)
	nonce := u.Query().Get("state")

	err = channel.Deliver(ctx, testOrigin, auth.Envelope{Type: auth.MessageOAuthCallback, Code: "abc", State: nonce})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if f.proxy.exchanges != 1 {
		t.Errorf("expected one exchange, got %d", f.proxy.exchanges)
	}
	s := f.ctrl.Snapshot()
	if s.Status != models.StatusReady || s.Device == "" {
		t.Errorf("expected ready with device, got %s %q", s.Status, s.Device)
	}
	if state, _ := flow.State(); state != auth.FlowConnected {
		t.Errorf("expected flow connected, got %s", state)
	}
}

// A token near expiry whose refresh fails clears the session and disconnects the player.
func TestRefreshFailureDisconnects(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	p := f.ready(t)

	f.saveTokens(t, 2*time.Minute)
	f.proxy.err = &auth.ProxyError{Status: http.StatusBadRequest, Code: "invalid_grant"}

	if _, err := p.opts.GetOAuthToken(ctx); !errors.Is(err, shared.ErrRefreshFailed) {
		t.Fatalf("expected ErrRefreshFailed, got %v", err)
	}
	if f.proxy.refreshes != 1 {
		t.Errorf("expected one refresh attempt, got %d", f.proxy.refreshes)
	}
	if f.tokens.Load(ctx) != nil {
		t.Error("expected tokens cleared")
	}
	s := f.ctrl.Snapshot()
	if s.Status != models.StatusDisconnected || s.Error != nil {
		t.Errorf("expected disconnected without error, got %s %+v", s.Status, s.Error)
	}
	if p.disconnected != 1 {
		t.Errorf("expected player disconnected, got %d", p.disconnected)
	}
}
