package youtube

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/desertthunder/fitplay/internal/models"
	"github.com/desertthunder/fitplay/internal/sdk"
	"github.com/desertthunder/fitplay/internal/shared"
)

type fakePlayer struct {
	mu        sync.Mutex
	container string
	opts      EmbedOptions
	events    Events
	destroyed int
	calls     []string
	volume    int
	muted     bool
	data      VideoData
}

func (p *fakePlayer) record(name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, name)
	return nil
}

func (p *fakePlayer) PlayVideo(context.Context) error     { return p.record("play") }
func (p *fakePlayer) PauseVideo(context.Context) error    { return p.record("pause") }
func (p *fakePlayer) NextVideo(context.Context) error     { return p.record("next") }
func (p *fakePlayer) PreviousVideo(context.Context) error { return p.record("previous") }

func (p *fakePlayer) SetVolume(_ context.Context, v int) error {
	p.mu.Lock()
	p.volume = v
	p.mu.Unlock()
	return p.record("volume")
}

func (p *fakePlayer) Mute(context.Context) error {
	p.mu.Lock()
	p.muted = true
	p.mu.Unlock()
	return p.record("mute")
}

func (p *fakePlayer) UnMute(context.Context) error {
	p.mu.Lock()
	p.muted = false
	p.mu.Unlock()
	return p.record("unmute")
}

func (p *fakePlayer) VideoData(context.Context) (VideoData, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.data, nil
}

func (p *fakePlayer) Destroy() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.destroyed++
}

type fakeSDK struct {
	players []*fakePlayer
	err     error
	// live counts players created and not destroyed when the next one is created.
	liveAtCreate []int
}

func (s *fakeSDK) NewPlayer(container string, opts EmbedOptions, events Events) (Player, error) {
	live := 0
	for _, p := range s.players {
		if p.destroyed == 0 {
			live++
		}
	}
	s.liveAtCreate = append(s.liveAtCreate, live)
	if s.err != nil {
		return nil, s.err
	}
	p := &fakePlayer{container: container, opts: opts, events: events}
	s.players = append(s.players, p)
	return p, nil
}

func (s *fakeSDK) last() *fakePlayer {
	if len(s.players) == 0 {
		return nil
	}
	return s.players[len(s.players)-1]
}

type fakeLoader struct {
	err error

	// When hold is set, the first EnsureLoaded closes waiting and blocks until hold is closed.
	hold    chan struct{}
	waiting chan struct{}
	once    sync.Once
}

func (l *fakeLoader) EnsureLoaded(ctx context.Context, _ sdk.Key) error {
	if l.hold != nil {
		first := false
		l.once.Do(func() { first = true })
		if first {
			close(l.waiting)
			select {
			case <-l.hold:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return l.err
}

func (l *fakeLoader) gate() {
	l.hold, l.waiting = make(chan struct{}), make(chan struct{})
}

func newTestController() (*Controller, *fakeSDK, *fakeLoader) {
	s := &fakeSDK{}
	l := &fakeLoader{}
	c := NewController(Opts{
		SDK:       s,
		Loader:    l,
		Container: "youtube-player",
		Host:      HostNoCookie,
		Origin:    "http://127.0.0.1:3000",
		Autoplay:  true,
		Curated: Curated{
			"warmup":   "https://www.youtube.com/playlist?list=PLFgquLnL59alCl_2TQvOiD5Vgm1hCaGSI",
			"cooldown": "https://youtu.be/jfKfPfyJRdk",
		},
		Volume: 50,
		Logger: shared.NewLogger(nil),
	})
	return c, s, l
}

func TestParseSource(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		kind  models.SourceKind
		id    string
		start string
		loop  bool
	}{
		{"Watch URL", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", models.SourceSingle, "dQw4w9WgXcQ", "", false},
		{"Short Link", "https://youtu.be/dQw4w9WgXcQ?t=42", models.SourceSingle, "dQw4w9WgXcQ", "", false},
		{"Embed URL", "https://www.youtube-nocookie.com/embed/dQw4w9WgXcQ", models.SourceSingle, "dQw4w9WgXcQ", "", false},
		{"Shorts URL", "https://youtube.com/shorts/dQw4w9WgXcQ", models.SourceSingle, "dQw4w9WgXcQ", "", false},
		{"Live URL", "https://www.youtube.com/live/dQw4w9WgXcQ", models.SourceSingle, "dQw4w9WgXcQ", "", false},
		{"Playlist URL", "https://www.youtube.com/playlist?list=PLFgquLnL59alCl_2TQvOiD5Vgm1hCaGSI", models.SourceCollection, "PLFgquLnL59alCl_2TQvOiD5Vgm1hCaGSI", "", true},
		{"Video In Playlist", "https://www.youtube.com/watch?v=dQw4w9WgXcQ&list=PL123abc", models.SourceCollection, "PL123abc", "dQw4w9WgXcQ", true},
		{"List Before Video", "https://www.youtube.com/watch?list=PL123abc&v=dQw4w9WgXcQ", models.SourceCollection, "PL123abc", "dQw4w9WgXcQ", true},
		{"Bare Playlist Id", "PLFgquLnL59alCl_2TQvOiD5Vgm1hCaGSI", models.SourceCollection, "PLFgquLnL59alCl_2TQvOiD5Vgm1hCaGSI", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := ParseSource(tt.raw)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if src.Kind != tt.kind || src.ID != tt.id || src.StartID != tt.start || src.Loop != tt.loop {
				t.Errorf("expected %s %s start=%q loop=%v, got %+v", tt.kind, tt.id, tt.start, tt.loop, src)
			}
		})
	}

	t.Run("Rejects Unrecognized Input", func(t *testing.T) {
		for _, raw := range []string{"", "  ", "https://www.youtube.com/", "https://vimeo.com/12345", "bad id!"} {
			if _, err := ParseSource(raw); !errors.Is(err, shared.ErrInvalidSource) {
				t.Errorf("%q: expected ErrInvalidSource, got %v", raw, err)
			}
		}
	})
}

func TestCurated(t *testing.T) {
	c, _, _ := newTestController()

	t.Run("Resolves Configured Names", func(t *testing.T) {
		src, err := c.curated.Resolve(" Warmup ")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !src.IsCollection() || !src.Loop {
			t.Errorf("expected looping collection, got %+v", src)
		}
	})

	t.Run("Unknown Name", func(t *testing.T) {
		if _, err := c.curated.Resolve("sprint"); !errors.Is(err, shared.ErrInvalidSource) {
			t.Errorf("expected ErrInvalidSource, got %v", err)
		}
	})

	t.Run("Curated Name Wins Over Bare Id", func(t *testing.T) {
		src, err := c.Resolve("cooldown")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if src.Kind != models.SourceSingle || src.ID != "jfKfPfyJRdk" {
			t.Errorf("expected cooldown video, got %+v", src)
		}
	})
}

func TestMapErrorCode(t *testing.T) {
	tests := []struct {
		code      int
		category  models.ErrorCategory
		retryable bool
	}{
		{101, models.CategoryContent, false},
		{150, models.CategoryContent, false},
		{100, models.CategoryContent, false},
		{2, models.CategoryContent, false},
		{5, models.CategoryTransient, true},
		{999, models.CategoryTransient, true},
	}
	for _, tt := range tests {
		perr := MapErrorCode(tt.code)
		if perr.Category != tt.category || perr.Retryable != tt.retryable {
			t.Errorf("code %d: expected %s retryable=%v, got %+v", tt.code, tt.category, tt.retryable, perr)
		}
	}

	if MapErrorCode(101).Message == MapErrorCode(100).Message {
		t.Error("expected distinct messages for disallowed and not found")
	}
}

func TestEmbedOptions(t *testing.T) {
	t.Run("Playlist Vars", func(t *testing.T) {
		vars := EmbedOptions{PlaylistID: "PL1", VideoID: "dQw4w9WgXcQ", Loop: true, Autoplay: true, Origin: "http://x"}.PlayerVars()
		if vars["list"] != "PL1" || vars["listType"] != "playlist" {
			t.Errorf("expected playlist vars, got %v", vars)
		}
		if vars["rel"] != 0 || vars["loop"] != 1 || vars["autoplay"] != 1 {
			t.Errorf("expected rel=0 loop=1 autoplay=1, got %v", vars)
		}
	})

	t.Run("Looping Single Video Is Its Own Playlist", func(t *testing.T) {
		vars := EmbedOptions{VideoID: "dQw4w9WgXcQ", Loop: true}.PlayerVars()
		if vars["playlist"] != "dQw4w9WgXcQ" {
			t.Errorf("expected playlist=video id, got %v", vars)
		}
	})

	t.Run("Host Allowlist", func(t *testing.T) {
		if err := (EmbedOptions{VideoID: "x", Host: "https://evil.example"}).validate(); err == nil {
			t.Error("expected disallowed host error")
		}
		if err := (EmbedOptions{VideoID: "x", Host: HostStandard}).validate(); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})
}

func TestController(t *testing.T) {
	ctx := context.Background()

	t.Run("Video And List Loads Looping Collection", func(t *testing.T) {
		c, s, _ := newTestController()

		if err := c.Load(ctx, "https://www.youtube.com/watch?v=dQw4w9WgXcQ&list=PL123abc"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		p := s.last()
		if p.opts.PlaylistID != "PL123abc" || p.opts.VideoID != "dQw4w9WgXcQ" || !p.opts.Loop {
			t.Errorf("expected looping playlist starting at video, got %+v", p.opts)
		}
		snap := c.Snapshot()
		if snap.Source == nil || !snap.Source.IsCollection() || !snap.Source.Loop {
			t.Errorf("expected looping collection source, got %+v", snap.Source)
		}
		if snap.Status != models.StatusConnecting {
			t.Errorf("expected connecting before ready, got %s", snap.Status)
		}
		if p.container != "youtube-player" || p.opts.Host != HostNoCookie {
			t.Errorf("expected configured container and host, got %s %s", p.container, p.opts.Host)
		}
	})

	t.Run("Newer Source Wins While Older Waits For SDK", func(t *testing.T) {
		c, s, l := newTestController()
		l.gate()

		older := make(chan error, 1)
		go func() { older <- c.Load(ctx, "https://youtu.be/AAAAAAAAAAA") }()
		<-l.waiting

		if err := c.Load(ctx, "https://youtu.be/BBBBBBBBBBB"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		close(l.hold)
		if err := <-older; !errors.Is(err, shared.ErrSuperseded) {
			t.Errorf("expected ErrSuperseded, got %v", err)
		}

		if len(s.players) != 1 {
			t.Fatalf("expected 1 player, got %d", len(s.players))
		}
		if p := s.players[0]; p.opts.VideoID != "BBBBBBBBBBB" || p.destroyed != 0 {
			t.Errorf("expected live player for BBBBBBBBBBB, got %s destroyed=%d", p.opts.VideoID, p.destroyed)
		}
		if snap := c.Snapshot(); snap.Source == nil || snap.Source.ID != "BBBBBBBBBBB" {
			t.Errorf("expected snapshot source BBBBBBBBBBB, got %+v", snap.Source)
		}
	})

	t.Run("Destroy Cancels Pending Load", func(t *testing.T) {
		c, s, l := newTestController()
		l.gate()

		pending := make(chan error, 1)
		go func() { pending <- c.Load(ctx, "https://youtu.be/AAAAAAAAAAA") }()
		<-l.waiting

		c.Destroy()
		close(l.hold)
		if err := <-pending; !errors.Is(err, shared.ErrSuperseded) {
			t.Errorf("expected ErrSuperseded, got %v", err)
		}
		if len(s.players) != 0 {
			t.Errorf("expected no player, got %d", len(s.players))
		}
		if snap := c.Snapshot(); snap.Status != models.StatusDisconnected || snap.Source != nil {
			t.Errorf("expected disconnected without source, got %s %+v", snap.Status, snap.Source)
		}
	})

	t.Run("Destroy Twice On Uninitialized Controller", func(t *testing.T) {
		c, _, _ := newTestController()
		c.Destroy()
		c.Destroy()
		if s := c.Snapshot(); s.Status != models.StatusDisconnected {
			t.Errorf("expected disconnected, got %s", s.Status)
		}
	})

	t.Run("Every Load Destroys Previous Player First", func(t *testing.T) {
		c, s, _ := newTestController()

		for range 3 {
			if err := c.PlayCurated(ctx, "warmup"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
		}
		if len(s.players) != 3 {
			t.Fatalf("expected 3 players, got %d", len(s.players))
		}
		for i, live := range s.liveAtCreate {
			if live != 0 {
				t.Errorf("create %d: expected no live players, got %d", i, live)
			}
		}
		if s.players[0].destroyed != 1 || s.players[1].destroyed != 1 || s.players[2].destroyed != 0 {
			t.Errorf("expected only the last player alive")
		}
	})

	t.Run("Invalid Input Touches Nothing", func(t *testing.T) {
		c, s, _ := newTestController()
		_ = c.Load(ctx, "https://youtu.be/dQw4w9WgXcQ")
		first := s.last()

		if err := c.Load(ctx, "https://example.com/nothing"); !errors.Is(err, shared.ErrInvalidSource) {
			t.Fatalf("expected ErrInvalidSource, got %v", err)
		}
		if len(s.players) != 1 || first.destroyed != 0 {
			t.Error("expected existing player untouched")
		}
	})

	t.Run("State Codes Map To Status", func(t *testing.T) {
		c, s, _ := newTestController()
		_ = c.Load(ctx, "https://youtu.be/dQw4w9WgXcQ")
		p := s.last()
		p.data = VideoData{VideoID: "dQw4w9WgXcQ", Title: "Song", Author: "Channel"}

		p.events.OnReady()
		if got := c.Snapshot().Status; got != models.StatusReady {
			t.Fatalf("expected ready, got %s", got)
		}

		tests := []struct {
			code StateCode
			want models.PlayerStatus
		}{
			{StateBuffering, models.StatusBuffering},
			{StatePlaying, models.StatusPlaying},
			{StatePaused, models.StatusPaused},
			{StateEnded, models.StatusEnded},
			{StateCued, models.StatusReady},
		}
		for _, tt := range tests {
			p.events.OnStateChange(tt.code)
			if got := c.Snapshot().Status; got != tt.want {
				t.Errorf("code %d: expected %s, got %s", tt.code, tt.want, got)
			}
		}

		track := c.Snapshot().Track
		if track == nil || track.Name != "Song" || track.Artist != "Channel" || track.ArtworkURL == "" {
			t.Errorf("expected track from video data, got %+v", track)
		}
	})

	t.Run("Error Codes Surface Categories", func(t *testing.T) {
		c, s, _ := newTestController()
		_ = c.Load(ctx, "https://youtu.be/dQw4w9WgXcQ")
		p := s.last()

		p.events.OnError(150)
		snap := c.Snapshot()
		if snap.Status != models.StatusError || snap.Error == nil || snap.Error.Action != "choose_other" {
			t.Errorf("expected content error asking for other content, got %s %+v", snap.Status, snap.Error)
		}
	})

	t.Run("Stale Callbacks Are Ignored", func(t *testing.T) {
		c, s, _ := newTestController()
		_ = c.Load(ctx, "https://youtu.be/dQw4w9WgXcQ")
		old := s.last()
		_ = c.Load(ctx, "https://youtu.be/jfKfPfyJRdk")

		old.events.OnReady()
		old.events.OnError(100)
		if got := c.Snapshot(); got.Status != models.StatusConnecting || got.Error != nil {
			t.Errorf("expected connecting without error, got %s %+v", got.Status, got.Error)
		}

		c.Destroy()
		s.last().events.OnStateChange(StatePlaying)
		if got := c.Snapshot().Status; got != models.StatusDisconnected {
			t.Errorf("expected disconnected, got %s", got)
		}
	})

	t.Run("Loader Failure", func(t *testing.T) {
		c, s, l := newTestController()
		l.err = shared.ErrSDKLoad

		if err := c.Load(ctx, "https://youtu.be/dQw4w9WgXcQ"); !errors.Is(err, shared.ErrSDKLoad) {
			t.Fatalf("expected ErrSDKLoad, got %v", err)
		}
		if len(s.players) != 0 {
			t.Error("expected no player")
		}
		snap := c.Snapshot()
		if snap.Error == nil || snap.Error.Category != models.CategoryInitialization || !snap.Error.Retryable {
			t.Errorf("expected retryable initialization error, got %+v", snap.Error)
		}
	})

	t.Run("Transport Before Ready", func(t *testing.T) {
		c, _, _ := newTestController()
		if err := c.Pause(ctx); !errors.Is(err, shared.ErrPlayerNotReady) {
			t.Errorf("expected ErrPlayerNotReady, got %v", err)
		}

		_ = c.Load(ctx, "https://youtu.be/dQw4w9WgXcQ")
		if err := c.Next(ctx); !errors.Is(err, shared.ErrPlayerNotReady) {
			t.Errorf("expected ErrPlayerNotReady while connecting, got %v", err)
		}
	})

	t.Run("Transport Delegates To Player", func(t *testing.T) {
		c, s, _ := newTestController()
		_ = c.Load(ctx, "https://youtu.be/dQw4w9WgXcQ")
		p := s.last()
		p.events.OnReady()
		p.calls = nil

		_ = c.Pause(ctx)
		_ = c.Play(ctx, "")
		_ = c.Next(ctx)
		_ = c.Previous(ctx)

		want := []string{"pause", "play", "next", "previous"}
		if len(p.calls) != len(want) {
			t.Fatalf("expected %v, got %v", want, p.calls)
		}
		for i := range want {
			if p.calls[i] != want[i] {
				t.Errorf("expected %s, got %s", want[i], p.calls[i])
			}
		}
	})

	t.Run("Volume And Mute", func(t *testing.T) {
		c, s, _ := newTestController()
		_ = c.Load(ctx, "https://youtu.be/dQw4w9WgXcQ")
		p := s.last()
		p.events.OnReady()
		if p.volume != 50 {
			t.Errorf("expected initial volume applied on ready, got %d", p.volume)
		}

		_ = c.SetVolume(ctx, 70)
		_ = c.SetVolume(ctx, 0)
		if snap := c.Snapshot(); !snap.Muted || snap.Volume != 0 || !p.muted {
			t.Errorf("expected muted, got %+v player muted=%v", snap, p.muted)
		}

		_ = c.ToggleMute(ctx)
		if snap := c.Snapshot(); snap.Muted || snap.Volume != 70 || p.muted || p.volume != 70 {
			t.Errorf("expected restored to 70, got %+v player=%d", snap, p.volume)
		}

		_ = c.ToggleMute(ctx)
		_ = c.SetVolume(ctx, 30)
		if snap := c.Snapshot(); snap.Muted || snap.Volume != 30 || p.muted {
			t.Errorf("expected positive volume to unmute, got %+v", snap)
		}
	})

	t.Run("Volume Set Before Player Carries Over", func(t *testing.T) {
		c, s, _ := newTestController()
		_ = c.SetVolume(ctx, 20)
		_ = c.Load(ctx, "https://youtu.be/dQw4w9WgXcQ")
		p := s.last()
		p.events.OnReady()
		if p.volume != 20 {
			t.Errorf("expected 20, got %d", p.volume)
		}
	})
}
