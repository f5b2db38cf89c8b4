package spotify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/fitplay/internal/models"
	"github.com/desertthunder/fitplay/internal/player"
	"github.com/desertthunder/fitplay/internal/sdk"
	"github.com/desertthunder/fitplay/internal/shared"
)

// TokenProvider is the token lifecycle the controller depends on.
type TokenProvider interface {
	GetValidToken(ctx context.Context) (string, error)
	Invalidate(ctx context.Context) error
	OnAuthLost(fn func(context.Context))
}

// Loader makes an SDK available before players are created.
type Loader interface {
	EnsureLoaded(ctx context.Context, key sdk.Key) error
}

// Opts contains the dependencies of a [Controller].
type Opts struct {
	SDK      SDK
	Loader   Loader
	Tokens   TokenProvider
	Remote   Remote
	Profiles models.ProfileReader // optional eligibility pre-check
	Name     string
	Volume   int
	Logger   *log.Logger
}

// Controller owns one Web Playback SDK player.
type Controller struct {
	sdk      SDK
	loader   Loader
	tokens   TokenProvider
	remote   Remote
	profiles models.ProfileReader
	name     string
	logger   *log.Logger

	slot   *player.Slot[Player]
	events *player.Broadcaster

	mu     sync.Mutex
	status models.PlayerStatus
	track  *models.TrackInfo
	device models.DeviceHandle
	source *models.PlaybackSource
	volume player.Volume
	err    *models.PlayerError
}

var _ player.Controller = (*Controller)(nil)

// NewController creates a disconnected [Controller]. It registers with the token provider so a
// failed refresh tears the player down.
func NewController(opts Opts) *Controller {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Name == "" {
		opts.Name = "fitplay"
	}

	c := &Controller{
		sdk:      opts.SDK,
		loader:   opts.Loader,
		tokens:   opts.Tokens,
		remote:   opts.Remote,
		profiles: opts.Profiles,
		name:     opts.Name,
		logger:   shared.WithLogger(opts.Logger, "component", "spotify"),
		events:   player.NewBroadcaster(),
		volume:   player.NewVolume(opts.Volume),
	}
	c.slot = player.NewSlot(c.release)
	opts.Tokens.OnAuthLost(func(context.Context) {
		c.logger.Warn("authorization lost, disconnecting player")
		c.teardown(nil)
	})
	return c
}

func (c *Controller) Provider() models.Provider { return models.ProviderSpotify }

func (c *Controller) Subscribe() (<-chan models.Snapshot, func()) { return c.events.Subscribe() }

func (c *Controller) Snapshot() models.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() models.Snapshot {
	s := models.Snapshot{
		Provider: models.ProviderSpotify,
		Status:   c.status,
		Device:   c.device,
		Volume:   c.volume.Level(),
		Muted:    c.volume.Muted(),
		Error:    c.err,
	}
	if c.track != nil {
		t := *c.track
		s.Track = &t
	}
	if c.source != nil {
		src := *c.source
		s.Source = &src
	}
	return s
}

// update mutates state under the lock and publishes the resulting snapshot.
func (c *Controller) update(fn func()) {
	c.mu.Lock()
	fn()
	s := c.snapshotLocked()
	c.mu.Unlock()
	c.events.Publish(s)
}

func (c *Controller) fail(category models.ErrorCategory, err error) {
	perr := models.NewPlayerError(category, "%s", describe(category, err))
	c.logger.Error("player error", "category", category, "error", err)
	c.update(func() {
		c.status = models.StatusError
		c.err = perr
	})
}

// CheckEligibility reads the user's profile and fails with an eligibility error for accounts
// without a premium plan. A profile that cannot be read is not treated as ineligible.
func (c *Controller) CheckEligibility(ctx context.Context) error {
	if err := c.eligible(ctx); err != nil {
		c.fail(models.CategoryEligibility, err)
		return err
	}
	return nil
}

func (c *Controller) eligible(ctx context.Context) error {
	if c.profiles == nil {
		return nil
	}
	profile, err := c.profiles.Profile(ctx)
	if err != nil {
		c.logger.Warn("could not read profile for eligibility check", "error", err)
		return nil
	}
	if !strings.EqualFold(profile.Product, "premium") {
		return fmt.Errorf("%w: %s plan", shared.ErrNotEligible, profile.Product)
	}
	return nil
}

// Initialize creates and connects a player, destroying any existing one first.
//
// Without a usable token the controller stays disconnected. A later Initialize or Disconnect
// supersedes this one while it waits; the superseded call returns [shared.ErrSuperseded] and
// changes nothing.
func (c *Controller) Initialize(ctx context.Context) error {
	ticket := c.slot.Reserve()
	superseded := func() error {
		if c.slot.Superseded(ticket) {
			return fmt.Errorf("initialize: %w", shared.ErrSuperseded)
		}
		return nil
	}

	// A failed refresh may already have torn down through OnAuthLost, which supersedes the
	// ticket; the token error still wins.
	if _, err := c.tokens.GetValidToken(ctx); err != nil {
		if !c.slot.Superseded(ticket) {
			c.teardown(nil)
		}
		return err
	}
	if stale := superseded(); stale != nil {
		return stale
	}

	err := c.eligible(ctx)
	if stale := superseded(); stale != nil {
		return stale
	}
	if err != nil {
		c.fail(models.CategoryEligibility, err)
		return err
	}

	err = c.loader.EnsureLoaded(ctx, sdk.Spotify)
	if stale := superseded(); stale != nil {
		return stale
	}
	if err != nil {
		c.fail(models.CategoryInitialization, err)
		return err
	}

	p, gen, err := c.slot.Replace(ticket, func(gen uint64) (Player, error) {
		var volume int
		c.update(func() {
			c.status = models.StatusConnecting
			c.device, c.track, c.err = "", nil, nil
			volume = c.volume.Level()
		})
		p, err := c.sdk.NewPlayer(PlayerOptions{
			Name:          c.name,
			Volume:        float64(volume) / 100,
			GetOAuthToken: c.tokens.GetValidToken,
		})
		if err != nil {
			return nil, err
		}
		for _, ev := range Events {
			p.AddListener(ev, func(pl Payload) {
				if c.slot.IsCurrent(gen) {
					c.handle(ev, pl)
				}
			})
		}
		return p, nil
	})
	switch {
	case errors.Is(err, shared.ErrSuperseded):
		return err
	case err != nil:
		err = fmt.Errorf("%w: create player: %w", shared.ErrSDKLoad, err)
		c.fail(models.CategoryInitialization, err)
		return err
	}

	if err := p.Connect(ctx); err != nil {
		if c.slot.IsCurrent(gen) {
			c.fail(models.CategoryInitialization, err)
		}
		return err
	}
	c.logger.Info("player connecting", "name", c.name)
	return nil
}

// handle applies one SDK event from the current player.
func (c *Controller) handle(ev Event, pl Payload) {
	switch ev {
	case EventReady:
		c.logger.Info("device ready", "device", pl.DeviceID)
		c.update(func() {
			c.device = models.DeviceHandle(pl.DeviceID)
			c.status = models.StatusReady
			c.err = nil
		})
	case EventNotReady:
		c.logger.Warn("device went offline", "device", pl.DeviceID)
		c.update(func() {
			c.device = ""
			c.status = models.StatusConnecting
		})
	case EventStateChanged:
		c.update(func() { c.applyState(pl.State) })
	case EventInitializationError:
		c.fail(models.CategoryInitialization, errors.New(pl.Message))
	case EventAuthenticationError:
		c.logger.Warn("sdk rejected token", "message", pl.Message)
		c.dropAuthorization(context.Background())
	case EventAccountError:
		c.fail(models.CategoryEligibility, errors.New(pl.Message))
	case EventPlaybackError:
		c.fail(models.CategoryTransient, errors.New(pl.Message))
	}
}

// Caller holds c.mu.
func (c *Controller) applyState(st *State) {
	if st == nil {
		c.track = nil
		c.status = models.StatusReady
		return
	}

	var info *models.TrackInfo
	if st.Track != nil {
		info = &models.TrackInfo{
			Name:       st.Track.Name,
			Artist:     strings.Join(st.Track.Artists, ", "),
			ArtworkURL: st.Track.ImageURL,
			DurationMS: st.Duration,
			PositionMS: st.Position,
		}
	}
	c.track = info

	switch {
	case st.Loading:
		c.status = models.StatusBuffering
	case st.Paused:
		c.status = models.StatusPaused
	default:
		c.status = models.StatusPlaying
	}
	c.err = nil
}

// ready returns the live player once it has a device handle.
func (c *Controller) ready() (Player, models.DeviceHandle, error) {
	p, _, ok := c.slot.Get()
	c.mu.Lock()
	device := c.device
	c.mu.Unlock()

	if !ok || device == "" {
		return nil, "", shared.ErrPlayerNotReady
	}
	return p, device, nil
}

// Play starts raw on this device, or resumes the local queue when raw is empty.
func (c *Controller) Play(ctx context.Context, raw string) error {
	if strings.TrimSpace(raw) == "" {
		return c.Resume(ctx)
	}
	src, err := ParseSource(raw)
	if err != nil {
		return err
	}
	return c.PlaySource(ctx, &src)
}

// PlaySource sends a remote play command targeting this device. A nil source resumes.
func (c *Controller) PlaySource(ctx context.Context, src *models.PlaybackSource) error {
	if src == nil {
		return c.Resume(ctx)
	}
	_, device, err := c.ready()
	if err != nil {
		return err
	}

	if err := c.remote.PlayOnDevice(ctx, device, *src); err != nil {
		category := classifyRemoteError(err)
		if category == models.CategoryAuthentication {
			c.logger.Warn("web api rejected token", "error", err)
			c.dropAuthorization(ctx)
			return err
		}
		c.fail(category, err)
		return err
	}
	c.update(func() {
		s := *src
		c.source = &s
	})
	return nil
}

func (c *Controller) Pause(ctx context.Context) error {
	return c.transport(ctx, "pause", Player.Pause)
}

func (c *Controller) Resume(ctx context.Context) error {
	return c.transport(ctx, "resume", Player.Resume)
}

func (c *Controller) Next(ctx context.Context) error {
	return c.transport(ctx, "next", Player.NextTrack)
}

func (c *Controller) Previous(ctx context.Context) error {
	return c.transport(ctx, "previous", Player.PreviousTrack)
}

// TogglePlay flips between playing and paused.
func (c *Controller) TogglePlay(ctx context.Context) error {
	return c.transport(ctx, "toggle", Player.TogglePlay)
}

func (c *Controller) transport(ctx context.Context, name string, fn func(Player, context.Context) error) error {
	p, _, err := c.ready()
	if err != nil {
		return err
	}
	if err := fn(p, ctx); err != nil {
		err = fmt.Errorf("%s: %w", name, err)
		c.fail(models.CategoryTransient, err)
		return err
	}
	return nil
}

// SetVolume sets a 0-100 volume. Zero mutes.
func (c *Controller) SetVolume(ctx context.Context, volume int) error {
	var level int
	c.update(func() {
		c.volume.Set(volume)
		level = c.volume.Level()
	})
	return c.applyVolume(ctx, level)
}

// ToggleMute mutes, or restores the last non-zero volume.
func (c *Controller) ToggleMute(ctx context.Context) error {
	var level int
	c.update(func() {
		c.volume.Toggle()
		level = c.volume.Level()
	})
	return c.applyVolume(ctx, level)
}

func (c *Controller) applyVolume(ctx context.Context, level int) error {
	p, _, ok := c.slot.Get()
	if !ok {
		return nil
	}
	if err := p.SetVolume(ctx, float64(level)/100); err != nil {
		c.fail(models.CategoryTransient, err)
		return err
	}
	return nil
}

// Disconnect releases the player and returns to disconnected. Safe to call at any time.
func (c *Controller) Disconnect() {
	c.teardown(nil)
}

// Close is [Controller.Disconnect].
func (c *Controller) Close() {
	c.Disconnect()
}

// dropAuthorization clears stored tokens and falls back to disconnected without an error, so the
// UI offers to connect again.
func (c *Controller) dropAuthorization(ctx context.Context) {
	if err := c.tokens.Invalidate(ctx); err != nil {
		c.logger.Error("failed to clear tokens", "error", err)
	}
	c.teardown(nil)
}

func (c *Controller) teardown(perr *models.PlayerError) {
	if c.slot.Release() {
		c.logger.Info("player disconnected")
	}
	c.update(func() {
		c.status = models.StatusDisconnected
		c.device, c.track, c.source = "", nil, nil
		c.err = perr
	})
}

// release unregisters listeners and disconnects p. Called by the slot.
func (c *Controller) release(p Player) {
	for _, ev := range Events {
		p.RemoveListener(ev)
	}
	p.Disconnect()
}

func describe(category models.ErrorCategory, err error) string {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	switch category {
	case models.CategoryInitialization:
		return "Spotify player failed to start: " + msg
	case models.CategoryEligibility:
		return "Spotify playback requires a Premium account: " + msg
	case models.CategoryContent:
		return "That Spotify item can't be played: " + msg
	default:
		return "Spotify playback failed: " + msg
	}
}
