package youtube

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

// Loader makes an SDK available before players are created.
type Loader interface {
	EnsureLoaded(ctx context.Context, key sdk.Key) error
}

// Opts contains the dependencies and embed settings of a [Controller].
type Opts struct {
	SDK       SDK
	Loader    Loader
	Container string
	Host      string
	Origin    string
	Autoplay  bool
	Curated   Curated
	Volume    int
	Logger    *log.Logger
}

// Controller owns at most one embedded player.
//
// Player callbacks are never invoked synchronously from SDK.NewPlayer; the IFrame API always
// reports onReady after construction returns.
type Controller struct {
	sdk       SDK
	loader    Loader
	container string
	host      string
	origin    string
	autoplay  bool
	curated   Curated
	logger    *log.Logger

	slot   *player.Slot[Player]
	events *player.Broadcaster

	mu     sync.Mutex
	status models.PlayerStatus
	track  *models.TrackInfo
	source *models.PlaybackSource
	volume player.Volume
	err    *models.PlayerError
}

var _ player.Controller = (*Controller)(nil)

func NewController(opts Opts) *Controller {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Host == "" {
		opts.Host = HostNoCookie
	}

	return &Controller{
		sdk:       opts.SDK,
		loader:    opts.Loader,
		container: opts.Container,
		host:      opts.Host,
		origin:    opts.Origin,
		autoplay:  opts.Autoplay,
		curated:   opts.Curated,
		logger:    shared.WithLogger(opts.Logger, "component", "youtube"),
		slot:      player.NewSlot(func(p Player) { p.Destroy() }),
		events:    player.NewBroadcaster(),
		volume:    player.NewVolume(opts.Volume),
	}
}

func (c *Controller) Provider() models.Provider { return models.ProviderYouTube }

func (c *Controller) Subscribe() (<-chan models.Snapshot, func()) { return c.events.Subscribe() }

func (c *Controller) Snapshot() models.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() models.Snapshot {
	s := models.Snapshot{
		Provider: models.ProviderYouTube,
		Status:   c.status,
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

func (c *Controller) update(fn func()) {
	c.mu.Lock()
	fn()
	s := c.snapshotLocked()
	c.mu.Unlock()
	c.events.Publish(s)
}

func (c *Controller) fail(perr *models.PlayerError) {
	c.logger.Error("player error", "category", perr.Category, "message", perr.Message)
	c.update(func() {
		c.status = models.StatusError
		c.err = perr
	})
}

// Resolve turns raw into a source. Curated names win over bare playlist ids.
func (c *Controller) Resolve(raw string) (models.PlaybackSource, error) {
	if _, ok := c.curated[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return c.curated.Resolve(raw)
	}
	return ParseSource(raw)
}

// Load validates raw and plays it. A validation error leaves the current player untouched.
func (c *Controller) Load(ctx context.Context, raw string) error {
	src, err := c.Resolve(raw)
	if err != nil {
		return err
	}
	return c.PlaySource(ctx, src)
}

// Play loads raw, or resumes the current video when raw is empty.
func (c *Controller) Play(ctx context.Context, raw string) error {
	if strings.TrimSpace(raw) == "" {
		return c.Resume(ctx)
	}
	return c.Load(ctx, raw)
}

// PlaySource destroys the current player, then creates one for src. This happens even when src
// equals the current source.
//
// A later PlaySource, Destroy or Close supersedes this one while it waits for the SDK; the
// superseded call returns [shared.ErrSuperseded] without touching the player or the snapshot.
func (c *Controller) PlaySource(ctx context.Context, src models.PlaybackSource) error {
	opts := EmbedOptions{
		Autoplay: c.autoplay,
		Loop:     src.Loop,
		Host:     c.host,
		Origin:   c.origin,
	}
	if src.IsCollection() {
		opts.PlaylistID, opts.VideoID = src.ID, src.StartID
	} else {
		opts.VideoID = src.ID
	}
	if err := opts.validate(); err != nil {
		return fmt.Errorf("%w: %w", shared.ErrInvalidSource, err)
	}

	ticket := c.slot.Reserve()
	if err := c.loader.EnsureLoaded(ctx, sdk.YouTube); err != nil {
		if c.slot.Superseded(ticket) {
			return fmt.Errorf("load %s: %w", src.ID, shared.ErrSuperseded)
		}
		c.fail(models.NewPlayerError(models.CategoryInitialization, "YouTube player failed to load: %v", err))
		return err
	}

	_, _, err := c.slot.Replace(ticket, func(gen uint64) (Player, error) {
		c.update(func() {
			s := src
			c.source = &s
			c.status = models.StatusConnecting
			c.track, c.err = nil, nil
		})
		return c.sdk.NewPlayer(c.container, opts, Events{
			OnReady: func() {
				if c.slot.IsCurrent(gen) {
					c.onReady(gen)
				}
			},
			OnStateChange: func(code StateCode) {
				if c.slot.IsCurrent(gen) {
					c.onStateChange(gen, code)
				}
			},
			OnError: func(code int) {
				if c.slot.IsCurrent(gen) {
					c.fail(MapErrorCode(code))
				}
			},
		})
	})
	switch {
	case errors.Is(err, shared.ErrSuperseded):
		c.logger.Debug("dropping superseded source", "id", src.ID)
		return err
	case err != nil:
		c.fail(models.NewPlayerError(models.CategoryInitialization, "YouTube player could not be created: %v", err))
		return err
	}

	c.logger.Info("embedded player created", "kind", src.Kind, "id", src.ID)
	return nil
}

// PlayCurated plays the source configured under name.
func (c *Controller) PlayCurated(ctx context.Context, name string) error {
	src, err := c.curated.Resolve(name)
	if err != nil {
		return err
	}
	return c.PlaySource(ctx, src)
}

func (c *Controller) onReady(gen uint64) {
	c.update(func() { c.status = models.StatusReady })

	p, cur, ok := c.slot.Get()
	if !ok || cur != gen {
		return
	}
	c.mu.Lock()
	vol := c.volume
	c.mu.Unlock()

	ctx := context.Background()
	if err := c.pushVolume(ctx, p, vol); err != nil {
		c.logger.Warn("failed to apply volume", "error", err)
	}
}

func (c *Controller) onStateChange(gen uint64, code StateCode) {
	var status models.PlayerStatus
	switch code {
	case StatePlaying:
		status = models.StatusPlaying
	case StatePaused:
		status = models.StatusPaused
	case StateBuffering:
		status = models.StatusBuffering
	case StateEnded:
		status = models.StatusEnded
	case StateCued, StateUnstarted:
		status = models.StatusReady
	default:
		return
	}

	track := c.videoData(gen)
	c.update(func() {
		c.status = status
		c.err = nil
		if track != nil {
			c.track = track
		}
	})
}

// videoData reads the current video's metadata. It returns nil when unavailable.
func (c *Controller) videoData(gen uint64) *models.TrackInfo {
	p, cur, ok := c.slot.Get()
	if !ok || cur != gen {
		return nil
	}
	data, err := p.VideoData(context.Background())
	if err != nil {
		c.logger.Debug("video data unavailable", "error", err)
		return nil
	}
	return &models.TrackInfo{
		Name:       data.Title,
		Artist:     data.Author,
		ArtworkURL: thumbnailURL(data.VideoID),
		DurationMS: data.Duration,
		PositionMS: data.Position,
	}
}

func thumbnailURL(videoID string) string {
	if videoID == "" {
		return ""
	}
	return "https://i.ytimg.com/vi/" + videoID + "/hqdefault.jpg"
}

// ready returns the current player once it has reported onReady.
func (c *Controller) ready() (Player, error) {
	p, _, ok := c.slot.Get()
	c.mu.Lock()
	status := c.status
	c.mu.Unlock()

	if !ok || status == models.StatusConnecting || status == models.StatusDisconnected {
		return nil, shared.ErrPlayerNotReady
	}
	return p, nil
}

func (c *Controller) Pause(ctx context.Context) error {
	return c.transport(ctx, "pause", Player.PauseVideo)
}

func (c *Controller) Resume(ctx context.Context) error {
	return c.transport(ctx, "resume", Player.PlayVideo)
}

func (c *Controller) Next(ctx context.Context) error {
	return c.transport(ctx, "next", Player.NextVideo)
}

func (c *Controller) Previous(ctx context.Context) error {
	return c.transport(ctx, "previous", Player.PreviousVideo)
}

func (c *Controller) transport(ctx context.Context, name string, fn func(Player, context.Context) error) error {
	p, err := c.ready()
	if err != nil {
		return err
	}
	if err := fn(p, ctx); err != nil {
		err = fmt.Errorf("%s: %w", name, err)
		c.fail(models.NewPlayerError(models.CategoryTransient, "%v", err))
		return err
	}
	return nil
}

// SetVolume sets a 0-100 volume. Zero mutes; a positive volume while muted unmutes.
func (c *Controller) SetVolume(ctx context.Context, volume int) error {
	var vol player.Volume
	c.update(func() {
		c.volume.Set(volume)
		vol = c.volume
	})
	return c.applyVolume(ctx, vol)
}

// ToggleMute mutes, or restores the last non-zero volume.
func (c *Controller) ToggleMute(ctx context.Context) error {
	var vol player.Volume
	c.update(func() {
		c.volume.Toggle()
		vol = c.volume
	})
	return c.applyVolume(ctx, vol)
}

// applyVolume pushes vol to a ready player. Without one the level is kept for the next player.
func (c *Controller) applyVolume(ctx context.Context, vol player.Volume) error {
	p, err := c.ready()
	if err != nil {
		return nil
	}
	return c.pushVolume(ctx, p, vol)
}

func (c *Controller) pushVolume(ctx context.Context, p Player, vol player.Volume) error {
	if vol.Muted() {
		return p.Mute(ctx)
	}
	if err := p.SetVolume(ctx, vol.Level()); err != nil {
		return err
	}
	return p.UnMute(ctx)
}

// Destroy releases the player. It is idempotent and safe before any player exists.
func (c *Controller) Destroy() {
	if c.slot.Release() {
		c.logger.Info("embedded player destroyed")
	}
	c.update(func() {
		c.status = models.StatusDisconnected
		c.track, c.source, c.err = nil, nil, nil
	})
}

// Close is [Controller.Destroy].
func (c *Controller) Close() {
	c.Destroy()
}
