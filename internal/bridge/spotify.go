package bridge

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/desertthunder/fitplay/internal/player/spotify"
	"github.com/google/uuid"
)

type spotifyCreate struct {
	Name   string  `json:"name"`
	Volume float64 `json:"volume"`
}

type spotifyEventData struct {
	Event   spotify.Event   `json:"event"`
	Payload spotify.Payload `json:"payload"`
}

type volumeData struct {
	Volume any `json:"volume"`
}

// SpotifySDK is the Web Playback SDK as seen through the hub.
type SpotifySDK struct{ hub *Hub }

var _ spotify.SDK = SpotifySDK{}

// Spotify returns the hub's Web Playback SDK adapter.
func (h *Hub) Spotify() SpotifySDK { return SpotifySDK{hub: h} }

// NewPlayer creates a Spotify.Player on the page. The player is not connected.
func (s SpotifySDK) NewPlayer(opts spotify.PlayerOptions) (spotify.Player, error) {
	p := &spotifyPlayer{
		hub:       s.hub,
		id:        uuid.NewString(),
		opts:      opts,
		listeners: map[spotify.Event]func(spotify.Payload){},
	}

	s.hub.mu.Lock()
	s.hub.spotify[p.id] = p
	s.hub.mu.Unlock()

	if _, err := p.call(context.Background(), "create", spotifyCreate{Name: opts.Name, Volume: opts.Volume}); err != nil {
		s.hub.dropSpotify(p.id)
		return nil, err
	}
	return p, nil
}

func (h *Hub) dropSpotify(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.spotify, id)
}

func (h *Hub) spotifyEvent(f Frame) {
	h.mu.Lock()
	p := h.spotify[f.Player]
	h.mu.Unlock()
	if p == nil {
		return
	}

	var data spotifyEventData
	if err := json.Unmarshal(f.Data, &data); err != nil {
		h.logger.Warn("bad spotify_event frame", "error", err)
		return
	}
	p.emit(data.Event, data.Payload)
}

type spotifyPlayer struct {
	hub  *Hub
	id   string
	opts spotify.PlayerOptions

	mu        sync.Mutex
	listeners map[spotify.Event]func(spotify.Payload)
}

func (p *spotifyPlayer) call(ctx context.Context, method string, data any) (json.RawMessage, error) {
	return p.hub.call(ctx, Frame{Type: CmdSpotify, Player: p.id, Method: method, Data: encode(data)})
}

func (p *spotifyPlayer) emit(event spotify.Event, payload spotify.Payload) {
	p.mu.Lock()
	fn := p.listeners[event]
	p.mu.Unlock()
	if fn != nil {
		fn(payload)
	}
}

func (p *spotifyPlayer) Connect(ctx context.Context) error {
	_, err := p.call(ctx, "connect", nil)
	return err
}

// Disconnect is fire-and-forget; the page may already be gone.
func (p *spotifyPlayer) Disconnect() {
	p.hub.dropSpotify(p.id)
	_ = p.hub.send(Frame{Type: CmdSpotify, Player: p.id, Method: "disconnect"})
}

func (p *spotifyPlayer) AddListener(event spotify.Event, fn func(spotify.Payload)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners[event] = fn
}

func (p *spotifyPlayer) RemoveListener(event spotify.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.listeners, event)
}

func (p *spotifyPlayer) Resume(ctx context.Context) error {
	_, err := p.call(ctx, "resume", nil)
	return err
}

func (p *spotifyPlayer) Pause(ctx context.Context) error {
	_, err := p.call(ctx, "pause", nil)
	return err
}

func (p *spotifyPlayer) TogglePlay(ctx context.Context) error {
	_, err := p.call(ctx, "togglePlay", nil)
	return err
}

func (p *spotifyPlayer) NextTrack(ctx context.Context) error {
	_, err := p.call(ctx, "nextTrack", nil)
	return err
}

func (p *spotifyPlayer) PreviousTrack(ctx context.Context) error {
	_, err := p.call(ctx, "previousTrack", nil)
	return err
}

func (p *spotifyPlayer) SetVolume(ctx context.Context, volume float64) error {
	_, err := p.call(ctx, "setVolume", volumeData{Volume: volume})
	return err
}
