package bridge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/desertthunder/fitplay/internal/player/youtube"
	"github.com/google/uuid"
)

type youtubeCreate struct {
	Container  string         `json:"container"`
	Host       string         `json:"host"`
	VideoID    string         `json:"video_id,omitempty"`
	PlayerVars map[string]any `json:"player_vars"`
}

type youtubeEventData struct {
	Event string `json:"event"` // ready | state_change | error
	Code  int    `json:"code"`
}

// YouTubeSDK is the IFrame API as seen through the hub.
type YouTubeSDK struct{ hub *Hub }

var _ youtube.SDK = YouTubeSDK{}

// YouTube returns the hub's IFrame API adapter.
func (h *Hub) YouTube() YouTubeSDK { return YouTubeSDK{hub: h} }

// NewPlayer creates a YT.Player inside container. Events arrive after this returns.
func (s YouTubeSDK) NewPlayer(container string, opts youtube.EmbedOptions, events youtube.Events) (youtube.Player, error) {
	p := &youtubePlayer{hub: s.hub, id: uuid.NewString(), events: events}

	s.hub.mu.Lock()
	s.hub.youtube[p.id] = p
	s.hub.mu.Unlock()

	_, err := p.call(context.Background(), "create", youtubeCreate{
		Container:  container,
		Host:       opts.Host,
		VideoID:    opts.VideoID,
		PlayerVars: opts.PlayerVars(),
	})
	if err != nil {
		s.hub.dropYouTube(p.id)
		return nil, err
	}
	return p, nil
}

func (h *Hub) dropYouTube(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.youtube, id)
}

func (h *Hub) youtubeEvent(f Frame) {
	h.mu.Lock()
	p := h.youtube[f.Player]
	h.mu.Unlock()
	if p == nil {
		return
	}

	var data youtubeEventData
	if err := json.Unmarshal(f.Data, &data); err != nil {
		h.logger.Warn("bad youtube_event frame", "error", err)
		return
	}

	switch data.Event {
	case "ready":
		if p.events.OnReady != nil {
			p.events.OnReady()
		}
	case "state_change":
		if p.events.OnStateChange != nil {
			p.events.OnStateChange(youtube.StateCode(data.Code))
		}
	case "error":
		if p.events.OnError != nil {
			p.events.OnError(data.Code)
		}
	}
}

type youtubePlayer struct {
	hub    *Hub
	id     string
	events youtube.Events
}

func (p *youtubePlayer) call(ctx context.Context, method string, data any) (json.RawMessage, error) {
	return p.hub.call(ctx, Frame{Type: CmdYouTube, Player: p.id, Method: method, Data: encode(data)})
}

func (p *youtubePlayer) do(ctx context.Context, method string) error {
	_, err := p.call(ctx, method, nil)
	return err
}

func (p *youtubePlayer) PlayVideo(ctx context.Context) error     { return p.do(ctx, "playVideo") }
func (p *youtubePlayer) PauseVideo(ctx context.Context) error    { return p.do(ctx, "pauseVideo") }
func (p *youtubePlayer) NextVideo(ctx context.Context) error     { return p.do(ctx, "nextVideo") }
func (p *youtubePlayer) PreviousVideo(ctx context.Context) error { return p.do(ctx, "previousVideo") }
func (p *youtubePlayer) Mute(ctx context.Context) error          { return p.do(ctx, "mute") }
func (p *youtubePlayer) UnMute(ctx context.Context) error        { return p.do(ctx, "unMute") }

func (p *youtubePlayer) SetVolume(ctx context.Context, volume int) error {
	_, err := p.call(ctx, "setVolume", volumeData{Volume: volume})
	return err
}

func (p *youtubePlayer) VideoData(ctx context.Context) (youtube.VideoData, error) {
	raw, err := p.call(ctx, "getVideoData", nil)
	if err != nil {
		return youtube.VideoData{}, err
	}
	var data youtube.VideoData
	if err := json.Unmarshal(raw, &data); err != nil {
		return youtube.VideoData{}, fmt.Errorf("decode video data: %w", err)
	}
	return data, nil
}

// Destroy removes the iframe. It is fire-and-forget; the page may already be gone.
func (p *youtubePlayer) Destroy() {
	p.hub.dropYouTube(p.id)
	_ = p.hub.send(Frame{Type: CmdYouTube, Player: p.id, Method: "destroy"})
}
