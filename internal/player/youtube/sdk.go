// Package youtube is the embedded-iframe playback controller.
//
// The IFrame API player is created against a container element on the host page. It cannot be
// re-targeted reliably, so [Controller] destroys and recreates it on every source change.
package youtube

import (
	"context"
	"fmt"
)

// Embed hosts a player may be created against.
const (
	HostNoCookie = "https://www.youtube-nocookie.com"
	HostStandard = "https://www.youtube.com"
)

// StateCode is the numeric player state reported by onStateChange.
type StateCode int

const (
	StateUnstarted StateCode = -1
	StateEnded     StateCode = 0
	StatePlaying   StateCode = 1
	StatePaused    StateCode = 2
	StateBuffering StateCode = 3
	StateCued      StateCode = 5
)

// EmbedOptions are the construction parameters for one embedded player.
type EmbedOptions struct {
	VideoID    string `json:"video_id,omitempty"`
	PlaylistID string `json:"playlist_id,omitempty"`
	Autoplay   bool   `json:"autoplay"`
	Loop       bool   `json:"loop"`
	Host       string `json:"host"`
	Origin     string `json:"origin"`
}

// PlayerVars renders o as IFrame API playerVars. Related videos are always limited to the
// channel (rel=0).
func (o EmbedOptions) PlayerVars() map[string]any {
	vars := map[string]any{
		"autoplay":    boolInt(o.Autoplay),
		"loop":        boolInt(o.Loop),
		"rel":         0,
		"playsinline": 1,
		"origin":      o.Origin,
	}
	if o.PlaylistID != "" {
		vars["listType"] = "playlist"
		vars["list"] = o.PlaylistID
	} else if o.Loop && o.VideoID != "" {
		// A single video only loops when it is also its own playlist.
		vars["playlist"] = o.VideoID
	}
	return vars
}

func (o EmbedOptions) validate() error {
	switch o.Host {
	case HostNoCookie, HostStandard:
	default:
		return fmt.Errorf("embed host %q is not allowed", o.Host)
	}
	if o.VideoID == "" && o.PlaylistID == "" {
		return fmt.Errorf("embed needs a video or playlist id")
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Events are the player callbacks. The controller wraps each with a generation check.
type Events struct {
	OnReady       func()
	OnStateChange func(StateCode)
	OnError       func(code int)
}

// VideoData is what getVideoData reports for the current video.
type VideoData struct {
	VideoID  string `json:"video_id"`
	Title    string `json:"title"`
	Author   string `json:"author"`
	Duration int64  `json:"duration_ms"`
	Position int64  `json:"position_ms"`
}

// SDK constructs embedded players.
type SDK interface {
	NewPlayer(container string, opts EmbedOptions, events Events) (Player, error)
}

// Player is the subset of the IFrame API player used here. Volume is 0-100.
type Player interface {
	PlayVideo(ctx context.Context) error
	PauseVideo(ctx context.Context) error
	NextVideo(ctx context.Context) error
	PreviousVideo(ctx context.Context) error
	SetVolume(ctx context.Context, volume int) error
	Mute(ctx context.Context) error
	UnMute(ctx context.Context) error
	VideoData(ctx context.Context) (VideoData, error)
	Destroy()
}
