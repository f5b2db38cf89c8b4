// Package spotify is the delegated-streaming playback controller.
//
// The Web Playback SDK registers the host page as a Connect device. [Controller] owns one SDK
// player, drives [models.PlayerStatus] from the player's events, and addresses the device through
// the Web API for "play this on my device" requests.
package spotify

import "context"

// Event names emitted by the Web Playback SDK player.
type Event string

const (
	EventReady               Event = "ready"
	EventNotReady            Event = "not_ready"
	EventStateChanged        Event = "player_state_changed"
	EventInitializationError Event = "initialization_error"
	EventAuthenticationError Event = "authentication_error"
	EventAccountError        Event = "account_error"
	EventPlaybackError       Event = "playback_error"
)

// Events lists every event the controller listens for.
var Events = []Event{
	EventReady,
	EventNotReady,
	EventStateChanged,
	EventInitializationError,
	EventAuthenticationError,
	EventAccountError,
	EventPlaybackError,
}

// Payload carries the fields of an SDK event the controller reads.
type Payload struct {
	DeviceID string `json:"device_id,omitempty"`
	State    *State `json:"state,omitempty"`
	Message  string `json:"message,omitempty"`
}

// State is the player state reported with player_state_changed. A nil State means playback moved
// to another device.
type State struct {
	Paused   bool   `json:"paused"`
	Loading  bool   `json:"loading"`
	Position int64  `json:"position"`
	Duration int64  `json:"duration"`
	Track    *Track `json:"track,omitempty"`
}

// Track is the current track from the state's track window.
type Track struct {
	URI      string   `json:"uri"`
	Name     string   `json:"name"`
	Artists  []string `json:"artists"`
	ImageURL string   `json:"image_url,omitempty"`
}

// PlayerOptions configures a new SDK player. GetOAuthToken is invoked lazily by the SDK every
// time it needs a token, so a refreshed token is picked up without recreating the player.
type PlayerOptions struct {
	Name          string
	Volume        float64
	GetOAuthToken func(ctx context.Context) (string, error)
}

// SDK constructs players.
type SDK interface {
	NewPlayer(opts PlayerOptions) (Player, error)
}

// Player is the subset of the Web Playback SDK player used here. Volume is 0..1.
type Player interface {
	Connect(ctx context.Context) error
	Disconnect()
	AddListener(event Event, fn func(Payload))
	RemoveListener(event Event)
	Resume(ctx context.Context) error
	Pause(ctx context.Context) error
	TogglePlay(ctx context.Context) error
	NextTrack(ctx context.Context) error
	PreviousTrack(ctx context.Context) error
	SetVolume(ctx context.Context, volume float64) error
}
