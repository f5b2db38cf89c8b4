package models

import (
	"context"
	"fmt"
)

// Provider names a playback backend.
type Provider string

const (
	ProviderSpotify Provider = "spotify"
	ProviderYouTube Provider = "youtube"
)

// PlayerStatus is the single source of truth for how a controller is rendered.
type PlayerStatus int

const (
	StatusDisconnected PlayerStatus = iota
	StatusConnecting
	StatusReady
	StatusPlaying
	StatusPaused
	StatusBuffering
	StatusEnded
	StatusError
)

var statusNames = [...]string{
	StatusDisconnected: "disconnected",
	StatusConnecting:   "connecting",
	StatusReady:        "ready",
	StatusPlaying:      "playing",
	StatusPaused:       "paused",
	StatusBuffering:    "buffering",
	StatusEnded:        "ended",
	StatusError:        "error",
}

func (s PlayerStatus) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return fmt.Sprintf("PlayerStatus(%d)", int(s))
	}
	return statusNames[s]
}

// MarshalText implements [encoding.TextMarshaler].
func (s PlayerStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (s *PlayerStatus) UnmarshalText(b []byte) error {
	for i, name := range statusNames {
		if name == string(b) {
			*s = PlayerStatus(i)
			return nil
		}
	}
	return fmt.Errorf("unknown player status %q", b)
}

// TrackInfo is a read-only snapshot of what the SDK reports as playing.
//
// Artist holds the channel name for embedded video players.
type TrackInfo struct {
	Name       string `json:"name"`
	Artist     string `json:"artist"`
	ArtworkURL string `json:"artwork_url,omitempty"`
	DurationMS int64  `json:"duration_ms"`
	PositionMS int64  `json:"position_ms"`
}

// SourceKind tags a [PlaybackSource].
type SourceKind string

const (
	SourceSingle     SourceKind = "single"
	SourceCollection SourceKind = "collection"
)

// PlaybackSource addresses either one item or an ordered collection.
//
// StartID is only set for collections whose originating URL also named an item.
type PlaybackSource struct {
	Kind    SourceKind `json:"kind"`
	ID      string     `json:"id"`
	StartID string     `json:"start_id,omitempty"`
	Loop    bool       `json:"loop"`
}

func (s PlaybackSource) IsCollection() bool { return s.Kind == SourceCollection }

// DeviceHandle is the remote identifier of a registered local player.
type DeviceHandle string

// Snapshot is the state a UI renders for one controller.
type Snapshot struct {
	Provider Provider        `json:"provider"`
	Status   PlayerStatus    `json:"status"`
	Track    *TrackInfo      `json:"track,omitempty"`
	Device   DeviceHandle    `json:"device,omitempty"`
	Source   *PlaybackSource `json:"source,omitempty"`
	Volume   int             `json:"volume"`
	Muted    bool            `json:"muted"`
	Error    *PlayerError    `json:"error,omitempty"`
}

// Profile is the subset of the user profile read for gating playback.
type Profile struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Product     string `json:"product"`
}

// ProfileReader reads the current user's profile from the streaming service.
type ProfileReader interface {
	Profile(ctx context.Context) (*Profile, error)
}

// SessionAccessor exposes the application session id.
type SessionAccessor interface {
	ID() string
}
