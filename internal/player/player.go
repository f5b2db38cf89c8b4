// Package player holds the pieces shared by the playback controllers: the single-slot player
// arena, status broadcasting, volume/mute bookkeeping and the [Controller] contract consumed by UIs.
package player

import (
	"context"

	"github.com/desertthunder/fitplay/internal/models"
)

// Controller is the transport-control surface every playback backend exposes to UIs.
//
// Implementations translate SDK failures into the snapshot's error and also return them.
type Controller interface {
	Provider() models.Provider
	Snapshot() models.Snapshot
	Subscribe() (<-chan models.Snapshot, func())

	// Play starts raw (a URL or identifier) or, when raw is empty, resumes the current queue.
	Play(ctx context.Context, raw string) error
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	Next(ctx context.Context) error
	Previous(ctx context.Context) error
	SetVolume(ctx context.Context, volume int) error
	ToggleMute(ctx context.Context) error

	// Close releases the player. It is safe to call repeatedly and before initialization.
	Close()
}
