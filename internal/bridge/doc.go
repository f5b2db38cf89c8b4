// Package bridge connects the Go process to the host page running the real JavaScript SDKs.
//
// The host page dials GET /bridge and exchanges typed JSON frames with the [Hub]. The Hub is the
// only code that knows about page globals: it implements [sdk.Document], [spotify.SDK],
// [youtube.SDK] and [auth.Window], forwards player callbacks back to the controllers, and relays
// OAuth popup messages into an [auth.Channel].
//
// Only one host page is active at a time. When a newer page connects, or the active page goes
// away, every OnReset hook runs so loaders and controllers drop state that belonged to the old
// page.
//
// [spotify.SDK]: github.com/desertthunder/fitplay/internal/player/spotify.SDK
// [youtube.SDK]: github.com/desertthunder/fitplay/internal/player/youtube.SDK
package bridge
