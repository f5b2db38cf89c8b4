// Package models defines the values shared by the fitplay players, the auth layer and the UI.
//
// The package contains three groups of types:
//
// 1. Credentials
//   - [TokenSet] : Access and refresh token with an absolute expiry in epoch milliseconds
//
// 2. Player state: What a controller reports to its subscribers
//   - [Snapshot] : Status, track, source, volume and last error of one provider
//   - [PlayerStatus] : Lifecycle position of a player (connecting through error)
//   - [TrackInfo] : Now-playing metadata with position and duration
//   - [PlaybackSource] : A single item or a looping collection, optionally with a start item
//   - [Profile] : The authenticated Spotify account, used for the eligibility check
//
// 3. Errors
//   - [PlayerError] : A categorized failure carrying its retry flag and suggested action
//
// None of these types hold behavior beyond formatting and classification.
package models
