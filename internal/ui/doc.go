// Package ui implements the now-playing terminal interface using bubbletea's Elm architecture.
//
// The TUI is a second consumer of the same [player.Controller] contract the HTTP API serves:
//  1. [PlayerView] : Status, track and volume of the selected provider, with transport keys
//  2. [SourceView] : Free-form URL or identifier entry
//  3. [CuratedView] : Configured short names for the embedded player
//
// Snapshots arrive through each controller's Subscribe channel and are turned into messages by a
// waiting [tea.Cmd] that re-arms itself after every delivery. Commands run off the update loop so a
// slow SDK round trip never blocks rendering.
//
// Keyboard bindings are single letters (space, n/p, +/-, m, o, l, c/d, tab, q) with contextual help
// displayed via charmbracelet/bubbles/help.
package ui
