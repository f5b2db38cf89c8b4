package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/fitplay/internal/models"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgSnapshot MsgKind = iota
	MsgSubscriptionClosed
	MsgCommandDone
)

type commandResult struct {
	provider models.Provider
	action   string
	err      error
}

// snapshotMsg is the constructor for [MsgSnapshot]
func snapshotMsg(s models.Snapshot) Msg {
	return Msg{kind: MsgSnapshot, data: s}
}

// subscriptionClosedMsg is the constructor for [MsgSubscriptionClosed]
func subscriptionClosedMsg(p models.Provider) Msg {
	return Msg{kind: MsgSubscriptionClosed, data: p}
}

// commandDoneMsg is the constructor for [MsgCommandDone]
func commandDoneMsg(p models.Provider, action string, err error) Msg {
	return Msg{kind: MsgCommandDone, data: commandResult{provider: p, action: action, err: err}}
}
