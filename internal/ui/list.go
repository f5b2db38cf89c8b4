package ui

import (
	"github.com/charmbracelet/bubbles/list"
)

var _ list.Item = curatedItem("")

// curatedItem is a configured short name for the embedded player.
type curatedItem string

func (i curatedItem) FilterValue() string { return string(i) }
func (i curatedItem) Title() string       { return string(i) }
func (i curatedItem) Description() string { return "curated" }
