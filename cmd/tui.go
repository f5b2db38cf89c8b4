package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/fitplay/internal/ui"
)

// runTUI runs the now-playing terminal UI over the app's controllers until the user quits.
func (r *Runner) runTUI(ctx context.Context, a *app) error {
	model := ui.NewModel(ctx, ui.Opts{
		Controllers: a.controllers(),
		Flow:        a.flow,
		Curated:     a.curated,
	})
	defer model.Close()

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
