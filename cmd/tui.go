package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/polyplayer/internal/player"
	"github.com/desertthunder/polyplayer/internal/ui"
)

// runDashboard shows the channel dashboard until the user quits or ctx ends.
func (r *Runner) runDashboard(ctx context.Context, registry *player.Registry, events <-chan player.Event) error {
	model := ui.NewModel(ctx, registry, events)
	p := tea.NewProgram(model, tea.WithContext(ctx), tea.WithAltScreen())

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}
