package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/desertthunder/polyplayer/internal/player"
)

var styles = NewPalette("#7D56F4", "#04B575", "#FF0000", "#FFA500", "#626262")

// struct Palette is a simple stylesheet built with named [lipgloss.Style] fields
type Palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style
}

func NewPalette(t, s, e, w, h string) *Palette {
	return &Palette{
		title: NewBold(t).MarginBottom(1),
		ok:    NewBold(s),
		err:   NewBold(e),
		warn:  NewStyle(w),
		help:  NewEm(h),
	}
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}

// stateStyle picks the style a channel state is drawn in.
func (p *Palette) stateStyle(s player.State) lipgloss.Style {
	switch s {
	case player.StatePlaying:
		return p.ok
	case player.StatePaused:
		return p.warn
	default:
		return p.help
	}
}

func (p *Palette) eventStyle(k player.EventKind) lipgloss.Style {
	switch k {
	case player.EventPlayFailed:
		return p.err
	case player.EventStarted:
		return p.ok
	case player.EventStopped, player.EventClosed:
		return p.warn
	default:
		return lipgloss.NewStyle()
	}
}
