package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up    key.Binding
	down  key.Binding
	enter key.Binding
	back  key.Binding
	skip  key.Binding
	pause key.Binding
	loop  key.Binding
	stop  key.Binding
	quit  key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:    key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:  key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		enter: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
		back:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		skip:  key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "skip")),
		pause: key.NewBinding(key.WithKeys("p", " "), key.WithHelp("p", "pause/resume")),
		loop:  key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "loop")),
		stop:  key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "stop")),
		quit:  key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) controls() []key.Binding {
	return []key.Binding{k.skip, k.pause, k.loop, k.stop}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.enter, k.back},
		k.controls(),
		{k.quit},
	}
}
