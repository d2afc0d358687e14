package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/polyplayer/internal/player"
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
	MsgEvent
	MsgEventsClosed
	MsgActionDone
)

type actionResult struct {
	status string
	err    error
}

// snapshotMsg is the constructor for [MsgSnapshot]
func snapshotMsg(states []player.QueueState) Msg {
	return Msg{kind: MsgSnapshot, data: states}
}

// eventMsg is the constructor for [MsgEvent]
func eventMsg(e player.Event) Msg {
	return Msg{kind: MsgEvent, data: e}
}

// eventsClosedMsg is the constructor for [MsgEventsClosed]
func eventsClosedMsg() Msg {
	return Msg{kind: MsgEventsClosed}
}

// actionDoneMsg is the constructor for [MsgActionDone]
func actionDoneMsg(status string, err error) Msg {
	return Msg{kind: MsgActionDone, data: actionResult{status: status, err: err}}
}
