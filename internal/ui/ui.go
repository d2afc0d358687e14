package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/polyplayer/internal/player"
	"github.com/desertthunder/polyplayer/internal/shared"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	ChannelListView ViewState = iota
	ChannelView
)

const (
	defaultRefresh = time.Second
	maxLogLines    = 8
	maxPendingRows = 15
)

// Controller is the part of [player.Registry] the dashboard reads and drives.
type Controller interface {
	Snapshot() []player.QueueState
	Skip(channel player.ChannelID, n int) (int, error)
	TogglePause(channel player.ChannelID) (bool, error)
	SetLoop(channel player.ChannelID, value *bool) (bool, error)
	Stop(channel player.ChannelID) (int, error)
}

// Model represents the TUI application state.
type Model struct {
	ctx      context.Context
	view     ViewState
	ctl      Controller
	events   <-chan player.Event
	refresh  time.Duration
	width    int
	height   int
	channels list.Model
	states   []player.QueueState
	selected player.ChannelID
	log      []string
	status   string
	err      error
	help     help.Model
	keys     keyMap
}

// NewModel creates a dashboard over ctl. events may be nil.
func NewModel(ctx context.Context, ctl Controller, events <-chan player.Event) *Model {
	channels := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	channels.Title = "Voice Channels"
	channels.SetShowHelp(false)

	return &Model{
		ctx:      ctx,
		view:     ChannelListView,
		ctl:      ctl,
		events:   events,
		refresh:  defaultRefresh,
		channels: channels,
		help:     help.New(),
		keys:     newKeyMap(),
	}
}

// Init takes the first snapshot and starts listening for events.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.snapshot, m.waitForEvent())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.channels.SetSize(msg.Width-4, max(msg.Height-maxLogLines-8, 4))
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case ChannelListView:
			return m.handleListKeys(msg)
		case ChannelView:
			return m.handleChannelKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	var cmd tea.Cmd
	m.channels, cmd = m.channels.Update(msg)
	return m, cmd
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgSnapshot:
		states, _ := msg.data.([]player.QueueState)
		m.states = states
		cmd := m.channels.SetItems(channelItems(states))
		if m.view == ChannelView && m.current() == nil {
			m.view = ChannelListView
		}
		return m, tea.Batch(cmd, m.tick())

	case MsgEvent:
		e, _ := msg.data.(player.Event)
		m.appendLog(e)
		return m, m.waitForEvent()

	case MsgEventsClosed:
		m.events = nil
		return m, nil

	case MsgActionDone:
		res, _ := msg.data.(actionResult)
		m.status, m.err = res.status, res.err
		return m, m.snapshot
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	var body string
	switch m.view {
	case ChannelView:
		body = m.renderChannel()
	default:
		body = m.renderList()
	}

	var b strings.Builder
	b.WriteString(body)
	b.WriteString("\n")

	switch {
	case m.err != nil:
		b.WriteString("\n" + styles.err.Render(shared.UserMessage(m.err)) + "\n")
	case m.status != "":
		b.WriteString("\n" + styles.ok.Render(m.status) + "\n")
	}

	if len(m.log) > 0 {
		b.WriteString("\n" + styles.title.Render("Events") + "\n")
		b.WriteString(strings.Join(m.log, "\n"))
		b.WriteString("\n")
	}
	return b.String()
}

func (m *Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.channels.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.channels, cmd = m.channels.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.enter):
		if ch, ok := m.highlighted(); ok {
			m.selected = ch
			m.view = ChannelView
		}
		return m, nil
	}

	if ch, ok := m.highlighted(); ok {
		if cmd := m.control(msg, ch); cmd != nil {
			return m, cmd
		}
	}

	var cmd tea.Cmd
	m.channels, cmd = m.channels.Update(msg)
	return m, cmd
}

func (m *Model) handleChannelKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.view = ChannelListView
		return m, nil
	}
	return m, m.control(msg, m.selected)
}

// control maps a control key to an action on ch, or returns nil for any other key.
func (m *Model) control(msg tea.KeyMsg, ch player.ChannelID) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.skip):
		return m.act(func() (string, error) {
			n, err := m.ctl.Skip(ch, 1)
			return fmt.Sprintf("Skipped %d", n), err
		})
	case key.Matches(msg, m.keys.pause):
		return m.act(func() (string, error) {
			paused, err := m.ctl.TogglePause(ch)
			if paused {
				return "Paused", err
			}
			return "Resumed", err
		})
	case key.Matches(msg, m.keys.loop):
		return m.act(func() (string, error) {
			loop, err := m.ctl.SetLoop(ch, nil)
			if loop {
				return "Looping is now enabled", err
			}
			return "Looping is now disabled", err
		})
	case key.Matches(msg, m.keys.stop):
		return m.act(func() (string, error) {
			n, err := m.ctl.Stop(ch)
			return fmt.Sprintf("Stopped, cleared %d", n), err
		})
	}
	return nil
}

func (m *Model) act(fn func() (string, error)) tea.Cmd {
	return func() tea.Msg {
		status, err := fn()
		if err != nil {
			status = ""
		}
		return actionDoneMsg(status, err)
	}
}

func (m *Model) snapshot() tea.Msg {
	return snapshotMsg(m.ctl.Snapshot())
}

func (m *Model) tick() tea.Cmd {
	return tea.Tick(m.refresh, func(time.Time) tea.Msg {
		return m.snapshot()
	})
}

func (m *Model) waitForEvent() tea.Cmd {
	if m.events == nil {
		return nil
	}
	events := m.events
	return func() tea.Msg {
		select {
		case e, ok := <-events:
			if !ok {
				return eventsClosedMsg()
			}
			return eventMsg(e)
		case <-m.ctx.Done():
			return eventsClosedMsg()
		}
	}
}

func (m *Model) appendLog(e player.Event) {
	line := fmt.Sprintf("%s  %d  %s", time.Now().Format("15:04:05"), e.Channel, e.Message)
	m.log = append(m.log, styles.eventStyle(e.Kind).Render(line))
	if len(m.log) > maxLogLines {
		m.log = m.log[len(m.log)-maxLogLines:]
	}
}

func (m *Model) highlighted() (player.ChannelID, bool) {
	item, ok := m.channels.SelectedItem().(channelItem)
	if !ok {
		return 0, false
	}
	return item.state.ChannelID, true
}

// current returns the latest state of the selected channel, or nil once it is gone.
func (m *Model) current() *player.QueueState {
	for i := range m.states {
		if m.states[i].ChannelID == m.selected {
			return &m.states[i]
		}
	}
	return nil
}

func (m *Model) renderList() string {
	if len(m.states) == 0 {
		title := styles.title.Render("Voice Channels")
		return fmt.Sprintf("%s\n%s\n\n%s", title, styles.help.Render("No active channels"), m.help.ShortHelpView([]key.Binding{m.keys.quit}))
	}

	helpKeys := append([]key.Binding{m.keys.enter}, m.keys.controls()...)
	helpKeys = append(helpKeys, m.keys.quit)
	return fmt.Sprintf("%s\n\n%s", m.channels.View(), m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderChannel() string {
	s := m.current()
	if s == nil {
		return styles.err.Render("Channel is no longer active")
	}

	var b strings.Builder
	b.WriteString(styles.title.Render(channelItem{state: *s}.Title()))
	b.WriteString("\n")

	state := s.State()
	fmt.Fprintf(&b, "State:  %s\n", styles.stateStyle(state).Render(state.String()))
	if s.VolumeCapable {
		fmt.Fprintf(&b, "Volume: %d%%\n", s.Volume)
	}
	fmt.Fprintf(&b, "Loop:   %v\n", s.Loop)

	if s.NowPlaying != nil {
		fmt.Fprintf(&b, "\nNow playing: %s (%s)\n", s.NowPlaying.Title(), shared.FormatDuration(s.NowPlaying.Video.LengthSeconds))
	}

	if len(s.Pending) > 0 {
		b.WriteString("\nUp next:\n")
		for i, item := range s.Pending {
			if i == maxPendingRows {
				fmt.Fprintf(&b, "  and %d more...\n", len(s.Pending)-i)
				break
			}
			fmt.Fprintf(&b, "  %d. %s (%s)\n", i+1, shared.Truncate(item.Title(), 60), shared.FormatDuration(item.Video.LengthSeconds))
		}
	}

	helpKeys := append(m.keys.controls(), m.keys.back, m.keys.quit)
	b.WriteString("\n" + m.help.ShortHelpView(helpKeys))
	return b.String()
}
