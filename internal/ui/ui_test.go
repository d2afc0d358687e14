package ui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/polyplayer/internal/player"
	"github.com/desertthunder/polyplayer/internal/services"
	"github.com/desertthunder/polyplayer/internal/shared"
)

type fakeController struct {
	states []player.QueueState
	calls  []string
	err    error
}

func (f *fakeController) Snapshot() []player.QueueState { return f.states }

func (f *fakeController) Skip(ch player.ChannelID, n int) (int, error) {
	f.calls = append(f.calls, "skip")
	return n, f.err
}

func (f *fakeController) TogglePause(ch player.ChannelID) (bool, error) {
	f.calls = append(f.calls, "pause")
	return true, f.err
}

func (f *fakeController) SetLoop(ch player.ChannelID, value *bool) (bool, error) {
	f.calls = append(f.calls, "loop")
	return true, f.err
}

func (f *fakeController) Stop(ch player.ChannelID) (int, error) {
	f.calls = append(f.calls, "stop")
	return 2, f.err
}

func item(id string) player.MediaItem {
	return player.NewMediaItem(&services.Video{VideoID: id, Title: "Title " + id, LengthSeconds: 90}, "", id)
}

func testStates() []player.QueueState {
	now := item("a")
	return []player.QueueState{{
		GuildID:       1,
		ChannelID:     100,
		NowPlaying:    &now,
		Pending:       []player.MediaItem{item("b"), item("c")},
		Playing:       true,
		Volume:        120,
		VolumeCapable: true,
	}}
}

func keyRune(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func newTestModel(t *testing.T, ctl *fakeController) *Model {
	t.Helper()
	m := NewModel(context.Background(), ctl, nil)
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	m.Update(m.snapshot())
	return m
}

func TestModel(t *testing.T) {
	t.Run("empty dashboard", func(t *testing.T) {
		m := newTestModel(t, &fakeController{})
		if !strings.Contains(m.View(), "No active channels") {
			t.Errorf("unexpected view:\n%s", m.View())
		}
	})

	t.Run("lists channels", func(t *testing.T) {
		m := newTestModel(t, &fakeController{states: testStates()})
		if len(m.channels.Items()) != 1 {
			t.Fatalf("expected 1 channel, got %d", len(m.channels.Items()))
		}
		if !strings.Contains(m.View(), "Channel 100") {
			t.Errorf("expected channel title in view:\n%s", m.View())
		}
	})

	t.Run("opens channel detail", func(t *testing.T) {
		m := newTestModel(t, &fakeController{states: testStates()})
		m.Update(tea.KeyMsg{Type: tea.KeyEnter})

		if m.view != ChannelView || m.selected != 100 {
			t.Fatalf("expected channel view for 100, got %v %d", m.view, m.selected)
		}

		view := m.View()
		for _, want := range []string{"Now playing: Title a (1:30)", "1. Title b", "2. Title c", "Volume: 120%"} {
			if !strings.Contains(view, want) {
				t.Errorf("expected %q in view:\n%s", want, view)
			}
		}

		m.Update(tea.KeyMsg{Type: tea.KeyEsc})
		if m.view != ChannelListView {
			t.Error("esc should return to the list")
		}
	})

	t.Run("falls back when channel closes", func(t *testing.T) {
		ctl := &fakeController{states: testStates()}
		m := newTestModel(t, ctl)
		m.Update(tea.KeyMsg{Type: tea.KeyEnter})

		ctl.states = nil
		m.Update(m.snapshot())
		if m.view != ChannelListView {
			t.Error("expected list view after the channel closed")
		}
	})

	t.Run("controls", func(t *testing.T) {
		ctl := &fakeController{states: testStates()}
		m := newTestModel(t, ctl)
		m.Update(tea.KeyMsg{Type: tea.KeyEnter})

		for _, r := range []rune{'s', 'p', 'l', 'x'} {
			_, cmd := m.Update(keyRune(r))
			if cmd == nil {
				t.Fatalf("expected a command for %q", r)
			}
			m.Update(cmd())
		}

		if strings.Join(ctl.calls, ",") != "skip,pause,loop,stop" {
			t.Errorf("unexpected calls %v", ctl.calls)
		}
		if m.status != "Stopped, cleared 2" {
			t.Errorf("unexpected status %q", m.status)
		}
	})

	t.Run("control error", func(t *testing.T) {
		ctl := &fakeController{states: testStates(), err: shared.ErrNoActiveSession}
		m := newTestModel(t, ctl)
		m.Update(tea.KeyMsg{Type: tea.KeyEnter})

		_, cmd := m.Update(keyRune('s'))
		m.Update(cmd())

		if !errors.Is(m.err, shared.ErrNoActiveSession) || m.status != "" {
			t.Errorf("expected error status, got %v %q", m.err, m.status)
		}
		if !strings.Contains(m.View(), "Nothing is currently playing") {
			t.Errorf("expected error in view:\n%s", m.View())
		}
	})

	t.Run("quit", func(t *testing.T) {
		m := newTestModel(t, &fakeController{})
		_, cmd := m.Update(keyRune('q'))
		if cmd == nil {
			t.Fatal("expected quit command")
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Error("expected tea.QuitMsg")
		}
	})
}

func TestEventLog(t *testing.T) {
	events := make(chan player.Event, maxLogLines+2)
	m := NewModel(context.Background(), &fakeController{}, events)

	for i := range maxLogLines + 2 {
		events <- player.Event{Kind: player.EventStarted, Channel: 100, Message: "event " + string(rune('a'+i))}
	}

	for range maxLogLines + 2 {
		m.Update(m.waitForEvent()())
	}

	if len(m.log) != maxLogLines {
		t.Fatalf("expected %d log lines, got %d", maxLogLines, len(m.log))
	}
	if strings.Contains(m.View(), "event a") || !strings.Contains(m.View(), "event j") {
		t.Errorf("expected only the latest events:\n%s", m.View())
	}

	close(events)
	m.Update(m.waitForEvent()())
	if m.events != nil {
		t.Error("expected events to be detached after close")
	}
}
