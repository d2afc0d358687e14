package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"

	"github.com/desertthunder/polyplayer/internal/player"
	"github.com/desertthunder/polyplayer/internal/shared"
)

var _ list.Item = channelItem{}

// channelItem wraps [player.QueueState] to implement [list.Item].
type channelItem struct {
	state player.QueueState
}

func (i channelItem) FilterValue() string { return i.Title() }
func (i channelItem) Title() string {
	return fmt.Sprintf("Channel %d (guild %d)", i.state.ChannelID, i.state.GuildID)
}

func (i channelItem) Description() string {
	parts := []string{i.state.State().String()}
	if i.state.NowPlaying != nil {
		parts = append(parts, shared.Truncate(i.state.NowPlaying.Title(), 40))
	}
	parts = append(parts, fmt.Sprintf("%d queued", len(i.state.Pending)))
	if i.state.Loop {
		parts = append(parts, "loop")
	}
	return strings.Join(parts, " • ")
}

func channelItems(states []player.QueueState) []list.Item {
	items := make([]list.Item, len(states))
	for i, s := range states {
		items[i] = channelItem{state: s}
	}
	return items
}
