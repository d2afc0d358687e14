package player

import "fmt"

// EventKind enumerates what happened to a channel.
type EventKind int

const (
	EventEnqueued EventKind = iota
	EventStarted
	EventPlayFailed
	EventSkipped
	EventStopped
	EventClosed
)

func (k EventKind) String() string {
	switch k {
	case EventEnqueued:
		return "enqueued"
	case EventStarted:
		return "started"
	case EventPlayFailed:
		return "play_failed"
	case EventSkipped:
		return "skipped"
	case EventStopped:
		return "stopped"
	case EventClosed:
		return "closed"
	default:
		return ""
	}
}

// Event reports a change to a channel's queue.
//
// Events are sent to the optional channel given to [NewRegistry]. Sends never block: when nobody is
// listening, or the listener is behind, the event is dropped.
type Event struct {
	Kind    EventKind
	GuildID uint64
	Channel ChannelID
	Item    *MediaItem // Item involved, if any
	Message string     // Human-readable message for display
	Err     error
}

func enqueuedEvent(q *ChannelQueue, item MediaItem, position int) Event {
	return Event{
		Kind:    EventEnqueued,
		GuildID: q.guildID,
		Channel: q.channelID,
		Item:    &item,
		Message: fmt.Sprintf("Queued %s at position %d", item.Title(), position),
	}
}

func startedEvent(q *ChannelQueue, item MediaItem) Event {
	return Event{
		Kind:    EventStarted,
		GuildID: q.guildID,
		Channel: q.channelID,
		Item:    &item,
		Message: fmt.Sprintf("Now playing %s", item.Title()),
	}
}

func playFailedEvent(q *ChannelQueue, item MediaItem, err error) Event {
	return Event{
		Kind:    EventPlayFailed,
		GuildID: q.guildID,
		Channel: q.channelID,
		Item:    &item,
		Message: fmt.Sprintf("✗ %s: %v", item.Title(), err),
		Err:     err,
	}
}

func skippedEvent(q *ChannelQueue, n int) Event {
	return Event{
		Kind:    EventSkipped,
		GuildID: q.guildID,
		Channel: q.channelID,
		Message: fmt.Sprintf("Skipped %d", n),
	}
}

func stoppedEvent(q *ChannelQueue) Event {
	return Event{
		Kind:    EventStopped,
		GuildID: q.guildID,
		Channel: q.channelID,
		Message: "Stopped",
	}
}

func closedEvent(q *ChannelQueue) Event {
	return Event{
		Kind:    EventClosed,
		GuildID: q.guildID,
		Channel: q.channelID,
		Message: "Disconnected",
	}
}
