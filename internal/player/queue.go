package player

import (
	"math"
	"slices"
	"sync"

	"github.com/desertthunder/polyplayer/internal/transport"
)

const (
	MinVolume = 50
	MaxVolume = 200
)

// State is derived from a queue's fields and its transport, never stored.
type State int

const (
	StateIdle State = iota
	StateQueued
	StatePlaying
	StatePaused
)

func (s State) String() string {
	switch s {
	case StateQueued:
		return "queued"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "idle"
	}
}

// ChannelQueue is the playback state of one voice channel.
//
// All fields are guarded by mu. Once closed is set the queue has been removed from its registry and
// must not accept items.
type ChannelQueue struct {
	mu         sync.Mutex
	guildID    uint64
	channelID  ChannelID
	conn       transport.Conn
	pending    []MediaItem
	nowPlaying *MediaItem
	loop       bool
	closed     bool
}

func newChannelQueue(guildID uint64, channelID ChannelID) *ChannelQueue {
	return &ChannelQueue{guildID: guildID, channelID: channelID}
}

func (q *ChannelQueue) ChannelID() ChannelID {
	return q.channelID
}

func (q *ChannelQueue) GuildID() uint64 {
	return q.guildID
}

// Snapshot copies the queue's current state.
func (q *ChannelQueue) Snapshot() QueueState {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.snapshotLocked()
}

func (q *ChannelQueue) snapshotLocked() QueueState {
	s := QueueState{
		GuildID:   q.guildID,
		ChannelID: q.channelID,
		Pending:   slices.Clone(q.pending),
		Loop:      q.loop,
	}
	if q.conn != nil {
		s.Playing = q.conn.IsPlaying()
		s.Paused = q.conn.IsPaused()
		if g, ok := q.conn.Gain(); ok {
			s.Volume = gainToPercent(g.Gain())
			s.VolumeCapable = true
		}
	}
	if q.nowPlaying != nil && (s.Playing || s.Paused) {
		item := *q.nowPlaying
		s.NowPlaying = &item
	}
	return s
}

// skipLocked drops up to n pending items, re-appending them in order when looping.
func (q *ChannelQueue) skipLocked(n int) int {
	n = min(n, len(q.pending))
	removed := slices.Clone(q.pending[:n])
	q.pending = slices.Delete(q.pending, 0, n)
	if q.loop {
		q.pending = append(q.pending, removed...)
	}
	return n
}

// advanceLocked pops the head, rotating it to the tail when looping.
func (q *ChannelQueue) advanceLocked() MediaItem {
	item := q.pending[0]
	q.pending = slices.Delete(q.pending, 0, 1)
	if q.loop {
		q.pending = append(q.pending, item)
	}
	q.nowPlaying = &item
	return item
}

// QueueState is a point-in-time copy of a [ChannelQueue].
type QueueState struct {
	GuildID       uint64
	ChannelID     ChannelID
	NowPlaying    *MediaItem // nil unless the transport is playing or paused
	Pending       []MediaItem
	Loop          bool
	Playing       bool
	Paused        bool
	Volume        int // percent, zero unless VolumeCapable
	VolumeCapable bool
}

func (s QueueState) State() State {
	switch {
	case s.Paused:
		return StatePaused
	case s.Playing:
		return StatePlaying
	case len(s.Pending) > 0:
		return StateQueued
	default:
		return StateIdle
	}
}

// Empty reports whether there is nothing to show: no pending items and nothing playing or paused.
func (s QueueState) Empty() bool {
	return len(s.Pending) == 0 && !s.Playing && !s.Paused
}

// ClampVolume bounds pct to [MinVolume, MaxVolume].
func ClampVolume(pct int) int {
	return max(MinVolume, min(MaxVolume, pct))
}

func gainToPercent(g float64) int {
	return int(math.Round(g * 100))
}
