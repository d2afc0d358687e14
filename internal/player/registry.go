package player

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/polyplayer/internal/shared"
	"github.com/desertthunder/polyplayer/internal/transport"
)

const disconnectTimeout = 10 * time.Second

// RegistryOpts configures [NewRegistry].
type RegistryOpts struct {
	Transport transport.Transport
	// Events receives queue changes. Optional, sends never block.
	Events chan<- Event
	Logger *log.Logger
}

// Registry maps channels to their queues.
//
// mu guards the map only. Lock order is always queue before registry.
type Registry struct {
	mu        sync.Mutex
	queues    map[ChannelID]*ChannelQueue
	transport transport.Transport
	events    chan<- Event
	logger    *log.Logger
}

func NewRegistry(opts RegistryOpts) *Registry {
	return &Registry{
		queues:    make(map[ChannelID]*ChannelQueue),
		transport: opts.Transport,
		events:    opts.Events,
		logger:    shared.WithLogger(opts.Logger, "component", "registry"),
	}
}

// Lookup returns the live queue for channel.
func (r *Registry) Lookup(channel ChannelID) (*ChannelQueue, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.queues[channel]
	return q, ok
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queues)
}

// Queues returns the current queues ordered by channel id.
func (r *Registry) Queues() []*ChannelQueue {
	r.mu.Lock()
	queues := make([]*ChannelQueue, 0, len(r.queues))
	for _, q := range r.queues {
		queues = append(queues, q)
	}
	r.mu.Unlock()

	sort.Slice(queues, func(i, j int) bool { return queues[i].channelID < queues[j].channelID })
	return queues
}

// Snapshot copies the state of every queue. Queues retired while copying are left out.
func (r *Registry) Snapshot() []QueueState {
	queues := r.Queues()
	states := make([]QueueState, 0, len(queues))
	for _, q := range queues {
		q.mu.Lock()
		if !q.closed {
			states = append(states, q.snapshotLocked())
		}
		q.mu.Unlock()
	}
	return states
}

// Enqueue appends item to channel's queue, creating the queue and its connection on first use.
//
// Creation is atomic: concurrent first requests for a channel share one connection. The returned
// position is the item's 1-based place among pending items.
func (r *Registry) Enqueue(ctx context.Context, guildID uint64, channel ChannelID, item MediaItem) (int, error) {
	for {
		r.mu.Lock()
		q, ok := r.queues[channel]
		if !ok {
			q = newChannelQueue(guildID, channel)
			// Nobody else can see q yet, so this cannot block.
			q.mu.Lock()
			r.queues[channel] = q
			r.mu.Unlock()

			if err := r.connectLocked(ctx, q); err != nil {
				q.mu.Unlock()
				return 0, err
			}
		} else {
			r.mu.Unlock()
			q.mu.Lock()
		}

		if q.closed {
			q.mu.Unlock()
			continue
		}

		q.pending = append(q.pending, item)
		position := len(q.pending)
		r.emit(enqueuedEvent(q, item, position))
		q.mu.Unlock()

		r.logger.Debug("enqueued", "channel", channel, "video", item.ID(), "position", position)
		return position, nil
	}
}

// connectLocked opens q's connection. On failure q is retired so waiting enqueuers start over.
func (r *Registry) connectLocked(ctx context.Context, q *ChannelQueue) error {
	conn, err := r.transport.Connect(ctx, q.guildID, uint64(q.channelID))
	if err != nil {
		q.closed = true
		r.remove(q)
		return err
	}
	q.conn = conn
	return nil
}

// remove deletes q from the map if it is still the registered queue for its channel.
func (r *Registry) remove(q *ChannelQueue) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.queues[q.channelID] == q {
		delete(r.queues, q.channelID)
	}
}

// withQueue runs fn on channel's live queue under its lock.
func (r *Registry) withQueue(channel ChannelID, fn func(q *ChannelQueue) error) error {
	q, ok := r.Lookup(channel)
	if !ok {
		return shared.ErrNoActiveSession
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return shared.ErrNoActiveSession
	}
	return fn(q)
}

// Skip drops the first n pending items. The item playing now is unaffected.
//
// When looping the removed items go back on the tail in their original order. Skipping more
// than is pending empties the queue. Returns the number of items removed.
func (r *Registry) Skip(channel ChannelID, n int) (int, error) {
	if n <= 0 {
		return 0, fmt.Errorf("%w: skip count must be positive, got %d", shared.ErrInvalidArgument, n)
	}

	var skipped int
	err := r.withQueue(channel, func(q *ChannelQueue) error {
		skipped = q.skipLocked(n)
		r.emit(skippedEvent(q, skipped))
		return nil
	})
	return skipped, err
}

// SetLoop sets the loop flag, or toggles it when value is nil, and returns the new value.
func (r *Registry) SetLoop(channel ChannelID, value *bool) (bool, error) {
	var loop bool
	err := r.withQueue(channel, func(q *ChannelQueue) error {
		if value == nil {
			q.loop = !q.loop
		} else {
			q.loop = *value
		}
		loop = q.loop
		return nil
	})
	return loop, err
}

// Volume returns the channel's volume in percent.
func (r *Registry) Volume(channel ChannelID) (int, error) {
	var pct int
	err := r.withQueue(channel, func(q *ChannelQueue) error {
		g, ok := q.conn.Gain()
		if !ok {
			return shared.ErrNotVolumeCapable
		}
		pct = gainToPercent(g.Gain())
		return nil
	})
	return pct, err
}

// SetVolume sets the channel's volume, clamped to [MinVolume, MaxVolume], and returns the value applied.
func (r *Registry) SetVolume(channel ChannelID, pct int) (int, error) {
	pct = ClampVolume(pct)
	err := r.withQueue(channel, func(q *ChannelQueue) error {
		g, ok := q.conn.Gain()
		if !ok {
			return shared.ErrNotVolumeCapable
		}
		g.SetGain(float64(pct) / 100)
		return nil
	})
	return pct, err
}

// TogglePause pauses a playing channel or resumes a paused one. Returns whether it is now paused.
func (r *Registry) TogglePause(channel ChannelID) (bool, error) {
	var paused bool
	err := r.withQueue(channel, func(q *ChannelQueue) error {
		switch {
		case q.conn.IsPaused():
			q.conn.Resume()
		case q.conn.IsPlaying():
			q.conn.Pause()
			paused = true
		default:
			return shared.ErrNoActiveSession
		}
		return nil
	})
	return paused, err
}

// Resume resumes a paused channel.
func (r *Registry) Resume(channel ChannelID) error {
	return r.withQueue(channel, func(q *ChannelQueue) error {
		if !q.conn.IsPaused() {
			return shared.ErrNotPaused
		}
		q.conn.Resume()
		return nil
	})
}

// ResumeIdle resumes channel only if it is paused with nothing pending. Reports whether it did.
func (r *Registry) ResumeIdle(channel ChannelID) bool {
	err := r.withQueue(channel, func(q *ChannelQueue) error {
		if !q.conn.IsPaused() || len(q.pending) > 0 {
			return shared.ErrNotPaused
		}
		q.conn.Resume()
		return nil
	})
	return err == nil
}

// Stop clears pending items and ends the current stream. The next tick disconnects the channel.
// Returns the number of pending items dropped.
func (r *Registry) Stop(channel ChannelID) (int, error) {
	var dropped int
	err := r.withQueue(channel, func(q *ChannelQueue) error {
		dropped = len(q.pending)
		q.pending = nil
		q.loop = false
		q.conn.Stop()
		r.emit(stoppedEvent(q))
		return nil
	})
	return dropped, err
}

// State returns a copy of channel's queue.
func (r *Registry) State(channel ChannelID) (QueueState, error) {
	var state QueueState
	err := r.withQueue(channel, func(q *ChannelQueue) error {
		state = q.snapshotLocked()
		return nil
	})
	return state, err
}

// Close retires every queue and disconnects its transport.
func (r *Registry) Close(ctx context.Context) {
	for _, q := range r.Queues() {
		q.mu.Lock()
		conn := r.retireLocked(q)
		q.mu.Unlock()
		r.disconnect(ctx, q, conn)
	}
}

// retireLocked marks q closed and removes it, returning the connection to disconnect.
func (r *Registry) retireLocked(q *ChannelQueue) transport.Conn {
	if q.closed {
		return nil
	}
	q.closed = true
	q.nowPlaying = nil
	r.remove(q)
	return q.conn
}

func (r *Registry) disconnect(ctx context.Context, q *ChannelQueue, conn transport.Conn) {
	if conn == nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, disconnectTimeout)
	defer cancel()

	if err := conn.Disconnect(ctx); err != nil {
		r.logger.Warn("failed to disconnect", "channel", q.channelID, "err", err)
	}
	r.emit(closedEvent(q))
}

// emit sends a non-blocking event.
func (r *Registry) emit(e Event) {
	if r.events == nil {
		return
	}
	select {
	case r.events <- e:
	default:
	}
}
