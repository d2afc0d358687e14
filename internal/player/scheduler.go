package player

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/polyplayer/internal/shared"
	"github.com/desertthunder/polyplayer/internal/transport"
)

const DefaultTickInterval = time.Second

// SchedulerOpts configures [NewScheduler]. Zero values fall back to defaults.
type SchedulerOpts struct {
	Interval time.Duration
	Policy   *transport.ReconnectPolicy
	Logger   *log.Logger
}

// Scheduler advances every channel in a [Registry] from a single ticker.
type Scheduler struct {
	registry *Registry
	interval time.Duration
	policy   transport.ReconnectPolicy
	logger   *log.Logger
}

func NewScheduler(registry *Registry, opts SchedulerOpts) *Scheduler {
	if opts.Interval <= 0 {
		opts.Interval = DefaultTickInterval
	}
	policy := transport.DefaultReconnectPolicy()
	if opts.Policy != nil {
		policy = *opts.Policy
	}

	return &Scheduler{
		registry: registry,
		interval: opts.Interval,
		policy:   policy,
		logger:   shared.WithLogger(opts.Logger, "component", "scheduler"),
	}
}

// Run ticks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("scheduler started", "interval", s.interval)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick advances each channel in a snapshot of the registry once.
//
// A channel whose lock is held elsewhere is skipped until the next tick. A failure in one channel,
// panics included, is logged and does not affect the others.
func (s *Scheduler) Tick(ctx context.Context) {
	for _, q := range s.registry.Queues() {
		s.tickChannel(ctx, q)
	}
}

func (s *Scheduler) tickChannel(ctx context.Context, q *ChannelQueue) {
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error("channel tick panicked", "channel", q.channelID, "panic", rec)
		}
	}()

	if !q.mu.TryLock() {
		return
	}
	conn := func() transport.Conn {
		defer q.mu.Unlock()
		return s.advanceLocked(q)
	}()

	s.registry.disconnect(ctx, q, conn)
}

// advanceLocked applies one scheduling step. It returns a connection only when the queue was retired.
func (s *Scheduler) advanceLocked(q *ChannelQueue) transport.Conn {
	if q.closed || q.conn == nil {
		return nil
	}
	if q.conn.IsPlaying() || q.conn.IsPaused() {
		return nil
	}

	if len(q.pending) == 0 {
		s.logger.Debug("queue drained, disconnecting", "channel", q.channelID)
		return s.registry.retireLocked(q)
	}

	item := q.advanceLocked()
	if err := s.play(q, item); err != nil {
		q.nowPlaying = nil
		s.logger.Error("failed to start playback", "channel", q.channelID, "video", item.ID(), "err", err)
		s.registry.emit(playFailedEvent(q, item, err))
		return nil
	}

	s.logger.Info("now playing", "channel", q.channelID, "video", item.ID(), "title", item.Title())
	s.registry.emit(startedEvent(q, item))
	return nil
}

func (s *Scheduler) play(q *ChannelQueue, item MediaItem) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("transport panicked: %v", rec)
		}
	}()
	return q.conn.Play(item.AudioURL, s.policy)
}
