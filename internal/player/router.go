package player

import (
	"context"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/polyplayer/internal/services"
	"github.com/desertthunder/polyplayer/internal/shared"
)

// IdentityResolver turns an input reference into a canonical video id.
type IdentityResolver interface {
	Resolve(ctx context.Context, input string) (string, error)
}

// HistoryRecorder persists accepted play requests.
type HistoryRecorder interface {
	RecordPlay(ctx context.Context, caller Caller, item MediaItem) error
}

// Caller identifies who issued a command and the voice channel they are in.
type Caller struct {
	GuildID   uint64
	ChannelID ChannelID
	UserID    uint64
}

// PlayResult describes what a play request did.
type PlayResult struct {
	Item     *MediaItem // nil when the request only resumed playback
	Position int
	Resumed  bool
}

// RouterOpts configures [NewRouter]. History is optional.
type RouterOpts struct {
	Resolver IdentityResolver
	Source   services.VideoSource
	Registry *Registry
	History  HistoryRecorder
	Logger   *log.Logger
}

// Router turns commands into registry operations.
type Router struct {
	resolver IdentityResolver
	source   services.VideoSource
	registry *Registry
	history  HistoryRecorder
	logger   *log.Logger
}

func NewRouter(opts RouterOpts) *Router {
	return &Router{
		resolver: opts.Resolver,
		source:   opts.Source,
		registry: opts.Registry,
		history:  opts.History,
		logger:   shared.WithLogger(opts.Logger, "component", "router"),
	}
}

// Registry exposes the registry the router mutates.
func (r *Router) Registry() *Registry {
	return r.registry
}

// HandlePlay resolves input and enqueues it on the caller's channel.
//
// A channel that is paused with nothing pending is resumed first. With empty input that is all that
// happens, or [shared.ErrMissingArgument] is returned when there was nothing to resume. Resolution,
// metadata and audio failures are returned before the registry is touched.
func (r *Router) HandlePlay(ctx context.Context, caller Caller, input string) (PlayResult, error) {
	input = strings.TrimSpace(input)

	resumed := r.registry.ResumeIdle(caller.ChannelID)
	if input == "" {
		if resumed {
			return PlayResult{Resumed: true}, nil
		}
		return PlayResult{}, shared.ErrMissingArgument
	}

	item, err := r.Prepare(ctx, input)
	if err != nil {
		return PlayResult{Resumed: resumed}, err
	}

	position, err := r.registry.Enqueue(ctx, caller.GuildID, caller.ChannelID, item)
	if err != nil {
		return PlayResult{Resumed: resumed}, err
	}

	if r.history != nil {
		if err := r.history.RecordPlay(ctx, caller, item); err != nil {
			r.logger.Warn("failed to record play", "video", item.ID(), "err", err)
		}
	}
	return PlayResult{Item: &item, Position: position, Resumed: resumed}, nil
}

// Prepare resolves input, fetches its metadata and negotiates an audio URL.
func (r *Router) Prepare(ctx context.Context, input string) (MediaItem, error) {
	id, err := r.resolver.Resolve(ctx, input)
	if err != nil {
		return MediaItem{}, err
	}

	video, err := r.source.FetchItem(ctx, id)
	if err != nil {
		return MediaItem{}, err
	}

	audioURL, err := r.source.NegotiateAudio(ctx, video)
	if err != nil {
		return MediaItem{}, err
	}

	r.logger.Debug("prepared item", "input", input, "video", id)
	return NewMediaItem(video, audioURL, input), nil
}

func (r *Router) Skip(caller Caller, n int) (int, error) {
	return r.registry.Skip(caller.ChannelID, n)
}

func (r *Router) SetLoop(caller Caller, value *bool) (bool, error) {
	return r.registry.SetLoop(caller.ChannelID, value)
}

func (r *Router) Volume(caller Caller) (int, error) {
	return r.registry.Volume(caller.ChannelID)
}

func (r *Router) SetVolume(caller Caller, pct int) (int, error) {
	return r.registry.SetVolume(caller.ChannelID, pct)
}

func (r *Router) TogglePause(caller Caller) (bool, error) {
	return r.registry.TogglePause(caller.ChannelID)
}

func (r *Router) Resume(caller Caller) error {
	return r.registry.Resume(caller.ChannelID)
}

func (r *Router) Stop(caller Caller) (int, error) {
	return r.registry.Stop(caller.ChannelID)
}

// Queue returns the caller's channel state, or [shared.ErrNoActiveSession] when there is nothing to show.
func (r *Router) Queue(caller Caller) (QueueState, error) {
	state, err := r.registry.State(caller.ChannelID)
	if err != nil {
		return QueueState{}, err
	}
	if state.Empty() {
		return QueueState{}, shared.ErrNoActiveSession
	}
	return state, nil
}
