package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/polyplayer/internal/formatter"
	"github.com/desertthunder/polyplayer/internal/player"
	"github.com/desertthunder/polyplayer/internal/shared"
)

// Handlers implements the playback commands on top of a [player.Router].
type Handlers struct {
	player *player.Router
	logger *log.Logger
}

func NewHandlers(router *player.Router, logger *log.Logger) *Handlers {
	return &Handlers{player: router, logger: shared.WithLogger(logger, "component", "handlers")}
}

// Register adds every command to r.
func (h *Handlers) Register(r *CommandRouter) {
	r.HandleDeferred(CommandPlay, h.Play)
	r.Handle(CommandQueue, h.Queue)
	r.Handle(CommandVolume, h.Volume)
	r.Handle(CommandPause, h.Pause)
	r.Handle(CommandResume, h.Resume)
	r.Handle(CommandLoop, h.Loop)
	r.Handle(CommandSkip, h.Skip)
	r.Handle(CommandStop, h.Stop)
}

// errorReply renders err for the requester. Only opaque upstream errors are shown to the channel.
func errorReply(err error) Reply {
	msg := shared.UserMessage(err)
	return Reply{Content: msg, Ephemeral: !strings.HasPrefix(msg, "Error: ")}
}

func (h *Handlers) Play(ctx context.Context, req *Request) Reply {
	input, _ := req.Options.String(OptionURL)

	res, err := h.player.HandlePlay(ctx, req.Caller(), input)
	if err != nil {
		if !errors.Is(err, shared.ErrMissingArgument) && !errors.Is(err, shared.ErrInvalidInput) {
			h.logger.Warn("play request failed", "id", req.ID, "input", input, "err", err)
		}
		return errorReply(err)
	}

	if res.Item == nil {
		return Reply{Content: "Resumed playback"}
	}
	return Reply{Content: fmt.Sprintf("Added [%s](<%s>) to the queue", res.Item.Title(), res.Item.WatchURL)}
}

func (h *Handlers) Queue(ctx context.Context, req *Request) Reply {
	ephemeral, _ := req.Options.Bool(OptionEphemeral)

	state, err := h.player.Queue(req.Caller())
	if err != nil {
		return errorReply(err)
	}

	card := formatter.NewQueueCard(state)
	return Reply{Card: &card, Ephemeral: ephemeral}
}

func (h *Handlers) Volume(ctx context.Context, req *Request) Reply {
	pct, ok := req.Options.Int(OptionVolume)
	if !ok {
		current, err := h.player.Volume(req.Caller())
		if err != nil {
			return errorReply(err)
		}
		return Reply{Content: fmt.Sprintf("Volume is currently at %d%%", current), Ephemeral: true}
	}

	applied, err := h.player.SetVolume(req.Caller(), pct)
	if err != nil {
		return errorReply(err)
	}
	return Reply{Content: fmt.Sprintf("Volume set to %d%%", applied)}
}

func (h *Handlers) Pause(ctx context.Context, req *Request) Reply {
	paused, err := h.player.TogglePause(req.Caller())
	if err != nil {
		return errorReply(err)
	}
	if paused {
		return Reply{Content: "Paused"}
	}
	return Reply{Content: "Resumed"}
}

func (h *Handlers) Resume(ctx context.Context, req *Request) Reply {
	if err := h.player.Resume(req.Caller()); err != nil {
		return errorReply(err)
	}
	return Reply{Content: "Resumed"}
}

func (h *Handlers) Loop(ctx context.Context, req *Request) Reply {
	var value *bool
	if v, ok := req.Options.Bool(OptionEnabled); ok {
		value = &v
	}

	loop, err := h.player.SetLoop(req.Caller(), value)
	if err != nil {
		return errorReply(err)
	}
	if loop {
		return Reply{Content: "Looping is now enabled"}
	}
	return Reply{Content: "Looping is now disabled"}
}

func (h *Handlers) Skip(ctx context.Context, req *Request) Reply {
	steps, ok := req.Options.Int(OptionCount)
	if !ok {
		steps = 1
	}

	skipped, err := h.player.Skip(req.Caller(), steps)
	if err != nil {
		return errorReply(err)
	}
	if skipped == 0 {
		return errorReply(shared.ErrNoActiveSession)
	}
	if skipped == 1 {
		return Reply{Content: "Skipped 1 song"}
	}
	return Reply{Content: fmt.Sprintf("Skipped %d songs", skipped)}
}

func (h *Handlers) Stop(ctx context.Context, req *Request) Reply {
	dropped, err := h.player.Stop(req.Caller())
	if err != nil {
		return errorReply(err)
	}
	if dropped == 0 {
		return Reply{Content: "Stopped playback"}
	}
	return Reply{Content: fmt.Sprintf("Stopped playback and cleared %d queued", dropped)}
}
