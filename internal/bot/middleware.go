package bot

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/polyplayer/internal/shared"
)

// Logging tags each request with an id and logs its outcome.
func Logging(logger *log.Logger) Middleware {
	logger = shared.WithLogger(logger, "component", "commands")
	return func(next Handler) Handler {
		return func(ctx context.Context, req *Request) Reply {
			if req.ID == "" {
				req.ID = shared.GenerateID()
			}

			start := time.Now()
			reply := next(ctx, req)
			logger.Debug("handled command",
				"id", req.ID,
				"command", req.Command,
				"guild", req.GuildID,
				"user", req.UserID,
				"took", time.Since(start),
			)
			return reply
		}
	}
}

// Recover turns a panicking handler into an error reply.
func Recover(logger *log.Logger) Middleware {
	logger = shared.WithLogger(logger, "component", "commands")
	return func(next Handler) Handler {
		return func(ctx context.Context, req *Request) (reply Reply) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("command panicked", "id", req.ID, "command", req.Command, "panic", rec)
					reply = Reply{Content: "Error: something went wrong", Ephemeral: true}
				}
			}()
			return next(ctx, req)
		}
	}
}

// RequireVoice rejects callers who are not in a voice channel of the guild.
func RequireVoice() Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, req *Request) Reply {
			if req.GuildID == 0 || req.VoiceChannelID == 0 {
				return errorReply(shared.ErrNotInVoice)
			}
			return next(ctx, req)
		}
	}
}

// Timeout bounds each handler's context.
func Timeout(d time.Duration) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, req *Request) Reply {
			ctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()
			return next(ctx, req)
		}
	}
}
