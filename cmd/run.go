package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/polyplayer/internal/bot"
	"github.com/desertthunder/polyplayer/internal/player"
	"github.com/desertthunder/polyplayer/internal/repositories"
	"github.com/desertthunder/polyplayer/internal/services"
	"github.com/desertthunder/polyplayer/internal/shared"
	"github.com/desertthunder/polyplayer/internal/transport"
)

const (
	commandTimeout  = 25 * time.Second
	shutdownTimeout = 10 * time.Second
	eventBuffer     = 64
)

// Run connects the bot and drives playback until interrupted.
func (r *Runner) Run(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd.String("config"))
	if err != nil {
		return err
	}
	if err := config.Validate(); err != nil {
		return err
	}

	guildID, err := parseID(config.Discord.GuildID)
	if err != nil {
		return fmt.Errorf("%w: discord.guild_id: %w", shared.ErrInvalidConfig, err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	dashboard := cmd.Bool("tui")
	if dashboard {
		fileLogger, err := shared.NewFileLogger(cmd.String("log-file"))
		if err != nil {
			return err
		}
		fileLogger.SetLevel(r.logger.GetLevel())
		r.SetLogger(fileLogger)
	}

	var (
		history player.HistoryRecorder
		cache   services.ResolutionCacher
	)
	if config.Database.History {
		db, err := r.openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()

		history = repositories.NewHistoryAdapter(db)
		cache = repositories.NewResolutionCacheAdapter(db, r.logger)
	}

	source, err := r.invidious(ctx)
	if err != nil {
		return err
	}

	resolver, err := r.resolver(source, cache)
	if err != nil {
		return err
	}

	b, err := bot.New(bot.BotOpts{
		Token:   config.Discord.Token,
		GuildID: guildID,
		Logger:  r.logger,
	})
	if err != nil {
		return err
	}

	events := make(chan player.Event, eventBuffer)
	registry := player.NewRegistry(player.RegistryOpts{
		Transport: transport.NewDiscordTransport(b.Voice(), transport.FFmpegOpts{
			Path:        config.Player.FFmpegPath,
			Bitrate:     config.Player.Bitrate,
			Passthrough: config.Player.Passthrough,
			Logger:      r.logger,
		}),
		Events: events,
		Logger: r.logger,
	})

	policy := transport.DefaultReconnectPolicy()
	policy.DelayMax = config.Player.ReconnectDelayMax
	scheduler := player.NewScheduler(registry, player.SchedulerOpts{
		Interval: config.Player.TickInterval,
		Policy:   &policy,
		Logger:   r.logger,
	})

	router := player.NewRouter(player.RouterOpts{
		Resolver: resolver,
		Source:   source,
		Registry: registry,
		History:  history,
		Logger:   r.logger,
	})

	commands := bot.NewCommandRouter()
	commands.Use(bot.Recover(r.logger), bot.Logging(r.logger), bot.RequireVoice(), bot.Timeout(commandTimeout))
	bot.NewHandlers(router, r.logger).Register(commands)
	b.Serve(commands)

	if cmd.Bool("skip-register") {
		r.logger.Info("skipping command registration")
	} else if err := b.RegisterCommands(); err != nil {
		return err
	}

	if err := b.Open(ctx); err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		registry.Close(closeCtx)
		b.Close(closeCtx)
		r.logger.Info("shut down")
	}()

	r.logger.Info("bot is running", "instance", source.Host(), "spotify", config.Credentials.Spotify.Enabled(), "history", config.Database.History)

	go func() {
		if err := scheduler.Run(ctx); err != nil && ctx.Err() == nil {
			r.logger.Error("scheduler stopped", "err", err)
		}
	}()

	if dashboard {
		err := r.runDashboard(ctx, registry, events)
		stop()
		return err
	}

	r.logEvents(ctx, events)
	return nil
}

// logEvents logs queue events until ctx is done.
func (r *Runner) logEvents(ctx context.Context, events <-chan player.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-events:
			logger := r.logger.With("kind", e.Kind, "guild", e.GuildID, "channel", e.Channel)
			if e.Err != nil {
				logger.Warn(e.Message, "err", e.Err)
				continue
			}
			logger.Info(e.Message)
		}
	}
}

// parseID reads a snowflake from config. Empty means zero.
func parseID(s string) (uint64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseUint(s, 10, 64)
}
