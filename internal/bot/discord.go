package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/charmbracelet/log"
	"github.com/disgoorg/disgo"
	disgobot "github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/cache"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/gateway"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/disgo/voice"
	"github.com/disgoorg/godave/golibdave"
	"github.com/disgoorg/snowflake/v2"

	"github.com/desertthunder/polyplayer/internal/formatter"
	"github.com/desertthunder/polyplayer/internal/shared"
)

const commandTimeout = 30 * time.Second

// BotOpts configures [New].
type BotOpts struct {
	Token string
	// GuildID registers commands to a single guild instead of globally. Zero means global.
	GuildID uint64
	Logger  *log.Logger
}

// Bot is the Discord front end: gateway connection, slash commands and voice manager.
type Bot struct {
	client   *disgobot.Client
	commands *CommandRouter
	guildID  uint64
	logger   *log.Logger
}

// New creates the disgo client. Call [Bot.Serve] before [Bot.Open].
func New(opts BotOpts) (*Bot, error) {
	if opts.Token == "" {
		return nil, fmt.Errorf("%w: discord token", shared.ErrMissingCredentials)
	}

	b := &Bot{
		guildID: opts.GuildID,
		logger:  shared.WithLogger(opts.Logger, "component", "discord"),
	}

	client, err := disgo.New(opts.Token,
		disgobot.WithGatewayConfigOpts(
			gateway.WithIntents(
				gateway.IntentGuilds,
				gateway.IntentGuildVoiceStates,
			),
		),
		disgobot.WithCacheConfigOpts(
			cache.WithCaches(cache.FlagGuilds, cache.FlagVoiceStates),
		),
		disgobot.WithVoiceManagerConfigOpts(
			voice.WithDaveSessionCreateFunc(golibdave.NewSession),
		),
		disgobot.WithEventListenerFunc(b.onCommand),
		disgobot.WithLogger(slog.New(b.logger)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord client: %w", err)
	}

	b.client = client
	return b, nil
}

// Voice returns the client's voice manager for the transport.
func (b *Bot) Voice() voice.Manager {
	return b.client.VoiceManager
}

// Serve sets the router that interactions are dispatched to.
func (b *Bot) Serve(commands *CommandRouter) {
	b.commands = commands
}

// RegisterCommands publishes the slash command definitions.
func (b *Bot) RegisterCommands() error {
	cmds := Commands()

	if b.guildID != 0 {
		if _, err := b.client.Rest.SetGuildCommands(b.client.ApplicationID, snowflake.ID(b.guildID), cmds); err != nil {
			return fmt.Errorf("failed to register guild commands: %w", err)
		}
		b.logger.Info("registered guild commands", "guild", b.guildID, "count", len(cmds))
		return nil
	}

	if _, err := b.client.Rest.SetGlobalCommands(b.client.ApplicationID, cmds); err != nil {
		return fmt.Errorf("failed to register global commands: %w", err)
	}
	b.logger.Info("registered global commands", "count", len(cmds))
	return nil
}

// Open connects to the gateway.
func (b *Bot) Open(ctx context.Context) error {
	if b.commands == nil {
		return fmt.Errorf("%w: no command router", shared.ErrInvalidConfig)
	}
	if err := b.client.OpenGateway(ctx); err != nil {
		return fmt.Errorf("failed to open gateway: %w", err)
	}
	return nil
}

func (b *Bot) Close(ctx context.Context) {
	b.client.Close(ctx)
}

func (b *Bot) onCommand(event *events.ApplicationCommandInteractionCreate) {
	if b.commands == nil {
		return
	}
	data, ok := event.Data.(discord.SlashCommandInteractionData)
	if !ok {
		return
	}

	go b.handle(event, data)
}

func (b *Bot) handle(event *events.ApplicationCommandInteractionCreate, data discord.SlashCommandInteractionData) {
	req := &Request{
		Command: data.CommandName(),
		UserID:  uint64(event.User().ID),
		Options: optionsFrom(data),
	}
	if guildID := event.GuildID(); guildID != nil {
		req.GuildID = uint64(*guildID)
		if vs, ok := event.Client().Caches.VoiceState(*guildID, event.User().ID); ok && vs.ChannelID != nil {
			req.VoiceChannelID = uint64(*vs.ChannelID)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	if !b.commands.Deferred(req.Command) {
		reply := b.commands.Dispatch(ctx, req)
		if err := event.CreateMessage(MessageCreate(reply)); err != nil {
			b.logger.Warn("failed to reply", "command", req.Command, "err", err)
		}
		return
	}

	if err := event.DeferCreateMessage(false); err != nil {
		b.logger.Warn("failed to defer reply", "command", req.Command, "err", err)
		return
	}
	reply := b.commands.Dispatch(ctx, req)
	if err := sendDeferred(event.Client().Rest, event.ApplicationID(), event.Token(), reply); err != nil {
		b.logger.Warn("failed to update reply", "command", req.Command, "err", err)
	}
}

// interactionResponder is the part of [rest.Interactions] that completes a deferred response.
type interactionResponder interface {
	UpdateInteractionResponse(applicationID snowflake.ID, interactionToken string, messageUpdate discord.MessageUpdate, opts ...rest.RequestOpt) (*discord.Message, error)
	DeleteInteractionResponse(applicationID snowflake.ID, interactionToken string, opts ...rest.RequestOpt) error
	CreateFollowupMessage(applicationID snowflake.ID, interactionToken string, messageCreate discord.MessageCreate, opts ...rest.RequestOpt) (*discord.Message, error)
}

// sendDeferred fills in a deferred response. The deferral is public, so an ephemeral reply
// replaces it with an ephemeral follow-up.
func sendDeferred(r interactionResponder, applicationID snowflake.ID, token string, reply Reply) error {
	if !reply.Ephemeral {
		_, err := r.UpdateInteractionResponse(applicationID, token, MessageUpdate(reply))
		return err
	}

	if err := r.DeleteInteractionResponse(applicationID, token); err != nil {
		return err
	}
	_, err := r.CreateFollowupMessage(applicationID, token, MessageCreate(reply))
	return err
}

// optionsFrom decodes every top-level option value.
func optionsFrom(data discord.SlashCommandInteractionData) Options {
	opts := make(Options, len(data.Options))
	for name, opt := range data.Options {
		var v any
		if err := json.Unmarshal(opt.Value, &v); err == nil {
			opts[name] = v
		}
	}
	return opts
}

// MessageCreate renders a reply as a new interaction response.
func MessageCreate(r Reply) discord.MessageCreate {
	builder := discord.NewMessageCreateBuilder().
		SetContent(r.Content).
		SetEphemeral(r.Ephemeral)
	if r.Card != nil {
		builder.SetEmbeds(Embed(*r.Card))
	}
	return builder.Build()
}

// MessageUpdate renders a reply as an edit of a deferred response.
func MessageUpdate(r Reply) discord.MessageUpdate {
	builder := discord.NewMessageUpdateBuilder().SetContent(r.Content)
	if r.Card != nil {
		builder.SetEmbeds(Embed(*r.Card))
	}
	return builder.Build()
}

// Embed draws a queue card. The "Up next" listing goes in the description, whose limit is larger than a field's.
func Embed(card formatter.QueueCard) discord.Embed {
	builder := discord.NewEmbedBuilder().
		SetTitle(card.Title).
		SetColor(card.Color).
		SetFooterText(card.Footer)
	if card.NowPlaying != "" {
		builder.AddField("Now playing", card.NowPlaying, false)
	}
	if card.UpNext != "" {
		builder.SetDescription("**Up next**\n" + card.UpNext)
	}
	return builder.Build()
}
