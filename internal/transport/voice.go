package transport

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/disgoorg/disgo/voice"
	"github.com/disgoorg/snowflake/v2"

	"github.com/desertthunder/polyplayer/internal/shared"
)

// voiceSink is the part of [voice.Conn] that playback needs.
type voiceSink interface {
	SetOpusFrameProvider(handler voice.OpusFrameProvider)
	SetSpeaking(ctx context.Context, flags voice.SpeakingFlags) error
	Close(ctx context.Context)
}

// packetSource yields Opus packets for one item. [*Stream] is the production implementation.
type packetSource interface {
	NextPacket() ([]byte, error)
	Close()
}

// sourceFunc starts a packetSource for url. gain is nil in passthrough mode.
type sourceFunc func(url string, policy ReconnectPolicy, gain *Gain) (packetSource, error)

// frameProvider feeds one source to the voice connection.
// While paused it hands out empty frames, which the sender treats as silence.
type frameProvider struct {
	src    packetSource
	paused *atomic.Bool
	done   atomic.Bool
	once   sync.Once
}

func (p *frameProvider) ProvideOpusFrame() ([]byte, error) {
	if p.done.Load() {
		return nil, io.EOF
	}
	if p.paused.Load() {
		return nil, nil
	}

	packet, err := p.src.NextPacket()
	if err != nil {
		p.Close()
		return nil, err
	}
	return packet, nil
}

func (p *frameProvider) Close() {
	p.once.Do(func() {
		p.done.Store(true)
		go p.src.Close()
	})
}

func (p *frameProvider) active() bool {
	return !p.done.Load()
}

// VoiceConn implements [Conn] on top of a voice connection.
type VoiceConn struct {
	mu      sync.Mutex
	sink    voiceSink
	start   sourceFunc
	gain    *Gain
	paused  atomic.Bool
	current *frameProvider
	release func() // hands the guild back to the transport, may be nil
	logger  *log.Logger
}

func newVoiceConn(sink voiceSink, start sourceFunc, gain *Gain, logger *log.Logger) *VoiceConn {
	return &VoiceConn{sink: sink, start: start, gain: gain, logger: logger}
}

func (c *VoiceConn) Play(url string, policy ReconnectPolicy) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopLocked()

	src, err := c.start(url, policy, c.gain)
	if err != nil {
		return fmt.Errorf("failed to start stream: %w", err)
	}

	c.paused.Store(false)
	c.current = &frameProvider{src: src, paused: &c.paused}
	c.sink.SetOpusFrameProvider(c.current)
	if err := c.sink.SetSpeaking(context.TODO(), voice.SpeakingFlagMicrophone); err != nil {
		c.logger.Warn("failed to set speaking", "err", err)
	}
	return nil
}

func (c *VoiceConn) IsPlaying() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current != nil && c.current.active() && !c.paused.Load()
}

func (c *VoiceConn) IsPaused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current != nil && c.current.active() && c.paused.Load()
}

func (c *VoiceConn) Pause() {
	c.paused.Store(true)
}

func (c *VoiceConn) Resume() {
	c.paused.Store(false)
}

func (c *VoiceConn) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

func (c *VoiceConn) stopLocked() {
	if c.current == nil {
		return
	}
	c.current.Close()
	c.current = nil
	c.paused.Store(false)
	c.sink.SetOpusFrameProvider(nil)
	if err := c.sink.SetSpeaking(context.TODO(), 0); err != nil {
		c.logger.Debug("failed to clear speaking", "err", err)
	}
}

func (c *VoiceConn) Disconnect(ctx context.Context) error {
	c.Stop()
	c.sink.Close(ctx)
	if c.release != nil {
		c.release()
	}
	return nil
}

func (c *VoiceConn) Gain() (GainControl, bool) {
	if c.gain == nil {
		return nil, false
	}
	return c.gain, true
}

// voiceOpener is the part of [voice.Manager] used to create connections.
type voiceOpener interface {
	CreateConn(guildID snowflake.ID) voice.Conn
}

// DiscordTransport opens voice connections through a disgo voice manager.
//
// The manager keeps one connection per guild, so a guild is held by at most one channel
// until that channel's [VoiceConn] disconnects.
type DiscordTransport struct {
	voices voiceOpener
	opts   FFmpegOpts
	logger *log.Logger

	mu     sync.Mutex
	owners map[snowflake.ID]*guildClaim
}

// guildClaim records which channel holds a guild's voice connection. done closes on release.
type guildClaim struct {
	channelID snowflake.ID
	done      chan struct{}
}

// NewDiscordTransport creates a transport backed by the client's voice manager.
func NewDiscordTransport(voices voice.Manager, opts FFmpegOpts) *DiscordTransport {
	return newDiscordTransport(voices, opts)
}

func newDiscordTransport(voices voiceOpener, opts FFmpegOpts) *DiscordTransport {
	opts = opts.withDefaults()
	return &DiscordTransport{
		voices: voices,
		opts:   opts,
		logger: shared.WithLogger(opts.Logger, "component", "voice"),
		owners: make(map[snowflake.ID]*guildClaim),
	}
}

// Connect joins channelID in guildID, self-deafened.
//
// It fails with [shared.ErrChannelBusy] while another channel of the guild holds the connection.
func (t *DiscordTransport) Connect(ctx context.Context, guildID, channelID uint64) (Conn, error) {
	guild, channel := snowflake.ID(guildID), snowflake.ID(channelID)

	claim, err := t.claim(ctx, guild, channel)
	if err != nil {
		return nil, err
	}
	release := func() { t.release(guild, claim) }

	conn := t.voices.CreateConn(guild)
	if err := conn.Open(ctx, channel, false, true); err != nil {
		conn.Close(ctx)
		release()
		return nil, fmt.Errorf("failed to join voice channel %d: %w", channelID, err)
	}

	var gain *Gain
	if !t.opts.Passthrough {
		gain = NewGain(1)
	}

	logger := shared.WithLogger(t.logger, "guild", guildID, "channel", channelID)
	logger.Info("joined voice channel")

	vc := newVoiceConn(conn, t.startStream, gain, logger)
	vc.release = sync.OnceFunc(release)
	return vc, nil
}

// claim takes guild for channel. A previous connection to the same channel that is still
// disconnecting is waited for.
func (t *DiscordTransport) claim(ctx context.Context, guild, channel snowflake.ID) (*guildClaim, error) {
	for {
		t.mu.Lock()
		held, ok := t.owners[guild]
		if !ok {
			claim := &guildClaim{channelID: channel, done: make(chan struct{})}
			t.owners[guild] = claim
			t.mu.Unlock()
			return claim, nil
		}
		t.mu.Unlock()

		if held.channelID != channel {
			return nil, fmt.Errorf("%w: guild %d is held by channel %d", shared.ErrChannelBusy, guild, held.channelID)
		}

		select {
		case <-held.done:
		case <-ctx.Done():
			return nil, fmt.Errorf("failed to join voice channel %d: %w", channel, ctx.Err())
		}
	}
}

// release frees guild if claim still holds it.
func (t *DiscordTransport) release(guild snowflake.ID, claim *guildClaim) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.owners[guild] == claim {
		delete(t.owners, guild)
		close(claim.done)
	}
}

func (t *DiscordTransport) startStream(url string, policy ReconnectPolicy, gain *Gain) (packetSource, error) {
	return StartStream(t.opts, url, policy, gain)
}
