package transport

import (
	"context"
	"strconv"
	"time"
)

// ReconnectPolicy controls how the decoder recovers from an interrupted network input.
type ReconnectPolicy struct {
	Reconnect bool
	Streamed  bool
	AtEOF     bool
	DelayMax  time.Duration
}

// DefaultReconnectPolicy reconnects on interruption, including streamed inputs, waiting at most 3s.
func DefaultReconnectPolicy() ReconnectPolicy {
	return ReconnectPolicy{Reconnect: true, Streamed: true, DelayMax: 3 * time.Second}
}

// Args renders the policy as ffmpeg input options.
func (p ReconnectPolicy) Args() []string {
	if !p.Reconnect {
		return nil
	}

	args := []string{"-reconnect", "1"}
	if p.Streamed {
		args = append(args, "-reconnect_streamed", "1")
	}
	if p.AtEOF {
		args = append(args, "-reconnect_at_eof", "1")
	}
	if p.DelayMax > 0 {
		secs := max(1, int(p.DelayMax.Round(time.Second)/time.Second))
		args = append(args, "-reconnect_delay_max", strconv.Itoa(secs))
	}
	return args
}

// GainControl adjusts the linear gain of the audio being played. 1.0 is unchanged.
type GainControl interface {
	Gain() float64
	SetGain(gain float64)
}

// Conn is a connection to one voice channel.
type Conn interface {
	// Play replaces whatever is playing with the stream at url and returns once it has started.
	Play(url string, policy ReconnectPolicy) error
	IsPlaying() bool
	IsPaused() bool
	Pause()
	Resume()
	// Stop ends the current stream. The connection stays open.
	Stop()
	Disconnect(ctx context.Context) error
	// Gain reports the volume capability of the connection's audio pipeline.
	Gain() (GainControl, bool)
}

// Transport opens voice connections.
type Transport interface {
	Connect(ctx context.Context, guildID, channelID uint64) (Conn, error)
}
