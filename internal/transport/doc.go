// Package transport connects channel queues to a voice backend.
//
// [Transport] opens a [Conn] to one voice channel. A Conn plays one stream at a time,
// fire-and-forget: callers poll [Conn.IsPlaying] and [Conn.IsPaused] to learn when a stream ends.
//
// Streams are produced by ffmpeg. In the default mode ffmpeg decodes to PCM, the gain is applied
// in-process and a second ffmpeg encodes Opus, so the Conn exposes a [GainControl]. In passthrough
// mode a single ffmpeg emits Opus directly and volume cannot be changed.
//
// [DiscordTransport] adapts a disgo voice manager to this contract.
package transport
