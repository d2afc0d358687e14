package shared

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")

	// Upstream errors
	ErrNoInstanceAvailable = fmt.Errorf("no usable instance available")
	ErrUpstream            = fmt.Errorf("upstream request failed")
	ErrNoAudioFormat       = fmt.Errorf("no audio-only format available")
	ErrInvalidToken        = fmt.Errorf("access token rejected")
	ErrNoMatch             = fmt.Errorf("no matching item found")

	// Playback errors
	ErrNotVolumeCapable = fmt.Errorf("active source does not support volume control")
	ErrNoActiveSession  = fmt.Errorf("nothing is currently playing")
	ErrNotPaused        = fmt.Errorf("not currently paused")
	ErrNotInVoice       = fmt.Errorf("caller is not in a voice channel")
	ErrChannelBusy      = fmt.Errorf("already playing in another voice channel of this server")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)

// userMessages maps each error kind to the reply shown to the person who issued a command.
//
// Order matters: the first kind matched by [errors.Is] wins.
var userMessages = []struct {
	kind error
	msg  string
}{
	{ErrMissingArgument, "You must provide a URL"},
	{ErrInvalidInput, "Invalid URL"},
	{ErrNotInVoice, "You must be in a voice channel to use this command"},
	{ErrChannelBusy, "I'm already playing in another voice channel of this server"},
	{ErrNoActiveSession, "Nothing is currently playing"},
	{ErrNotPaused, "Not currently paused"},
	{ErrNotVolumeCapable, "Volume can't be changed for this source"},
	{ErrNoMatch, "Couldn't find a matching video"},
	{ErrNoAudioFormat, "No audio stream available for this video"},
	{ErrInvalidCredentials, "Spotify credentials were rejected"},
	{ErrInvalidToken, "Spotify rejected the request, try again"},
	{ErrMissingCredentials, "Spotify links are not configured"},
	{ErrNoInstanceAvailable, "No video instance is available"},
}

// UserMessage renders err as a short, human-readable reply.
//
// Known kinds map to a fixed sentence. Anything else is reported as "Error: <message>",
// where the message is the opaque upstream string with the kind prefix stripped.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	for _, m := range userMessages {
		if errors.Is(err, m.kind) {
			return m.msg
		}
	}

	msg := err.Error()
	for _, kind := range []error{ErrUpstream, ErrInvalidArgument} {
		if errors.Is(err, kind) {
			msg = strings.TrimPrefix(msg, kind.Error()+": ")
			break
		}
	}
	return "Error: " + msg
}
