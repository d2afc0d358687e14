package transport

import (
	"slices"
	"strings"
	"testing"
	"time"
)

func TestReconnectPolicy(t *testing.T) {
	tc := []struct {
		name   string
		policy ReconnectPolicy
		want   string
	}{
		{name: "default", policy: DefaultReconnectPolicy(), want: "-reconnect 1 -reconnect_streamed 1 -reconnect_delay_max 3"},
		{name: "disabled", policy: ReconnectPolicy{}, want: ""},
		{name: "at eof", policy: ReconnectPolicy{Reconnect: true, AtEOF: true}, want: "-reconnect 1 -reconnect_at_eof 1"},
		{name: "sub second delay rounds up", policy: ReconnectPolicy{Reconnect: true, DelayMax: 200 * time.Millisecond}, want: "-reconnect 1 -reconnect_delay_max 1"},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := strings.Join(tt.policy.Args(), " "); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestFFmpegArgs(t *testing.T) {
	policy := DefaultReconnectPolicy()

	t.Run("reconnect options precede the input", func(t *testing.T) {
		for _, args := range [][]string{
			passthroughArgs("https://host/audio", "128k", policy),
			decodeArgs("https://host/audio", policy),
		} {
			input := slices.Index(args, "-i")
			reconnect := slices.Index(args, "-reconnect")
			if reconnect < 0 || input < 0 || reconnect > input {
				t.Errorf("expected -reconnect before -i in %v", args)
			}
			if args[input+1] != "https://host/audio" {
				t.Errorf("expected input URL after -i, got %s", args[input+1])
			}
		}
	})

	t.Run("passthrough emits opus", func(t *testing.T) {
		args := strings.Join(passthroughArgs("u", "96k", policy), " ")
		if !strings.Contains(args, "-acodec libopus -b:a 96k") || !strings.HasSuffix(args, "-f opus pipe:1") {
			t.Errorf("unexpected args %s", args)
		}
	})

	t.Run("gain pipeline speaks pcm in between", func(t *testing.T) {
		dec := strings.Join(decodeArgs("u", policy), " ")
		enc := strings.Join(encodeArgs("128k"), " ")
		if !strings.Contains(dec, "-f s16le -ar 48000 -ac 2 pipe:1") {
			t.Errorf("unexpected decoder args %s", dec)
		}
		if !strings.Contains(enc, "-f s16le -ar 48000 -ac 2 -i pipe:0") {
			t.Errorf("unexpected encoder args %s", enc)
		}
	})

	t.Run("defaults", func(t *testing.T) {
		opts := FFmpegOpts{}.withDefaults()
		if opts.Path != "ffmpeg" || opts.Bitrate != "128k" || opts.Logger == nil {
			t.Errorf("unexpected defaults %+v", opts)
		}
	})
}
