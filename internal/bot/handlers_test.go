package bot

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/desertthunder/polyplayer/internal/player"
	"github.com/desertthunder/polyplayer/internal/services"
	"github.com/desertthunder/polyplayer/internal/shared"
	tu "github.com/desertthunder/polyplayer/internal/testing"
)

const (
	testGuild   uint64 = 1
	testChannel uint64 = 100
)

type fakeSource struct {
	fetchErr error
}

func (f *fakeSource) Search(ctx context.Context, query string) ([]services.Video, error) {
	return nil, nil
}

func (f *fakeSource) FetchItem(ctx context.Context, id string) (*services.Video, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return &services.Video{VideoID: id, Title: "Title " + id}, nil
}

func (f *fakeSource) NegotiateAudio(ctx context.Context, video *services.Video) (string, error) {
	return "https://audio.test/" + video.VideoID, nil
}

type harness struct {
	router    *CommandRouter
	source    *fakeSource
	transport *tu.MockTransport
	registry  *player.Registry
	scheduler *player.Scheduler
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	src := &fakeSource{}
	mt := tu.NewMockTransport()
	mt.WithGain = true
	registry := player.NewRegistry(player.RegistryOpts{Transport: mt})

	pr := player.NewRouter(player.RouterOpts{
		Resolver: services.NewResolver(services.ResolverOpts{Source: src}),
		Source:   src,
		Registry: registry,
	})

	cr := NewCommandRouter()
	cr.Use(Recover(nil), RequireVoice())
	NewHandlers(pr, nil).Register(cr)

	return &harness{
		router:    cr,
		source:    src,
		transport: mt,
		registry:  registry,
		scheduler: player.NewScheduler(registry, player.SchedulerOpts{}),
	}
}

func (h *harness) run(t *testing.T, command string, opts Options) Reply {
	t.Helper()
	if opts == nil {
		opts = Options{}
	}
	return h.router.Dispatch(context.Background(), &Request{
		Command:        command,
		GuildID:        testGuild,
		UserID:         7,
		VoiceChannelID: testChannel,
		Options:        opts,
	})
}

func (h *harness) play(t *testing.T, ids ...string) {
	t.Helper()
	for _, id := range ids {
		reply := h.run(t, CommandPlay, Options{OptionURL: "https://www.youtube.com/watch?v=" + id})
		if !strings.HasPrefix(reply.Content, "Added ") {
			t.Fatalf("play %s failed: %q", id, reply.Content)
		}
	}
}

func expectReply(t *testing.T, got Reply, content string, ephemeral bool) {
	t.Helper()
	if got.Content != content {
		t.Errorf("expected %q, got %q", content, got.Content)
	}
	if got.Ephemeral != ephemeral {
		t.Errorf("expected ephemeral=%v for %q", ephemeral, got.Content)
	}
}

func TestPlayCommand(t *testing.T) {
	t.Run("adds to queue", func(t *testing.T) {
		h := newHarness(t)
		got := h.run(t, CommandPlay, Options{OptionURL: "https://youtu.be/abc123"})
		expectReply(t, got, "Added [Title abc123](<https://www.youtube.com/watch?v=abc123>) to the queue", false)
	})

	t.Run("errors", func(t *testing.T) {
		tc := []struct {
			name      string
			opts       Options
			fetchErr   error
			connectErr error
			want       string
			ephemeral  bool
		}{
			{name: "missing url", opts: Options{}, want: "You must provide a URL", ephemeral: true},
			{name: "invalid url", opts: Options{OptionURL: "not a url"}, want: "Invalid URL", ephemeral: true},
			{
				name:     "upstream failure",
				opts:     Options{OptionURL: "https://youtu.be/abc"},
				fetchErr: fmt.Errorf("%w: This video is private", shared.ErrUpstream),
				want:     "Error: This video is private",
			},
			{
				name:       "bot busy in another channel",
				opts:       Options{OptionURL: "https://youtu.be/abc"},
				connectErr: fmt.Errorf("%w: guild 1 is held by channel 9", shared.ErrChannelBusy),
				want:       "I'm already playing in another voice channel of this server",
				ephemeral:  true,
			},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				h := newHarness(t)
				h.source.fetchErr = tt.fetchErr
				h.transport.ConnectErr = tt.connectErr
				expectReply(t, h.run(t, CommandPlay, tt.opts), tt.want, tt.ephemeral)
				if h.registry.Len() != 0 {
					t.Error("failed play should not create a queue")
				}
			})
		}
	})

	t.Run("not in voice", func(t *testing.T) {
		h := newHarness(t)
		got := h.router.Dispatch(context.Background(), &Request{Command: CommandPlay, GuildID: testGuild, Options: Options{}})
		expectReply(t, got, "You must be in a voice channel to use this command", true)
	})

	t.Run("resumes paused channel", func(t *testing.T) {
		h := newHarness(t)
		h.play(t, "a")
		h.scheduler.Tick(context.Background())
		expectReply(t, h.run(t, CommandPause, nil), "Paused", false)

		expectReply(t, h.run(t, CommandPlay, nil), "Resumed playback", false)
		if h.transport.Conn(testChannel).IsPaused() {
			t.Error("expected playback to resume")
		}
	})
}

func TestQueueCommand(t *testing.T) {
	t.Run("nothing playing", func(t *testing.T) {
		h := newHarness(t)
		expectReply(t, h.run(t, CommandQueue, nil), "Nothing is currently playing", true)
	})

	t.Run("card", func(t *testing.T) {
		h := newHarness(t)
		h.play(t, "a", "b", "c")
		h.scheduler.Tick(context.Background())

		got := h.run(t, CommandQueue, Options{OptionEphemeral: true})
		if got.Card == nil {
			t.Fatalf("expected a card, got %+v", got)
		}
		if !got.Ephemeral {
			t.Error("expected ephemeral reply")
		}
		if !strings.Contains(got.Card.NowPlaying, "Title a") {
			t.Errorf("unexpected now playing %q", got.Card.NowPlaying)
		}
		if !strings.HasPrefix(got.Card.UpNext, "1. [Title b]") || !strings.Contains(got.Card.UpNext, "2. [Title c]") {
			t.Errorf("unexpected up next %q", got.Card.UpNext)
		}
	})
}

func TestControlCommands(t *testing.T) {
	t.Run("no session", func(t *testing.T) {
		h := newHarness(t)
		for _, cmd := range []string{CommandVolume, CommandPause, CommandResume, CommandLoop, CommandSkip, CommandStop} {
			expectReply(t, h.run(t, cmd, nil), "Nothing is currently playing", true)
		}
	})

	t.Run("volume", func(t *testing.T) {
		h := newHarness(t)
		h.play(t, "a")

		expectReply(t, h.run(t, CommandVolume, nil), "Volume is currently at 100%", true)
		expectReply(t, h.run(t, CommandVolume, Options{OptionVolume: float64(150)}), "Volume set to 150%", false)
		expectReply(t, h.run(t, CommandVolume, Options{OptionVolume: float64(500)}), "Volume set to 200%", false)
		expectReply(t, h.run(t, CommandVolume, Options{OptionVolume: float64(10)}), "Volume set to 50%", false)
		expectReply(t, h.run(t, CommandVolume, nil), "Volume is currently at 50%", true)
	})

	t.Run("pause and resume", func(t *testing.T) {
		h := newHarness(t)
		h.play(t, "a")
		h.scheduler.Tick(context.Background())

		expectReply(t, h.run(t, CommandResume, nil), "Not currently paused", true)
		expectReply(t, h.run(t, CommandPause, nil), "Paused", false)
		expectReply(t, h.run(t, CommandResume, nil), "Resumed", false)
		expectReply(t, h.run(t, CommandPause, nil), "Paused", false)
		expectReply(t, h.run(t, CommandPause, nil), "Resumed", false)
	})

	t.Run("loop", func(t *testing.T) {
		h := newHarness(t)
		h.play(t, "a")

		expectReply(t, h.run(t, CommandLoop, nil), "Looping is now enabled", false)
		expectReply(t, h.run(t, CommandLoop, nil), "Looping is now disabled", false)
		expectReply(t, h.run(t, CommandLoop, Options{OptionEnabled: true}), "Looping is now enabled", false)
		expectReply(t, h.run(t, CommandLoop, Options{OptionEnabled: true}), "Looping is now enabled", false)
	})

	t.Run("skip", func(t *testing.T) {
		h := newHarness(t)
		h.play(t, "a", "b", "c", "d")

		expectReply(t, h.run(t, CommandSkip, nil), "Skipped 1 song", false)
		expectReply(t, h.run(t, CommandSkip, Options{OptionCount: float64(5)}), "Skipped 3 songs", false)
		expectReply(t, h.run(t, CommandSkip, nil), "Nothing is currently playing", true)
	})

	t.Run("stop", func(t *testing.T) {
		h := newHarness(t)
		h.play(t, "a", "b", "c")
		h.scheduler.Tick(context.Background())

		expectReply(t, h.run(t, CommandStop, nil), "Stopped playback and cleared 2 queued", false)
		if h.transport.Conn(testChannel).IsPlaying() {
			t.Error("expected playback to stop")
		}
	})
}
