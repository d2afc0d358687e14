package player

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/desertthunder/polyplayer/internal/services"
	"github.com/desertthunder/polyplayer/internal/shared"
	tu "github.com/desertthunder/polyplayer/internal/testing"
)

type fakeSource struct {
	mu       sync.Mutex
	fetchErr error
	audioErr error
	results  []services.Video
	fetched  []string
}

func (f *fakeSource) Search(ctx context.Context, query string) ([]services.Video, error) {
	return f.results, nil
}

func (f *fakeSource) FetchItem(ctx context.Context, id string) (*services.Video, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetched = append(f.fetched, id)
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return &services.Video{VideoID: id, Title: "Title " + id, Author: "Artist", LengthSeconds: 200}, nil
}

func (f *fakeSource) NegotiateAudio(ctx context.Context, video *services.Video) (string, error) {
	if f.audioErr != nil {
		return "", f.audioErr
	}
	return "https://audio.test/" + video.VideoID, nil
}

type fakeTracks struct{}

func (fakeTracks) Track(ctx context.Context, trackID string) (*services.SpotifyTrack, error) {
	return &services.SpotifyTrack{
		ID:      trackID,
		Name:    "Song",
		Artists: []services.SpotifyArtist{{Name: "Artist"}},
	}, nil
}

type fakeHistory struct {
	mu    sync.Mutex
	plays []string
}

func (h *fakeHistory) RecordPlay(ctx context.Context, caller Caller, item MediaItem) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.plays = append(h.plays, fmt.Sprintf("%d:%s", caller.UserID, item.ID()))
	return nil
}

var testCaller = Caller{GuildID: testGuild, ChannelID: testChannel, UserID: 7}

func newTestRouter(t *testing.T) (*Router, *fakeSource, *tu.MockTransport, *fakeHistory) {
	t.Helper()
	src := &fakeSource{}
	mt := tu.NewMockTransport()
	history := &fakeHistory{}
	resolver := services.NewResolver(services.ResolverOpts{Source: src, Tracks: fakeTracks{}})

	r := NewRouter(RouterOpts{
		Resolver: resolver,
		Source:   src,
		Registry: NewRegistry(RegistryOpts{Transport: mt}),
		History:  history,
	})
	return r, src, mt, history
}

func TestRouterHandlePlay(t *testing.T) {
	t.Run("watch URL is enqueued", func(t *testing.T) {
		r, src, mt, history := newTestRouter(t)

		res, err := r.HandlePlay(context.Background(), testCaller, "https://yewtu.be/watch?v=dQw4w9WgXcQ")
		if err != nil {
			t.Fatalf("HandlePlay failed: %v", err)
		}
		if res.Item == nil || res.Item.ID() != "dQw4w9WgXcQ" || res.Position != 1 {
			t.Fatalf("unexpected result %+v", res)
		}
		if res.Item.WatchURL != "https://www.youtube.com/watch?v=dQw4w9WgXcQ" {
			t.Errorf("unexpected watch URL %s", res.Item.WatchURL)
		}
		if res.Item.AudioURL != "https://audio.test/dQw4w9WgXcQ" {
			t.Errorf("unexpected audio URL %s", res.Item.AudioURL)
		}
		if len(src.fetched) != 1 || mt.Connects() != 1 {
			t.Errorf("expected one fetch and one connect, got %d and %d", len(src.fetched), mt.Connects())
		}
		if len(history.plays) != 1 || history.plays[0] != "7:dQw4w9WgXcQ" {
			t.Errorf("expected play recorded, got %v", history.plays)
		}
	})

	t.Run("spotify track resolves through search", func(t *testing.T) {
		r, src, _, _ := newTestRouter(t)
		src.results = []services.Video{{VideoID: "first"}, {VideoID: "second"}}

		res, err := r.HandlePlay(context.Background(), testCaller, "https://open.spotify.com/track/abc123")
		if err != nil {
			t.Fatalf("HandlePlay failed: %v", err)
		}
		if res.Item.ID() != "first" {
			t.Errorf("expected first search result, got %s", res.Item.ID())
		}
		if res.Item.Input != "https://open.spotify.com/track/abc123" {
			t.Errorf("input should be kept verbatim, got %s", res.Item.Input)
		}
	})

	t.Run("failures leave the registry untouched", func(t *testing.T) {
		tc := []struct {
			name  string
			input string
			setup func(src *fakeSource)
			want  error
		}{
			{name: "empty input", input: "  ", want: shared.ErrMissingArgument},
			{name: "invalid input", input: "not a url", want: shared.ErrInvalidInput},
			{name: "fetch failure", input: "https://youtu.be/abc", setup: func(s *fakeSource) { s.fetchErr = shared.ErrUpstream }, want: shared.ErrUpstream},
			{name: "no audio", input: "https://youtu.be/abc", setup: func(s *fakeSource) { s.audioErr = shared.ErrNoAudioFormat }, want: shared.ErrNoAudioFormat},
			{name: "no search match", input: "https://open.spotify.com/track/abc", want: shared.ErrNoMatch},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				r, src, mt, history := newTestRouter(t)
				if tt.setup != nil {
					tt.setup(src)
				}

				if _, err := r.HandlePlay(context.Background(), testCaller, tt.input); !errors.Is(err, tt.want) {
					t.Errorf("expected %v, got %v", tt.want, err)
				}
				if r.Registry().Len() != 0 || mt.Connects() != 0 {
					t.Errorf("registry touched: %d queues, %d connects", r.Registry().Len(), mt.Connects())
				}
				if len(history.plays) != 0 {
					t.Errorf("nothing should be recorded, got %v", history.plays)
				}
			})
		}
	})

	t.Run("empty input resumes a paused idle channel", func(t *testing.T) {
		r, src, mt, _ := newTestRouter(t)
		if _, err := r.HandlePlay(context.Background(), testCaller, "https://youtu.be/abc"); err != nil {
			t.Fatal(err)
		}
		NewScheduler(r.Registry(), SchedulerOpts{}).Tick(context.Background())
		if _, err := r.TogglePause(testCaller); err != nil {
			t.Fatal(err)
		}

		res, err := r.HandlePlay(context.Background(), testCaller, "")
		if err != nil || !res.Resumed || res.Item != nil {
			t.Fatalf("expected resume only, got %+v (%v)", res, err)
		}
		if !mt.Conn(uint64(testChannel)).IsPlaying() {
			t.Error("expected playback resumed")
		}
		if len(src.fetched) != 1 {
			t.Errorf("resume should not resolve anything, got %v", src.fetched)
		}
	})

	t.Run("paused channel with pending items is not resumed", func(t *testing.T) {
		r, _, mt, _ := newTestRouter(t)
		for _, in := range []string{"https://youtu.be/a", "https://youtu.be/b"} {
			if _, err := r.HandlePlay(context.Background(), testCaller, in); err != nil {
				t.Fatal(err)
			}
		}
		NewScheduler(r.Registry(), SchedulerOpts{}).Tick(context.Background())
		_, _ = r.TogglePause(testCaller)

		if _, err := r.HandlePlay(context.Background(), testCaller, ""); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
		if !mt.Conn(uint64(testChannel)).IsPaused() {
			t.Error("expected channel to stay paused")
		}
	})
}

func TestRouterQueue(t *testing.T) {
	t.Run("nothing playing", func(t *testing.T) {
		r, _, _, _ := newTestRouter(t)
		if _, err := r.Queue(testCaller); !errors.Is(err, shared.ErrNoActiveSession) {
			t.Errorf("expected ErrNoActiveSession, got %v", err)
		}
	})

	t.Run("now playing and up next", func(t *testing.T) {
		r, _, _, _ := newTestRouter(t)
		for _, in := range []string{"https://youtu.be/a", "https://youtu.be/b", "https://youtu.be/c"} {
			if _, err := r.HandlePlay(context.Background(), testCaller, in); err != nil {
				t.Fatal(err)
			}
		}
		NewScheduler(r.Registry(), SchedulerOpts{}).Tick(context.Background())

		state, err := r.Queue(testCaller)
		if err != nil {
			t.Fatalf("Queue failed: %v", err)
		}
		if state.NowPlaying == nil || state.NowPlaying.ID() != "a" {
			t.Errorf("expected a now playing, got %+v", state.NowPlaying)
		}
		if len(state.Pending) != 2 || state.State() != StatePlaying {
			t.Errorf("unexpected state %+v", state)
		}
	})

	t.Run("idle queue with finished item", func(t *testing.T) {
		r, _, mt, _ := newTestRouter(t)
		if _, err := r.HandlePlay(context.Background(), testCaller, "https://youtu.be/a"); err != nil {
			t.Fatal(err)
		}
		NewScheduler(r.Registry(), SchedulerOpts{}).Tick(context.Background())
		mt.Conn(uint64(testChannel)).Finish()

		if _, err := r.Queue(testCaller); !errors.Is(err, shared.ErrNoActiveSession) {
			t.Errorf("expected ErrNoActiveSession, got %v", err)
		}
	})
}
