package repositories

import (
	"context"
	"testing"

	"github.com/desertthunder/polyplayer/internal/models"
	"github.com/desertthunder/polyplayer/internal/player"
	"github.com/desertthunder/polyplayer/internal/services"
)

func TestHistoryAdapter(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	adapter := NewHistoryAdapter(db)
	caller := player.Caller{GuildID: 1, ChannelID: 100, UserID: 42}
	video := &services.Video{VideoID: "abc", Title: "Song", Author: "Artist", LengthSeconds: 180}
	item := player.NewMediaItem(video, "https://audio.test/abc", "https://youtu.be/abc")

	if err := adapter.RecordPlay(context.Background(), caller, item); err != nil {
		t.Fatalf("RecordPlay failed: %v", err)
	}

	plays, err := NewPlayRepository(db).List(map[string]any{"channel_id": uint64(100)})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(plays) != 1 {
		t.Fatalf("expected 1 play, got %d", len(plays))
	}

	p := plays[0]
	if p.VideoID() != "abc" || p.Title() != "Song" || p.Author() != "Artist" || p.LengthSeconds() != 180 {
		t.Errorf("unexpected play %s %s %s %d", p.VideoID(), p.Title(), p.Author(), p.LengthSeconds())
	}
	if p.RequestedBy() != 42 || p.GuildID() != 1 || p.Input() != "https://youtu.be/abc" {
		t.Errorf("caller fields not stored: %d %d %s", p.RequestedBy(), p.GuildID(), p.Input())
	}
}

func TestResolutionCacheAdapter(t *testing.T) {
	t.Run("miss then hit", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		cache := NewResolutionCacheAdapter(db, nil)
		if _, ok := cache.LookupResolution(models.ServiceSpotify, "t1"); ok {
			t.Fatal("expected miss")
		}

		if err := cache.StoreResolution(models.ServiceSpotify, "t1", "v1", "Song by Artist"); err != nil {
			t.Fatalf("StoreResolution failed: %v", err)
		}

		videoID, ok := cache.LookupResolution(models.ServiceSpotify, "t1")
		if !ok || videoID != "v1" {
			t.Errorf("expected hit v1, got %q %v", videoID, ok)
		}
	})

	t.Run("store replaces", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		cache := NewResolutionCacheAdapter(db, nil)
		_ = cache.StoreResolution(models.ServiceSpotify, "t1", "v1", "q")
		if err := cache.StoreResolution(models.ServiceSpotify, "t1", "v2", "q"); err != nil {
			t.Fatalf("second store failed: %v", err)
		}

		if videoID, _ := cache.LookupResolution(models.ServiceSpotify, "t1"); videoID != "v2" {
			t.Errorf("expected v2, got %s", videoID)
		}
		if all, _ := NewResolutionRepository(db).List(nil); len(all) != 1 {
			t.Errorf("expected a single row, got %d", len(all))
		}
	})

	t.Run("broken database is a miss", func(t *testing.T) {
		db := setupTestDB(t)
		db.Close()

		if _, ok := NewResolutionCacheAdapter(db, nil).LookupResolution(models.ServiceSpotify, "t1"); ok {
			t.Error("expected miss")
		}
	})

	t.Run("resolver uses the cache", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		cache := NewResolutionCacheAdapter(db, nil)
		_ = cache.StoreResolution(models.ServiceSpotify, "t1", "cached", "q")

		resolver := services.NewResolver(services.ResolverOpts{Tracks: failingTracks{}, Cache: cache})
		videoID, err := resolver.Resolve(context.Background(), "https://open.spotify.com/track/t1")
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if videoID != "cached" {
			t.Errorf("expected cached, got %s", videoID)
		}
	})
}

type failingTracks struct{}

func (failingTracks) Track(ctx context.Context, trackID string) (*services.SpotifyTrack, error) {
	panic("track lookup should be served from the cache")
}
