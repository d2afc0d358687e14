package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/polyplayer/internal/shared"
)

const trackJSON = `{
	"id": "4uLU6hMCjMI75M1A2tKUQC",
	"name": "Song",
	"artists": [{"id": "a1", "name": "Artist"}, {"id": "a2", "name": "Guest"}],
	"album": {"id": "al", "name": "Album"},
	"duration_ms": 180000
}`

// spotifyStub serves the token and track endpoints and counts token exchanges.
type spotifyStub struct {
	server    *httptest.Server
	exchanges atomic.Int32
	tokenErr   string
	trackCode  atomic.Int32
	tokenDelay atomic.Int64
	trackDelay atomic.Int64
}

// stall holds the request for d or until the client gives up.
func stall(r *http.Request, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-r.Context().Done():
	case <-time.After(d):
	}
}

func newSpotifyStub(t *testing.T, tokenErr string) *spotifyStub {
	t.Helper()
	stub := &spotifyStub{tokenErr: tokenErr}
	stub.trackCode.Store(http.StatusOK)
	stub.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/token":
			stall(r, time.Duration(stub.tokenDelay.Load()))
			if err := r.ParseForm(); err != nil {
				t.Errorf("failed to parse token form: %v", err)
			}
			if r.Form.Get("grant_type") != "client_credentials" {
				t.Errorf("expected client_credentials grant, got %q", r.Form.Get("grant_type"))
			}
			n := stub.exchanges.Add(1)

			w.Header().Set("Content-Type", "application/json")
			if stub.tokenErr != "" {
				w.WriteHeader(http.StatusBadRequest)
				fmt.Fprintf(w, `{"error": %q, "error_description": "Invalid client"}`, stub.tokenErr)
				return
			}
			fmt.Fprintf(w, `{"access_token": "token-%d", "token_type": "Bearer", "expires_in": 3600}`, n)
		case strings.HasPrefix(r.URL.Path, "/v1/tracks/"):
			stall(r, time.Duration(stub.trackDelay.Load()))
			if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer token-") {
				t.Errorf("missing bearer token, got %q", r.Header.Get("Authorization"))
			}
			if code := int(stub.trackCode.Load()); code != http.StatusOK {
				w.WriteHeader(code)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, trackJSON)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	t.Cleanup(stub.server.Close)
	return stub
}

func (s *spotifyStub) service(t *testing.T) *SpotifyService {
	t.Helper()
	return s.serviceWithTimeout(t, 0)
}

func (s *spotifyStub) serviceWithTimeout(t *testing.T, timeout time.Duration) *SpotifyService {
	t.Helper()
	svc, err := NewSpotifyService(SpotifyOpts{
		ClientID:     "test_client_id",
		ClientSecret: "test_client_secret",
		TokenURL:     s.server.URL + "/api/token",
		APIURL:       s.server.URL + "/v1",
		Timeout:      timeout,
	})
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	return svc
}

func TestSpotifyService(t *testing.T) {
	t.Run("NewSpotifyService", func(t *testing.T) {
		t.Run("With Valid Credentials", func(t *testing.T) {
			svc, err := NewSpotifyService(SpotifyOpts{ClientID: "id", ClientSecret: "secret"})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if svc.Name() != "Spotify" {
				t.Errorf("expected service name 'Spotify', got %s", svc.Name())
			}
			if svc.baseURL != spotifyBaseURL {
				t.Errorf("expected default base URL, got %s", svc.baseURL)
			}
		})

		t.Run("Missing Client ID", func(t *testing.T) {
			if _, err := NewSpotifyService(SpotifyOpts{ClientSecret: "secret"}); !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("Missing Client Secret", func(t *testing.T) {
			if _, err := NewSpotifyService(SpotifyOpts{ClientID: "id"}); !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("From Config", func(t *testing.T) {
			cfg := shared.DefaultConfig().Credentials.Spotify
			cfg.ClientID, cfg.ClientSecret = "id", "secret"

			svc, err := NewSpotifyServiceFromConfig(cfg, nil, nil)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if svc.tokens.config.TokenURL != "https://accounts.spotify.com/api/token" {
				t.Errorf("unexpected token URL %s", svc.tokens.config.TokenURL)
			}
		})
	})

	t.Run("Track", func(t *testing.T) {
		stub := newSpotifyStub(t, "")
		svc := stub.service(t)

		track, err := svc.Track(context.Background(), "4uLU6hMCjMI75M1A2tKUQC")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if track.Name != "Song" {
			t.Errorf("expected name Song, got %s", track.Name)
		}
		if got := track.SearchQuery(); got != "Song by Artist, Guest" {
			t.Errorf("unexpected search query %q", got)
		}
	})

	t.Run("Token Reuse", func(t *testing.T) {
		stub := newSpotifyStub(t, "")
		svc := stub.service(t)

		for range 3 {
			if _, err := svc.Track(context.Background(), "id"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
		}
		if n := stub.exchanges.Load(); n != 1 {
			t.Errorf("expected a single token exchange, got %d", n)
		}
	})

	t.Run("Unauthorized drops token", func(t *testing.T) {
		stub := newSpotifyStub(t, "")
		svc := stub.service(t)
		stub.trackCode.Store(http.StatusUnauthorized)

		_, err := svc.Track(context.Background(), "id")
		if !errors.Is(err, shared.ErrInvalidToken) {
			t.Fatalf("expected ErrInvalidToken, got %v", err)
		}

		stub.trackCode.Store(http.StatusOK)
		if _, err := svc.Track(context.Background(), "id"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if n := stub.exchanges.Load(); n != 2 {
			t.Errorf("expected a fresh exchange after 401, got %d exchanges", n)
		}
	})

	t.Run("API Error", func(t *testing.T) {
		stub := newSpotifyStub(t, "")
		svc := stub.service(t)
		stub.trackCode.Store(http.StatusNotFound)

		if _, err := svc.Track(context.Background(), "missing"); !errors.Is(err, shared.ErrUpstream) {
			t.Errorf("expected ErrUpstream, got %v", err)
		}
	})

	t.Run("Invalid Client", func(t *testing.T) {
		stub := newSpotifyStub(t, "invalid_client")
		svc := stub.service(t)

		if _, err := svc.Track(context.Background(), "id"); !errors.Is(err, shared.ErrInvalidCredentials) {
			t.Errorf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("Slow Token Exchange", func(t *testing.T) {
		stub := newSpotifyStub(t, "")
		stub.tokenDelay.Store(int64(2 * time.Second))
		svc := stub.serviceWithTimeout(t, 50*time.Millisecond)

		start := time.Now()
		if _, err := svc.Track(context.Background(), "id"); !errors.Is(err, shared.ErrUpstream) {
			t.Errorf("expected ErrUpstream, got %v", err)
		}
		if elapsed := time.Since(start); elapsed > time.Second {
			t.Errorf("token exchange was not bounded, took %v", elapsed)
		}
	})

	t.Run("Slow Track Lookup", func(t *testing.T) {
		stub := newSpotifyStub(t, "")
		stub.trackDelay.Store(int64(2 * time.Second))
		svc := stub.serviceWithTimeout(t, 50*time.Millisecond)

		start := time.Now()
		if _, err := svc.Track(context.Background(), "id"); !errors.Is(err, shared.ErrUpstream) {
			t.Errorf("expected ErrUpstream, got %v", err)
		}
		if elapsed := time.Since(start); elapsed > time.Second {
			t.Errorf("track lookup was not bounded, took %v", elapsed)
		}
	})

	t.Run("Other Token Error", func(t *testing.T) {
		stub := newSpotifyStub(t, "server_error")
		svc := stub.service(t)

		if _, err := svc.Track(context.Background(), "id"); !errors.Is(err, shared.ErrUpstream) {
			t.Errorf("expected ErrUpstream, got %v", err)
		}
	})
}

func TestTokenCache(t *testing.T) {
	t.Run("reuses token until refresh margin", func(t *testing.T) {
		stub := newSpotifyStub(t, "")
		cache := NewTokenCache("id", "secret", stub.server.URL+"/api/token", nil)

		now := time.Now()
		cache.now = func() time.Time { return now }

		first, err := cache.Token(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		now = now.Add(30 * time.Minute)
		second, err := cache.Token(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if first.AccessToken != second.AccessToken || stub.exchanges.Load() != 1 {
			t.Errorf("expected cached token to be reused, got %d exchanges", stub.exchanges.Load())
		}

		now = now.Add(20 * time.Minute)
		third, err := cache.Token(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if third.AccessToken == first.AccessToken || stub.exchanges.Load() != 2 {
			t.Errorf("expected refresh inside margin, got %d exchanges", stub.exchanges.Load())
		}
	})

	t.Run("refreshes after expiry", func(t *testing.T) {
		stub := newSpotifyStub(t, "")
		cache := NewTokenCache("id", "secret", stub.server.URL+"/api/token", nil)

		now := time.Now()
		cache.now = func() time.Time { return now }

		if _, err := cache.Token(context.Background()); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		now = now.Add(2 * time.Hour)
		if _, err := cache.Token(context.Background()); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if n := stub.exchanges.Load(); n != 2 {
			t.Errorf("expected 2 exchanges, got %d", n)
		}
	})

	t.Run("concurrent callers share one exchange", func(t *testing.T) {
		stub := newSpotifyStub(t, "")
		cache := NewTokenCache("id", "secret", stub.server.URL+"/api/token", nil)

		var wg sync.WaitGroup
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := cache.Token(context.Background()); err != nil {
					t.Errorf("expected no error, got %v", err)
				}
			}()
		}
		wg.Wait()

		if n := stub.exchanges.Load(); n != 1 {
			t.Errorf("expected 1 exchange, got %d", n)
		}
	})

	t.Run("Invalidate", func(t *testing.T) {
		stub := newSpotifyStub(t, "")
		cache := NewTokenCache("id", "secret", stub.server.URL+"/api/token", nil)

		token, err := cache.Token(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		cache.Invalidate(token)
		if _, err := cache.Token(context.Background()); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if n := stub.exchanges.Load(); n != 2 {
			t.Errorf("expected 2 exchanges, got %d", n)
		}
	})

	t.Run("Invalidate with a stale token keeps the fresh one", func(t *testing.T) {
		stub := newSpotifyStub(t, "")
		cache := NewTokenCache("id", "secret", stub.server.URL+"/api/token", nil)

		stale, err := cache.Token(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		cache.Invalidate(stale)
		fresh, err := cache.Token(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		cache.Invalidate(stale)
		again, err := cache.Token(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if again.AccessToken != fresh.AccessToken {
			t.Errorf("expected %s to survive a stale invalidate, got %s", fresh.AccessToken, again.AccessToken)
		}
		if n := stub.exchanges.Load(); n != 2 {
			t.Errorf("expected 2 exchanges, got %d", n)
		}
	})
}
