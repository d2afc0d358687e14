// Spotify Web API client for track lookups
//
// Response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/polyplayer/internal/shared"
)

const spotifyBaseURL = "https://api.spotify.com/v1"

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

type externalIDs struct {
	ISRC string `json:"isrc"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Artists     []SpotifyArtist `json:"artists"`
	Album       SpotifyAlbum    `json:"album"`
	DurationMS  int             `json:"duration_ms"`
	Explicit    bool            `json:"explicit"`
	ExternalIDs externalIDs     `json:"external_ids"`
	URI         string          `json:"uri"`
}

// ArtistNames joins the track's artist names with ", ".
func (t SpotifyTrack) ArtistNames() string {
	names := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		names = append(names, a.Name)
	}
	return strings.Join(names, ", ")
}

// SearchQuery renders the track as "<name> by <artist1, artist2>".
func (t SpotifyTrack) SearchQuery() string {
	return t.Name + " by " + t.ArtistNames()
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	ReleaseDate string         `json:"release_date"`
	Images      []SpotifyImage `json:"images"`
}

// SpotifyOpts configures [NewSpotifyService].
type SpotifyOpts struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	APIURL       string
	Timeout      time.Duration // per request, including the token exchange
	Client       *http.Client
	Logger       *log.Logger
}

// SpotifyService implements [TrackLookup] using an app-only token from a [TokenCache].
type SpotifyService struct {
	tokens  *TokenCache
	baseURL string
	timeout time.Duration
	client  *http.Client
	logger  *log.Logger
}

// NewSpotifyService creates a Spotify client. Both client id and secret are required.
func NewSpotifyService(opts SpotifyOpts) (*SpotifyService, error) {
	if opts.ClientID == "" {
		return nil, fmt.Errorf("%w: missing spotify client_id", shared.ErrMissingCredentials)
	}
	if opts.ClientSecret == "" {
		return nil, fmt.Errorf("%w: missing spotify client_secret", shared.ErrMissingCredentials)
	}
	if opts.APIURL == "" {
		opts.APIURL = spotifyBaseURL
	}
	if opts.Client == nil {
		opts.Client = http.DefaultClient
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultSpotifyTimeout
	}

	tokens := NewTokenCache(opts.ClientID, opts.ClientSecret, opts.TokenURL, opts.Client)
	tokens.timeout = opts.Timeout

	return &SpotifyService{
		tokens:  tokens,
		baseURL: strings.TrimRight(opts.APIURL, "/"),
		timeout: opts.Timeout,
		client:  opts.Client,
		logger:  shared.WithLogger(opts.Logger, "component", "spotify"),
	}, nil
}

// NewSpotifyServiceFromConfig creates a client from the credentials section of the config.
func NewSpotifyServiceFromConfig(cfg shared.SpotifyConfig, client *http.Client, logger *log.Logger) (*SpotifyService, error) {
	return NewSpotifyService(SpotifyOpts{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
		APIURL:       cfg.APIURL,
		Client:       client,
		Logger:       logger,
	})
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// Tokens exposes the token cache, mainly for diagnostics.
func (s *SpotifyService) Tokens() *TokenCache {
	return s.tokens
}

// Track retrieves a single track by ID.
func (s *SpotifyService) Track(ctx context.Context, trackID string) (*SpotifyTrack, error) {
	var track SpotifyTrack
	if err := s.doRequest(ctx, http.MethodGet, "/tracks/"+url.PathEscape(trackID), &track); err != nil {
		return nil, err
	}
	return &track, nil
}

// doRequest performs a bearer-authenticated request to the Spotify API.
//
// A 401 drops the token the request was made with before returning [shared.ErrInvalidToken].
func (s *SpotifyService) doRequest(ctx context.Context, method, endpoint string, result any) error {
	token, err := s.tokens.Token(ctx)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: request failed: %w", shared.ErrUpstream, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		s.tokens.Invalidate(token)
		s.logger.Warn("access token rejected, dropping cached token", "endpoint", endpoint)
		return fmt.Errorf("%w: spotify returned 401 for %s", shared.ErrInvalidToken, endpoint)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("%w: spotify API error: status %d", shared.ErrUpstream, resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("%w: failed to decode response: %w", shared.ErrUpstream, err)
		}
	}
	return nil
}
