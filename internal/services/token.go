package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/desertthunder/polyplayer/internal/shared"
)

const (
	spotifyTokenURL = "https://accounts.spotify.com/api/token"

	// TokenRefreshMargin is how long before expiry a cached token stops being reused.
	TokenRefreshMargin = 15 * time.Minute

	defaultSpotifyTimeout = 10 * time.Second
)

// TokenCache holds an app-only access token obtained with the client credentials grant.
//
// A cached token is returned without a network round trip until it is within [TokenRefreshMargin]
// of expiry. Concurrent callers share a single in-flight exchange.
type TokenCache struct {
	mu     sync.Mutex
	config *clientcredentials.Config
	client *http.Client
	margin  time.Duration
	timeout time.Duration
	now     func() time.Time
	token  *oauth2.Token
}

// NewTokenCache creates a cache for the given client credentials. An empty tokenURL uses Spotify's.
func NewTokenCache(clientID, clientSecret, tokenURL string, client *http.Client) *TokenCache {
	if tokenURL == "" {
		tokenURL = spotifyTokenURL
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &TokenCache{
		config: &clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     tokenURL,
			AuthStyle:    oauth2.AuthStyleInParams,
		},
		client:  client,
		margin:  TokenRefreshMargin,
		timeout: defaultSpotifyTimeout,
		now:     time.Now,
	}
}

// Token returns the cached token, exchanging credentials for a new one when absent or near expiry.
func (c *TokenCache) Token(ctx context.Context) (*oauth2.Token, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.fresh() {
		return c.token, nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.client)
	token, err := c.config.Token(ctx)
	if err != nil {
		var rErr *oauth2.RetrieveError
		if errors.As(err, &rErr) && rErr.ErrorCode == "invalid_client" {
			return nil, fmt.Errorf("%w: %s", shared.ErrInvalidCredentials, rErr.ErrorDescription)
		}
		return nil, fmt.Errorf("%w: token exchange failed: %w", shared.ErrUpstream, err)
	}

	c.token = token
	return token, nil
}

// Invalidate drops tok so the next call performs a fresh exchange.
// A token refreshed since tok was handed out is kept.
func (c *TokenCache) Invalidate(tok *oauth2.Token) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == tok {
		c.token = nil
	}
}

func (c *TokenCache) fresh() bool {
	if c.token == nil || c.token.AccessToken == "" {
		return false
	}
	if c.token.Expiry.IsZero() {
		return true
	}
	return c.now().Add(c.margin).Before(c.token.Expiry)
}
