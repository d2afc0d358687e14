package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/polyplayer/internal/models"
	"github.com/desertthunder/polyplayer/internal/shared"
)

// InputKind classifies a user supplied reference.
type InputKind int

const (
	KindUnknown InputKind = iota
	KindWatchURL
	KindYouTubeURL
	KindSpotifyTrack
)

func (k InputKind) String() string {
	switch k {
	case KindWatchURL:
		return "watch-url"
	case KindYouTubeURL:
		return "youtube-url"
	case KindSpotifyTrack:
		return "spotify-track"
	default:
		return "unknown"
	}
}

// Matchers are tried in this order against the whole input.
var (
	watchURLPattern     = regexp.MustCompile(`^.+watch\?v=(?P<id>[a-zA-Z0-9_-]+)$`)
	youtubeURLPattern   = regexp.MustCompile(`^https?://(?:(?:www\.)?youtube\.[a-z]+/watch(?:\?v=|/)|youtu\.be(?:/watch/*\?v=|/))(?P<id>[0-9a-zA-Z_-]+)(?:$|&)`)
	spotifyTrackPattern = regexp.MustCompile(`^https?://open\.spotify\.com/track/(?P<id>\w+)`)
)

// Classify reports which reference format input matches and the id it carries.
func Classify(input string) (InputKind, string) {
	input = strings.TrimSpace(input)

	for _, m := range []struct {
		kind    InputKind
		pattern *regexp.Regexp
	}{
		{KindWatchURL, watchURLPattern},
		{KindYouTubeURL, youtubeURLPattern},
		{KindSpotifyTrack, spotifyTrackPattern},
	} {
		if match := m.pattern.FindStringSubmatch(input); match != nil {
			return m.kind, match[m.pattern.SubexpIndex("id")]
		}
	}
	return KindUnknown, ""
}

// ResolverOpts configures [NewResolver]. Tracks and Cache are optional.
type ResolverOpts struct {
	Source Searcher
	Tracks TrackLookup
	Cache  ResolutionCacher
	Logger *log.Logger
}

// Resolver turns input references into canonical video ids.
type Resolver struct {
	source Searcher
	tracks TrackLookup
	cache  ResolutionCacher
	logger *log.Logger
}

// NewResolver creates a resolver. Without Tracks, Spotify links fail with [shared.ErrMissingCredentials].
func NewResolver(opts ResolverOpts) *Resolver {
	return &Resolver{
		source: opts.Source,
		tracks: opts.Tracks,
		cache:  opts.Cache,
		logger: shared.WithLogger(opts.Logger, "component", "resolver"),
	}
}

// Resolve returns the canonical video id for input.
//
// Input matching no known format fails with [shared.ErrInvalidInput].
func (r *Resolver) Resolve(ctx context.Context, input string) (string, error) {
	kind, id := Classify(input)
	switch kind {
	case KindWatchURL, KindYouTubeURL:
		return id, nil
	case KindSpotifyTrack:
		return r.ResolveTrack(ctx, id)
	default:
		return "", fmt.Errorf("%w: %q is not a supported URL", shared.ErrInvalidInput, input)
	}
}

// ResolveTrack finds the video matching a Spotify track by searching for its name and artists.
func (r *Resolver) ResolveTrack(ctx context.Context, trackID string) (string, error) {
	if r.tracks == nil {
		return "", fmt.Errorf("%w: spotify client is not configured", shared.ErrMissingCredentials)
	}

	if r.cache != nil {
		if videoID, ok := r.cache.LookupResolution(models.ServiceSpotify, trackID); ok {
			r.logger.Debug("resolution cache hit", "track", trackID, "video", videoID)
			return videoID, nil
		}
	}

	track, err := r.tracks.Track(ctx, trackID)
	if err != nil {
		return "", err
	}

	query := track.SearchQuery()
	results, err := r.source.Search(ctx, query)
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		return "", fmt.Errorf("%w: %q", shared.ErrNoMatch, query)
	}

	videoID := results[0].VideoID
	r.logger.Debug("resolved spotify track", "track", trackID, "query", query, "video", videoID)

	if r.cache != nil {
		if err := r.cache.StoreResolution(models.ServiceSpotify, trackID, videoID, query); err != nil {
			r.logger.Warn("failed to cache resolution", "track", trackID, "err", err)
		}
	}
	return videoID, nil
}
