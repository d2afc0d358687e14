package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
)

// Searcher finds videos for a free-text query, most relevant first.
type Searcher interface {
	Search(ctx context.Context, query string) ([]Video, error)
}

// VideoSource fetches video metadata and negotiates a playable audio URL for it.
type VideoSource interface {
	Searcher
	FetchItem(ctx context.Context, id string) (*Video, error)
	NegotiateAudio(ctx context.Context, video *Video) (string, error)
}

// TrackLookup retrieves third-party track metadata by id.
type TrackLookup interface {
	Track(ctx context.Context, trackID string) (*SpotifyTrack, error)
}

// ResolutionCacher remembers which video a third-party track resolved to.
type ResolutionCacher interface {
	LookupResolution(service, sourceID string) (string, bool)
	StoreResolution(service, sourceID, videoID, query string) error
}

// Video is the metadata Invidious returns for a video or a video search result.
type Video struct {
	VideoID         string           `json:"videoId"`
	Title           string           `json:"title"`
	Author          string           `json:"author"`
	LengthSeconds   int              `json:"lengthSeconds"`
	LiveNow         bool             `json:"liveNow"`
	AdaptiveFormats []AdaptiveFormat `json:"adaptiveFormats"`
	Error           string           `json:"error"`

	// Raw holds the full response body so provider fields not mapped above stay available.
	Raw json.RawMessage `json:"-"`
}

// AdaptiveFormat is a single audio-only or video-only stream of a video.
type AdaptiveFormat struct {
	Itag      FlexInt `json:"itag"`
	Bitrate   FlexInt `json:"bitrate"`
	Type      string  `json:"type"`
	Container string  `json:"container"`
	Encoding  string  `json:"encoding"`
	URL       string  `json:"url"`
}

// FlexInt decodes integers that Invidious sends either as JSON numbers or as numeric strings.
type FlexInt int64

func (f *FlexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*f = 0
			return nil
		}
		data = []byte(s)
	}

	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid integer %q: %w", data, err)
	}
	*f = FlexInt(n)
	return nil
}

func (f FlexInt) String() string {
	return strconv.FormatInt(int64(f), 10)
}
