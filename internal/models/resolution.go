package models

import (
	"fmt"
)

// ServiceSpotify names Spotify as the source of a [Resolution].
const ServiceSpotify = "spotify"

// Resolution maps a track on a third-party service to the video found for it.
type Resolution struct {
	record
	service  string
	sourceID string
	videoID  string
	query    string
}

// NewResolution creates a resolution cache entry. The ID is assigned on insert.
func NewResolution(sequence int, service, sourceID, videoID, query string) *Resolution {
	return &Resolution{
		record:   newRecord(sequence),
		service:  service,
		sourceID: sourceID,
		videoID:  videoID,
		query:    query,
	}
}

func (r *Resolution) Service() string  { return r.service }
func (r *Resolution) SourceID() string { return r.sourceID }
func (r *Resolution) VideoID() string  { return r.videoID }
func (r *Resolution) Query() string    { return r.query }

// SetMatch replaces the matched video, e.g. after the previous one became unavailable.
func (r *Resolution) SetMatch(videoID, query string) {
	r.videoID = videoID
	r.query = query
}

func (r *Resolution) Validate() error {
	if r.id == "" {
		return fmt.Errorf("resolution ID is required")
	}
	if r.service == "" || r.sourceID == "" {
		return fmt.Errorf("service and source ID are required")
	}
	if r.videoID == "" {
		return fmt.Errorf("video ID is required")
	}
	return nil
}
