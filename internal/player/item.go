package player

import (
	"github.com/desertthunder/polyplayer/internal/services"
	"github.com/desertthunder/polyplayer/internal/shared"
)

// ChannelID identifies a voice channel.
type ChannelID uint64

// MediaItem is a fully resolved, playable request. It is never modified after construction.
type MediaItem struct {
	Video    services.Video
	AudioURL string
	// Input is the reference exactly as the requester supplied it.
	Input    string
	WatchURL string
}

// NewMediaItem builds an item from fetched metadata and a negotiated audio URL.
func NewMediaItem(video *services.Video, audioURL, input string) MediaItem {
	return MediaItem{
		Video:    *video,
		AudioURL: audioURL,
		Input:    input,
		WatchURL: shared.WatchURL(video.VideoID),
	}
}

func (m MediaItem) Title() string {
	if m.Video.Title == "" {
		return m.Video.VideoID
	}
	return m.Video.Title
}

func (m MediaItem) ID() string {
	return m.Video.VideoID
}
