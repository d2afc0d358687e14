package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/polyplayer/internal/models"
	"github.com/desertthunder/polyplayer/internal/player"
	"github.com/desertthunder/polyplayer/internal/shared"
)

// HistoryAdapter implements [player.HistoryRecorder] on top of a [PlayRepository].
type HistoryAdapter struct {
	plays *PlayRepository
}

func NewHistoryAdapter(db *sql.DB) *HistoryAdapter {
	return &HistoryAdapter{plays: NewPlayRepository(db)}
}

// RecordPlay stores an accepted request.
func (a *HistoryAdapter) RecordPlay(ctx context.Context, caller player.Caller, item player.MediaItem) error {
	play := models.NewPlayRecord(0, caller.GuildID, uint64(caller.ChannelID), caller.UserID, item.ID(), item.Title(), item.Input)
	play.SetDetails(item.Video.Author, item.Video.LengthSeconds)
	return a.plays.Create(play)
}

// ResolutionCacheAdapter implements services.ResolutionCacher on top of a [ResolutionRepository].
//
// Lookup failures other than a miss are logged and reported as a miss, so a broken cache only
// costs an extra search.
type ResolutionCacheAdapter struct {
	resolutions *ResolutionRepository
	logger      *log.Logger
}

func NewResolutionCacheAdapter(db *sql.DB, logger *log.Logger) *ResolutionCacheAdapter {
	return &ResolutionCacheAdapter{
		resolutions: NewResolutionRepository(db),
		logger:      shared.WithLogger(logger, "component", "resolution-cache"),
	}
}

func (a *ResolutionCacheAdapter) LookupResolution(service, sourceID string) (string, bool) {
	res, err := a.resolutions.GetBySource(service, sourceID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			a.logger.Warn("resolution lookup failed", "service", service, "source", sourceID, "err", err)
		}
		return "", false
	}
	return res.VideoID(), true
}

// StoreResolution records or replaces the video matched for a track.
func (a *ResolutionCacheAdapter) StoreResolution(service, sourceID, videoID, query string) error {
	existing, err := a.resolutions.GetBySource(service, sourceID)
	switch {
	case err == nil:
		existing.SetMatch(videoID, query)
		return a.resolutions.Update(existing)
	case errors.Is(err, ErrNotFound):
		return a.resolutions.Create(models.NewResolution(0, service, sourceID, videoID, query))
	default:
		return err
	}
}
