package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/polyplayer/internal/models"
	"github.com/desertthunder/polyplayer/internal/repositories"
	"github.com/desertthunder/polyplayer/internal/shared"
)

type cachedResolution struct {
	TrackID  string `json:"track_id"`
	VideoID  string `json:"video_id"`
	Query    string `json:"query"`
	Resolved string `json:"resolved_at"`
}

// CacheList prints every cached Spotify track resolution.
func (r *Runner) CacheList(ctx context.Context, cmd *cli.Command) error {
	if _, err := r.loadConfig(cmd.String("config")); err != nil {
		return err
	}

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	resolutions, err := repositories.NewResolutionRepository(db).List(map[string]any{"service": models.ServiceSpotify})
	if err != nil {
		return err
	}

	out := make([]cachedResolution, 0, len(resolutions))
	for _, res := range resolutions {
		out = append(out, cachedResolution{
			TrackID:  res.SourceID(),
			VideoID:  res.VideoID(),
			Query:    res.Query(),
			Resolved: res.UpdatedAt().Local().Format("2006-01-02 15:04"),
		})
	}

	if cmd.Bool("json") {
		return r.writeJSON(out, cmd.Bool("pretty"))
	}

	r.writePlainHeader(fmt.Sprintf("%d cached resolutions", len(out)))
	for _, c := range out {
		r.writePlain("%s → %s  %q (%s)\n", c.TrackID, c.VideoID, c.Query, c.Resolved)
	}
	return nil
}

// CacheForget drops one track's cached resolution so the next play searches again.
func (r *Runner) CacheForget(ctx context.Context, cmd *cli.Command) error {
	trackID := cmd.StringArg("track")
	if trackID == "" {
		return fmt.Errorf("%w: track", shared.ErrMissingArgument)
	}
	if _, err := r.loadConfig(cmd.String("config")); err != nil {
		return err
	}

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	repo := repositories.NewResolutionRepository(db)
	res, err := repo.GetBySource(models.ServiceSpotify, trackID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return r.writePlain("No cached resolution for %s\n", trackID)
		}
		return err
	}

	if err := repo.Delete(res.ID()); err != nil {
		return err
	}
	return r.writePlain("✓ Forgot %s → %s\n", trackID, res.VideoID())
}
