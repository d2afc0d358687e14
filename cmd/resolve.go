package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/polyplayer/internal/repositories"
	"github.com/desertthunder/polyplayer/internal/services"
	"github.com/desertthunder/polyplayer/internal/shared"
)

// resolution is the JSON shape printed by Resolve.
type resolution struct {
	Input    string `json:"input"`
	Kind     string `json:"kind"`
	VideoID  string `json:"video_id"`
	Title    string `json:"title,omitempty"`
	Author   string `json:"author,omitempty"`
	Duration string `json:"duration,omitempty"`
	WatchURL string `json:"watch_url"`
	AudioURL string `json:"audio_url,omitempty"`
}

// Resolve resolves a link the way the play command does, without joining a channel.
func (r *Runner) Resolve(ctx context.Context, cmd *cli.Command) error {
	input := cmd.StringArg("url")
	if input == "" {
		return fmt.Errorf("%w: url", shared.ErrMissingArgument)
	}
	if _, err := r.loadConfig(cmd.String("config")); err != nil {
		return err
	}

	kind, _ := services.Classify(input)
	if kind == services.KindUnknown {
		return fmt.Errorf("%w: %q is not a supported URL", shared.ErrInvalidInput, input)
	}

	source, err := r.invidious(ctx)
	if err != nil {
		return err
	}

	var cache services.ResolutionCacher
	if cmd.Bool("cache") {
		db, err := r.openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()
		cache = repositories.NewResolutionCacheAdapter(db, r.logger)
	}

	resolver, err := r.resolver(source, cache)
	if err != nil {
		return err
	}

	videoID, err := resolver.Resolve(ctx, input)
	if err != nil {
		return err
	}

	out := resolution{
		Input:    input,
		Kind:     kind.String(),
		VideoID:  videoID,
		WatchURL: shared.WatchURL(videoID),
	}

	if cmd.Bool("fetch") {
		video, err := source.FetchItem(ctx, videoID)
		if err != nil {
			return err
		}
		audioURL, err := source.NegotiateAudio(ctx, video)
		if err != nil {
			return err
		}

		out.Title = video.Title
		out.Author = video.Author
		out.Duration = shared.FormatDuration(video.LengthSeconds)
		out.AudioURL = audioURL
	}

	if cmd.Bool("json") {
		return r.writeJSON(out, cmd.Bool("pretty"))
	}

	r.writePlain("%s → %s (%s)\n", out.Kind, out.VideoID, out.WatchURL)
	if out.Title != "" {
		r.writePlain("  %s by %s [%s]\n", out.Title, out.Author, out.Duration)
		r.writePlain("  audio: %s\n", out.AudioURL)
	}
	return nil
}

// Search prints the source's results for a query.
func (r *Runner) Search(ctx context.Context, cmd *cli.Command) error {
	query := cmd.StringArg("query")
	if query == "" {
		return fmt.Errorf("%w: query", shared.ErrMissingArgument)
	}
	if _, err := r.loadConfig(cmd.String("config")); err != nil {
		return err
	}

	source, err := r.invidious(ctx)
	if err != nil {
		return err
	}

	results, err := source.Search(ctx, query)
	if err != nil {
		return err
	}
	if limit := int(cmd.Int("limit")); limit > 0 && len(results) > limit {
		results = results[:limit]
	}

	if cmd.Bool("json") {
		return r.writeJSON(results, cmd.Bool("pretty"))
	}

	if len(results) == 0 {
		return r.writePlain("No results for %q\n", query)
	}

	r.writePlainHeader(fmt.Sprintf("Results for %q on %s", query, source.Host()))
	for i, v := range results {
		r.writePlain("%2d. %s - %s [%s]\n    %s\n", i+1, v.Author, v.Title, shared.FormatDuration(v.LengthSeconds), shared.WatchURL(v.VideoID))
	}
	return nil
}

// Instances prints eligible instances ranked the way the bot picks one.
func (r *Runner) Instances(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd.String("config"))
	if err != nil {
		return err
	}

	svc := services.NewInvidiousService(services.InvidiousOpts{
		InstancesURL: config.Invidious.InstancesURL,
		Timeout:      config.Invidious.Timeout,
		Client:       r.httpClient,
		Logger:       r.logger,
	})

	instances, err := svc.Instances(ctx)
	if err != nil {
		return err
	}
	if limit := int(cmd.Int("limit")); limit > 0 && len(instances) > limit {
		instances = instances[:limit]
	}

	if cmd.Bool("json") {
		return r.writeJSON(instances, cmd.Bool("pretty"))
	}

	if len(instances) == 0 {
		return shared.ErrNoInstanceAvailable
	}

	r.writePlainHeader(fmt.Sprintf("%d usable instances", len(instances)))
	for i, inst := range instances {
		r.writePlain("%2d. %-40s %-4s %8d users\n", i+1, inst.URI, inst.Region, inst.ActiveUsers())
	}
	return nil
}
