package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/polyplayer/internal/formatter"
	"github.com/desertthunder/polyplayer/internal/repositories"
	"github.com/desertthunder/polyplayer/internal/shared"
)

// History prints or exports recorded plays, newest first.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	if _, err := r.loadConfig(cmd.String("config")); err != nil {
		return err
	}

	criteria := map[string]any{"limit": int(cmd.Int("limit"))}
	for _, key := range []string{"guild", "channel"} {
		id, err := parseID(cmd.String(key))
		if err != nil {
			return fmt.Errorf("%w: --%s must be a numeric id", shared.ErrInvalidArgument, key)
		}
		criteria[key+"_id"] = id
	}

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	plays, err := repositories.NewPlayRepository(db).List(criteria)
	if err != nil {
		return err
	}

	format := cmd.String("format")
	if path := cmd.String("output"); path != "" {
		if err := formatter.WriteExport(plays, format, path); err != nil {
			return err
		}
		r.logger.Info("exported history", "plays", len(plays), "format", format, "path", path)
		return nil
	}

	data, err := formatter.Export(plays, format)
	if err != nil {
		return err
	}
	return r.writePlain("%s", data)
}
