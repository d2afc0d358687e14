// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   defaultConfigPath,
	}
}

func debugFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "debug",
		Usage: "Enable debug logging",
	}
}

func jsonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print output",
			Value: true,
		},
	}
}

// runCommand starts the bot
func runCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Connect to Discord and start the playback scheduler",
		Flags: []cli.Flag{
			configFlag(),
			&cli.BoolFlag{
				Name:  "tui",
				Usage: "Show the channel dashboard (logs go to --log-file)",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Log file used while the dashboard is open",
				Value: "./tmp/polyplayer.log",
			},
			&cli.BoolFlag{
				Name:  "skip-register",
				Usage: "Skip slash command registration",
			},
		},
		Action: r.Run,
	}
}

// resolveCommand turns a link into a video id, optionally fetching its metadata and audio URL
func resolveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "resolve",
		Usage: "Resolve a YouTube, Invidious or Spotify track URL to a video",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "url"},
		},
		Flags: append([]cli.Flag{
			configFlag(),
			&cli.BoolFlag{
				Name:  "fetch",
				Usage: "Fetch metadata and negotiate an audio URL",
			},
			&cli.BoolFlag{
				Name:  "cache",
				Usage: "Use the resolution cache in the database",
			},
		}, jsonFlags()...),
		Action: r.Resolve,
	}
}

// searchCommand queries the selected instance
func searchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "search",
		Usage: "Search the video source",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "query"},
		},
		Flags: append([]cli.Flag{
			configFlag(),
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of results",
				Value: 10,
			},
		}, jsonFlags()...),
		Action: r.Search,
	}
}

// instancesCommand lists eligible instances from the directory
func instancesCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "instances",
		Usage: "List usable Invidious instances, busiest first",
		Flags: append([]cli.Flag{
			configFlag(),
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of instances",
				Value: 20,
			},
		}, jsonFlags()...),
		Action: r.Instances,
	}
}

// historyCommand exports recorded plays
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show or export play history",
		Flags: []cli.Flag{
			configFlag(),
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of plays",
				Value: 50,
			},
			&cli.StringFlag{
				Name:  "guild",
				Usage: "Only plays in this guild",
			},
			&cli.StringFlag{
				Name:  "channel",
				Usage: "Only plays in this voice channel",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: text, csv or md",
				Value:   "text",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write to a file instead of stdout",
			},
		},
		Action: r.History,
	}
}

// cacheCommand manages cached Spotify resolutions
func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect the Spotify resolution cache",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List cached resolutions",
				Flags:  append([]cli.Flag{configFlag()}, jsonFlags()...),
				Action: r.CacheList,
			},
			{
				Name:  "forget",
				Usage: "Drop the cached resolution of a Spotify track",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "track"},
				},
				Flags:  []cli.Flag{configFlag()},
				Action: r.CacheForget,
			},
		},
	}
}

// setupCommand handles setup operations for configuration and the database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write an example config.toml",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupDatabase,
			},
			{
				Name:   "status",
				Usage:  "Show applied migrations",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupStatus,
			},
			{
				Name:   "rollback",
				Usage:  "Roll back the latest migration",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupRollback,
			},
		},
	}
}
