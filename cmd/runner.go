package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/polyplayer/internal/services"
	"github.com/desertthunder/polyplayer/internal/shared"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		runCommand, resolveCommand, searchCommand, instancesCommand, historyCommand, cacheCommand, setupCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// before reloads the config when --config names another file and applies --debug.
func (r *Runner) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.Bool("debug") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}
	return ctx, nil
}

// SetLogger replaces the logger, e.g. to keep log output away from the dashboard.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

// loadConfig reloads the config from path when it differs from the one loaded at startup.
func (r *Runner) loadConfig(path string) (*shared.Config, error) {
	if path == "" || path == r.configPath {
		return r.config, nil
	}

	config, err := shared.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	config.ApplyEnv()

	r.config, r.configPath = config, path
	return config, nil
}

// invidious creates the video source and selects its instance.
func (r *Runner) invidious(ctx context.Context) (*services.InvidiousService, error) {
	cfg := r.config.Invidious
	svc := services.NewInvidiousService(services.InvidiousOpts{
		HostURL:      cfg.HostURL,
		InstancesURL: cfg.InstancesURL,
		Timeout:      cfg.Timeout,
		RateLimit:    cfg.RateLimit,
		Client:       r.httpClient,
		Logger:       r.logger,
	})

	if _, err := svc.Load(ctx); err != nil {
		return nil, fmt.Errorf("failed to select instance: %w", err)
	}
	return svc, nil
}

// spotify returns nil without an error when no Spotify credentials are configured.
func (r *Runner) spotify() (*services.SpotifyService, error) {
	if !r.config.Credentials.Spotify.Enabled() {
		return nil, nil
	}
	return services.NewSpotifyServiceFromConfig(r.config.Credentials.Spotify, r.httpClient, r.logger)
}

// resolver wires the source, Spotify lookups when configured and the optional resolution cache.
func (r *Runner) resolver(source services.Searcher, cache services.ResolutionCacher) (*services.Resolver, error) {
	opts := services.ResolverOpts{Source: source, Logger: r.logger}

	spotify, err := r.spotify()
	if err != nil {
		return nil, err
	}
	if spotify != nil {
		opts.Tracks = spotify
	}
	if cache != nil {
		opts.Cache = cache
	}
	return services.NewResolver(opts), nil
}

func (r *Runner) openDatabase() (*sql.DB, error) {
	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
