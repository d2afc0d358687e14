package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Environment variables that override secrets from the config file.
const (
	EnvDiscordToken        = "DISCORD_TOKEN"
	EnvSpotifyClientID     = "SPOTIFY_CLIENT_ID"
	EnvSpotifyClientSecret = "SPOTIFY_CLIENT_SECRET"
	EnvInvidiousHost       = "INVIDIOUS_HOST_URL"
)

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Discord     DiscordConfig     `toml:"discord"`
	Invidious   InvidiousConfig   `toml:"invidious"`
	Credentials CredentialsConfig `toml:"credentials"`
	Player      PlayerConfig      `toml:"player"`
	Database    DatabaseConfig    `toml:"database"`
}

// DiscordConfig contains the bot token and command registration scope.
type DiscordConfig struct {
	Token string `toml:"token"`
	// GuildID registers commands to a single guild (instant) instead of globally.
	GuildID string `toml:"guild_id"`
}

// InvidiousConfig contains settings for the video source.
type InvidiousConfig struct {
	// HostURL pins an instance. Empty means discover one from InstancesURL at startup.
	HostURL      string        `toml:"host_url"`
	InstancesURL string        `toml:"instances_url"`
	Timeout      time.Duration `toml:"timeout"`
	RateLimit    float64       `toml:"rate_limit"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify API client credentials.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	TokenURL     string `toml:"token_url"`
	APIURL       string `toml:"api_url"`
}

// Enabled reports whether both halves of the client credentials are present.
func (c SpotifyConfig) Enabled() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// PlayerConfig contains scheduler and audio pipeline settings.
type PlayerConfig struct {
	TickInterval      time.Duration `toml:"tick_interval"`
	ReconnectDelayMax time.Duration `toml:"reconnect_delay_max"`
	// Passthrough streams Opus straight from ffmpeg, which disables volume control.
	Passthrough bool   `toml:"passthrough"`
	FFmpegPath  string `toml:"ffmpeg_path"`
	Bitrate     string `toml:"bitrate"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
	// History toggles recording plays and caching Spotify resolutions.
	History bool `toml:"history"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the values of [DefaultConfig].
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadEnv reads KEY=value pairs from the given dotenv files into the process environment.
// Variables already set are left untouched. Missing files are ignored.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}

	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// ApplyEnv overrides secrets with values from the environment, when set.
func (c *Config) ApplyEnv() {
	override := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}

	override(&c.Discord.Token, EnvDiscordToken)
	override(&c.Credentials.Spotify.ClientID, EnvSpotifyClientID)
	override(&c.Credentials.Spotify.ClientSecret, EnvSpotifyClientSecret)
	override(&c.Invidious.HostURL, EnvInvidiousHost)
}

// Validate checks the settings the bot cannot start without.
func (c *Config) Validate() error {
	if c.Discord.Token == "" {
		return fmt.Errorf("%w: discord token is required", ErrMissingCredentials)
	}
	if c.Player.TickInterval <= 0 {
		return fmt.Errorf("%w: player.tick_interval must be positive", ErrInvalidConfig)
	}
	if c.Invidious.HostURL == "" && c.Invidious.InstancesURL == "" {
		return fmt.Errorf("%w: set invidious.host_url or invidious.instances_url", ErrInvalidConfig)
	}
	if (c.Credentials.Spotify.ClientID == "") != (c.Credentials.Spotify.ClientSecret == "") {
		return fmt.Errorf("%w: spotify client_id and client_secret must be set together", ErrInvalidConfig)
	}
	return nil
}
