package bot

import "github.com/disgoorg/disgo/discord"

const (
	CommandPlay   = "play"
	CommandQueue  = "queue"
	CommandVolume = "volume"
	CommandPause  = "pause"
	CommandResume = "resume"
	CommandLoop   = "loop"
	CommandSkip   = "skip"
	CommandStop   = "stop"

	OptionURL       = "url"
	OptionEphemeral = "ephemeral"
	OptionVolume    = "percentage"
	OptionEnabled   = "enabled"
	OptionCount     = "count"
)

func intPtr(i int) *int { return &i }

// Commands returns the slash command definitions for every command [Handlers] serves.
func Commands() []discord.ApplicationCommandCreate {
	return []discord.ApplicationCommandCreate{
		discord.SlashCommandCreate{
			Name:        CommandPlay,
			Description: "Add a video or track to the queue, or resume when paused",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionString{
					Name:        OptionURL,
					Description: "YouTube, Invidious or Spotify track URL",
				},
			},
		},
		discord.SlashCommandCreate{
			Name:        CommandQueue,
			Description: "Show what is playing and what is up next",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionBool{
					Name:        OptionEphemeral,
					Description: "Only show the queue to you",
				},
			},
		},
		discord.SlashCommandCreate{
			Name:        CommandVolume,
			Description: "Show or set the playback volume",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionInt{
					Name:        OptionVolume,
					Description: "Volume in percent (50-200)",
					MinValue:    intPtr(0),
					MaxValue:    intPtr(1000),
				},
			},
		},
		discord.SlashCommandCreate{
			Name:        CommandPause,
			Description: "Pause or resume playback",
		},
		discord.SlashCommandCreate{
			Name:        CommandResume,
			Description: "Resume paused playback",
		},
		discord.SlashCommandCreate{
			Name:        CommandLoop,
			Description: "Toggle or set looping of the queue",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionBool{
					Name:        OptionEnabled,
					Description: "Enable or disable looping, toggles when omitted",
				},
			},
		},
		discord.SlashCommandCreate{
			Name:        CommandSkip,
			Description: "Skip upcoming items in the queue",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionInt{
					Name:        OptionCount,
					Description: "How many items to skip",
					MinValue:    intPtr(1),
				},
			},
		},
		discord.SlashCommandCreate{
			Name:        CommandStop,
			Description: "Clear the queue and stop playback",
		},
	}
}
