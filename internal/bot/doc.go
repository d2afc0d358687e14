// Package bot connects the playback core to Discord slash commands.
//
// # Command Routing
//
// A [CommandRouter] maps command names to [Handler]s and wraps every handler with its [Middleware]
// stack. Middleware is applied in reverse order (last added wraps first). Handlers work on a [Request]
// and return a [Reply], neither of which depends on the Discord client, so the whole command layer can
// be exercised without a gateway connection.
//
// # Discord Integration
//
// [Bot] owns the disgo client. It registers the slash command definitions from [Commands], turns each
// interaction into a [Request] (including the caller's current voice channel, read from the voice state
// cache), dispatches it, and renders the [Reply] as a message or embed. Commands registered as deferred
// acknowledge the interaction first and edit the response once the handler returns.
package bot
