// Package player schedules media playback across independent voice channels.
//
// # Model
//
// Each voice channel with something to play owns a [ChannelQueue]: a transport connection, a FIFO of
// pending [MediaItem]s, the item handed to the transport most recently, and a loop flag. Queues live
// in a [Registry] keyed by [ChannelID]. A queue is created by the first enqueue for its channel and
// retired by the [Scheduler] once nothing is pending and nothing is playing.
//
// # Scheduling
//
// One [Scheduler] advances every channel from a single ticker (1s by default). Each tick works over a
// snapshot of the registry and, per channel:
//
//  1. does nothing while the transport is playing or paused
//  2. disconnects and removes the queue when nothing is pending
//  3. otherwise pops the head (re-appending it to the tail when looping) and starts it
//
// Playback is fire-and-forget. Completion is only ever observed by polling the transport.
//
// # Locking
//
// The registry mutex guards the map alone. Each queue has its own mutex, and the registry lock is
// never held while waiting on a queue lock. The scheduler only try-locks queues, so a channel that
// is busy connecting is skipped for one tick instead of stalling the others.
//
// # Requests
//
// [Router] is the entry point for commands: it resolves input through the identity resolver, fetches
// metadata and an audio URL from the video source, and enqueues the result. Nothing touches the
// registry until resolution has fully succeeded.
package player
