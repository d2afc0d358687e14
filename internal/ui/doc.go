// Package ui implements a terminal dashboard for a running player using bubbletea's Elm architecture.
//
// The dashboard has two views:
//  1. [ChannelListView] : Every active voice channel with its state and queue length
//  2. [ChannelView] : One channel's now playing item, volume, loop flag and pending items
//
// The [Model] polls a [Controller] for queue snapshots on a fixed interval and listens on the
// registry's event channel, keeping the most recent events in a log below the current view.
// Control keys (skip, pause, loop, stop) act on the selected channel through the same [Controller].
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
