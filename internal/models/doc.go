// Package models defines the persisted entities of polyplayer and the repository contract used to store them.
//
// Queues themselves live only in memory. What survives a restart is:
//   - [PlayRecord] : one row per item successfully added to a channel queue
//   - [Resolution] : a cached match from a third-party track id to a video id
//
// Both implement [Model], providing ID, timestamps, validation and soft delete support.
// The [Repository] interface defines the CRUD operations implemented in package repositories.
package models
