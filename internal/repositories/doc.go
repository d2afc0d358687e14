// Package repositories implements SQLite persistence for play history and resolution caching.
//
// Key Implementations:
//   - [PlayRepository] : history of items added to channel queues
//   - [ResolutionRepository] : third-party track id to video id matches
//   - [HistoryAdapter] : records plays on behalf of the request router
//   - [ResolutionCacheAdapter] : lookup and store hooks for the identity resolver
//
// All repositories support soft deletes via deleted_at timestamps and exclude deleted records from queries by default.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
