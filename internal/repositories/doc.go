// Package repositories implements SQLite persistence for the reference Playlist Persistence API.
//
// Key Implementations:
//   - [PlaylistRepository] : playlist records with soft delete, loaded together with their items
//   - [MediaItemRepository] : ordered media items with transactional append, remove and reorder
//
// Every write to media_items runs in a single transaction that leaves positions dense (0..n-1).
// Reorder requests must name exactly the stored item set; anything else is rejected with
// [shared.ErrPersistenceConflict] so a client working from a stale ordering cannot drop or
// resurrect items.
//
// Sequence numbers provide stable, human-readable ordering (e.g., playlist #15) independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
