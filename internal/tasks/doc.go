// Package tasks synchronizes optimistic playlist edits with the Playlist Persistence API.
//
// # Core Operations
//
// The [Coordinator] accepts three local mutations:
//
//  1. [Coordinator.Reorder] : move one item to a new index
//     - Validates indices against the local view (never clamped)
//     - Records the move by item id so it can be replayed after a rebase
//     - Sends the full resulting ordering, not a diff
//
//  2. [Coordinator.Add] : append a media item
//     - Generates a client-side id when the item has none
//
//  3. [Coordinator.Remove] : delete a media item by id
//
// Each mutation is applied to the store immediately, gets a sequence number from a single
// monotonic counter, and is queued on its playlist's lane.
//
// # Lanes
//
// A lane holds the last ordering confirmed by the server and a FIFO of pending mutations. The
// visible ordering is the confirmed one with the pending mutations replayed on top. One goroutine
// per busy lane sends mutations strictly one at a time, so a second edit is never sent before the
// first has been confirmed or rolled back. Lanes for different playlists are independent.
//
// # Reconciliation
//
// The server is authoritative. When a response echoes the ordering that was sent the mutation is
// [StateConfirmed]. When it differs, the server's ordering replaces the confirmed one and the
// mutation is [StateSuperseded]. A failed request resolves as [StateRolledBack] and is not retried.
// Either way the remaining pending mutations are rebased onto the new confirmed ordering, and the
// ones that no longer apply are rolled back too.
//
// The resulting view is handed to a [Reconciler], normally the queue store, which discards it if
// the user has moved on to another playlist.
//
// # Notices
//
// Outcomes are reported as [Notice] values on [Coordinator.Notices] and logged. Like the
// progress updates of long-running commands they are sent with select and default, so a slow
// consumer never stalls a lane. Store listeners run while the coordinator lock is held and must
// not call back into the coordinator.
//
// # Remote changes
//
// [Coordinator.ApplyRemote] accepts snapshots from the change feed. A lane with mutations in flight
// ignores them, since its own response carries the authoritative ordering.
package tasks
