// Package queue holds ephemeral playback state and decides what plays next.
//
// # Store
//
// [Store] is the single source of truth for [models.QueueState]. It performs no network I/O and is
// safe for concurrent use, since persistence responses arrive on coordinator goroutines while UI
// events arrive on the caller's goroutine. Every state change is delivered to subscribers as a deep
// copy, outside the store's lock, so a listener may read the store again without deadlocking.
//
// The store moves between three states:
//
//	Idle ──SetPlaylist──▶ Loaded-Paused ◀──TogglePlay──▶ Loaded-Playing
//	  ▲                                                        │
//	  └──────────────────────── Reset ─────────────────────────┘
//
// [Store.ReplaceItems] is the reconciliation entry point for the sync coordinator. It only applies
// when the loaded playlist still has the target id, which makes a late response for a playlist the
// user navigated away from a silent no-op.
//
// # Controller
//
// [Controller] applies the advancement rules on top of a store:
//
//   - OnTrackEnd advances within the playlist, then falls through to the play-next queue, then
//     stops with the index left where it was.
//   - SkipNext follows the same rules without changing whether playback is running.
//   - SkipPrevious only ever steps back within the playlist and never consumes the queue.
//
// Queue-sourced playback sets [models.QueueState.QueueTrack] and leaves the playlist untouched.
package queue
