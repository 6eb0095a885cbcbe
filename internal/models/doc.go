// Package models defines the data records shared by the queue engine, the persistence client and the reference server.
//
// The package contains two categories of types:
//
// 1. Playlist records: plain data with validation but no behavior
//   - [MediaItem] : a playable entry (music, video, social, podcast) with a dense 0-based position
//   - [Playlist] : an ordered sequence of media items with derived total duration
//
// 2. Client-only state
//   - [QueueState] : the ephemeral now-playing snapshot handed to UI subscribers
//
// Ordering invariant: a playlist's MediaItems are in ascending Position order and positions are exactly 0..n-1.
// [Playlist.Validate] and [CheckDense] enforce it; the reorder package restores it after every mutation.
//
// The [Model] and [Repository] interfaces describe the persistence contract implemented by the repositories package.
package models
