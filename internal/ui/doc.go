// Package ui implements an interactive terminal player using bubbletea's Elm architecture.
//
// The TUI has two views:
//  1. [PlaylistListView] : Browse playlists from the persistence server and pick one to load
//  2. [PlayerView] : The loaded playlist, a now-playing bar, the up-next queue, and sync notices
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Every user action becomes a player.Event dispatched from a command. State never flows back through the
// command's result: the model subscribes to the player's store and renders whatever snapshot arrives, so
// optimistic reorders, confirmations, rollbacks and collaborators' changes all reach the screen the same way.
// Coordinator notices arrive on their own channel and the latest few are shown under the queue.
//
// Reordering is keyboard driven: shift+↑/↓ (or K/J) moves the selected item one row, which is the same
// Reorder(src, dst) request a drag-and-drop surface would issue. Reordering is disabled while the list is filtered,
// because filtered indices are not playlist positions.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
