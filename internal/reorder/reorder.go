// Package reorder computes new playlist orderings. Every function is pure: inputs are never modified and
// results never share a backing array with them.
//
// Results always satisfy the dense-position invariant (item i has Position i), except the deliberate
// no-op of [Reorder] with equal indices, which returns the input ordering as given.
package reorder

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/desertthunder/playq/internal/models"
	"github.com/desertthunder/playq/internal/shared"
)

// Reorder moves the item at src to dst and renumbers positions.
//
// Out-of-range indices fail with [shared.ErrInvalidIndex]; they are never clamped.
func Reorder(items []models.MediaItem, src, dst int) ([]models.MediaItem, error) {
	n := len(items)
	if src < 0 || src >= n {
		return nil, fmt.Errorf("%w: source %d not in [0, %d)", shared.ErrInvalidIndex, src, n)
	}
	if dst < 0 || dst >= n {
		return nil, fmt.Errorf("%w: destination %d not in [0, %d)", shared.ErrInvalidIndex, dst, n)
	}
	if src == dst {
		return models.CloneItems(items), nil
	}

	moved := items[src]
	out := make([]models.MediaItem, 0, n)
	out = append(out, items[:src]...)
	out = append(out, items[src+1:]...)
	out = append(out[:dst], append([]models.MediaItem{moved}, out[dst:]...)...)

	return Renumber(out), nil
}

// MoveByID moves the item with the given id to dst. Used to replay a reorder on a rebased ordering.
func MoveByID(items []models.MediaItem, id string, dst int) ([]models.MediaItem, error) {
	src := IndexOf(items, id)
	if src < 0 {
		return nil, fmt.Errorf("%w: %s", shared.ErrMediaItemNotFound, id)
	}
	return Reorder(items, src, dst)
}

// Append adds item at the end with the next dense position.
//
// Appending an id that is already present fails; ids are unique per playlist.
func Append(items []models.MediaItem, item models.MediaItem) ([]models.MediaItem, error) {
	if IndexOf(items, item.ID) >= 0 {
		return nil, fmt.Errorf("%w: media item %s already in playlist", shared.ErrInvalidInput, item.ID)
	}
	out := make([]models.MediaItem, 0, len(items)+1)
	out = append(out, items...)
	out = append(out, item)
	return Renumber(out), nil
}

// RemoveByID drops the item with the given id and closes the gap.
func RemoveByID(items []models.MediaItem, id string) ([]models.MediaItem, error) {
	idx := IndexOf(items, id)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", shared.ErrMediaItemNotFound, id)
	}
	out := make([]models.MediaItem, 0, len(items)-1)
	out = append(out, items[:idx]...)
	out = append(out, items[idx+1:]...)
	return Renumber(out), nil
}

// Renumber returns a copy with Position set to each item's index.
func Renumber(items []models.MediaItem) []models.MediaItem {
	out := models.CloneItems(items)
	for i := range out {
		out[i].Position = i
	}
	return out
}

// IndexOf returns the index of the item with the given id, or -1.
func IndexOf(items []models.MediaItem, id string) int {
	for i, item := range items {
		if item.ID == id {
			return i
		}
	}
	return -1
}

// SameOrder reports whether a and b hold the same id sequence.
func SameOrder(a, b []models.MediaItem) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID {
			return false
		}
	}
	return true
}

// SortByPosition returns a copy ordered by ascending Position, preserving input order on ties.
func SortByPosition(items []models.MediaItem) []models.MediaItem {
	out := models.CloneItems(items)
	slices.SortStableFunc(out, func(a, b models.MediaItem) int {
		return cmp.Compare(a.Position, b.Position)
	})
	return out
}
