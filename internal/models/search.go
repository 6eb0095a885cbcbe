package models

import (
	"github.com/sahilm/fuzzy"
)

// ItemMatch is one fuzzy search hit: the item, its index in the searched slice, and the matched
// rune offsets within its title for highlighting.
type ItemMatch struct {
	Item           MediaItem
	Index          int
	Score          int
	MatchedIndexes []int
}

type titleSource []MediaItem

func (s titleSource) String(i int) string { return s[i].Title }
func (s titleSource) Len() int            { return len(s) }

// SearchItems fuzzy-matches query against item titles, best match first. An empty query matches nothing.
func SearchItems(items []MediaItem, query string) []ItemMatch {
	matches := fuzzy.FindFrom(query, titleSource(items))
	out := make([]ItemMatch, len(matches))
	for i, m := range matches {
		out[i] = ItemMatch{
			Item:           items[m.Index],
			Index:          m.Index,
			Score:          m.Score,
			MatchedIndexes: m.MatchedIndexes,
		}
	}
	return out
}
