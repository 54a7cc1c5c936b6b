package model

import "sort"

// Note is the client-side note summary backing lists and search results.
// Title and Preview are always derived from content, never edited.
type Note struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	UpdatedAt int64  `json:"updatedAt"`
	Preview   string `json:"preview,omitempty"`
}

// FullNote is a note with its complete serialized content.
type FullNote struct {
	ID        string `json:"id"`
	Content   string `json:"content"`
	UpdatedAt int64  `json:"updatedAt"`
	Deleted   bool   `json:"deleted,omitempty"`
}

// SortNotes orders notes for display: pinned first, then most recently
// updated. The sort is stable so equal timestamps keep their incoming
// order.
func SortNotes(notes []Note, pinned map[string]bool) {
	sort.SliceStable(notes, func(i, j int) bool {
		pi, pj := pinned[notes[i].ID], pinned[notes[j].ID]
		if pi != pj {
			return pi
		}
		return notes[i].UpdatedAt > notes[j].UpdatedAt
	})
}
