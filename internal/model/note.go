package model

// Note is the server-side row for a stored note. Rows are scoped to a
// bucket and never physically removed: deletion flips the tombstone flag
// so the row keeps occupying its (bucket, id) slot.
type Note struct {
	Bucket string `gorm:"primaryKey;size:64;index:idx_notes_bucket_updated,priority:1"`
	ID     string `gorm:"primaryKey;type:uuid"`

	// Title and Preview are derived server-side from Content on every save
	// so list responses never need to ship full content.
	Title   string `gorm:"not null"`
	Preview string `gorm:"not null"`
	Content string `gorm:"not null"`

	// UpdatedAt is milliseconds since epoch, assigned by the server on
	// every accepted save. It strictly increases per note.
	UpdatedAt int64 `gorm:"not null;index:idx_notes_bucket_updated,priority:2"`

	Deleted bool `gorm:"not null;default:false"`
}

// Summary is the list-endpoint projection of a Note.
type Summary struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	UpdatedAt int64  `json:"updatedAt"`
	Preview   string `json:"preview,omitempty"`
}

// Summary returns the list projection of n.
func (n Note) Summary() Summary {
	return Summary{ID: n.ID, Title: n.Title, UpdatedAt: n.UpdatedAt, Preview: n.Preview}
}
