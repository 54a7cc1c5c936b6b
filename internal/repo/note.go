package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kavinsood/kite/internal/model"
)

// ErrNotFound is returned when a (bucket, id) pair has no row.
var ErrNotFound = errors.New("note not found")

// NoteRepository is the data-access contract for the note service.
type NoteRepository interface {
	// ListPage returns up to limit live (non-tombstoned) notes of a bucket,
	// ordered by updated_at descending then id ascending, starting strictly
	// after the (afterUpdatedAt, afterID) position.
	ListPage(ctx context.Context, bucket string, afterUpdatedAt int64, afterID string, limit int) ([]model.Note, error)

	// Get returns the row for (bucket, id) including tombstoned rows,
	// or ErrNotFound.
	Get(ctx context.Context, bucket, id string) (*model.Note, error)

	// Upsert inserts or fully replaces the row for (bucket, id).
	Upsert(ctx context.Context, note *model.Note) error
}

type noteRepo struct {
	db *gorm.DB
}

// NewNoteRepository creates the gorm-backed note repository.
func NewNoteRepository(db *gorm.DB) NoteRepository {
	return &noteRepo{db: db}
}

func (r *noteRepo) ListPage(ctx context.Context, bucket string, afterUpdatedAt int64, afterID string, limit int) ([]model.Note, error) {
	var notes []model.Note
	tx := r.db.WithContext(ctx).
		Where("bucket = ? AND deleted = ?", bucket, false).
		Where("updated_at < ? OR (updated_at = ? AND id > ?)", afterUpdatedAt, afterUpdatedAt, afterID).
		Order("updated_at DESC, id ASC").
		Limit(limit).
		Find(&notes)
	if tx.Error != nil {
		return nil, tx.Error
	}
	return notes, nil
}

func (r *noteRepo) Get(ctx context.Context, bucket, id string) (*model.Note, error) {
	var n model.Note
	tx := r.db.WithContext(ctx).Where("bucket = ? AND id = ?", bucket, id).First(&n)
	if tx.Error != nil {
		if errors.Is(tx.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, tx.Error
	}
	return &n, nil
}

func (r *noteRepo) Upsert(ctx context.Context, note *model.Note) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "bucket"}, {Name: "id"}},
		UpdateAll: true,
	}).Create(note).Error
}
