package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/kavinsood/kite/internal/markdown"
	"github.com/kavinsood/kite/internal/model"
	"github.com/kavinsood/kite/internal/repo"
)

// ErrNotFound is returned for absent or tombstoned notes.
var ErrNotFound = errors.New("note not found")

// ErrBadCursor is returned when a list cursor cannot be decoded.
var ErrBadCursor = errors.New("invalid cursor")

// DefaultPageSize is the number of summaries per list page.
const DefaultPageSize = 100

// NoteService owns the server-side note semantics: last-write-wins saves
// with a conflict guard, cursor-paginated listing, soft deletes.
type NoteService struct {
	repo     repo.NoteRepository
	pageSize int

	// now returns milliseconds since epoch; replaceable in tests.
	now func() int64
}

func NewNoteService(r repo.NoteRepository) *NoteService {
	return &NoteService{
		repo:     r,
		pageSize: DefaultPageSize,
		now:      func() int64 { return time.Now().UnixMilli() },
	}
}

// SaveResult reports the outcome of a save. On Conflict, Content and
// UpdatedAt carry the server's current version for the client to adopt.
type SaveResult struct {
	Conflict  bool
	UpdatedAt int64
	Content   string
}

// Save applies a client save under the last-write-wins guard: when the
// client's last-known timestamp is older than the stored one the save is
// rejected as a conflict. Ties favor the client. A save over a tombstone
// revives the note.
func (s *NoteService) Save(ctx context.Context, bucket, id, content string, clientUpdatedAt *int64) (SaveResult, error) {
	stored, err := s.repo.Get(ctx, bucket, id)
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return SaveResult{}, fmt.Errorf("load current note: %w", err)
	}

	if stored != nil && !stored.Deleted && clientUpdatedAt != nil && *clientUpdatedAt < stored.UpdatedAt {
		return SaveResult{Conflict: true, UpdatedAt: stored.UpdatedAt, Content: stored.Content}, nil
	}

	// Timestamps must strictly increase per note, even under clock skew
	// or two saves within the same millisecond.
	ts := s.now()
	if stored != nil && ts <= stored.UpdatedAt {
		ts = stored.UpdatedAt + 1
	}

	n := &model.Note{
		Bucket:    bucket,
		ID:        id,
		Title:     markdown.DeriveTitle(content),
		Preview:   markdown.PreviewContent(content),
		Content:   content,
		UpdatedAt: ts,
		Deleted:   false,
	}
	if err := s.repo.Upsert(ctx, n); err != nil {
		return SaveResult{}, fmt.Errorf("upsert note: %w", err)
	}
	return SaveResult{UpdatedAt: ts}, nil
}

// Get returns a note, treating tombstoned rows as absent.
func (s *NoteService) Get(ctx context.Context, bucket, id string) (*model.Note, error) {
	n, err := s.repo.Get(ctx, bucket, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if n.Deleted {
		return nil, ErrNotFound
	}
	return n, nil
}

// Delete tombstones a note. Deleting an absent id still succeeds: the
// tombstone is written so the slot stays claimed.
func (s *NoteService) Delete(ctx context.Context, bucket, id string) error {
	stored, err := s.repo.Get(ctx, bucket, id)
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return fmt.Errorf("load current note: %w", err)
	}
	ts := s.now()
	n := &model.Note{Bucket: bucket, ID: id, UpdatedAt: ts, Deleted: true}
	if stored != nil {
		if ts <= stored.UpdatedAt {
			n.UpdatedAt = stored.UpdatedAt + 1
		}
		n.Title = stored.Title
		n.Preview = stored.Preview
		n.Content = stored.Content
	}
	if err := s.repo.Upsert(ctx, n); err != nil {
		return fmt.Errorf("tombstone note: %w", err)
	}
	return nil
}

// List returns one page of live note summaries plus the cursor for the
// next page ("" when exhausted).
func (s *NoteService) List(ctx context.Context, bucket, cursor string) ([]model.Summary, string, error) {
	afterUpdated := int64(math.MaxInt64)
	afterID := ""
	if cursor != "" {
		var err error
		afterUpdated, afterID, err = decodeCursor(cursor)
		if err != nil {
			return nil, "", err
		}
	}

	notes, err := s.repo.ListPage(ctx, bucket, afterUpdated, afterID, s.pageSize)
	if err != nil {
		return nil, "", fmt.Errorf("list notes: %w", err)
	}

	summaries := make([]model.Summary, 0, len(notes))
	for _, n := range notes {
		summaries = append(summaries, n.Summary())
	}

	next := ""
	if len(notes) == s.pageSize {
		last := notes[len(notes)-1]
		next = encodeCursor(last.UpdatedAt, last.ID)
	}
	return summaries, next, nil
}

func encodeCursor(updatedAt int64, id string) string {
	raw := strconv.FormatInt(updatedAt, 10) + ":" + id
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func decodeCursor(cursor string) (int64, string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return 0, "", ErrBadCursor
	}
	ts, id, ok := strings.Cut(string(raw), ":")
	if !ok {
		return 0, "", ErrBadCursor
	}
	updatedAt, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return 0, "", ErrBadCursor
	}
	return updatedAt, id, nil
}
