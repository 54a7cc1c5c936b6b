// Package registry holds the authoritative in-memory list of note
// summaries backing the UI. Mutations are optimistic: the list is
// updated before the remote store answers, then corrected, rolled back
// or overwritten depending on the outcome.
package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kavinsood/kite/internal/cli/model"
	"github.com/kavinsood/kite/internal/cli/session"
	"github.com/kavinsood/kite/internal/cli/store"
	"github.com/kavinsood/kite/internal/markdown"
)

// Remote is the slice of the remote store client the registry uses.
// It is nil in local-only mode.
type Remote interface {
	ListNotes(ctx context.Context) ([]model.Note, error)
	SaveNote(ctx context.Context, id, content string, clientUpdatedAt *int64) (int64, error)
	DeleteNote(ctx context.Context, id string) error
}

// ConflictAdopter is implemented by remote errors that carry the
// server's winning version (the api package's ConflictError).
type ConflictAdopter interface {
	error
	ServerVersion() (content string, updatedAt int64)
}

// Registry is safe for concurrent use.
type Registry struct {
	mu     sync.Mutex
	notes  []model.Note
	store  *store.Store
	sess   *session.Session
	remote Remote
	logger *zap.SugaredLogger

	now func() int64
}

func New(st *store.Store, sess *session.Session, logger *zap.SugaredLogger) *Registry {
	return &Registry{
		store:  st,
		sess:   sess,
		logger: logger,
		now:    func() int64 { return time.Now().UnixMilli() },
	}
}

// SetRemote switches the registry into synced mode (nil switches back).
func (r *Registry) SetRemote(remote Remote) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.remote = remote
}

func (r *Registry) syncedRemote() Remote {
	if r.remote != nil && r.sess.Synced() {
		return r.remote
	}
	return nil
}

// Notes returns a display-ordered copy of the list: pinned notes first,
// then by recency.
func (r *Registry) Notes() []model.Note {
	r.mu.Lock()
	out := make([]model.Note, len(r.notes))
	copy(out, r.notes)
	r.mu.Unlock()

	model.SortNotes(out, r.sess.Pinned())
	return out
}

// Load populates the registry: from the remote list in synced mode,
// from the durable local store otherwise.
func (r *Registry) Load(ctx context.Context) error {
	if remote := r.syncedRemote(); remote != nil {
		notes, err := remote.ListNotes(ctx)
		if err != nil {
			return fmt.Errorf("load notes from server: %w", err)
		}
		r.mu.Lock()
		r.notes = notes
		r.mu.Unlock()
		return nil
	}
	return r.loadLocal(ctx)
}

func (r *Registry) loadLocal(ctx context.Context) error {
	keys, err := r.store.ListAllKeys(ctx)
	if err != nil {
		// storage unavailable means "no cached notes", not a crash
		r.logger.Warnw("registry: list keys failed", "error", err)
		keys = nil
	}

	ids := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if id, ok := strings.CutPrefix(k, store.NotePrefix); ok {
			ids[id] = struct{}{}
		} else if id, ok := strings.CutPrefix(k, store.DraftPrefix); ok {
			ids[id] = struct{}{}
		}
	}

	notes := make([]model.Note, 0, len(ids))
	for id := range ids {
		content := r.localContent(ctx, id)
		n := model.Note{ID: id, Title: markdown.DeriveTitle(content)}
		if m, ok, err := r.store.GetMeta(ctx, id); err == nil && ok {
			n.UpdatedAt = m.UpdatedAt
			n.Preview = m.Preview
		} else {
			n.Preview = markdown.PreviewContent(content)
		}
		notes = append(notes, n)
	}

	r.mu.Lock()
	r.notes = notes
	r.mu.Unlock()
	return nil
}

// localContent prefers the draft over the committed note, falling back
// to empty content.
func (r *Registry) localContent(ctx context.Context, id string) string {
	if draft, ok, err := r.store.GetDraft(ctx, id); err == nil && ok {
		return draft
	}
	if note, ok, err := r.store.GetNote(ctx, id); err == nil && ok {
		return note
	}
	return ""
}

// Create inserts a fresh "Untitled" entry at the front. Idempotent: an
// id that is already present is left untouched.
func (r *Registry) Create(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.notes {
		if n.ID == id {
			return
		}
	}
	entry := model.Note{ID: id, Title: markdown.DefaultTitle, UpdatedAt: r.now()}
	r.notes = append([]model.Note{entry}, r.notes...)
}

// Save records a committed save of content for id.
//
// Local-only mode resolves synchronously: the entry is replaced and the
// metadata persisted, and the call cannot fail in a user-visible way.
//
// Synced mode sends the save to the server guarded by the last-known
// timestamp and applies the optimistic entry immediately. On success
// the entry adopts the server timestamp; on a conflict the server's
// content wins locally and the error reports the save as not applied;
// on any other failure the registry rolls back to its pre-save state.
func (r *Registry) Save(ctx context.Context, id, content string) error {
	title := markdown.DeriveTitle(content)
	preview := markdown.PreviewContent(content)
	now := r.now()

	remote := r.syncedRemote()
	if remote == nil {
		r.replaceEntry(model.Note{ID: id, Title: title, UpdatedAt: now, Preview: preview})
		if err := r.store.SetMeta(ctx, id, store.Meta{UpdatedAt: now, Preview: preview}); err != nil {
			r.logger.Warnw("registry: meta write failed", "id", id, "error", err)
		}
		return nil
	}

	r.mu.Lock()
	snapshot := make([]model.Note, len(r.notes))
	copy(snapshot, r.notes)
	var clientUpdatedAt *int64
	for _, n := range r.notes {
		if n.ID == id {
			ts := n.UpdatedAt
			clientUpdatedAt = &ts
			break
		}
	}
	r.mu.Unlock()

	// optimistic entry with the locally derived timestamp; corrected by
	// the server's answer below
	r.replaceEntry(model.Note{ID: id, Title: title, UpdatedAt: now, Preview: preview})

	serverUpdatedAt, err := remote.SaveNote(ctx, id, content, clientUpdatedAt)
	if err != nil {
		var conflict ConflictAdopter
		if errors.As(err, &conflict) {
			r.adoptServerVersion(ctx, id, conflict)
			return fmt.Errorf("save %s: %w", id, err)
		}
		r.mu.Lock()
		r.notes = snapshot
		r.mu.Unlock()
		return fmt.Errorf("save %s: %w", id, err)
	}

	r.replaceEntry(model.Note{ID: id, Title: title, UpdatedAt: serverUpdatedAt, Preview: preview})
	if err := r.store.SetMeta(ctx, id, store.Meta{UpdatedAt: serverUpdatedAt, Preview: preview}); err != nil {
		r.logger.Warnw("registry: meta write failed", "id", id, "error", err)
	}
	return nil
}

// adoptServerVersion overwrites the local committed copy and the
// registry entry with the server's winning version. Local content is
// not silently kept; the caller still reports the save as failed.
func (r *Registry) adoptServerVersion(ctx context.Context, id string, conflict ConflictAdopter) {
	content, updatedAt := conflict.ServerVersion()
	preview := markdown.PreviewContent(content)

	if err := r.store.SetNote(ctx, id, content); err != nil {
		r.logger.Warnw("registry: conflict adopt write failed", "id", id, "error", err)
	}
	if err := r.store.SetMeta(ctx, id, store.Meta{UpdatedAt: updatedAt, Preview: preview}); err != nil {
		r.logger.Warnw("registry: conflict adopt meta failed", "id", id, "error", err)
	}
	r.replaceEntry(model.Note{ID: id, Title: markdown.DeriveTitle(content), UpdatedAt: updatedAt, Preview: preview})
}

// Delete removes the note locally (registry, blobs, metadata, session)
// and issues the remote soft-delete when synced. The remote call is
// deliberately best-effort: its failure is logged and swallowed so the
// note stays gone from the UI either way.
func (r *Registry) Delete(ctx context.Context, id string) {
	r.mu.Lock()
	out := r.notes[:0]
	for _, n := range r.notes {
		if n.ID != id {
			out = append(out, n)
		}
	}
	r.notes = out
	r.mu.Unlock()

	for _, del := range []func(context.Context, string) error{
		r.store.DeleteNote, r.store.DeleteDraft, r.store.DeleteMeta,
	} {
		if err := del(ctx, id); err != nil {
			r.logger.Warnw("registry: local delete failed", "id", id, "error", err)
		}
	}
	if err := r.sess.Forget(id); err != nil {
		r.logger.Warnw("registry: session forget failed", "id", id, "error", err)
	}

	if remote := r.syncedRemote(); remote != nil {
		if err := remote.DeleteNote(ctx, id); err != nil {
			r.logger.Warnw("registry: remote delete failed", "id", id, "error", err)
		}
	}
}

// UpdateLocalFromContent refreshes title and preview for live-typing
// feedback. UpdatedAt is intentionally untouched: it only moves on a
// commit, so recency ordering is not perturbed by every keystroke and
// "unsaved changes" stays derivable.
func (r *Registry) UpdateLocalFromContent(id, content string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, n := range r.notes {
		if n.ID == id {
			r.notes[i].Title = markdown.DeriveTitle(content)
			r.notes[i].Preview = markdown.PreviewContent(content)
			return
		}
	}
}

// replaceEntry removes any existing entry for the note and prepends the
// new one, mirroring the "updated note jumps to the top" behaviour.
func (r *Registry) replaceEntry(entry model.Note) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Note, 0, len(r.notes)+1)
	out = append(out, entry)
	for _, n := range r.notes {
		if n.ID != entry.ID {
			out = append(out, n)
		}
	}
	r.notes = out
}
