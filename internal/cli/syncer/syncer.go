// Package syncer performs the full bidirectional sync that turns a
// local-only note collection into a synced one. The merge is
// last-write-wins on the per-note timestamp: for every note the newer
// side is kept, per-note failures are collected without aborting the
// run, and the session is only marked synced when every note merged
// cleanly.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/kavinsood/kite/internal/bucket"
	"github.com/kavinsood/kite/internal/cli/api"
	"github.com/kavinsood/kite/internal/cli/model"
	"github.com/kavinsood/kite/internal/cli/registry"
	"github.com/kavinsood/kite/internal/cli/session"
	"github.com/kavinsood/kite/internal/cli/store"
	"github.com/kavinsood/kite/internal/markdown"
)

var (
	// ErrSyncInProgress guards against overlapping runs. Sync is not
	// re-entrant: two interleaved merges could push each other's stale
	// snapshots.
	ErrSyncInProgress = errors.New("sync already in progress")
	// ErrEmptyPassphrase rejects a blank or whitespace-only passphrase
	// before any network traffic happens.
	ErrEmptyPassphrase = errors.New("passphrase must not be empty")
	// ErrNoBucket means Resync was called before sync was ever enabled.
	ErrNoBucket = errors.New("sync was never enabled")
)

// Client is the slice of the remote store the merge needs.
type Client interface {
	ListNotes(ctx context.Context) ([]model.Note, error)
	GetNote(ctx context.Context, id string) (model.FullNote, error)
	SaveNote(ctx context.Context, id, content string, clientUpdatedAt *int64) (int64, error)
	DeleteNote(ctx context.Context, id string) error
}

// Report summarises what a sync run did.
type Report struct {
	Pushed    int // local version won, sent to the server
	Pulled    int // remote version won, written locally
	Conflicts int // server rejected a push and its version was adopted
}

// Syncer owns the sync lifecycle for one client process.
type Syncer struct {
	store     *store.Store
	sess      *session.Session
	reg       *registry.Registry
	serverURL string
	logger    *zap.SugaredLogger

	inProgress atomic.Bool

	// newClient is a test seam; production wiring uses api.New.
	newClient func(baseURL, bucketID string) Client
}

func New(st *store.Store, sess *session.Session, reg *registry.Registry, serverURL string, logger *zap.SugaredLogger) *Syncer {
	return &Syncer{
		store:     st,
		sess:      sess,
		reg:       reg,
		serverURL: serverURL,
		logger:    logger,
		newClient: func(baseURL, bucketID string) Client {
			return api.New(baseURL, bucketID)
		},
	}
}

// EnableSync derives the bucket from the passphrase and runs a full
// merge against it. On a clean run the session is marked synced and the
// registry switches to remote-backed mode; on a partial failure the
// bucket id is kept but the synced flag stays off so the run can be
// retried.
func (s *Syncer) EnableSync(ctx context.Context, passphrase string) (Report, error) {
	if !s.inProgress.CompareAndSwap(false, true) {
		return Report{}, ErrSyncInProgress
	}
	defer s.inProgress.Store(false)

	if strings.TrimSpace(passphrase) == "" {
		return Report{}, ErrEmptyPassphrase
	}
	return s.run(ctx, bucket.DeriveID(passphrase))
}

// Resync repeats the merge against the bucket from a previous
// EnableSync, without needing the passphrase again.
func (s *Syncer) Resync(ctx context.Context) (Report, error) {
	if !s.inProgress.CompareAndSwap(false, true) {
		return Report{}, ErrSyncInProgress
	}
	defer s.inProgress.Store(false)

	bucketID := s.sess.BucketID()
	if bucketID == "" {
		return Report{}, ErrNoBucket
	}
	return s.run(ctx, bucketID)
}

type localNote struct {
	content   string
	updatedAt int64
}

func (s *Syncer) run(ctx context.Context, bucketID string) (Report, error) {
	client := s.newClient(s.serverURL, bucketID)

	remoteNotes, err := client.ListNotes(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("sync: list remote notes: %w", err)
	}
	remote := make(map[string]model.Note, len(remoteNotes))
	for _, n := range remoteNotes {
		remote[n.ID] = n
	}

	local, err := s.localSnapshot(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("sync: read local notes: %w", err)
	}

	var report Report
	var errs []error
	seen := make(map[string]struct{}, len(local))

	for id, ln := range local {
		seen[id] = struct{}{}
		rn, onRemote := remote[id]
		switch {
		case !onRemote:
			if err := s.push(ctx, client, id, ln.content, nil, &report); err != nil {
				errs = append(errs, err)
			}
		case ln.updatedAt == rn.UpdatedAt:
			// already in sync, nothing to transfer
		case ln.updatedAt > rn.UpdatedAt:
			ts := rn.UpdatedAt
			if err := s.push(ctx, client, id, ln.content, &ts, &report); err != nil {
				errs = append(errs, err)
			}
		default:
			if err := s.pull(ctx, client, id, &report); err != nil {
				errs = append(errs, err)
			}
		}
	}
	for id := range remote {
		if _, ok := seen[id]; ok {
			continue
		}
		if err := s.pull(ctx, client, id, &report); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		if err := s.sess.SetBucket(bucketID, false); err != nil {
			errs = append(errs, err)
		}
		return report, fmt.Errorf("sync: %d notes failed: %w", len(errs), errors.Join(errs...))
	}

	if err := s.sess.SetBucket(bucketID, true); err != nil {
		return report, fmt.Errorf("sync: persist session: %w", err)
	}
	s.reg.SetRemote(client)
	if err := s.reg.Load(ctx); err != nil {
		return report, fmt.Errorf("sync: reload notes: %w", err)
	}
	return report, nil
}

// localSnapshot collects every local note id with its best content
// (draft over committed copy) and last committed timestamp. A note that
// never committed carries timestamp 0 and therefore loses every
// comparison against a remote copy.
func (s *Syncer) localSnapshot(ctx context.Context) (map[string]localNote, error) {
	keys, err := s.store.ListAllKeys(ctx)
	if err != nil {
		return nil, err
	}
	ids := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if id, ok := strings.CutPrefix(k, store.NotePrefix); ok {
			ids[id] = struct{}{}
		} else if id, ok := strings.CutPrefix(k, store.DraftPrefix); ok {
			ids[id] = struct{}{}
		}
	}

	local := make(map[string]localNote, len(ids))
	for id := range ids {
		ln := localNote{}
		if draft, ok, err := s.store.GetDraft(ctx, id); err != nil {
			return nil, err
		} else if ok {
			ln.content = draft
		} else if note, ok, err := s.store.GetNote(ctx, id); err != nil {
			return nil, err
		} else if ok {
			ln.content = note
		}
		if m, ok, err := s.store.GetMeta(ctx, id); err != nil {
			return nil, err
		} else if ok {
			ln.updatedAt = m.UpdatedAt
		}
		local[id] = ln
	}
	return local, nil
}

// push sends the local version and stamps the local metadata with the
// server-assigned timestamp. A rejected push means the server saw a
// newer version after our listing; its version is adopted like a pull.
func (s *Syncer) push(ctx context.Context, client Client, id, content string, clientUpdatedAt *int64, report *Report) error {
	ts, err := client.SaveNote(ctx, id, content, clientUpdatedAt)
	if err != nil {
		var conflict *api.ConflictError
		if errors.As(err, &conflict) {
			s.logger.Infow("sync: push lost to newer server version", "id", id)
			report.Conflicts++
			return s.writeLocal(ctx, id, conflict.Content, conflict.UpdatedAt)
		}
		return fmt.Errorf("push %s: %w", id, err)
	}
	if err := s.store.SetMeta(ctx, id, store.Meta{UpdatedAt: ts, Preview: markdown.PreviewContent(content)}); err != nil {
		return fmt.Errorf("push %s: record timestamp: %w", id, err)
	}
	report.Pushed++
	return nil
}

func (s *Syncer) pull(ctx context.Context, client Client, id string, report *Report) error {
	full, err := client.GetNote(ctx, id)
	if err != nil {
		// deleted between the listing and the fetch; nothing to merge
		if errors.Is(err, api.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("pull %s: %w", id, err)
	}
	if err := s.writeLocal(ctx, id, full.Content, full.UpdatedAt); err != nil {
		return err
	}
	report.Pulled++
	return nil
}

// writeLocal stores a server-won version. Drafts are left alone: an
// in-flight local edit still belongs to the user and will be resolved
// by the next save.
func (s *Syncer) writeLocal(ctx context.Context, id, content string, updatedAt int64) error {
	if err := s.store.SetNote(ctx, id, content); err != nil {
		return fmt.Errorf("pull %s: write note: %w", id, err)
	}
	meta := store.Meta{UpdatedAt: updatedAt, Preview: markdown.PreviewContent(content)}
	if err := s.store.SetMeta(ctx, id, meta); err != nil {
		return fmt.Errorf("pull %s: write meta: %w", id, err)
	}
	return nil
}
