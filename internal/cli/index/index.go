// Package index maintains the in-memory search index: a map from note
// id to full text content, hydrated lazily from the durable local store.
// The index is a pure cache: dropping it and rehydrating must never
// change search results.
package index

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kavinsood/kite/internal/cli/model"
)

// ContentReader is the slice of the durable local store the index needs.
type ContentReader interface {
	GetDraft(ctx context.Context, id string) (string, bool, error)
	GetNote(ctx context.Context, id string) (string, bool, error)
}

const defaultBatchSize = 50

// Index is safe for concurrent use. Hydration runs on a background
// goroutine in fixed-size batches so a large note collection never
// blocks the caller.
type Index struct {
	mu      sync.Mutex
	content map[string]string
	known   map[string]struct{}
	// gen invalidates in-flight hydration: every Reconcile bumps it and
	// a batch whose captured generation no longer matches aborts before
	// committing anything.
	gen uint64

	reader ContentReader
	logger *zap.SugaredLogger

	batchSize int
	idlePause time.Duration

	hydrating sync.WaitGroup
}

func New(reader ContentReader, logger *zap.SugaredLogger) *Index {
	return &Index{
		content:   make(map[string]string),
		known:     make(map[string]struct{}),
		reader:    reader,
		logger:    logger,
		batchSize: defaultBatchSize,
		idlePause: time.Millisecond,
	}
}

// Reconcile aligns the index with the current note list: entries for
// deleted notes are evicted immediately, missing entries are scheduled
// for batched hydration, and any in-flight hydration is superseded.
func (ix *Index) Reconcile(notes []model.Note) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	current := make(map[string]struct{}, len(notes))
	for _, n := range notes {
		current[n.ID] = struct{}{}
	}

	ix.gen++
	gen := ix.gen

	for id := range ix.known {
		if _, ok := current[id]; !ok {
			delete(ix.content, id)
		}
	}

	var toHydrate []string
	for _, n := range notes {
		if _, ok := ix.content[n.ID]; !ok {
			toHydrate = append(toHydrate, n.ID)
		}
	}
	ix.known = current

	if len(toHydrate) == 0 {
		return
	}
	ix.hydrating.Add(1)
	go ix.hydrate(gen, toHydrate)
}

func (ix *Index) hydrate(gen uint64, ids []string) {
	defer ix.hydrating.Done()
	ctx := context.Background()

	for start := 0; start < len(ids); start += ix.batchSize {
		end := start + ix.batchSize
		if end > len(ids) {
			end = len(ids)
		}
		batch := ids[start:end]

		ix.mu.Lock()
		if ix.gen != gen {
			ix.mu.Unlock()
			return
		}
		var missing []string
		for _, id := range batch {
			if _, ok := ix.content[id]; !ok {
				missing = append(missing, id)
			}
		}
		ix.mu.Unlock()

		// Store reads happen outside the lock so search stays responsive
		// while a batch loads.
		loaded := make(map[string]string, len(missing))
		for _, id := range missing {
			loaded[id] = ix.readContent(ctx, id)
		}

		ix.mu.Lock()
		if ix.gen != gen {
			ix.mu.Unlock()
			return
		}
		for id, content := range loaded {
			if _, ok := ix.content[id]; !ok {
				ix.content[id] = content
			}
		}
		ix.mu.Unlock()

		if end < len(ids) {
			time.Sleep(ix.idlePause)
		}
	}
}

// readContent prefers the draft over the committed note, falling back to
// empty content. Store errors degrade to empty, never fatal.
func (ix *Index) readContent(ctx context.Context, id string) string {
	if draft, ok, err := ix.reader.GetDraft(ctx, id); err != nil {
		ix.logger.Warnw("index: draft read failed", "id", id, "error", err)
	} else if ok {
		return draft
	}
	if note, ok, err := ix.reader.GetNote(ctx, id); err != nil {
		ix.logger.Warnw("index: note read failed", "id", id, "error", err)
	} else if ok {
		return note
	}
	return ""
}

// WaitForHydration blocks until all scheduled hydration runs finished
// or aborted.
func (ix *Index) WaitForHydration() {
	ix.hydrating.Wait()
}

// Update upserts content for a note, synchronously. Called right after
// a save so the index never lags behind what the user just typed.
func (ix *Index) Update(id, content string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.content[id] = content
	ix.known[id] = struct{}{}
}

// Search returns the notes whose title or indexed content contains the
// query, case-insensitively, preserving the input order. An empty query
// matches nothing.
func (ix *Index) Search(query string, notes []model.Note) []model.Note {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	var results []model.Note
	for _, n := range notes {
		if strings.Contains(ix.haystackLocked(n), q) {
			results = append(results, n)
		}
	}
	return results
}

// SearchWithPositions matches like Search but ranks results by the
// offset of the first match, earliest first; ties keep input order.
func (ix *Index) SearchWithPositions(query string, notes []model.Note) []model.Note {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}

	ix.mu.Lock()
	type match struct {
		note model.Note
		pos  int
	}
	var matches []match
	for _, n := range notes {
		if pos := strings.Index(ix.haystackLocked(n), q); pos != -1 {
			matches = append(matches, match{note: n, pos: pos})
		}
	}
	ix.mu.Unlock()

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].pos < matches[j].pos })
	results := make([]model.Note, 0, len(matches))
	for _, m := range matches {
		results = append(results, m.note)
	}
	return results
}

func (ix *Index) haystackLocked(n model.Note) string {
	return strings.ToLower(n.Title) + "\n" + strings.ToLower(ix.content[n.ID])
}
