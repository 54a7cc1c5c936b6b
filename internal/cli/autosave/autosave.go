// Package autosave turns a stream of keystrokes into draft writes and
// debounced commits. Every change lands in the draft store immediately,
// a short debounce refreshes the visible title and search index, and a
// longer debounce commits the content for real.
package autosave

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	// fastDelay drives the cheap visible updates (list entry, index).
	fastDelay = 150 * time.Millisecond
	// slowDelay drives the real commit (durable write plus remote save).
	slowDelay = 1000 * time.Millisecond
)

// Status is reported to the OnStatus callback as a note moves through
// the save pipeline.
type Status int

const (
	StatusPending Status = iota
	StatusSaved
	StatusError
)

// Store is the slice of the durable local store the controller needs.
type Store interface {
	SetNote(ctx context.Context, id, content string) error
	SetDraft(ctx context.Context, id, content string) error
	DeleteDraft(ctx context.Context, id string) error
}

// Saver commits a note to the note list and, when synced, the server.
type Saver interface {
	Save(ctx context.Context, id, content string) error
	UpdateLocalFromContent(id, content string)
}

// Indexer receives the fresh content so search never lags typing.
type Indexer interface {
	Update(id, content string)
}

type noteState struct {
	fast *time.Timer
	slow *time.Timer
	// pending is the latest content seen; dirty marks that it has not
	// been committed yet.
	pending       string
	dirty         bool
	lastCommitted string
}

// Controller is safe for concurrent use.
type Controller struct {
	mu    sync.Mutex
	notes map[string]*noteState

	store  Store
	saver  Saver
	index  Indexer
	logger *zap.SugaredLogger

	// OnStatus, when set, is called outside the controller lock.
	OnStatus func(id string, st Status)

	fastDelay time.Duration
	slowDelay time.Duration
}

func New(st Store, saver Saver, index Indexer, logger *zap.SugaredLogger) *Controller {
	return &Controller{
		notes:     make(map[string]*noteState),
		store:     st,
		saver:     saver,
		index:     index,
		logger:    logger,
		fastDelay: fastDelay,
		slowDelay: slowDelay,
	}
}

// Track seeds the last committed content for a note, so opening a note
// and closing it untouched never produces a commit.
func (c *Controller) Track(id, content string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.stateLocked(id)
	st.lastCommitted = content
	st.pending = content
}

// OnChange records a content change. The draft write is fire-and-forget;
// both debounce timers restart from now.
func (c *Controller) OnChange(id, content string) {
	c.mu.Lock()
	st := c.stateLocked(id)
	st.pending = content
	st.dirty = true
	if st.fast != nil {
		st.fast.Stop()
	}
	if st.slow != nil {
		st.slow.Stop()
	}
	st.fast = time.AfterFunc(c.fastDelay, func() { c.fastTick(id) })
	st.slow = time.AfterFunc(c.slowDelay, func() { c.commit(id) })
	c.mu.Unlock()

	go func() {
		if err := c.store.SetDraft(context.Background(), id, content); err != nil {
			c.logger.Warnw("autosave: draft write failed", "id", id, "error", err)
		}
	}()
	c.notify(id, StatusPending)
}

func (c *Controller) fastTick(id string) {
	c.mu.Lock()
	st, ok := c.notes[id]
	if !ok {
		c.mu.Unlock()
		return
	}
	content := st.pending
	c.mu.Unlock()

	c.index.Update(id, content)
	c.saver.UpdateLocalFromContent(id, content)
}

// commit performs the durable save for whatever content is pending. A
// commit whose content matches the last committed version only cleans
// up the draft.
func (c *Controller) commit(id string) {
	c.mu.Lock()
	st, ok := c.notes[id]
	if !ok || !st.dirty {
		c.mu.Unlock()
		return
	}
	content := st.pending
	if content == st.lastCommitted {
		st.dirty = false
		c.mu.Unlock()
		if err := c.store.DeleteDraft(context.Background(), id); err != nil {
			c.logger.Warnw("autosave: draft cleanup failed", "id", id, "error", err)
		}
		c.notify(id, StatusSaved)
		return
	}
	c.mu.Unlock()

	ctx := context.Background()
	if err := c.store.SetNote(ctx, id, content); err != nil {
		c.logger.Errorw("autosave: commit write failed", "id", id, "error", err)
		c.notify(id, StatusError)
		return
	}
	// the draft only goes once the committed copy is safely down;
	// crashing between the two loses nothing
	if err := c.store.DeleteDraft(ctx, id); err != nil {
		c.logger.Warnw("autosave: draft cleanup failed", "id", id, "error", err)
	}

	if err := c.saver.Save(ctx, id, content); err != nil {
		c.logger.Warnw("autosave: save failed", "id", id, "error", err)
		c.notify(id, StatusError)
		return
	}
	c.index.Update(id, content)

	c.mu.Lock()
	if st, ok := c.notes[id]; ok {
		st.lastCommitted = content
		if st.pending == content {
			st.dirty = false
		}
	}
	c.mu.Unlock()
	c.notify(id, StatusSaved)
}

// Flush cancels the timers for a note and commits its pending content
// now. Used when the note is closed or the process exits.
func (c *Controller) Flush(id string) {
	c.mu.Lock()
	st, ok := c.notes[id]
	if ok {
		if st.fast != nil {
			st.fast.Stop()
		}
		if st.slow != nil {
			st.slow.Stop()
		}
	}
	c.mu.Unlock()
	if ok {
		c.commit(id)
	}
}

// FlushAll flushes every tracked note.
func (c *Controller) FlushAll() {
	c.mu.Lock()
	ids := make([]string, 0, len(c.notes))
	for id := range c.notes {
		ids = append(ids, id)
	}
	c.mu.Unlock()
	for _, id := range ids {
		c.Flush(id)
	}
}

func (c *Controller) stateLocked(id string) *noteState {
	st, ok := c.notes[id]
	if !ok {
		st = &noteState{}
		c.notes[id] = st
	}
	return st
}

func (c *Controller) notify(id string, st Status) {
	if c.OnStatus != nil {
		c.OnStatus(id, st)
	}
}
