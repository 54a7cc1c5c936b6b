package index

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/kavinsood/kite/internal/cli/model"
)

// fakeReader is an in-memory stand-in for the durable local store.
type fakeReader struct {
	mu     sync.Mutex
	drafts map[string]string
	notes  map[string]string
	fail   bool
}

func (f *fakeReader) GetDraft(_ context.Context, id string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return "", false, errors.New("store unavailable")
	}
	v, ok := f.drafts[id]
	return v, ok, nil
}

func (f *fakeReader) GetNote(_ context.Context, id string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return "", false, errors.New("store unavailable")
	}
	v, ok := f.notes[id]
	return v, ok, nil
}

func newTestIndex(r *fakeReader) *Index {
	return New(r, zap.NewNop().Sugar())
}

func TestSearch_MatchesTitleAndContent(t *testing.T) {
	r := &fakeReader{notes: map[string]string{"n1": "hello world"}}
	ix := newTestIndex(r)
	note := model.Note{ID: "n1", Title: "Greeting"}

	ix.Reconcile([]model.Note{note})
	ix.WaitForHydration()

	assert.Equal(t, []model.Note{note}, ix.Search("world", []model.Note{note}))
	assert.Equal(t, []model.Note{note}, ix.Search("greet", []model.Note{note}))
	assert.Empty(t, ix.Search("xyz", []model.Note{note}))
	assert.Empty(t, ix.Search("", []model.Note{note}))
}

func TestSearchWithPositions_RanksByFirstMatch(t *testing.T) {
	ix := newTestIndex(&fakeReader{})
	a := model.Note{ID: "a", Title: "xxxxxcat"} // match at offset 5
	b := model.Note{ID: "b", Title: "xxcat"}    // match at offset 2

	ix.Update("a", "")
	ix.Update("b", "")

	got := ix.SearchWithPositions("cat", []model.Note{a, b})
	assert.Equal(t, []model.Note{b, a}, got)
}

func TestSearchWithPositions_TiesKeepInputOrder(t *testing.T) {
	ix := newTestIndex(&fakeReader{})
	a := model.Note{ID: "a", Title: "cat one"}
	b := model.Note{ID: "b", Title: "cat two"}

	got := ix.SearchWithPositions("cat", []model.Note{a, b})
	assert.Equal(t, []model.Note{a, b}, got)
}

func TestReconcile_EvictsDeletedNotes(t *testing.T) {
	r := &fakeReader{notes: map[string]string{"n1": "secret content"}}
	ix := newTestIndex(r)
	note := model.Note{ID: "n1", Title: "t"}

	ix.Reconcile([]model.Note{note})
	ix.WaitForHydration()
	assert.Len(t, ix.Search("secret", []model.Note{note}), 1)

	ix.Reconcile([]model.Note{})
	ix.WaitForHydration()
	// the haystack for n1 no longer contains the stale content
	assert.Empty(t, ix.Search("secret", []model.Note{note}))
}

func TestHydration_PrefersDraftOverNote(t *testing.T) {
	r := &fakeReader{
		drafts: map[string]string{"n1": "draft words"},
		notes:  map[string]string{"n1": "committed words"},
	}
	ix := newTestIndex(r)
	note := model.Note{ID: "n1", Title: "t"}

	ix.Reconcile([]model.Note{note})
	ix.WaitForHydration()

	assert.Len(t, ix.Search("draft", []model.Note{note}), 1)
	assert.Empty(t, ix.Search("committed", []model.Note{note}))
}

func TestHydration_StoreErrorsDegradeToEmpty(t *testing.T) {
	r := &fakeReader{fail: true}
	ix := newTestIndex(r)
	note := model.Note{ID: "n1", Title: "Greeting"}

	ix.Reconcile([]model.Note{note})
	ix.WaitForHydration()

	// content is empty but the title still matches
	assert.Len(t, ix.Search("greeting", []model.Note{note}), 1)
}

func TestHydration_SupersededRunNeverOverwrites(t *testing.T) {
	r := &fakeReader{notes: map[string]string{"n1": "stale"}}
	ix := newTestIndex(r)
	note := model.Note{ID: "n1", Title: "t"}

	// First reconcile schedules hydration of the stored content; a
	// second reconcile supersedes it and a fresh Update provides the
	// authoritative value.
	ix.Reconcile([]model.Note{note})
	ix.Reconcile([]model.Note{note})
	ix.Update("n1", "fresh")
	ix.WaitForHydration()

	assert.Len(t, ix.Search("fresh", []model.Note{note}), 1)
	assert.Empty(t, ix.Search("stale", []model.Note{note}))
}

func TestHydration_ManyBatches(t *testing.T) {
	r := &fakeReader{notes: map[string]string{}}
	var notes []model.Note
	for i := 0; i < 120; i++ {
		id := string(rune('a'+i%26)) + string(rune('0'+i/26))
		r.notes[id] = "payload"
		notes = append(notes, model.Note{ID: id, Title: "t"})
	}
	ix := newTestIndex(r)

	ix.Reconcile(notes)
	ix.WaitForHydration()

	assert.Len(t, ix.Search("payload", notes), len(notes))
}
