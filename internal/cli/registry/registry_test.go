package registry

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kavinsood/kite/internal/cli/model"
	"github.com/kavinsood/kite/internal/cli/session"
	"github.com/kavinsood/kite/internal/cli/store"
)

type fakeRemote struct {
	listNotes []model.Note
	listErr   error

	saveTS      int64
	saveErr     error
	saveCalls   int
	gotClientTS *int64

	deleteErr error
	deleted   []string
}

func (f *fakeRemote) ListNotes(ctx context.Context) ([]model.Note, error) {
	return f.listNotes, f.listErr
}

func (f *fakeRemote) SaveNote(ctx context.Context, id, content string, clientUpdatedAt *int64) (int64, error) {
	f.saveCalls++
	f.gotClientTS = clientUpdatedAt
	if f.saveErr != nil {
		return 0, f.saveErr
	}
	return f.saveTS, nil
}

func (f *fakeRemote) DeleteNote(ctx context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return f.deleteErr
}

type fakeConflict struct {
	content   string
	updatedAt int64
}

func (e *fakeConflict) Error() string { return fmt.Sprintf("conflict at %d", e.updatedAt) }
func (e *fakeConflict) ServerVersion() (string, int64) {
	return e.content, e.updatedAt
}

func newTestRegistry(t *testing.T) (*Registry, *store.Store, *session.Session) {
	t.Helper()
	dir := t.TempDir()
	st, _, err := store.Open(dir)
	require.NoError(t, err)
	require.NoError(t, st.Migrate())
	t.Cleanup(func() { _ = st.Close() })

	sess, err := session.Load(dir)
	require.NoError(t, err)

	return New(st, sess, zap.NewNop().Sugar()), st, sess
}

func enableSyncMode(t *testing.T, r *Registry, sess *session.Session, remote Remote) {
	t.Helper()
	require.NoError(t, sess.SetBucket("test-bucket", true))
	r.SetRemote(remote)
}

func TestCreate_IdempotentFrontInsert(t *testing.T) {
	r, _, _ := newTestRegistry(t)

	r.Create("n1")
	r.Create("n2")
	r.Create("n1")

	notes := r.Notes()
	require.Len(t, notes, 2)
	assert.Equal(t, "Untitled", notes[0].Title)
}

func TestSave_LocalModePersistsMeta(t *testing.T) {
	r, st, _ := newTestRegistry(t)
	r.now = func() int64 { return 12345 }

	require.NoError(t, r.Save(context.Background(), "n1", "# My Note\nbody"))

	notes := r.Notes()
	require.Len(t, notes, 1)
	assert.Equal(t, "My Note", notes[0].Title)
	assert.Equal(t, int64(12345), notes[0].UpdatedAt)

	m, ok, err := st.GetMeta(context.Background(), "n1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(12345), m.UpdatedAt)
	assert.Equal(t, "My Note body", m.Preview)
}

func TestSave_SyncedAdoptsServerTimestamp(t *testing.T) {
	r, _, sess := newTestRegistry(t)
	remote := &fakeRemote{saveTS: 999}
	enableSyncMode(t, r, sess, remote)

	r.Create("n1")
	require.NoError(t, r.Save(context.Background(), "n1", "content"))

	notes := r.Notes()
	require.Len(t, notes, 1)
	assert.Equal(t, int64(999), notes[0].UpdatedAt)
	require.NotNil(t, remote.gotClientTS) // last-known timestamp travels as the conflict guard
}

func TestSave_NewNoteSendsNoClientTimestamp(t *testing.T) {
	r, _, sess := newTestRegistry(t)
	remote := &fakeRemote{saveTS: 1}
	enableSyncMode(t, r, sess, remote)

	require.NoError(t, r.Save(context.Background(), "brand-new", "content"))
	assert.Nil(t, remote.gotClientTS)
}

func TestSave_NetworkFailureRollsBack(t *testing.T) {
	r, _, sess := newTestRegistry(t)
	remote := &fakeRemote{saveTS: 500}
	enableSyncMode(t, r, sess, remote)

	require.NoError(t, r.Save(context.Background(), "n1", "# Original"))
	before := r.Notes()

	remote.saveErr = errors.New("network down")
	err := r.Save(context.Background(), "n1", "# Changed")
	require.Error(t, err)

	assert.Equal(t, before, r.Notes()) // optimistic entry rolled back
}

func TestSave_ConflictAdoptsServerVersion(t *testing.T) {
	r, st, sess := newTestRegistry(t)
	remote := &fakeRemote{}
	enableSyncMode(t, r, sess, remote)

	r.Create("n1")
	remote.saveErr = &fakeConflict{content: "# Server Wins\nremote body", updatedAt: 777}

	err := r.Save(context.Background(), "n1", "# Mine")
	require.Error(t, err)
	var conflict *fakeConflict
	assert.ErrorAs(t, err, &conflict)

	// registry entry reflects the server version
	notes := r.Notes()
	require.Len(t, notes, 1)
	assert.Equal(t, "Server Wins", notes[0].Title)
	assert.Equal(t, int64(777), notes[0].UpdatedAt)

	// local committed copy was overwritten
	content, ok, err := st.GetNote(context.Background(), "n1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "# Server Wins\nremote body", content)

	m, ok, err := st.GetMeta(context.Background(), "n1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(777), m.UpdatedAt)
}

func TestDelete_RemovesLocallyEvenWhenRemoteFails(t *testing.T) {
	r, st, sess := newTestRegistry(t)
	remote := &fakeRemote{saveTS: 1, deleteErr: errors.New("unreachable")}
	enableSyncMode(t, r, sess, remote)

	ctx := context.Background()
	require.NoError(t, st.SetNote(ctx, "n1", "content"))
	require.NoError(t, st.SetDraft(ctx, "n1", "draft"))
	require.NoError(t, sess.SetPinned("n1", true))
	require.NoError(t, r.Load(ctx))
	r.Create("n1")

	r.Delete(ctx, "n1")

	assert.Empty(t, r.Notes())
	assert.Equal(t, []string{"n1"}, remote.deleted)
	_, ok, err := st.GetNote(ctx, "n1")
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = st.GetDraft(ctx, "n1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, sess.Pinned())
}

func TestUpdateLocalFromContent_KeepsUpdatedAt(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	r.now = func() int64 { return 100 }
	r.Create("n1")

	r.UpdateLocalFromContent("n1", "# Typing away\nmore")

	notes := r.Notes()
	require.Len(t, notes, 1)
	assert.Equal(t, "Typing away", notes[0].Title)
	assert.Equal(t, int64(100), notes[0].UpdatedAt) // only a commit moves this
}

func TestNotes_PinnedFirstThenRecency(t *testing.T) {
	r, _, sess := newTestRegistry(t)
	ts := int64(0)
	r.now = func() int64 { ts += 10; return ts }

	require.NoError(t, r.Save(context.Background(), "old", "old note"))
	require.NoError(t, r.Save(context.Background(), "mid", "mid note"))
	require.NoError(t, r.Save(context.Background(), "new", "new note"))
	require.NoError(t, sess.SetPinned("old", true))

	notes := r.Notes()
	require.Len(t, notes, 3)
	assert.Equal(t, "old", notes[0].ID)
	assert.Equal(t, "new", notes[1].ID)
	assert.Equal(t, "mid", notes[2].ID)
}

func TestLoad_LocalPrefersDraftForTitle(t *testing.T) {
	r, st, _ := newTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, st.SetNote(ctx, "n1", "# Committed Title"))
	require.NoError(t, st.SetDraft(ctx, "n1", "# Draft Title"))
	require.NoError(t, st.SetMeta(ctx, "n1", store.Meta{UpdatedAt: 5, Preview: "p"}))

	require.NoError(t, r.Load(ctx))
	notes := r.Notes()
	require.Len(t, notes, 1)
	assert.Equal(t, "Draft Title", notes[0].Title)
	assert.Equal(t, int64(5), notes[0].UpdatedAt)
}

func TestLoad_SyncedUsesRemoteList(t *testing.T) {
	r, _, sess := newTestRegistry(t)
	remote := &fakeRemote{listNotes: []model.Note{
		{ID: "a", Title: "A", UpdatedAt: 2},
		{ID: "b", Title: "B", UpdatedAt: 1},
	}}
	enableSyncMode(t, r, sess, remote)

	require.NoError(t, r.Load(context.Background()))
	assert.Len(t, r.Notes(), 2)
}
