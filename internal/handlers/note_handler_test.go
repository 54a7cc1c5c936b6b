package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	_ "modernc.org/sqlite"

	"github.com/kavinsood/kite/internal/config"
	"github.com/kavinsood/kite/internal/handlers"
	"github.com/kavinsood/kite/internal/model"
	"github.com/kavinsood/kite/internal/repo"
	"github.com/kavinsood/kite/internal/service"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	dial := gormsqlite.Dialector{DriverName: "sqlite", DSN: "file::memory:"}
	db, err := gorm.Open(dial, &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Note{}))

	svc := service.NewNoteService(repo.NewNoteRepository(db))
	cfg := &config.Config{RateLimitRPS: 1000, RateLimitBurst: 1000}
	h := handlers.NewHandler(svc, zap.NewNop().Sugar(), cfg)

	srv := httptest.NewServer(h.Router)
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, srv *httptest.Server, method, path, bucket string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if bucket != "" {
		req.Header.Set("X-Bucket-Id", bucket)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestList_NoBucketHeaderReturnsEmptyList(t *testing.T) {
	srv := newTestServer(t)

	resp := doJSON(t, srv, http.MethodGet, "/api/notes", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[handlers.ListResponse](t, resp)
	assert.Empty(t, body.Notes)
	assert.Nil(t, body.Cursor)
}

func TestSaveGetRoundTrip(t *testing.T) {
	srv := newTestServer(t)

	resp := doJSON(t, srv, http.MethodPost, "/api/save", "b1",
		handlers.SaveRequest{ID: "11111111-1111-1111-1111-111111111111", Content: "# Hi\nbody"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	saved := decode[handlers.SaveResponse](t, resp)
	assert.True(t, saved.Success)
	assert.Positive(t, saved.UpdatedAt)

	resp = doJSON(t, srv, http.MethodGet, "/api/note/11111111-1111-1111-1111-111111111111", "b1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	note := decode[handlers.NoteDTO](t, resp)
	assert.Equal(t, "# Hi\nbody", note.Content)
	assert.Equal(t, saved.UpdatedAt, note.UpdatedAt)

	list := decode[handlers.ListResponse](t, doJSON(t, srv, http.MethodGet, "/api/notes", "b1", nil))
	require.Len(t, list.Notes, 1)
	assert.Equal(t, "Hi", list.Notes[0].Title)
	assert.Equal(t, "Hi body", list.Notes[0].Preview)
}

func TestSave_ConflictReturns409WithServerContent(t *testing.T) {
	srv := newTestServer(t)
	const id = "22222222-2222-2222-2222-222222222222"

	first := decode[handlers.SaveResponse](t, doJSON(t, srv, http.MethodPost, "/api/save", "b1",
		handlers.SaveRequest{ID: id, Content: "server wins"}))

	stale := first.UpdatedAt - 1
	resp := doJSON(t, srv, http.MethodPost, "/api/save", "b1",
		handlers.SaveRequest{ID: id, Content: "client loses", ClientUpdatedAt: &stale})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	body := decode[handlers.SaveResponse](t, resp)
	assert.False(t, body.Success)
	assert.True(t, body.Conflict)
	assert.Equal(t, "server wins", body.Content)
	assert.Equal(t, first.UpdatedAt, body.UpdatedAt)
}

func TestDelete_Tombstones(t *testing.T) {
	srv := newTestServer(t)
	const id = "33333333-3333-3333-3333-333333333333"

	doJSON(t, srv, http.MethodPost, "/api/save", "b1", handlers.SaveRequest{ID: id, Content: "x"}).Body.Close()

	resp := doJSON(t, srv, http.MethodPost, "/api/delete", "b1", handlers.DeleteRequest{ID: id})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, srv, http.MethodGet, "/api/note/"+id, "b1", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	// deleting an unknown id is still a success
	resp = doJSON(t, srv, http.MethodPost, "/api/delete", "b1", handlers.DeleteRequest{ID: "never"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestMissingBucketIs401OnNonListEndpoints(t *testing.T) {
	srv := newTestServer(t)

	resp := doJSON(t, srv, http.MethodGet, "/api/note/x", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, srv, http.MethodPost, "/api/save", "", handlers.SaveRequest{ID: "x"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, srv, http.MethodPost, "/api/delete", "", handlers.DeleteRequest{ID: "x"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestUnmatchedAPIRouteIs404(t *testing.T) {
	srv := newTestServer(t)

	resp := doJSON(t, srv, http.MethodGet, "/api/definitely-not-a-route", "b1", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestBucketsAreIsolated(t *testing.T) {
	srv := newTestServer(t)
	const id = "44444444-4444-4444-4444-444444444444"

	doJSON(t, srv, http.MethodPost, "/api/save", "alpha", handlers.SaveRequest{ID: id, Content: "secret"}).Body.Close()

	resp := doJSON(t, srv, http.MethodGet, "/api/note/"+id, "beta", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	list := decode[handlers.ListResponse](t, doJSON(t, srv, http.MethodGet, "/api/notes", "beta", nil))
	assert.Empty(t, list.Notes)
}
