package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListNotes_FollowsCursor(t *testing.T) {
	page := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "bucket-1", r.Header.Get(BucketHeader))
		w.Header().Set("Content-Type", "application/json")
		switch page {
		case 0:
			assert.Empty(t, r.URL.Query().Get("cursor"))
			_, _ = w.Write([]byte(`{"notes":[{"id":"a","title":"A","updatedAt":3}],"cursor":"c1"}`))
		case 1:
			assert.Equal(t, "c1", r.URL.Query().Get("cursor"))
			_, _ = w.Write([]byte(`{"notes":[{"id":"b","title":"B","updatedAt":2}],"cursor":null}`))
		}
		page++
	}))
	defer srv.Close()

	c := New(srv.URL, "bucket-1")
	notes, err := c.ListNotes(context.Background())
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, "a", notes[0].ID)
	assert.Equal(t, "b", notes[1].ID)
	assert.Equal(t, 2, page)
}

func TestListNotes_MalformedPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"notes":[{"title":"missing id","updatedAt":3}],"cursor":null}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, "b").ListNotes(context.Background())
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestGetNote_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := New(srv.URL, "b").GetNote(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveNote_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "id1", req["id"])
		assert.Equal(t, float64(100), req["clientUpdatedAt"])
		_, _ = w.Write([]byte(`{"success":true,"updatedAt":250}`))
	}))
	defer srv.Close()

	ts := int64(100)
	updatedAt, err := New(srv.URL, "b").SaveNote(context.Background(), "id1", "content", &ts)
	require.NoError(t, err)
	assert.Equal(t, int64(250), updatedAt)
}

func TestSaveNote_ConflictCarriesServerVersion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"success":false,"conflict":true,"updatedAt":200,"content":"server content"}`))
	}))
	defer srv.Close()

	ts := int64(100)
	_, err := New(srv.URL, "b").SaveNote(context.Background(), "id1", "mine", &ts)
	require.ErrorIs(t, err, ErrConflict)

	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "server content", conflict.Content)
	assert.Equal(t, int64(200), conflict.UpdatedAt)
}

func TestDeleteNote_NonOKStatusIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := New(srv.URL, "b").DeleteNote(context.Background(), "id1")
	assert.Error(t, err)
}
