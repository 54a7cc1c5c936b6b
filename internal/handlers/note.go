package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kavinsood/kite/internal/middleware"
	"github.com/kavinsood/kite/internal/service"
)

// NoteHandler serves the bucket-scoped note endpoints.
type NoteHandler struct {
	NoteService *service.NoteService
	Logger      *zap.SugaredLogger
}

func NewNoteHandler(noteService *service.NoteService, logger *zap.SugaredLogger) *NoteHandler {
	return &NoteHandler{NoteService: noteService, Logger: logger}
}

// ListResponse is one page of note summaries. Cursor is null on the
// final page.
type ListResponse struct {
	Notes  []NoteSummaryDTO `json:"notes"`
	Cursor *string          `json:"cursor"`
}

type NoteSummaryDTO struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	UpdatedAt int64  `json:"updatedAt"`
	Preview   string `json:"preview,omitempty"`
}

type NoteDTO struct {
	ID        string `json:"id"`
	Content   string `json:"content"`
	UpdatedAt int64  `json:"updatedAt"`
	Deleted   bool   `json:"deleted,omitempty"`
}

type SaveRequest struct {
	ID              string `json:"id"`
	Content         string `json:"content"`
	ClientUpdatedAt *int64 `json:"clientUpdatedAt,omitempty"`
}

type SaveResponse struct {
	Success   bool   `json:"success"`
	Conflict  bool   `json:"conflict,omitempty"`
	UpdatedAt int64  `json:"updatedAt"`
	Content   string `json:"content,omitempty"`
}

type DeleteRequest struct {
	ID string `json:"id"`
}

// List returns a page of summaries. A request without a bucket header is
// answered with an empty list rather than an auth error, so a client that
// has not enabled sync yet can still probe the endpoint.
func (h *NoteHandler) List(w http.ResponseWriter, r *http.Request) {
	bucket, ok := middleware.GetBucketFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusOK, ListResponse{Notes: []NoteSummaryDTO{}})
		return
	}

	summaries, next, err := h.NoteService.List(r.Context(), bucket, r.URL.Query().Get("cursor"))
	if err != nil {
		if errors.Is(err, service.ErrBadCursor) {
			http.Error(w, "invalid cursor", http.StatusBadRequest)
			return
		}
		h.Logger.Errorw("List: service error", "bucket", bucket, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	resp := ListResponse{Notes: make([]NoteSummaryDTO, 0, len(summaries))}
	for _, s := range summaries {
		resp.Notes = append(resp.Notes, NoteSummaryDTO{ID: s.ID, Title: s.Title, UpdatedAt: s.UpdatedAt, Preview: s.Preview})
	}
	if next != "" {
		resp.Cursor = &next
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get returns a full note, 404 when absent or tombstoned.
func (h *NoteHandler) Get(w http.ResponseWriter, r *http.Request) {
	bucket, ok := middleware.GetBucketFromContext(r.Context())
	if !ok {
		http.Error(w, "missing bucket id", http.StatusUnauthorized)
		return
	}

	id := chi.URLParam(r, "id")
	n, err := h.NoteService.Get(r.Context(), bucket, id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		h.Logger.Errorw("Get: service error", "bucket", bucket, "id", id, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, NoteDTO{ID: n.ID, Content: n.Content, UpdatedAt: n.UpdatedAt, Deleted: n.Deleted})
}

// Save applies a save under the last-write-wins guard. A stale client
// timestamp yields 409 with the server's current content so the client
// can adopt it.
func (h *NoteHandler) Save(w http.ResponseWriter, r *http.Request) {
	bucket, ok := middleware.GetBucketFromContext(r.Context())
	if !ok {
		http.Error(w, "missing bucket id", http.StatusUnauthorized)
		return
	}

	var req SaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" {
		h.Logger.Warnw("Save: invalid request body", "error", err)
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	res, err := h.NoteService.Save(r.Context(), bucket, req.ID, req.Content, req.ClientUpdatedAt)
	if err != nil {
		h.Logger.Errorw("Save: service error", "bucket", bucket, "id", req.ID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if res.Conflict {
		writeJSON(w, http.StatusConflict, SaveResponse{Success: false, Conflict: true, UpdatedAt: res.UpdatedAt, Content: res.Content})
		return
	}
	writeJSON(w, http.StatusOK, SaveResponse{Success: true, UpdatedAt: res.UpdatedAt})
}

// Delete tombstones a note. Always 200, even for ids that never existed.
func (h *NoteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	bucket, ok := middleware.GetBucketFromContext(r.Context())
	if !ok {
		http.Error(w, "missing bucket id", http.StatusUnauthorized)
		return
	}

	var req DeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" {
		h.Logger.Warnw("Delete: invalid request body", "error", err)
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	if err := h.NoteService.Delete(r.Context(), bucket, req.ID); err != nil {
		h.Logger.Errorw("Delete: service error", "bucket", bucket, "id", req.ID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// serveAssets serves the frontend bundle with an index.html fallback for
// client-side routes. With no assets dir configured everything 404s.
func serveAssets(dir string, w http.ResponseWriter, r *http.Request) {
	if dir == "" {
		http.NotFound(w, r)
		return
	}
	path := filepath.Join(dir, filepath.Clean("/"+r.URL.Path))
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		http.ServeFile(w, r, path)
		return
	}
	http.ServeFile(w, r, filepath.Join(dir, "index.html"))
}
