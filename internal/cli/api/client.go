// Package api is the HTTP client for the remote note store. Responses
// are decoded into local DTOs and validated before use: a payload that
// does not parse into the expected shape surfaces as ErrMalformed, never
// as a panic or a silently wrong value.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/kavinsood/kite/internal/cli/model"
)

// BucketHeader carries the namespace id on every request.
const BucketHeader = "X-Bucket-Id"

var (
	// ErrNotFound: the note is absent or tombstoned on the server.
	ErrNotFound = errors.New("note not found on server")
	// ErrMalformed: the server answered with a payload that does not
	// match the protocol. Treated like missing data by callers.
	ErrMalformed = errors.New("malformed server response")
	// ErrConflict matches *ConflictError via errors.Is.
	ErrConflict = errors.New("save conflict")
)

// ConflictError is returned by SaveNote when the server rejected the
// save as stale. It carries the server's current version for the client
// to adopt.
type ConflictError struct {
	Content   string
	UpdatedAt int64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("save conflict: server version at %d wins", e.UpdatedAt)
}

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// ServerVersion returns the winning content and timestamp.
func (e *ConflictError) ServerVersion() (string, int64) { return e.Content, e.UpdatedAt }

// Client talks to one bucket of the remote note store.
type Client struct {
	baseURL string
	bucket  string
	http    *http.Client
}

// New creates a client for baseURL scoped to bucket.
func New(baseURL, bucket string) *Client {
	return &Client{
		baseURL: baseURL,
		bucket:  bucket,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Bucket returns the bucket id this client is scoped to.
func (c *Client) Bucket() string { return c.bucket }

type listResponse struct {
	Notes  []summaryDTO `json:"notes"`
	Cursor *string      `json:"cursor"`
}

type summaryDTO struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	UpdatedAt int64  `json:"updatedAt"`
	Preview   string `json:"preview"`
}

type noteDTO struct {
	ID        string `json:"id"`
	Content   string `json:"content"`
	UpdatedAt int64  `json:"updatedAt"`
	Deleted   bool   `json:"deleted"`
}

type saveRequest struct {
	ID              string `json:"id"`
	Content         string `json:"content"`
	ClientUpdatedAt *int64 `json:"clientUpdatedAt,omitempty"`
}

type saveResponse struct {
	Success   bool   `json:"success"`
	Conflict  bool   `json:"conflict"`
	UpdatedAt int64  `json:"updatedAt"`
	Content   string `json:"content"`
}

// ListNotes fetches the complete note list, following cursors until the
// server reports no further page.
func (c *Client) ListNotes(ctx context.Context) ([]model.Note, error) {
	var all []model.Note
	cursor := ""
	for {
		page, next, err := c.listPage(ctx, cursor)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if next == "" {
			return all, nil
		}
		cursor = next
	}
}

func (c *Client) listPage(ctx context.Context, cursor string) ([]model.Note, string, error) {
	u := c.baseURL + "/api/notes"
	if cursor != "" {
		u += "?cursor=" + url.QueryEscape(cursor)
	}
	body, status, err := c.do(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, "", err
	}
	if status != http.StatusOK {
		return nil, "", fmt.Errorf("list notes: server returned status %d", status)
	}

	var resp listResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, "", fmt.Errorf("list notes: %w: %v", ErrMalformed, err)
	}
	notes := make([]model.Note, 0, len(resp.Notes))
	for _, n := range resp.Notes {
		if n.ID == "" || n.UpdatedAt < 0 {
			return nil, "", fmt.Errorf("list notes: %w: bad summary", ErrMalformed)
		}
		notes = append(notes, model.Note{ID: n.ID, Title: n.Title, UpdatedAt: n.UpdatedAt, Preview: n.Preview})
	}
	next := ""
	if resp.Cursor != nil {
		next = *resp.Cursor
	}
	return notes, next, nil
}

// GetNote fetches a full note. Absent and tombstoned notes are ErrNotFound.
func (c *Client) GetNote(ctx context.Context, id string) (model.FullNote, error) {
	body, status, err := c.do(ctx, http.MethodGet, c.baseURL+"/api/note/"+url.PathEscape(id), nil)
	if err != nil {
		return model.FullNote{}, err
	}
	switch status {
	case http.StatusOK:
	case http.StatusNotFound:
		return model.FullNote{}, ErrNotFound
	default:
		return model.FullNote{}, fmt.Errorf("get note %s: server returned status %d", id, status)
	}

	var dto noteDTO
	if err := json.Unmarshal(body, &dto); err != nil {
		return model.FullNote{}, fmt.Errorf("get note %s: %w: %v", id, ErrMalformed, err)
	}
	if dto.ID == "" || dto.UpdatedAt < 0 {
		return model.FullNote{}, fmt.Errorf("get note %s: %w: bad note", id, ErrMalformed)
	}
	return model.FullNote{ID: dto.ID, Content: dto.Content, UpdatedAt: dto.UpdatedAt, Deleted: dto.Deleted}, nil
}

// SaveNote pushes content under the last-write-wins guard and returns
// the server-assigned timestamp. A stale clientUpdatedAt yields a
// *ConflictError carrying the server's current version.
func (c *Client) SaveNote(ctx context.Context, id, content string, clientUpdatedAt *int64) (int64, error) {
	payload, err := json.Marshal(saveRequest{ID: id, Content: content, ClientUpdatedAt: clientUpdatedAt})
	if err != nil {
		return 0, err
	}
	body, status, err := c.do(ctx, http.MethodPost, c.baseURL+"/api/save", payload)
	if err != nil {
		return 0, err
	}

	var resp saveResponse
	switch status {
	case http.StatusOK:
		if err := json.Unmarshal(body, &resp); err != nil || !resp.Success || resp.UpdatedAt <= 0 {
			return 0, fmt.Errorf("save note %s: %w", id, ErrMalformed)
		}
		return resp.UpdatedAt, nil
	case http.StatusConflict:
		if err := json.Unmarshal(body, &resp); err != nil || resp.UpdatedAt <= 0 {
			return 0, fmt.Errorf("save note %s: %w", id, ErrMalformed)
		}
		return 0, &ConflictError{Content: resp.Content, UpdatedAt: resp.UpdatedAt}
	default:
		return 0, fmt.Errorf("save note %s: server returned status %d", id, status)
	}
}

// DeleteNote soft-deletes a note on the server.
func (c *Client) DeleteNote(ctx context.Context, id string) error {
	payload, err := json.Marshal(map[string]string{"id": id})
	if err != nil {
		return err
	}
	_, status, err := c.do(ctx, http.MethodPost, c.baseURL+"/api/delete", payload)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("delete note %s: server returned status %d", id, status)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, url string, payload []byte) ([]byte, int, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, 0, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(BucketHeader, c.bucket)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, err
	}
	return raw, resp.StatusCode, nil
}
