// Package session persists the client's process-wide state: the sync
// bucket, the pinned-note set and the last active note. The state lives
// in a small TOML file next to the note database. Everything here is an
// explicit object handed to the components that need it; there is no
// package-level mutable state.
package session

import (
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/pelletier/go-toml/v2"
)

const fileName = "session.toml"

type state struct {
	BucketID     string   `toml:"bucket_id"`
	Synced       bool     `toml:"synced"`
	LastActiveID string   `toml:"last_active_id"`
	Pinned       []string `toml:"pinned"`
}

// Session is the persisted client session. Mutations are written through
// to disk immediately.
type Session struct {
	mu   sync.Mutex
	path string
	st   state
}

// Load reads the session file under dir, creating an empty session when
// the file does not exist. A malformed file is treated as empty rather
// than fatal: the session is a cache of flags, not a source of notes.
func Load(dir string) (*Session, error) {
	if dir == "" {
		return nil, errors.New("empty data dir")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	s := &Session{path: filepath.Join(dir, fileName)}
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return s, nil
	}
	if err := toml.Unmarshal(raw, &s.st); err != nil {
		s.st = state{}
	}
	return s, nil
}

func (s *Session) flushLocked() error {
	raw, err := toml.Marshal(s.st)
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, raw, 0o600)
}

// BucketID returns the stored bucket id ("" when sync was never enabled).
func (s *Session) BucketID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.BucketID
}

// Synced reports whether the last sync completed fully.
func (s *Session) Synced() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.Synced
}

// SetBucket stores the bucket id and synced flag together.
func (s *Session) SetBucket(id string, synced bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.BucketID = id
	s.st.Synced = synced
	return s.flushLocked()
}

// ClearSynced drops the synced flag but keeps the bucket id, so a failed
// sync can be retried against the same bucket.
func (s *Session) ClearSynced() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.Synced = false
	return s.flushLocked()
}

// LastActiveID returns the last opened note id.
func (s *Session) LastActiveID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.LastActiveID
}

// SetLastActiveID stores the last opened note id.
func (s *Session) SetLastActiveID(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.LastActiveID = id
	return s.flushLocked()
}

// Pinned returns the pin set.
func (s *Session) Pinned() map[string]bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	pins := make(map[string]bool, len(s.st.Pinned))
	for _, id := range s.st.Pinned {
		pins[id] = true
	}
	return pins
}

// SetPinned pins or unpins a note id.
func (s *Session) SetPinned(id string, pinned bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.st.Pinned[:0]
	for _, p := range s.st.Pinned {
		if p != id {
			out = append(out, p)
		}
	}
	s.st.Pinned = out
	if pinned {
		s.st.Pinned = append(s.st.Pinned, id)
	}
	return s.flushLocked()
}

// Forget removes a note id from the session (pin set, last active).
// Called when a note is deleted.
func (s *Session) Forget(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.st.Pinned[:0]
	for _, p := range s.st.Pinned {
		if p != id {
			out = append(out, p)
		}
	}
	s.st.Pinned = out
	if s.st.LastActiveID == id {
		s.st.LastActiveID = ""
	}
	return s.flushLocked()
}
