// Package cursor persists, per session, the uuid of the last transcript record
// included in a completed capture.
package cursor

import (
	"errors"
	"log/slog"
	"strings"

	"memcapture/internal/store"
)

const fileSuffix = ".txt"

// ErrEmptyCursor is returned by Set when no record uuid is given.
var ErrEmptyCursor = errors.New("cursor uuid is empty")

// Store reads and writes cursors. One file per session holds the raw uuid.
type Store struct {
	dir *store.Dir
}

// New returns a Store backed by dir.
func New(dir *store.Dir) *Store {
	return &Store{dir: dir}
}

// Get returns the cursor for sessionID. Any read failure, including a missing
// or unreadable file, is reported as absent: losing a cursor only means the
// next capture replays more of the transcript.
func (s *Store) Get(sessionID string) (string, bool) {
	data, err := s.dir.ReadFile(sessionID, fileSuffix)
	if err != nil {
		if !errors.Is(err, store.ErrMissingSessionID) {
			slog.Debug("cursor unavailable", "session_id", sessionID, "err", err)
		}
		return "", false
	}
	uuid := strings.TrimSpace(string(data))
	if uuid == "" {
		return "", false
	}
	return uuid, true
}

// Set records uuid as the cursor for sessionID.
func (s *Store) Set(sessionID, uuid string) error {
	if uuid == "" {
		return ErrEmptyCursor
	}
	return s.dir.WriteFile(sessionID, fileSuffix, []byte(uuid))
}
