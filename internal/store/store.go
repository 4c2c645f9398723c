// Package store manages the tracker directory that holds per-session state files.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var (
	// ErrMissingSessionID is returned when an operation that is keyed by session id receives none.
	ErrMissingSessionID = errors.New("session id is required")
	// ErrInvalidSessionID is returned when a session id cannot be used as a file name.
	ErrInvalidSessionID = errors.New("invalid session id")
)

// Dir is a directory of session-keyed state files. Each session owns the files
// named "<session id><suffix>" and nothing else writes them.
type Dir struct {
	root string
}

// New returns a Dir rooted at root. The directory is created lazily on first write.
func New(root string) *Dir {
	return &Dir{root: root}
}

// DefaultRoot returns the tracker directory, honouring SUPERMEMORY_STATE_DIR.
func DefaultRoot() string {
	if dir := os.Getenv("SUPERMEMORY_STATE_DIR"); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".supermemory-claude", "trackers")
}

// Root returns the directory path.
func (d *Dir) Root() string { return d.root }

// ValidateSessionID reports whether id can key a state file.
func ValidateSessionID(id string) error {
	if id == "" {
		return ErrMissingSessionID
	}
	if id == "." || id == ".." || strings.ContainsAny(id, "/\\") {
		return fmt.Errorf("%w: %q", ErrInvalidSessionID, id)
	}
	return nil
}

// Path returns the state file path for sessionID with the given suffix.
func (d *Dir) Path(sessionID, suffix string) (string, error) {
	if err := ValidateSessionID(sessionID); err != nil {
		return "", err
	}
	return filepath.Join(d.root, sessionID+suffix), nil
}

// ReadFile reads a session's state file. A missing file yields an error
// satisfying errors.Is(err, os.ErrNotExist).
func (d *Dir) ReadFile(sessionID, suffix string) ([]byte, error) {
	path, err := d.Path(sessionID, suffix)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(path) //nolint:gosec // path is validated above
}

// WriteFile replaces a session's state file. The data is written to a temporary
// file in the same directory and renamed into place, so readers never observe
// a partially written file.
func (d *Dir) WriteFile(sessionID, suffix string, data []byte) error {
	path, err := d.Path(sessionID, suffix)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(d.root, 0o750); err != nil {
		return fmt.Errorf("create tracker dir: %w", err)
	}

	tmp, err := os.CreateTemp(d.root, "."+sessionID+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

// Sessions returns the ids of every session that has a file with the given suffix,
// sorted lexically. A missing directory yields no sessions.
func (d *Dir) Sessions(suffix string) ([]string, error) {
	entries, err := os.ReadDir(d.root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list %s: %w", d.root, err)
	}

	var ids []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, suffix) {
			continue
		}
		id := strings.TrimSuffix(name, suffix)
		if ValidateSessionID(id) != nil {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
