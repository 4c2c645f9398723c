// Package activity counts qualifying tool events per session and signals when
// enough work has happened since the last save to suggest saving again.
package activity

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"memcapture/internal/store"
)

const (
	fileSuffix = ".activity.json"

	// DefaultPromptThreshold is the number of events since the last save at
	// which ShouldPrompt turns true.
	DefaultPromptThreshold = 5
)

// Event categories with their own counter. Any other category only counts
// toward ToolUses.
const (
	CategoryEdit  = "Edit"
	CategoryWrite = "Write"
	CategoryBash  = "Bash"
	CategoryTask  = "Task"
)

// State is the persisted counter set for one session.
type State struct {
	ToolUses            int        `json:"tool_uses"`
	Edits               int        `json:"edits"`
	Writes              int        `json:"writes"`
	BashCommands        int        `json:"bash_commands"`
	Tasks               int        `json:"tasks"`
	LastSaveAtToolCount int        `json:"last_save_at_tool_count"`
	LastToolAt          *time.Time `json:"last_tool_at"`
	SessionID           string     `json:"session_id"`
	LastSavedAt         *time.Time `json:"last_saved_at,omitempty"`
}

// Pending returns the number of events recorded after the last save marker.
func (s State) Pending() int {
	return max(s.ToolUses-s.LastSaveAtToolCount, 0)
}

// Status is State plus the derived prompt signal.
type Status struct {
	State
	SinceLastSave int  `json:"since_last_save"`
	ShouldPrompt  bool `json:"should_prompt"`
}

// Counter reads and mutates activity state files.
type Counter struct {
	dir       *store.Dir
	threshold int
	now       func() time.Time
}

// New returns a Counter. A non-positive threshold selects DefaultPromptThreshold.
func New(dir *store.Dir, threshold int) *Counter {
	if threshold <= 0 {
		threshold = DefaultPromptThreshold
	}
	return &Counter{dir: dir, threshold: threshold, now: time.Now}
}

// Threshold returns the prompt threshold in effect.
func (c *Counter) Threshold() int { return c.threshold }

// RecordEvent counts one event of the given category for sessionID, creating
// the session's state on first use. The caller decides which events qualify.
func (c *Counter) RecordEvent(sessionID, category string) (Status, error) {
	st, err := c.Load(sessionID)
	if err != nil {
		return Status{}, err
	}

	st.ToolUses++
	switch category {
	case CategoryEdit:
		st.Edits++
	case CategoryWrite:
		st.Writes++
	case CategoryBash:
		st.BashCommands++
	case CategoryTask:
		st.Tasks++
	}
	now := c.now().UTC()
	st.LastToolAt = &now

	if err := c.save(st); err != nil {
		return Status{}, err
	}
	return c.status(st), nil
}

// Status reports the counters for sessionID. A session with no state yet
// reports zero counts and no prompt.
func (c *Counter) Status(sessionID string) (Status, error) {
	st, err := c.Load(sessionID)
	if err != nil {
		return Status{}, err
	}
	return c.status(st), nil
}

// MarkSaved moves the save marker to the current tool count and returns that
// count. Without any recorded activity nothing is written and 0 is returned.
func (c *Counter) MarkSaved(sessionID string) (int, error) {
	st, found, err := c.load(sessionID)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, nil
	}

	st.LastSaveAtToolCount = st.ToolUses
	now := c.now().UTC()
	st.LastSavedAt = &now
	if err := c.save(st); err != nil {
		return 0, err
	}
	return st.ToolUses, nil
}

// Load returns the state for sessionID, or a fresh default when none is stored.
func (c *Counter) Load(sessionID string) (State, error) {
	st, _, err := c.load(sessionID)
	return st, err
}

// List returns the status of every tracked session, ordered by session id.
func (c *Counter) List() ([]Status, error) {
	ids, err := c.dir.Sessions(fileSuffix)
	if err != nil {
		return nil, err
	}
	out := make([]Status, 0, len(ids))
	for _, id := range ids {
		st, err := c.Load(id)
		if err != nil {
			return nil, err
		}
		out = append(out, c.status(st))
	}
	return out, nil
}

func (c *Counter) load(sessionID string) (State, bool, error) {
	if err := store.ValidateSessionID(sessionID); err != nil {
		return State{}, false, err
	}
	fresh := State{SessionID: sessionID}

	data, err := c.dir.ReadFile(sessionID, fileSuffix)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fresh, false, nil
		}
		return State{}, false, fmt.Errorf("read activity: %w", err)
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		slog.Debug("activity state unreadable, starting over", "session_id", sessionID, "err", err)
		return fresh, false, nil
	}
	if st.SessionID == "" {
		st.SessionID = sessionID
	}
	if st.LastSaveAtToolCount < 0 || st.LastSaveAtToolCount > st.ToolUses {
		st.LastSaveAtToolCount = min(max(st.LastSaveAtToolCount, 0), st.ToolUses)
	}
	return st, true, nil
}

func (c *Counter) save(st State) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("encode activity: %w", err)
	}
	if err := c.dir.WriteFile(st.SessionID, fileSuffix, data); err != nil {
		return fmt.Errorf("save activity: %w", err)
	}
	return nil
}

func (c *Counter) status(st State) Status {
	since := st.Pending()
	return Status{State: st, SinceLastSave: since, ShouldPrompt: since >= c.threshold}
}
