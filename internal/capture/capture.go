// Package capture turns the part of a transcript that appeared since the last
// capture into one tagged turn block.
package capture

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"memcapture/internal/cursor"
	"memcapture/internal/format"
	"memcapture/internal/store"
	"memcapture/internal/transcript"
)

// DefaultMinTurnLength is the shortest turn worth storing. Shorter batches are
// left uncaptured so they can be picked up together with later activity.
const DefaultMinTurnLength = 100

// Options configures a Capturer.
type Options struct {
	Format        format.Options
	MinTurnLength int
}

// DefaultOptions returns the standard limits.
func DefaultOptions() Options {
	return Options{
		Format:        format.DefaultOptions(),
		MinTurnLength: DefaultMinTurnLength,
	}
}

// Turn is a formatted batch of new records.
type Turn struct {
	Text      string
	Timestamp string // timestamp of the first new record
	FirstUUID string
	LastUUID  string // the cursor value after a successful capture
	Records   int
}

// Capturer reads transcripts and advances per-session cursors.
type Capturer struct {
	cursors *cursor.Store
	opts    Options
	now     func() time.Time
}

// New returns a Capturer.
func New(cursors *cursor.Store, opts Options) *Capturer {
	return &Capturer{cursors: cursors, opts: opts, now: time.Now}
}

// CaptureNew formats every user and assistant record appended to logPath since
// the session's cursor and advances the cursor to the last of them. It returns
// a nil Turn when there is nothing new or the result is shorter than the
// minimum turn length; in both cases the cursor is left where it was.
func (c *Capturer) CaptureNew(logPath, sessionID string) (*Turn, error) {
	turn, err := c.Preview(logPath, sessionID)
	if err != nil || turn == nil {
		return nil, err
	}
	if err := c.Commit(sessionID, turn); err != nil {
		return nil, err
	}
	return turn, nil
}

// Commit advances the session's cursor past turn. Callers that hand the turn
// to a remote store call Preview first and Commit once the store accepted it,
// so a failed upload is retried on the next capture.
func (c *Capturer) Commit(sessionID string, turn *Turn) error {
	if turn == nil {
		return nil
	}
	if turn.LastUUID == "" {
		slog.Debug("captured turn has no record uuid, cursor not advanced", "session_id", sessionID)
		return nil
	}
	if err := c.cursors.Set(sessionID, turn.LastUUID); err != nil {
		return fmt.Errorf("advance cursor: %w", err)
	}
	return nil
}

// Preview builds the turn CaptureNew would return without moving the cursor.
func (c *Capturer) Preview(logPath, sessionID string) (*Turn, error) {
	if err := store.ValidateSessionID(sessionID); err != nil {
		return nil, err
	}

	log, err := transcript.ReadFile(logPath)
	if err != nil {
		return nil, err
	}
	if log.Skipped > 0 {
		slog.Debug("skipped malformed transcript lines", "session_id", sessionID, "count", log.Skipped)
	}
	if len(log.Records) == 0 {
		return nil, nil
	}

	last, ok := c.cursors.Get(sessionID)
	records := NewRecords(log.Records, last, ok)
	if len(records) == 0 {
		return nil, nil
	}

	turn := c.build(records)
	if utf8.RuneCountInString(turn.Text) < c.opts.MinTurnLength {
		slog.Debug("turn below minimum length", "session_id", sessionID, "length", utf8.RuneCountInString(turn.Text))
		return nil, nil
	}
	return turn, nil
}

// NewRecords returns the user and assistant records after the record whose
// uuid is cursor. Without a cursor, or when the cursor no longer appears in
// the log, the whole log is new.
func NewRecords(records []transcript.Record, cursor string, hasCursor bool) []transcript.Record {
	start := 0
	if hasCursor {
		for i, rec := range records {
			if rec.UUID == cursor {
				start = i + 1
				break
			}
		}
	}

	var out []transcript.Record
	for _, rec := range records[start:] {
		if rec.Conversational() {
			out = append(out, rec)
		}
	}
	return out
}

func (c *Capturer) build(records []transcript.Record) *Turn {
	first := records[0]
	timestamp := first.Timestamp
	if timestamp == "" {
		timestamp = c.now().UTC().Format("2006-01-02T15:04:05.000Z")
	}

	pass := format.NewPass(c.opts.Format)
	parts := []string{fmt.Sprintf("[turn:start timestamp=\"%s\"]", timestamp)}
	for _, rec := range records {
		if text := pass.Format(rec); text != "" {
			parts = append(parts, text)
		}
	}
	parts = append(parts, "[turn:end]")

	turn := &Turn{
		Text:      strings.Join(parts, "\n\n"),
		Timestamp: timestamp,
		FirstUUID: first.UUID,
		Records:   len(records),
	}
	for i := len(records) - 1; i >= 0; i-- {
		if records[i].UUID != "" {
			turn.LastUUID = records[i].UUID
			break
		}
	}
	return turn
}
