package format

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"memcapture/internal/activity"
	"memcapture/internal/memstore"
)

func sampleStatuses() []activity.Status {
	last := time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)
	return []activity.Status{
		{
			State: activity.State{
				SessionID:    "session-a",
				ToolUses:     7,
				Edits:        3,
				Writes:       1,
				BashCommands: 2,
				Tasks:        1,
				LastToolAt:   &last,
			},
			SinceLastSave: 7,
			ShouldPrompt:  true,
		},
		{
			State:         activity.State{SessionID: "session-b", ToolUses: 2, Edits: 2, LastSaveAtToolCount: 2},
			SinceLastSave: 0,
		},
	}
}

func TestWriteStatusesPlain(t *testing.T) {
	var buf bytes.Buffer

	if err := WriteStatuses(&buf, sampleStatuses(), true, "plain"); err != nil {
		t.Fatalf("WriteStatuses plain returned error: %v", err)
	}

	expected := strings.Join([]string{
		"session_id\ttool_uses\tedits\twrites\tbash_commands\ttasks\tsince_last_save\tshould_prompt\tlast_tool_at",
		"session-a\t7\t3\t1\t2\t1\t7\ttrue\t2025-10-01T12:00:00Z",
		"session-b\t2\t2\t0\t0\t0\t0\tfalse\t-",
	}, "\n") + "\n"

	if got := buf.String(); got != expected {
		t.Fatalf("plain output mismatch:\nexpected: %q\nactual:   %q", expected, got)
	}
}

func TestWriteStatusesTable(t *testing.T) {
	var buf bytes.Buffer

	if err := WriteStatuses(&buf, sampleStatuses(), true, "table"); err != nil {
		t.Fatalf("WriteStatuses table returned error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "UNSAVED") || !strings.Contains(out, "PROMPT") {
		t.Fatalf("table header missing expected columns:\n%s", out)
	}
	if !strings.Contains(out, "session-a") || !strings.Contains(out, "yes") {
		t.Fatalf("table row missing: %s", out)
	}
	if strings.Index(out, "session-a") > strings.Index(out, "session-b") {
		t.Fatalf("table row order unexpected: %s", out)
	}
}

func TestWriteStatusesEmptyTable(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteStatuses(&buf, nil, true, ""); err != nil {
		t.Fatalf("WriteStatuses returned error: %v", err)
	}
	if !strings.Contains(buf.String(), "(no sessions)") {
		t.Fatalf("expected placeholder row: %s", buf.String())
	}
}

func TestWriteStatusesInvalidFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteStatuses(&buf, sampleStatuses(), true, "xml"); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWriteStatusesJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteStatuses(&buf, nil, true, "json"); err != nil {
		t.Fatalf("WriteStatuses json returned error: %v", err)
	}
	if got := strings.TrimSpace(buf.String()); got != "[]" {
		t.Fatalf("empty json should be an empty array, got %q", got)
	}

	buf.Reset()
	if err := WriteStatuses(&buf, sampleStatuses(), true, "jsonl"); err != nil {
		t.Fatalf("WriteStatuses jsonl returned error: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 jsonl lines, got %d", len(lines))
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &decoded); err != nil {
		t.Fatalf("jsonl line is not valid JSON: %v", err)
	}
	if decoded["session_id"] != "session-a" || decoded["should_prompt"] != true {
		t.Fatalf("unexpected jsonl payload: %v", decoded)
	}
}

func sampleMemories() []memstore.Memory {
	return []memstore.Memory{
		{
			ID:        "doc_1",
			Status:    "done",
			Summary:   "Refactored the\nparser",
			CreatedAt: time.Date(2025, 10, 2, 9, 30, 0, 0, time.UTC),
		},
		{
			ID:      "doc_2",
			Status:  "queued",
			Content: strings.Repeat("x", 50),
		},
	}
}

func TestWriteMemoriesPlain(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteMemories(&buf, sampleMemories(), true, "plain", 10); err != nil {
		t.Fatalf("WriteMemories plain returned error: %v", err)
	}

	expected := strings.Join([]string{
		"created_at\tid\tstatus\tsummary",
		"2025-10-02T09:30:00Z\tdoc_1\tdone\tRefactored...",
		"-\tdoc_2\tqueued\txxxxxxxxxx...",
	}, "\n") + "\n"
	if got := buf.String(); got != expected {
		t.Fatalf("plain output mismatch:\nexpected: %q\nactual:   %q", expected, got)
	}
}

func TestWriteMemoriesTable(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteMemories(&buf, nil, true, "table", 0); err != nil {
		t.Fatalf("WriteMemories table returned error: %v", err)
	}
	if !strings.Contains(buf.String(), "(no memories)") {
		t.Fatalf("expected placeholder row: %s", buf.String())
	}
}

func TestWriteSearchHits(t *testing.T) {
	hits := []memstore.SearchHit{{ID: "m1", Memory: "prefers\ntabs", Similarity: 0.875}}

	var buf bytes.Buffer
	if err := WriteSearchHits(&buf, hits, false, "plain", 0); err != nil {
		t.Fatalf("WriteSearchHits plain returned error: %v", err)
	}
	if got := buf.String(); got != "0.88\tm1\tprefers\\ntabs\n" {
		t.Fatalf("unexpected plain output: %q", got)
	}

	buf.Reset()
	if err := WriteSearchHits(&buf, hits, true, "table", 0); err != nil {
		t.Fatalf("WriteSearchHits table returned error: %v", err)
	}
	if !strings.Contains(buf.String(), "88%") || !strings.Contains(buf.String(), "prefers tabs") {
		t.Fatalf("unexpected table output: %s", buf.String())
	}
}
