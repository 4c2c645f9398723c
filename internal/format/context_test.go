package format

import (
	"strings"
	"testing"

	"memcapture/internal/memstore"
)

func TestProfileSection(t *testing.T) {
	p := &memstore.Profile{
		Static:  []string{"Prefers Go", "  ", "Uses  tabs", "Works nights"},
		Dynamic: []string{"Refactoring the parser"},
	}

	got := ProfileSection(p, 2)
	expected := "## User Profile (Persistent)\n- Prefers Go\n- Uses tabs\n\n## Recent Context\n- Refactoring the parser"
	if got != expected {
		t.Fatalf("profile mismatch:\nexpected: %q\nactual:   %q", expected, got)
	}
}

func TestProfileSectionFallsBackToSearchResults(t *testing.T) {
	p := &memstore.Profile{
		SearchResults: &memstore.SearchResult{Results: []memstore.SearchHit{{ID: "m1", Memory: "ran migrations"}}},
	}

	got := ProfileSection(p, 5)
	if got != "## Recent Context\n- ran migrations" {
		t.Fatalf("unexpected section: %q", got)
	}
}

func TestProfileSectionEmpty(t *testing.T) {
	if got := ProfileSection(nil, 5); got != "" {
		t.Fatalf("nil profile should render nothing, got %q", got)
	}
	if got := ProfileSection(&memstore.Profile{Static: []string{""}}, 5); got != "" {
		t.Fatalf("blank profile should render nothing, got %q", got)
	}
}

func TestCombineContexts(t *testing.T) {
	got := CombineContexts("- mine", "")
	if !strings.HasPrefix(got, "<supermemory-context>\n### Personal Memories\n\n- mine") {
		t.Fatalf("unexpected combined context: %q", got)
	}
	if strings.Contains(got, "Project Knowledge") {
		t.Fatalf("empty project section should be omitted: %q", got)
	}

	both := CombineContexts("- mine", "- shared")
	if strings.Index(both, "Personal Memories") > strings.Index(both, "Project Knowledge") {
		t.Fatalf("personal memories should come first: %q", both)
	}
	if !strings.HasSuffix(both, "- shared\n</supermemory-context>") {
		t.Fatalf("context should be closed: %q", both)
	}
}

func TestCombineContextsNothingFound(t *testing.T) {
	got := CombineContexts(" ", "")
	if !strings.Contains(got, NoMemoriesMessage) {
		t.Fatalf("expected placeholder, got %q", got)
	}
}

func TestStatusMessage(t *testing.T) {
	if got := StatusMessage("offline"); got != "<supermemory-status>\noffline\n</supermemory-status>" {
		t.Fatalf("unexpected status: %q", got)
	}
}
