package format

import (
	"strings"

	"memcapture/internal/memstore"
)

// NoMemoriesMessage is injected when neither container holds anything.
const NoMemoriesMessage = "No previous memories found for this project.\nMemories will be saved as you work."

// ProfileSection renders a profile as markdown. Static facts and recent
// context are each limited to maxItems entries; blank entries are dropped.
// It returns "" when the profile holds nothing.
func ProfileSection(p *memstore.Profile, maxItems int) string {
	if p == nil {
		return ""
	}

	var sections []string
	if static := limitItems(p.Static, maxItems); len(static) > 0 {
		sections = append(sections, "## User Profile (Persistent)\n"+bullets(static))
	}

	dynamic := p.Dynamic
	if len(dynamic) == 0 && p.SearchResults != nil {
		for _, hit := range p.SearchResults.Results {
			dynamic = append(dynamic, hit.Memory)
		}
	}
	if recent := limitItems(dynamic, maxItems); len(recent) > 0 {
		sections = append(sections, "## Recent Context\n"+bullets(recent))
	}

	return strings.Join(sections, "\n\n")
}

// CombineContexts wraps the personal and project sections into the block
// injected at session start. Empty sections are omitted.
func CombineContexts(personal, project string) string {
	var parts []string
	if personal = strings.TrimSpace(personal); personal != "" {
		parts = append(parts, "### Personal Memories\n\n"+personal)
	}
	if project = strings.TrimSpace(project); project != "" {
		parts = append(parts, "### Project Knowledge (Shared across team)\n\n"+project)
	}
	if len(parts) == 0 {
		return WrapContext(NoMemoriesMessage)
	}
	return WrapContext(strings.Join(parts, "\n\n"))
}

// WrapContext encloses body in the context tags.
func WrapContext(body string) string {
	return "<supermemory-context>\n" + body + "\n</supermemory-context>"
}

// StatusMessage encloses a user-facing status or error line.
func StatusMessage(msg string) string {
	return "<supermemory-status>\n" + msg + "\n</supermemory-status>"
}

func limitItems(items []string, limit int) []string {
	var out []string
	for _, item := range items {
		item = collapseWhitespace(item)
		if item == "" {
			continue
		}
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, item)
	}
	return out
}

func bullets(items []string) string {
	var sb strings.Builder
	for i, item := range items {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString("- ")
		sb.WriteString(item)
	}
	return sb.String()
}
