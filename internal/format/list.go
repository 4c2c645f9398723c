package format

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"memcapture/internal/activity"
	"memcapture/internal/memstore"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// WriteStatuses writes activity statuses to w in the requested format.
func WriteStatuses(w io.Writer, items []activity.Status, includeHeader bool, format string) error {
	switch strings.ToLower(format) {
	case "", "table":
		return writeStatusesTable(w, items, includeHeader)
	case "plain":
		return writeStatusesPlain(w, items, includeHeader)
	case "json":
		return writeJSON(w, items)
	case "jsonl":
		return writeJSONL(w, items)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func writeStatusesPlain(w io.Writer, items []activity.Status, includeHeader bool) error {
	if includeHeader {
		if _, err := fmt.Fprintln(w, "session_id\ttool_uses\tedits\twrites\tbash_commands\ttasks\tsince_last_save\tshould_prompt\tlast_tool_at"); err != nil {
			return err
		}
	}

	for _, item := range items {
		line := fmt.Sprintf(
			"%s\t%d\t%d\t%d\t%d\t%d\t%d\t%t\t%s",
			item.SessionID,
			item.ToolUses,
			item.Edits,
			item.Writes,
			item.BashCommands,
			item.Tasks,
			item.SinceLastSave,
			item.ShouldPrompt,
			formatTime(item.LastToolAt),
		)
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func writeStatusesTable(w io.Writer, items []activity.Status, includeHeader bool) error {
	tw := newTable(w)
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft, AlignHeader: text.AlignCenter},
		{Number: 2, Align: text.AlignRight, AlignHeader: text.AlignCenter},
		{Number: 3, Align: text.AlignRight, AlignHeader: text.AlignCenter},
		{Number: 4, Align: text.AlignRight, AlignHeader: text.AlignCenter},
		{Number: 5, Align: text.AlignRight, AlignHeader: text.AlignCenter},
		{Number: 6, Align: text.AlignRight, AlignHeader: text.AlignCenter},
		{Number: 7, Align: text.AlignRight, AlignHeader: text.AlignCenter},
		{Number: 8, Align: text.AlignCenter, AlignHeader: text.AlignCenter},
		{Number: 9, Align: text.AlignLeft, AlignHeader: text.AlignCenter},
	})

	if includeHeader {
		tw.AppendHeader(table.Row{"Session ID", "Tools", "Edits", "Writes", "Bash", "Tasks", "Unsaved", "Prompt", "Last Tool"})
	}

	for _, item := range items {
		tw.AppendRow(table.Row{
			item.SessionID,
			item.ToolUses,
			item.Edits,
			item.Writes,
			item.BashCommands,
			item.Tasks,
			item.SinceLastSave,
			yesNo(item.ShouldPrompt),
			formatTime(item.LastToolAt),
		})
	}

	if len(items) == 0 {
		tw.AppendRow(table.Row{"(no sessions)", 0, 0, 0, 0, 0, 0, "-", "-"})
	}

	_ = tw.Render()
	return nil
}

// WriteMemories writes stored memories to w in the requested format.
// summaryWidth bounds the summary column; non-positive means unbounded.
func WriteMemories(w io.Writer, items []memstore.Memory, includeHeader bool, format string, summaryWidth int) error {
	switch strings.ToLower(format) {
	case "", "table":
		return writeMemoriesTable(w, items, includeHeader, summaryWidth)
	case "plain":
		return writeMemoriesPlain(w, items, includeHeader, summaryWidth)
	case "json":
		return writeJSON(w, items)
	case "jsonl":
		return writeJSONL(w, items)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func memorySummary(m memstore.Memory, width int) string {
	s := m.Summary
	if s == "" {
		s = m.Title
	}
	if s == "" {
		s = m.Content
	}
	return Truncate(collapseWhitespace(s), width)
}

func writeMemoriesPlain(w io.Writer, items []memstore.Memory, includeHeader bool, width int) error {
	if includeHeader {
		if _, err := fmt.Fprintln(w, "created_at\tid\tstatus\tsummary"); err != nil {
			return err
		}
	}
	for _, item := range items {
		line := fmt.Sprintf("%s\t%s\t%s\t%s", formatTime(&item.CreatedAt), item.ID, item.Status, memorySummary(item, width))
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func writeMemoriesTable(w io.Writer, items []memstore.Memory, includeHeader bool, width int) error {
	tw := newTable(w)
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft, AlignHeader: text.AlignCenter},
		{Number: 2, Align: text.AlignLeft, AlignHeader: text.AlignCenter},
		{Number: 3, Align: text.AlignCenter, AlignHeader: text.AlignCenter},
		{Number: 4, Align: text.AlignLeft, AlignHeader: text.AlignCenter, WidthMax: 80},
	})

	if includeHeader {
		tw.AppendHeader(table.Row{"Created", "ID", "Status", "Summary"})
	}
	for _, item := range items {
		tw.AppendRow(table.Row{formatTime(&item.CreatedAt), item.ID, item.Status, memorySummary(item, width)})
	}
	if len(items) == 0 {
		tw.AppendRow(table.Row{"-", "(no memories)", "-", "-"})
	}

	_ = tw.Render()
	return nil
}

// WriteSearchHits writes search results to w in the requested format.
func WriteSearchHits(w io.Writer, hits []memstore.SearchHit, includeHeader bool, format string, width int) error {
	switch strings.ToLower(format) {
	case "", "table":
		tw := newTable(w)
		tw.SetColumnConfigs([]table.ColumnConfig{
			{Number: 1, Align: text.AlignRight, AlignHeader: text.AlignCenter},
			{Number: 2, Align: text.AlignLeft, AlignHeader: text.AlignCenter},
			{Number: 3, Align: text.AlignLeft, AlignHeader: text.AlignCenter, WidthMax: 80},
		})
		if includeHeader {
			tw.AppendHeader(table.Row{"Score", "ID", "Memory"})
		}
		for _, hit := range hits {
			tw.AppendRow(table.Row{fmt.Sprintf("%.0f%%", hit.Similarity*100), hit.ID, Truncate(collapseWhitespace(hit.Memory), width)})
		}
		if len(hits) == 0 {
			tw.AppendRow(table.Row{"-", "(no results)", "-"})
		}
		_ = tw.Render()
		return nil
	case "plain":
		if includeHeader {
			if _, err := fmt.Fprintln(w, "similarity\tid\tmemory"); err != nil {
				return err
			}
		}
		for _, hit := range hits {
			if _, err := fmt.Fprintf(w, "%.2f\t%s\t%s\n", hit.Similarity, hit.ID, escapeNewlines(Truncate(hit.Memory, width))); err != nil {
				return err
			}
		}
		return nil
	case "json":
		return writeJSON(w, hits)
	case "jsonl":
		return writeJSONL(w, hits)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func newTable(w io.Writer) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleRounded)
	tw.Style().Options.SeparateRows = true
	tw.Style().Options.SeparateHeader = true
	tw.Style().Options.DrawBorder = true
	return tw
}

func writeJSON[T any](w io.Writer, items []T) error {
	if items == nil {
		items = []T{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(items)
}

func writeJSONL[T any](w io.Writer, items []T) error {
	enc := json.NewEncoder(w)
	for _, item := range items {
		if err := enc.Encode(item); err != nil {
			return err
		}
	}
	return nil
}

func escapeNewlines(text string) string {
	return strings.ReplaceAll(text, "\n", "\\n")
}

func collapseWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
