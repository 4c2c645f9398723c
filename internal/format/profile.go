package format

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"memcapture/internal/memstore"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// ProfileDump is everything the store holds for one container: the distilled
// profile plus the discrete memories behind it.
type ProfileDump struct {
	Project      string            `json:"project"`
	ContainerTag string            `json:"containerTag"`
	Static       []string          `json:"static"`
	Dynamic      []string          `json:"dynamic"`
	Memories     []memstore.Memory `json:"memories"`
}

// WriteProfile writes dump to w. limit caps the static and dynamic items
// shown (the totals are still reported); width bounds each item.
func WriteProfile(w io.Writer, dump ProfileDump, includeHeader bool, format string, limit, width int) error {
	static := headItems(dump.Static, limit)
	dynamic := headItems(dump.Dynamic, limit)

	switch strings.ToLower(format) {
	case "", "table":
		return writeProfileTable(w, dump, static, dynamic, includeHeader, width)
	case "plain":
		return writeProfilePlain(w, dump, static, dynamic, includeHeader, width)
	case "json":
		out := dump
		out.Static, out.Dynamic = nonNil(static), nonNil(dynamic)
		if out.Memories == nil {
			out.Memories = []memstore.Memory{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func writeProfileTable(w io.Writer, dump ProfileDump, static, dynamic []string, includeHeader bool, width int) error {
	if _, err := fmt.Fprintf(w, "Profile for %s (%s)\nStatic items: %d  Dynamic items: %d\n",
		dump.Project, dump.ContainerTag, len(dump.Static), len(dump.Dynamic)); err != nil {
		return err
	}

	tw := newTable(w)
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft, AlignHeader: text.AlignCenter},
		{Number: 2, Align: text.AlignRight, AlignHeader: text.AlignCenter},
		{Number: 3, Align: text.AlignLeft, AlignHeader: text.AlignCenter, WidthMax: 100},
	})
	if includeHeader {
		tw.AppendHeader(table.Row{"Kind", "#", "Item"})
	}
	for i, item := range static {
		tw.AppendRow(table.Row{"static", i + 1, Truncate(collapseWhitespace(item), width)})
	}
	for i, item := range dynamic {
		tw.AppendRow(table.Row{"dynamic", i + 1, Truncate(collapseWhitespace(item), width)})
	}
	if len(static) == 0 && len(dynamic) == 0 {
		tw.AppendRow(table.Row{"-", "-", "(empty profile)"})
	}
	_ = tw.Render()

	if _, err := fmt.Fprintf(w, "\nDiscrete memories: %d\n", len(dump.Memories)); err != nil {
		return err
	}
	return writeMemoriesTable(w, dump.Memories, includeHeader, width)
}

func writeProfilePlain(w io.Writer, dump ProfileDump, static, dynamic []string, includeHeader bool, width int) error {
	if includeHeader {
		if _, err := fmt.Fprintln(w, "kind\tindex\titem"); err != nil {
			return err
		}
	}
	write := func(kind string, i int, item string) error {
		_, err := fmt.Fprintf(w, "%s\t%d\t%s\n", kind, i+1, item)
		return err
	}
	for i, item := range static {
		if err := write("static", i, Truncate(collapseWhitespace(item), width)); err != nil {
			return err
		}
	}
	for i, item := range dynamic {
		if err := write("dynamic", i, Truncate(collapseWhitespace(item), width)); err != nil {
			return err
		}
	}
	for i, m := range dump.Memories {
		summary := memorySummary(m, width)
		if summary == "" {
			summary = "(empty)"
		}
		if err := write("memory", i, m.ID+" "+summary); err != nil {
			return err
		}
	}
	return nil
}

func headItems(items []string, limit int) []string {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
