// Package format renders transcript records into tagged turn text and
// renders activity and memory listings for the CLI.
package format

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"memcapture/internal/transcript"
)

const (
	// DefaultMaxToolResultLength bounds tool output kept in a turn. Tool output
	// is mostly noise for recall; the head is usually enough to tell what happened.
	DefaultMaxToolResultLength = 500
	// DefaultMaxToolInputLength bounds each tool parameter value.
	DefaultMaxToolInputLength = 200

	unknownTool = "Unknown"
	ellipsis    = "..."
)

// injectedContext matches regions the host or this tool injected into the
// conversation. They are stripped so they are never stored back.
var injectedContext = []*regexp.Regexp{
	regexp.MustCompile(`(?s)<system-reminder>.*?</system-reminder>`),
	regexp.MustCompile(`(?s)<supermemory-context>.*?</supermemory-context>`),
}

// Options controls truncation and filtering.
type Options struct {
	MaxToolResultLength int
	MaxToolInputLength  int
	// SkipResultTools lists tools whose results are dropped entirely
	// (raw file reads are large and already live in the repository).
	SkipResultTools []string
}

// DefaultOptions returns the standard limits.
func DefaultOptions() Options {
	return Options{
		MaxToolResultLength: DefaultMaxToolResultLength,
		MaxToolInputLength:  DefaultMaxToolInputLength,
		SkipResultTools:     []string{"Read"},
	}
}

// Pass formats one batch of records. It remembers which tool each invocation
// id belongs to so later results can be labelled; that memory lives only as
// long as the Pass, so a new Pass must be used for every batch.
type Pass struct {
	opts      Options
	toolNames map[string]string
}

// NewPass starts a formatting pass.
func NewPass(opts Options) *Pass {
	return &Pass{opts: opts, toolNames: make(map[string]string)}
}

// Format renders a record. It returns "" when nothing in the record survives.
func (p *Pass) Format(rec transcript.Record) string {
	var parts []string
	switch rec.Kind {
	case transcript.KindUser:
		parts = p.userParts(rec.Message)
	case transcript.KindAssistant:
		parts = p.assistantParts(rec.Message)
	case transcript.KindOther:
		return ""
	default:
		return ""
	}
	return strings.Join(parts, "\n\n")
}

func (p *Pass) userParts(msg transcript.Message) []string {
	if msg.Plain {
		if cleaned := Clean(msg.Text); cleaned != "" {
			return []string{roleBlock("user", cleaned)}
		}
		return nil
	}

	var parts []string
	for _, block := range msg.Blocks {
		switch b := block.(type) {
		case transcript.TextBlock:
			if cleaned := Clean(b.Text); cleaned != "" {
				parts = append(parts, roleBlock("user", cleaned))
			}
		case transcript.ToolResultBlock:
			if part := p.toolResult(b); part != "" {
				parts = append(parts, part)
			}
		case transcript.ToolUseBlock, transcript.ThinkingBlock, transcript.UnknownBlock:
		}
	}
	return parts
}

func (p *Pass) assistantParts(msg transcript.Message) []string {
	// Plain string content from the assistant carries no structure worth keeping.
	if msg.Plain {
		return nil
	}

	var parts []string
	for _, block := range msg.Blocks {
		switch b := block.(type) {
		case transcript.ThinkingBlock:
			continue
		case transcript.TextBlock:
			if cleaned := Clean(b.Text); cleaned != "" {
				parts = append(parts, roleBlock("assistant", cleaned))
			}
		case transcript.ToolUseBlock:
			parts = append(parts, p.toolUse(b))
		case transcript.ToolResultBlock, transcript.UnknownBlock:
		}
	}
	return parts
}

func (p *Pass) toolUse(b transcript.ToolUseBlock) string {
	name := b.Name
	if name == "" {
		name = unknownTool
	}
	if b.ID != "" {
		p.toolNames[b.ID] = name
	}

	lines := make([]string, 0, len(b.Input))
	for _, field := range b.Input {
		lines = append(lines, fmt.Sprintf("%s: %s", field.Key, Truncate(fieldValue(field.Value), p.opts.MaxToolInputLength)))
	}
	return fmt.Sprintf("[tool:%s]\n%s\n[tool:end]", name, strings.Join(lines, "\n"))
}

func (p *Pass) toolResult(b transcript.ToolResultBlock) string {
	name, ok := p.toolNames[b.ToolUseID]
	if !ok {
		name = unknownTool
	}
	if slices.Contains(p.opts.SkipResultTools, name) {
		return ""
	}

	content := Truncate(Clean(b.Content), p.opts.MaxToolResultLength)
	if content == "" {
		return ""
	}
	status := "success"
	if b.IsError {
		status = "error"
	}
	return fmt.Sprintf("[tool_result:%s status=%q]\n%s\n[tool_result:end]", name, status, content)
}

// ToolName reports the tool recorded for an invocation id during this pass.
func (p *Pass) ToolName(invocationID string) (string, bool) {
	name, ok := p.toolNames[invocationID]
	return name, ok
}

func roleBlock(role, text string) string {
	return fmt.Sprintf("[role:%s]\n%s\n[%s:end]", role, text, role)
}

// fieldValue renders strings as-is and everything else as compact JSON.
func fieldValue(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err == nil {
		return buf.String()
	}
	return string(raw)
}

// Clean strips injected context regions and surrounding whitespace.
func Clean(text string) string {
	for _, re := range injectedContext {
		text = re.ReplaceAllString(text, "")
	}
	return strings.TrimSpace(text)
}

// Truncate limits text to maxLen runes, appending "..." when it cuts.
// A non-positive maxLen disables truncation.
func Truncate(text string, maxLen int) string {
	if maxLen <= 0 || len(text) <= maxLen {
		return text
	}
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	return string(runes[:maxLen]) + ellipsis
}
