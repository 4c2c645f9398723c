// Package hook reads the JSON payload the host passes to a hook command on
// stdin and writes the hook response to stdout.
package hook

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Event names as sent in hook_event_name.
const (
	EventSessionStart = "SessionStart"
	EventPostToolUse  = "PostToolUse"
	EventStop         = "Stop"
)

// Input is the subset of the hook payload this tool uses.
type Input struct {
	SessionID      string          `json:"session_id"`
	TranscriptPath string          `json:"transcript_path"`
	CWD            string          `json:"cwd"`
	HookEventName  string          `json:"hook_event_name"`
	ToolName       string          `json:"tool_name,omitempty"`
	ToolInput      json.RawMessage `json:"tool_input,omitempty"`
}

// ReadInput decodes the payload from r. Empty input decodes to a zero Input.
func ReadInput(r io.Reader) (Input, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Input{}, fmt.Errorf("read hook input: %w", err)
	}
	var in Input
	if strings.TrimSpace(string(data)) == "" {
		return in, nil
	}
	if err := json.Unmarshal(data, &in); err != nil {
		return Input{}, fmt.Errorf("parse hook input: %w", err)
	}
	return in, nil
}

// SpecificOutput carries event-specific fields of a response.
type SpecificOutput struct {
	HookEventName     string `json:"hookEventName"`
	AdditionalContext string `json:"additionalContext,omitempty"`
}

// Output is a hook response.
type Output struct {
	Continue           *bool           `json:"continue,omitempty"`
	HookSpecificOutput *SpecificOutput `json:"hookSpecificOutput,omitempty"`
}

// Continue is the response that lets the host carry on untouched.
func Continue() Output {
	ok := true
	return Output{Continue: &ok}
}

// WithContext is a response adding context to the conversation for event.
func WithContext(event, context string) Output {
	return Output{HookSpecificOutput: &SpecificOutput{HookEventName: event, AdditionalContext: context}}
}

// WriteOutput encodes out as a single JSON line.
func WriteOutput(w io.Writer, out Output) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("write hook output: %w", err)
	}
	return nil
}
