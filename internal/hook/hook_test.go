package hook

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadInput(t *testing.T) {
	payload := `{
  "session_id": "abc",
  "transcript_path": "/home/u/.claude/projects/x/abc.jsonl",
  "cwd": "/src/app",
  "hook_event_name": "PostToolUse",
  "tool_name": "Edit",
  "tool_input": {"file_path": "main.go"},
  "tool_response": {"success": true}
}`
	in, err := ReadInput(strings.NewReader(payload))
	require.NoError(t, err)
	assert.Equal(t, "abc", in.SessionID)
	assert.Equal(t, "/home/u/.claude/projects/x/abc.jsonl", in.TranscriptPath)
	assert.Equal(t, "/src/app", in.CWD)
	assert.Equal(t, EventPostToolUse, in.HookEventName)
	assert.Equal(t, "Edit", in.ToolName)
	assert.JSONEq(t, `{"file_path":"main.go"}`, string(in.ToolInput))
}

func TestReadInputEmpty(t *testing.T) {
	in, err := ReadInput(strings.NewReader("  \n"))
	require.NoError(t, err)
	assert.Equal(t, Input{}, in)
}

func TestReadInputMalformed(t *testing.T) {
	_, err := ReadInput(strings.NewReader("{"))
	assert.Error(t, err)
}

func TestWriteOutput(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteOutput(&buf, Continue()))
	assert.Equal(t, "{\"continue\":true}\n", buf.String())

	buf.Reset()
	require.NoError(t, WriteOutput(&buf, WithContext(EventSessionStart, "<supermemory-context>\nhi\n</supermemory-context>")))
	assert.JSONEq(t, `{"hookSpecificOutput":{"hookEventName":"SessionStart","additionalContext":"<supermemory-context>\nhi\n</supermemory-context>"}}`, buf.String())
}

func TestWriteOutputKeepsTags(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteOutput(&buf, WithContext(EventSessionStart, "<supermemory-status>x</supermemory-status>")))
	assert.Contains(t, buf.String(), "<supermemory-status>")
}
