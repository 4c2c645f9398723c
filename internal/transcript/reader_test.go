package transcript

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleLog = `{"type":"summary","summary":"earlier work","leafUuid":"x"}
{"type":"user","uuid":"u1","sessionId":"s1","timestamp":"2025-01-05T10:00:00Z","message":{"role":"user","content":"What is in the README?"}}
{"type":"assistant","uuid":"a1","sessionId":"s1","timestamp":"2025-01-05T10:00:02Z","message":{"role":"assistant","content":[{"type":"thinking","thinking":"plan"},{"type":"text","text":"Let me look."},{"type":"tool_use","id":"toolu_1","name":"Bash","input":{"command":"cat README.md","timeout":30,"description":"show readme"}}]}}
{"type":"user","uuid":"u2","sessionId":"s1","timestamp":"2025-01-05T10:00:03Z","message":{"role":"user","content":[{"type":"tool_result","tool_use_id":"toolu_1","content":[{"type":"text","text":"line one"},{"type":"image","source":{}},{"type":"text","text":"line two"}],"is_error":true}]}}
`

func TestParse(t *testing.T) {
	log, err := Parse(strings.NewReader(sampleLog))
	require.NoError(t, err)
	require.Len(t, log.Records, 4)
	assert.Zero(t, log.Skipped)

	assert.Equal(t, KindOther, log.Records[0].Kind)
	assert.Equal(t, "summary", log.Records[0].Type)
	assert.False(t, log.Records[0].Conversational())

	user := log.Records[1]
	assert.Equal(t, KindUser, user.Kind)
	assert.Equal(t, "u1", user.UUID)
	assert.True(t, user.Message.Plain)
	assert.Equal(t, "What is in the README?", user.Message.Text)
	assert.Equal(t, "2025-01-05T10:00:00Z", user.Timestamp)

	assistant := log.Records[2]
	require.Len(t, assistant.Message.Blocks, 3)
	assert.Equal(t, BlockTypeThinking, assistant.Message.Blocks[0].Type())
	assert.Equal(t, TextBlock{Text: "Let me look."}, assistant.Message.Blocks[1])

	toolUse, ok := assistant.Message.Blocks[2].(ToolUseBlock)
	require.True(t, ok)
	assert.Equal(t, "toolu_1", toolUse.ID)
	assert.Equal(t, "Bash", toolUse.Name)
	require.Len(t, toolUse.Input, 3)
	assert.Equal(t, "command", toolUse.Input[0].Key)
	assert.Equal(t, "timeout", toolUse.Input[1].Key)
	assert.Equal(t, "30", string(toolUse.Input[1].Value))
	assert.Equal(t, "description", toolUse.Input[2].Key)

	result, ok := log.Records[3].Message.Blocks[0].(ToolResultBlock)
	require.True(t, ok)
	assert.Equal(t, "toolu_1", result.ToolUseID)
	assert.Equal(t, "line one\nline two", result.Content)
	assert.True(t, result.IsError)
}

func TestParseSkipsMalformedLines(t *testing.T) {
	input := strings.Join([]string{
		`{"type":"user","uuid":"u1","message":{"role":"user","content":"hello"}}`,
		`{"type":"assistant","uuid":"a1","message":{"role":"assist`,
		``,
		`   `,
		`not json at all`,
		`{"type":"user","uuid":"u2","message":"not an object"}`,
		`{"type":"assistant","uuid":"a2","message":{"role":"assistant","content":[{"type":"text","text":"hi"}]}}`,
	}, "\n")

	log, err := Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, log.Records, 3)
	assert.Equal(t, "u1", log.Records[0].UUID)
	assert.Equal(t, "u2", log.Records[1].UUID)
	assert.Equal(t, KindUser, log.Records[1].Kind, "a non-object message keeps the record")
	assert.Empty(t, log.Records[1].Message.Blocks)
	assert.False(t, log.Records[1].Message.Plain)
	assert.Equal(t, "a2", log.Records[2].UUID)
	assert.Equal(t, 2, log.Skipped)
}

func TestParseLastLineWithoutNewline(t *testing.T) {
	log, err := Parse(strings.NewReader(`{"type":"user","uuid":"u1","message":{"content":"x"}}`))
	require.NoError(t, err)
	require.Len(t, log.Records, 1)
}

func TestParseUnknownBlocks(t *testing.T) {
	input := `{"type":"user","uuid":"u1","message":{"role":"user","content":[{"type":"image","source":{"data":"..."}},{"type":"text","text":"caption"}]}}`
	log, err := Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, log.Records[0].Message.Blocks, 2)

	unknown, ok := log.Records[0].Message.Blocks[0].(UnknownBlock)
	require.True(t, ok)
	assert.Equal(t, BlockType("image"), unknown.Type())
}

func TestReadFileMissing(t *testing.T) {
	log, err := ReadFile(filepath.Join(t.TempDir(), "missing.jsonl"))
	require.NoError(t, err)
	assert.Empty(t, log.Records)
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(sampleLog), 0o600))

	log, err := ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, log.Records, 4)
}

func TestResultText(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"empty", ``, ""},
		{"null", `null`, ""},
		{"string", `"ok"`, "ok"},
		{"parts", `[{"type":"text","text":"a"},{"type":"text","text":"b"}]`, "a\nb"},
		{"object", `{"stdout":"x"}`, `{"stdout":"x"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resultText([]byte(tt.raw)))
		})
	}
}

func TestDecodeFieldsNonObject(t *testing.T) {
	assert.Nil(t, decodeFields([]byte(`["a"]`)))
	assert.Nil(t, decodeFields([]byte(`"a"`)))
	assert.Empty(t, decodeFields([]byte(`{}`)))
}
