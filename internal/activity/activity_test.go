package activity

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"memcapture/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCounter(t *testing.T) (*Counter, string) {
	t.Helper()
	root := t.TempDir()
	c := New(store.New(root), 0)
	c.now = func() time.Time { return time.Date(2025, 1, 5, 10, 0, 0, 0, time.UTC) }
	return c, root
}

func TestStatusWithoutState(t *testing.T) {
	c, root := newCounter(t)

	st, err := c.Status("s1")
	require.NoError(t, err)
	assert.Equal(t, 0, st.ToolUses)
	assert.Equal(t, 0, st.SinceLastSave)
	assert.False(t, st.ShouldPrompt)
	assert.Nil(t, st.LastToolAt)

	_, err = os.Stat(filepath.Join(root, "s1.activity.json"))
	assert.True(t, os.IsNotExist(err), "querying must not create state")
}

func TestPromptThreshold(t *testing.T) {
	c, _ := newCounter(t)

	for range 4 {
		_, err := c.RecordEvent("s1", CategoryEdit)
		require.NoError(t, err)
	}
	st, err := c.Status("s1")
	require.NoError(t, err)
	assert.False(t, st.ShouldPrompt)
	assert.Equal(t, 4, st.SinceLastSave)

	st, err = c.RecordEvent("s1", CategoryEdit)
	require.NoError(t, err)
	assert.True(t, st.ShouldPrompt)
	assert.Equal(t, 5, st.SinceLastSave)

	uses, err := c.MarkSaved("s1")
	require.NoError(t, err)
	assert.Equal(t, 5, uses)

	st, err = c.Status("s1")
	require.NoError(t, err)
	assert.Equal(t, 0, st.SinceLastSave)
	assert.False(t, st.ShouldPrompt)
	assert.Equal(t, 5, st.ToolUses)
}

func TestCategoryAccounting(t *testing.T) {
	c, root := newCounter(t)

	for _, category := range []string{"Edit", "Bash", "Write", "Bash", "Edit", "Bash"} {
		_, err := c.RecordEvent("s1", category)
		require.NoError(t, err)
	}

	st, err := c.Status("s1")
	require.NoError(t, err)
	assert.Equal(t, 6, st.ToolUses)

	data, err := os.ReadFile(filepath.Join(root, "s1.activity.json"))
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.InDelta(t, 6, raw["tool_uses"], 0)
	assert.InDelta(t, 2, raw["edits"], 0)
	assert.InDelta(t, 1, raw["writes"], 0)
	assert.InDelta(t, 3, raw["bash_commands"], 0)
	assert.InDelta(t, 0, raw["tasks"], 0)
	assert.InDelta(t, 0, raw["last_save_at_tool_count"], 0)
	assert.Equal(t, "s1", raw["session_id"])
	assert.Equal(t, "2025-01-05T10:00:00Z", raw["last_tool_at"])
	assert.NotContains(t, raw, "last_saved_at")
}

func TestUnmatchedCategoryCountsOnlyToolUses(t *testing.T) {
	c, _ := newCounter(t)

	st, err := c.RecordEvent("s1", "mcp__github__create_issue")
	require.NoError(t, err)
	assert.Equal(t, 1, st.ToolUses)
	assert.Zero(t, st.Edits+st.Writes+st.BashCommands+st.Tasks)

	st, err = c.RecordEvent("s1", CategoryTask)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Tasks)
}

func TestMarkSavedIdempotent(t *testing.T) {
	c, root := newCounter(t)

	uses, err := c.MarkSaved("s1")
	require.NoError(t, err)
	assert.Equal(t, 0, uses)
	_, err = os.Stat(filepath.Join(root, "s1.activity.json"))
	assert.True(t, os.IsNotExist(err), "nothing to mark means nothing written")

	for range 3 {
		_, err := c.RecordEvent("s1", CategoryBash)
		require.NoError(t, err)
	}
	_, err = c.MarkSaved("s1")
	require.NoError(t, err)
	first, err := c.Status("s1")
	require.NoError(t, err)

	uses, err = c.MarkSaved("s1")
	require.NoError(t, err)
	assert.Equal(t, 3, uses)
	second, err := c.Status("s1")
	require.NoError(t, err)

	assert.Equal(t, first.SinceLastSave, second.SinceLastSave)
	assert.Equal(t, first.ShouldPrompt, second.ShouldPrompt)
	assert.Equal(t, first.ToolUses, second.ToolUses)
	require.NotNil(t, second.LastSavedAt)
}

func TestCorruptStateStartsOver(t *testing.T) {
	c, root := newCounter(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "s1.activity.json"), []byte("{not json"), 0o600))

	st, err := c.Status("s1")
	require.NoError(t, err)
	assert.Equal(t, 0, st.ToolUses)

	st, err = c.RecordEvent("s1", CategoryEdit)
	require.NoError(t, err)
	assert.Equal(t, 1, st.ToolUses)
	assert.Equal(t, 1, st.Edits)
}

func TestInconsistentMarkerIsClamped(t *testing.T) {
	c, root := newCounter(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "s1.activity.json"),
		[]byte(`{"tool_uses":2,"last_save_at_tool_count":7}`), 0o600))

	st, err := c.Status("s1")
	require.NoError(t, err)
	assert.Equal(t, 2, st.LastSaveAtToolCount)
	assert.Equal(t, 0, st.SinceLastSave)
	assert.Equal(t, "s1", st.SessionID)
}

func TestCustomThreshold(t *testing.T) {
	c := New(store.New(t.TempDir()), 2)
	assert.Equal(t, 2, c.Threshold())

	_, err := c.RecordEvent("s1", CategoryWrite)
	require.NoError(t, err)
	st, err := c.RecordEvent("s1", CategoryWrite)
	require.NoError(t, err)
	assert.True(t, st.ShouldPrompt)
}

func TestSessionIDRequired(t *testing.T) {
	c, _ := newCounter(t)

	_, err := c.RecordEvent("", CategoryEdit)
	require.ErrorIs(t, err, store.ErrMissingSessionID)
	_, err = c.Status("")
	require.ErrorIs(t, err, store.ErrMissingSessionID)
	_, err = c.MarkSaved("../escape")
	require.ErrorIs(t, err, store.ErrInvalidSessionID)
}

func TestRecordEventPersistenceFailure(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))

	c := New(store.New(blocker), 0)
	_, err := c.RecordEvent("s1", CategoryEdit)
	assert.Error(t, err)
}

func TestList(t *testing.T) {
	c, root := newCounter(t)
	_, err := c.RecordEvent("beta", CategoryEdit)
	require.NoError(t, err)
	_, err = c.RecordEvent("alpha", CategoryBash)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(root, "alpha.txt"), []byte("cursor"), 0o600))

	list, err := c.List()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "alpha", list[0].SessionID)
	assert.Equal(t, 1, list[0].BashCommands)
	assert.Equal(t, "beta", list[1].SessionID)
}

func TestStatusJSONShape(t *testing.T) {
	c, _ := newCounter(t)
	st, err := c.RecordEvent("s1", CategoryEdit)
	require.NoError(t, err)

	data, err := json.Marshal(st)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.InDelta(t, 1, raw["tool_uses"], 0)
	assert.InDelta(t, 1, raw["since_last_save"], 0)
	assert.Equal(t, false, raw["should_prompt"])
	assert.Equal(t, "s1", raw["session_id"])
}
