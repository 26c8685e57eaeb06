package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadHistoryFromPath_FileNotFound_ReturnsNil(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nonexistent", "chat_history")
	assert.Nil(t, loadHistoryFromPath(path))
}

func TestLoadHistoryFromPath_SkipsBlankAndTruncates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chat_history")
	var b strings.Builder
	for i := 0; i < 600; i++ {
		b.WriteString("line\n\n")
	}
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o600))

	assert.Len(t, loadHistoryFromPath(path), maxHistoryLines)
}

func TestInputHistory_PersistsAndRecalls(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "chat_history")

	h := newInputHistory(path)
	h.add("lunch tomorrow")
	h.add("   ")
	h.add("cancel lunch")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "lunch tomorrow\ncancel lunch\n", string(data))

	reloaded := newInputHistory(path)
	line, ok := reloaded.prev()
	require.True(t, ok)
	assert.Equal(t, "cancel lunch", line)
	line, ok = reloaded.prev()
	require.True(t, ok)
	assert.Equal(t, "lunch tomorrow", line)
	_, ok = reloaded.prev()
	assert.False(t, ok)

	assert.Equal(t, "cancel lunch", reloaded.next())
	assert.Equal(t, "", reloaded.next())
	assert.Equal(t, "", reloaded.next())
}

func TestInputHistory_InMemoryWithoutPath(t *testing.T) {
	h := newInputHistory("")
	h.add("only in memory")
	line, ok := h.prev()
	require.True(t, ok)
	assert.Equal(t, "only in memory", line)
}
