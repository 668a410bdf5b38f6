package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMappingsRoundtrip(t *testing.T) {
	dir := t.TempDir()

	m, err := LoadMappings(dir, "ironman3")
	require.NoError(t, err)
	require.Equal(t, 0, m.Len(), "fresh mapping document should be empty")

	require.NoError(t, m.Put(2, "agent-abc", "Aldric of York"))
	require.NoError(t, m.Put(3, "agent-def", "Matilda of Flanders"))

	reloaded, err := LoadMappings(dir, "ironman3")
	require.NoError(t, err)
	require.Equal(t, 2, reloaded.Len())

	entry, ok := reloaded.Get(2)
	require.True(t, ok, "participant 2 should survive reload")
	assert.Equal(t, "agent-abc", entry.AgentID)
	assert.Equal(t, "Aldric of York", entry.DisplayName)
	assert.False(t, entry.CreatedAt.IsZero(), "CreatedAt should be set")
	assert.False(t, entry.LastUpdated.IsZero(), "LastUpdated should be set")
}

func TestMappingsPutRefreshesExisting(t *testing.T) {
	m, err := LoadMappings(t.TempDir(), "save1")
	require.NoError(t, err)

	require.NoError(t, m.Put(2, "agent-old", "Aldric"))
	created, _ := m.Get(2)

	require.NoError(t, m.Put(2, "agent-new", "Aldric of York"))
	entry, _ := m.Get(2)

	assert.Equal(t, "agent-new", entry.AgentID)
	assert.True(t, entry.CreatedAt.Equal(created.CreatedAt), "CreatedAt should not change on refresh")
	assert.Equal(t, 1, m.Len())
}

func TestMappingsPerSaveIsolation(t *testing.T) {
	dir := t.TempDir()

	a, err := LoadMappings(dir, "saveA")
	require.NoError(t, err)
	require.NoError(t, a.Put(2, "agent-a", "Aldric"))

	b, err := LoadMappings(dir, "saveB")
	require.NoError(t, err)
	assert.Equal(t, 0, b.Len(), "saves must not share mappings")
}
