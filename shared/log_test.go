package shared

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversationLogAppend(t *testing.T) {
	log := NewConversationLog()
	require.Zero(t, log.Len())

	first := log.Append(SenderUser, "hello")
	second := log.Append(SenderAI, "hi there")
	log.Append(SenderSystem, "session closed")

	assert.NotEmpty(t, first.ID)
	assert.NotEqual(t, first.ID, second.ID)
	assert.False(t, first.Timestamp.IsZero())

	entries := log.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, SenderUser, entries[0].Sender)
	assert.Equal(t, "hello", entries[0].Text)
	assert.Equal(t, SenderAI, entries[1].Sender)
	assert.Equal(t, SenderSystem, entries[2].Sender)
}

func TestConversationLogSnapshotIsolation(t *testing.T) {
	log := NewConversationLog()
	log.Append(SenderUser, "original")

	entries := log.Entries()
	entries[0].Text = "tampered"

	assert.Equal(t, "original", log.Entries()[0].Text)
}

func TestConversationLogOnAppend(t *testing.T) {
	log := NewConversationLog()
	var seen []LogEntry
	log.OnAppend(func(e LogEntry) { seen = append(seen, e) })
	log.OnAppend(nil) // ignored

	log.Append(SenderAI, "one")
	log.Append(SenderAI, "two")

	require.Len(t, seen, 2)
	assert.Equal(t, "one", seen[0].Text)
	assert.Equal(t, "two", seen[1].Text)
}
