// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func TestAppendOrderingSurvivesReload(t *testing.T) {
	store := newTestStore(t)

	handle, err := store.Open("tty1")
	require.NoError(t, err)

	require.NoError(t, handle.AddUserMessage("Q"))
	require.NoError(t, handle.AddAssistantMessage("A"))

	// Reload from disk through a fresh handle.
	reloaded, err := store.Open("tty1")
	require.NoError(t, err)

	msgs := reloaded.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, Message{Role: RoleUser, Content: "Q"}, msgs[0])
	assert.Equal(t, Message{Role: RoleAssistant, Content: "A"}, msgs[1])
	assert.Equal(t, handle.ID(), reloaded.ID())
}

func TestClearKeepsIdentity(t *testing.T) {
	store := newTestStore(t)

	handle, err := store.Open("tty1")
	require.NoError(t, err)
	require.NoError(t, handle.AddUserMessage("hello"))

	id := handle.ID()
	require.NoError(t, handle.Clear())

	assert.Empty(t, handle.Messages())
	assert.Equal(t, id, handle.ID(), "clear keeps the session id")

	reloaded, err := store.Open("tty1")
	require.NoError(t, err)
	assert.Empty(t, reloaded.Messages())
	assert.Equal(t, id, reloaded.ID())
}

func TestNewReplacesIdentity(t *testing.T) {
	store := newTestStore(t)

	handle, err := store.Open("tty1")
	require.NoError(t, err)
	require.NoError(t, handle.AddUserMessage("old"))

	oldID := handle.ID()
	require.NoError(t, handle.New())

	assert.NotEqual(t, oldID, handle.ID(), "new session gets a fresh id")
	assert.Empty(t, handle.Messages())
}

func TestContextsAreIndependent(t *testing.T) {
	store := newTestStore(t)

	a, err := store.Open("tty1")
	require.NoError(t, err)
	b, err := store.Open("tty2")
	require.NoError(t, err)

	require.NoError(t, a.AddUserMessage("from a"))
	require.NoError(t, b.AddUserMessage("from b"))

	aReload, err := store.Open("tty1")
	require.NoError(t, err)
	require.Len(t, aReload.Messages(), 1)
	assert.Equal(t, "from a", aReload.Messages()[0].Content)
}

func TestMessagesReturnsCopy(t *testing.T) {
	store := newTestStore(t)

	handle, err := store.Open("tty1")
	require.NoError(t, err)
	require.NoError(t, handle.AddUserMessage("original"))

	msgs := handle.Messages()
	msgs[0].Content = "mutated"

	assert.Equal(t, "original", handle.Messages()[0].Content)
}

func TestList(t *testing.T) {
	store := newTestStore(t)

	a, err := store.Open("alpha")
	require.NoError(t, err)
	require.NoError(t, a.AddUserMessage("first question about Go"))

	b, err := store.Open("beta")
	require.NoError(t, err)
	require.NoError(t, b.AddUserMessage("second"))
	require.NoError(t, b.AddAssistantMessage("answer"))

	metas, err := store.List()
	require.NoError(t, err)
	require.Len(t, metas, 2)

	// Most recently updated first.
	assert.Equal(t, "beta", metas[0].ContextID)
	assert.Equal(t, 2, metas[0].MessageCount)
	assert.Equal(t, "alpha", metas[1].ContextID)
	assert.Contains(t, metas[1].Preview, "first question")
}

func TestSanitizeContextID(t *testing.T) {
	store := newTestStore(t)

	handle, err := store.Open("/dev/pts/3")
	require.NoError(t, err)
	require.NoError(t, handle.AddUserMessage("x"))

	metas, err := store.List()
	require.NoError(t, err)
	require.Len(t, metas, 1)
	assert.NotContains(t, metas[0].ContextID, "/")
}

func TestExportMarkdown(t *testing.T) {
	store := newTestStore(t)

	handle, err := store.Open("tty1")
	require.NoError(t, err)
	require.NoError(t, handle.AddUserMessage("what is 2+2?"))
	require.NoError(t, handle.AddAssistantMessage("4"))

	md := handle.ExportMarkdown()
	assert.Contains(t, md, "# Session "+handle.ID())
	assert.Contains(t, md, "**User**")
	assert.Contains(t, md, "what is 2+2?")
	assert.Contains(t, md, "**Assistant**")
}

func TestFormatSessionList_Empty(t *testing.T) {
	assert.Equal(t, "No sessions found.", FormatSessionList(nil))
}
