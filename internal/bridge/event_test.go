// ABOUTME: Tests for inbound event extraction and sender identity precedence
// ABOUTME: Covers message vs edited_message and missing-text payloads

package bridge

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func extractFromJSON(t *testing.T, payload string) (*Event, bool) {
	t.Helper()
	var u update
	require.NoError(t, json.Unmarshal([]byte(payload), &u))
	return extractEvent(json.RawMessage(payload), &u)
}

func TestExtractEvent_UsernameWins(t *testing.T) {
	ev, ok := extractFromJSON(t, `{
		"update_id": 1,
		"message": {"text": "hello", "from": {"id": 42, "username": "alice", "first_name": "Alice"}}
	}`)
	require.True(t, ok)
	assert.Equal(t, "alice", ev.Sender)
	assert.Equal(t, "hello", ev.Text)
	assert.JSONEq(t, `{
		"update_id": 1,
		"message": {"text": "hello", "from": {"id": 42, "username": "alice", "first_name": "Alice"}}
	}`, string(ev.Raw))
}

func TestExtractEvent_FirstNameFallback(t *testing.T) {
	ev, ok := extractFromJSON(t, `{"message": {"text": "hi", "from": {"id": 42, "first_name": "Bob"}}}`)
	require.True(t, ok)
	assert.Equal(t, "Bob", ev.Sender)
}

func TestExtractEvent_NumericIDFallback(t *testing.T) {
	ev, ok := extractFromJSON(t, `{"message": {"text": "hi", "from": {"id": 42}}}`)
	require.True(t, ok)
	assert.Equal(t, "42", ev.Sender)
}

func TestExtractEvent_ZeroIDIsStillAnIdentity(t *testing.T) {
	ev, ok := extractFromJSON(t, `{"message": {"text": "hi", "from": {"id": 0}}}`)
	require.True(t, ok)
	assert.Equal(t, "0", ev.Sender)
}

func TestExtractEvent_UnknownSender(t *testing.T) {
	ev, ok := extractFromJSON(t, `{"message": {"text": "hi"}}`)
	require.True(t, ok)
	assert.Equal(t, "unknown", ev.Sender)
}

func TestExtractEvent_EditedMessage(t *testing.T) {
	ev, ok := extractFromJSON(t, `{"edited_message": {"text": "fixed typo", "from": {"username": "carol"}}}`)
	require.True(t, ok)
	assert.Equal(t, "carol", ev.Sender)
	assert.Equal(t, "fixed typo", ev.Text)
}

func TestExtractEvent_MessageTakesPriorityOverEdited(t *testing.T) {
	ev, ok := extractFromJSON(t, `{
		"message": {"text": "new"},
		"edited_message": {"text": "old"}
	}`)
	require.True(t, ok)
	assert.Equal(t, "new", ev.Text)
}

func TestExtractEvent_NoText(t *testing.T) {
	_, ok := extractFromJSON(t, `{"message": {"from": {"username": "alice"}}}`)
	assert.False(t, ok)
}

func TestExtractEvent_EmptyText(t *testing.T) {
	_, ok := extractFromJSON(t, `{"message": {"text": ""}}`)
	assert.False(t, ok)
}

func TestExtractEvent_NoMessage(t *testing.T) {
	_, ok := extractFromJSON(t, `{"update_id": 7}`)
	assert.False(t, ok)
}
