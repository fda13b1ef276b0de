package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSSEEvents(t *testing.T) {
	t.Parallel()

	body := "event: delta\ndata: {\"text\":\"a\"}\n\n" +
		": keepalive comment\n" +
		"event: delta\ndata: {\"text\":\"b\"}\n\n" +
		"event: final\ndata: {\"answer\":\"ab\"}\n\n"

	events := ParseSSEEvents(t, body)
	require.Len(t, events, 3)
	assert.Equal(t, "delta", events[0].Type)
	assert.Equal(t, `{"text":"a"}`, events[0].Data)
	assert.Equal(t, "final", events[2].Type)
}

func TestParseSSEEvents_MultilineData(t *testing.T) {
	t.Parallel()

	events := ParseSSEEvents(t, "event: final\ndata: line1\ndata: line2\n\n")
	require.Len(t, events, 1)
	assert.Equal(t, "line1\nline2", events[0].Data)
}

func TestParseSSEEvents_DefaultMessageType(t *testing.T) {
	t.Parallel()

	events := ParseSSEEvents(t, "data: hello\n\n")
	require.Len(t, events, 1)
	assert.Equal(t, "message", events[0].Type)
}

func TestFindEvent(t *testing.T) {
	t.Parallel()

	events := []SSEEvent{
		{Type: "delta", Data: "1"},
		{Type: "delta", Data: "2"},
		{Type: "final", Data: "x"},
	}

	found := FindEvent(events, "final")
	require.NotNil(t, found)
	assert.Equal(t, "x", found.Data)

	assert.Nil(t, FindEvent(events, "error"))
	assert.Len(t, FindAllEvents(events, "delta"), 2)
}
