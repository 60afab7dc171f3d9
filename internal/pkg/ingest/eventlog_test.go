package ingest

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruncateBacktrace(t *testing.T) {
	t.Parallel()

	t.Run("short trace untouched", func(t *testing.T) {
		t.Parallel()
		trace := "thread 'main' panicked"
		assert.Equal(t, trace, TruncateBacktrace(trace))
	})

	t.Run("long trace cut to the codepoint bound", func(t *testing.T) {
		t.Parallel()
		got := TruncateBacktrace(strings.Repeat("x", MaxBacktraceLen+500))
		assert.Len(t, []rune(got), MaxBacktraceLen)
	})

	t.Run("bound counts runes not bytes", func(t *testing.T) {
		t.Parallel()
		got := TruncateBacktrace(strings.Repeat("ü", MaxBacktraceLen+1))
		assert.Len(t, []rune(got), MaxBacktraceLen)
		assert.Greater(t, len(got), MaxBacktraceLen)
	})
}

func TestPackLogMessagesEmpty(t *testing.T) {
	t.Parallel()

	got, err := PackLogMessages(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", got)
}

func TestPackLogMessagesKeepsChronologicalOrder(t *testing.T) {
	t.Parallel()

	messages := []LogMessagePayload{
		{Timestamp: 1, Level: 1, Message: "first"},
		{Timestamp: 2, Level: 2, Message: "second"},
		{Timestamp: 3, Level: 3, Message: "third"},
	}

	packed, err := PackLogMessages(messages)
	require.NoError(t, err)

	var got []LogMessagePayload
	require.NoError(t, json.Unmarshal([]byte(packed), &got))

	require.Len(t, got, 3)
	assert.Equal(t, "first", got[0].Message)
	assert.Equal(t, "second", got[1].Message)
	assert.Equal(t, "third", got[2].Message)
}

func TestPackLogMessagesDropsOldestWhenOverBudget(t *testing.T) {
	t.Parallel()

	// each entry marshals to roughly 30 KB, so only two fit into the budget
	big := strings.Repeat("x", 30000)
	messages := []LogMessagePayload{
		{Timestamp: 1, Message: big + "-oldest"},
		{Timestamp: 2, Message: big + "-middle"},
		{Timestamp: 3, Message: big + "-newest"},
	}

	packed, err := PackLogMessages(messages)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(packed), MaxLogBytes)

	var got []LogMessagePayload
	require.NoError(t, json.Unmarshal([]byte(packed), &got))

	require.Len(t, got, 2)
	assert.Equal(t, uint64(2), got[0].Timestamp)
	assert.Equal(t, uint64(3), got[1].Timestamp)
}

func TestPackLogMessagesSingleOversizedEntry(t *testing.T) {
	t.Parallel()

	packed, err := PackLogMessages([]LogMessagePayload{
		{Timestamp: 1, Message: strings.Repeat("x", MaxLogBytes)},
	})
	require.NoError(t, err)
	assert.Equal(t, "[]", packed)
}

func TestPackLogMessagesStaysWithinBudget(t *testing.T) {
	t.Parallel()

	line := strings.Repeat("log line ", 40)
	var messages []LogMessagePayload
	for i := 0; i < 1000; i++ {
		messages = append(messages, LogMessagePayload{Timestamp: uint64(i), Message: line})
	}

	packed, err := PackLogMessages(messages)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(packed), MaxLogBytes)

	var got []LogMessagePayload
	require.NoError(t, json.Unmarshal([]byte(packed), &got))

	// the kept tail is the newest slice of the batch
	require.NotEmpty(t, got)
	assert.Equal(t, uint64(999), got[len(got)-1].Timestamp)
	for i := 1; i < len(got); i++ {
		assert.Equal(t, got[i-1].Timestamp+1, got[i].Timestamp)
	}
}
