package ingest

import (
	"encoding/json"
)

const (
	// MaxBacktraceLen bounds the stored backtrace in Unicode codepoints
	MaxBacktraceLen = 10000

	// MaxLogBytes bounds the serialized log batch per event, envelope and
	// separators included
	MaxLogBytes = 65000

	logEnvelopeBytes  = 2 // "[" and "]"
	logSeparatorBytes = 1 // "," per entry
)

// TruncateBacktrace cuts a backtrace to MaxBacktraceLen codepoints
func TruncateBacktrace(trace string) string {
	runes := []rune(trace)
	if len(runes) <= MaxBacktraceLen {
		return trace
	}
	return string(runes[:MaxBacktraceLen])
}

// PackLogMessages serializes a log batch for storage. Entries are taken
// newest-first until the byte budget is spent, then flipped back to
// chronological order, so the stored tail is always the most recent slice
// of the client log.
func PackLogMessages(messages []LogMessagePayload) (string, error) {
	budget := MaxLogBytes - logEnvelopeBytes

	var kept [][]byte
	total := 0

	for i := len(messages) - 1; i >= 0; i-- {
		entry, err := json.Marshal(messages[i])
		if err != nil {
			return "", err
		}

		cost := len(entry) + logSeparatorBytes
		if total+cost > budget {
			break
		}

		total += cost
		kept = append(kept, entry)
	}

	// kept is newest-first, reverse back to chronological
	buf := make([]byte, 0, total+logEnvelopeBytes)
	buf = append(buf, '[')
	for i := len(kept) - 1; i >= 0; i-- {
		buf = append(buf, kept[i]...)
		if i > 0 {
			buf = append(buf, ',')
		}
	}
	buf = append(buf, ']')

	return string(buf), nil
}
