package session

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

var (
	encOnce sync.Once
	encoder *tiktoken.Tiktoken
)

// TokenCount estimates how many tokens the current history occupies in the
// engine context window. Falls back to a bytes/4 heuristic when the encoding
// tables are unavailable (e.g. offline first run).
func (s *Session) TokenCount() int {
	encOnce.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			encoder = enc
		}
	})

	total := 0
	for _, msg := range s.Snapshot() {
		text := msg.Content
		for _, tc := range msg.ToolCalls {
			text += tc.Function.Name + tc.Function.Arguments
		}
		if encoder != nil {
			total += len(encoder.Encode(text, nil, nil))
		} else {
			total += len(text) / 4
		}
		// fixed per-message overhead for role and framing
		total += 4
	}
	return total
}
