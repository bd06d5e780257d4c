package core

import "context"

// ReasoningEngine is the external completion service that either produces a
// final answer or requests tool calls. It is stateless across calls: the full
// history and tool descriptor list are resent every turn.
type ReasoningEngine interface {
	Chat(ctx context.Context, history []Message, tools []Tool) (Message, error)
}

type Model struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
