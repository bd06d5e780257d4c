package core

import (
	"context"
	"encoding/json"
)

// ToolHandler executes one capability call. Arguments arrive as the raw JSON
// object the reasoning engine produced; the returned string is either plain
// text or a pre-shaped ToolResult envelope (the invoker detects which).
type ToolHandler func(ctx context.Context, args json.RawMessage) (string, error)

// ToolDefinition is the static declaration a capability makes about one of
// its operations. Blocking marks handlers that do heavy network or CPU work
// and must run on the invoker's worker pool under a timeout.
type ToolDefinition struct {
	Name        string
	Description string
	Schema      string
	Handler     ToolHandler
	Blocking    bool
}

// Toolset is the capability-listing contract. Implementations declare their
// operations statically; nothing is discovered via reflection at runtime.
type Toolset interface {
	Definitions() []ToolDefinition
}
