package core

import (
	"encoding/json"
	"time"
)

const (
	AizenName          = "Aizen"
	AizenUserAgent     = "Aizen-Agent/0.1"
	AizenRepositoryURL = "https://github.com/sandevgo/aizen"
	AizenVersion       = "0.1.0"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

type Function struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters"` // JSON Schema
}

type Tool struct {
	Type     string   `json:"type"`
	Function Function `json:"function"`
}

type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	Reasoning  string     `json:"reasoning,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ToolResult is the single outcome shape for every capability invocation.
// Failures inside a capability never surface as Go errors to the loop; they
// are carried here so the reasoning engine can observe and react to them.
type ToolResult struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Task is a recurring unit of work the scheduler feeds to the agent.
type Task struct {
	Prompt    string
	Frequency time.Duration
}

func (r ToolResult) Serialize() string {
	data, err := json.Marshal(r)
	if err != nil {
		return `{"success":false,"error":"unserializable tool result"}`
	}
	return string(data)
}
