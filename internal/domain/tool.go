package domain

import (
	"context"
	"encoding/json"
)

// ToolSchema describes a tool to the completion provider.
// Parameters is a JSON Schema document.
type ToolSchema struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

// ToolCall is one tool invocation requested by the model.
// Arguments is model output and may not be valid JSON.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ToolResult is the outcome of executing a single tool call.
type ToolResult struct {
	ToolCallID  string
	Content     string
	IsError     bool
	IsRetryable bool
}

// Tool is a named, schema-described, side-effecting operation.
type Tool interface {
	Name() string
	Description() string
	Schema() ToolSchema
	Execute(ctx context.Context, params json.RawMessage) (*ToolResult, error)
}

// ToolExecutor resolves tools by name and exposes their schemas.
type ToolExecutor interface {
	Get(name string) (Tool, error)
	Schemas() []ToolSchema
}
