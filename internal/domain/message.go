package domain

import "encoding/json"

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one entry in a conversation transcript.
// Ordering is significant: a tool message must reference a tool_call_id
// issued by a preceding assistant message.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	Name       string     `json:"name,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ChatRequest is a request to a completion provider.
type ChatRequest struct {
	Model       string
	Messages    []Message
	Tools       []ToolSchema
	MaxTokens   int
	Temperature float64
}

// ChatResponse is the completion provider's answer: either final text
// or a set of requested tool invocations on the assistant message.
type ChatResponse struct {
	Message      Message
	FinishReason string
	Usage        Usage
}

// Usage reports token consumption for one completion call.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// ToolPayload is the JSON body of a tool message's content. It is the
// only channel back into the model and must always be valid JSON.
type ToolPayload struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Encode serializes the payload; a marshal failure is impossible for
// this shape, so the fallback is a static failure body.
func (p ToolPayload) Encode() string {
	data, err := json.Marshal(p)
	if err != nil {
		return `{"success":false,"message":"Error: encode tool result"}`
	}
	return string(data)
}
