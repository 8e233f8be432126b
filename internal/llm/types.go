package llm

import "encoding/json"

// Role represents the role of a message sender in a conversation.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ChatMessage represents a single message in a tool-augmented conversation.
// Content may be empty when the assistant responded with tool calls only.
// ToolCallID and Name are set on tool-role messages carrying a tool result.
type ChatMessage struct {
	Role       Role
	Content    string
	ToolCalls  []ToolCall
	ToolCallID string
	Name       string
}

// ToolCall is a model-requested invocation of a named tool.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// FunctionCall carries the tool name and its JSON-encoded arguments.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Tool describes one entry of the tool catalog sent with a chat request.
// Parameters is a JSON Schema object.
type Tool struct {
	Name        string
	Description string
	Parameters  json.RawMessage
}

// ChatRequest contains the parameters for a tool-augmented chat completion.
// When ForceTool is set the model must respond with a tool call.
type ChatRequest struct {
	Model       string
	Messages    []ChatMessage
	Tools       []Tool
	ForceTool   bool
	Temperature float64
}

// ChatResponse is the model's reply: either final text content, or one or
// more requested tool calls (Content may accompany tool calls and must be
// passed back verbatim on the next request).
type ChatResponse struct {
	Content   string
	ToolCalls []ToolCall
}

// CompletionRequest contains the parameters for a plain completion request
// without tool access.
type CompletionRequest struct {
	Model       string
	Messages    []ChatMessage
	MaxTokens   int
	Temperature float64
	JSONMode    bool
}

// CompletionResponse contains the result of a plain completion request.
type CompletionResponse struct {
	Content      string
	InputTokens  int
	OutputTokens int
	Model        string
	FinishReason string
}
