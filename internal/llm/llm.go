package llm

import (
	"context"
	"encoding/json"
	"errors"
)

var ErrUnavailable = errors.New("llm unavailable")

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolDeclaration is what the backend is told about a tool.
type ToolDeclaration struct {
	Name        string
	Description string
	Parameters  json.RawMessage
}

// ToolCall is a tool invocation requested by the model. Arguments are passed
// through as received and may be malformed.
type ToolCall struct {
	ID        string
	Name      string
	Arguments json.RawMessage
}

// Message is one conversation entry. Assistant messages may carry tool calls;
// tool messages answer exactly one call by ID.
type Message struct {
	Role       Role
	Content    string
	ToolCalls  []ToolCall
	ToolCallID string
	Name       string
}

type Request struct {
	SystemPrompt string
	Messages     []Message
	Tools        []ToolDeclaration
}

// Response is either final text (no tool calls) or a set of tool calls,
// optionally with accompanying text.
type Response struct {
	Text      string
	ToolCalls []ToolCall
}

// Backend is a reasoning service with native tool calling.
type Backend interface {
	Next(ctx context.Context, req Request) (Response, error)
}

// BackendFunc adapts a function to Backend.
type BackendFunc func(ctx context.Context, req Request) (Response, error)

func (f BackendFunc) Next(ctx context.Context, req Request) (Response, error) {
	return f(ctx, req)
}
