package tools

import (
	"context"
	"encoding/json"
	"sync/atomic"

	"github.com/dwizi/bizops-assistant/internal/authz"
)

// MockTool is a helper for testing that implements the Tool interface.
// It is exported so other packages (like agent tests) can use it.
type MockTool struct {
	NameVal      string
	DescVal      string
	SchemaVal    string
	DirectionVal Direction
	ExecFunc     func(ctx context.Context, actor authz.Actor, args json.RawMessage) (any, error)

	calls atomic.Int64
}

func (m *MockTool) Name() string {
	if m.NameVal == "" {
		return "mock_tool"
	}
	return m.NameVal
}

func (m *MockTool) Description() string {
	return m.DescVal
}

func (m *MockTool) ParametersSchema() string {
	if m.SchemaVal == "" {
		return `{"type":"object"}`
	}
	return m.SchemaVal
}

func (m *MockTool) Direction() Direction {
	if m.DirectionVal == "" {
		return DirectionRead
	}
	return m.DirectionVal
}

func (m *MockTool) Execute(ctx context.Context, actor authz.Actor, args json.RawMessage) (any, error) {
	m.calls.Add(1)
	if m.ExecFunc != nil {
		return m.ExecFunc(ctx, actor, args)
	}
	return map[string]any{"success": true}, nil
}

// Calls returns how many times Execute ran.
func (m *MockTool) Calls() int {
	return int(m.calls.Load())
}
