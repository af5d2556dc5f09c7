package tools

import (
	"context"
	"encoding/json"

	"github.com/dwizi/bizops-assistant/internal/audit"
	"github.com/dwizi/bizops-assistant/internal/authz"
)

// Direction tells the registry whether a tool mutates business data.
type Direction string

const (
	DirectionRead  Direction = "read"
	DirectionWrite Direction = "write"
)

// Tool represents an executable capability for the agent.
type Tool interface {
	// Name returns the unique identifier for the tool (e.g., "createClient").
	Name() string

	// Description returns a human/LLM-readable explanation of what the tool does.
	Description() string

	// ParametersSchema returns the JSON schema the arguments must satisfy.
	ParametersSchema() string

	Direction() Direction

	// Execute runs the tool on behalf of actor. Arguments have already passed
	// schema validation. The returned payload is marshalled to JSON.
	Execute(ctx context.Context, actor authz.Actor, args json.RawMessage) (any, error)
}

// Outcome is an optional interface on a write tool payload. It lets a tool
// that absorbed its own failures (a bulk report, for example) decide the
// audit success flag.
type Outcome interface {
	Succeeded() bool
	FailureReason() string
}

// Authorizer decides whether a role may run a write tool.
type Authorizer interface {
	IsAllowed(role authz.Role, toolName string) bool
	AllowedRoles(toolName string) []authz.Role
}

// Auditor appends one entry per write tool attempt.
type Auditor interface {
	Record(ctx context.Context, entry audit.Entry) error
}
