package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/dwizi/bizops-assistant/internal/agenterr"
	"github.com/dwizi/bizops-assistant/internal/audit"
	"github.com/dwizi/bizops-assistant/internal/authz"
)

// Registry manages a collection of tools and is the only path by which a
// tool handler runs.
type Registry struct {
	mu      sync.RWMutex
	logger  *slog.Logger
	gate    Authorizer
	auditor Auditor
	tools   map[string]registeredTool
}

type registeredTool struct {
	tool   Tool
	schema *Schema
}

func NewRegistry(logger *slog.Logger, gate Authorizer, auditor Auditor) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		logger:  logger,
		gate:    gate,
		auditor: auditor,
		tools:   make(map[string]registeredTool),
	}
}

// Register compiles the tool schema and adds the tool. Names are unique and
// write tools must have a permission rule.
func (r *Registry) Register(t Tool) error {
	if t == nil {
		return fmt.Errorf("tool is nil")
	}
	name := strings.TrimSpace(t.Name())
	if name == "" {
		return fmt.Errorf("tool name is required")
	}
	switch t.Direction() {
	case DirectionRead:
	case DirectionWrite:
		if r.gate == nil || len(r.gate.AllowedRoles(name)) == 0 {
			return fmt.Errorf("write tool %s has no allowed roles", name)
		}
	default:
		return fmt.Errorf("tool %s has unknown direction %q", name, t.Direction())
	}
	schema, err := CompileSchema(name, t.ParametersSchema())
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool %s already registered", name)
	}
	r.tools[name] = registeredTool{tool: t, schema: schema}
	return nil
}

// Get retrieves a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.tools[name]
	return entry.tool, ok
}

// List returns a list of all registered tools, sorted by name.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]Tool, 0, len(r.tools))
	for _, entry := range r.tools {
		list = append(list, entry.tool)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].Name() < list[j].Name()
	})
	return list
}

// DescribeAll returns a formatted catalog of tools with their direction and,
// for write tools, the roles allowed to run them.
func (r *Registry) DescribeAll() string {
	var output strings.Builder
	for _, tool := range r.List() {
		output.WriteString(fmt.Sprintf("- %s [%s]: %s\n", tool.Name(), tool.Direction(), tool.Description()))
		if tool.Direction() == DirectionWrite && r.gate != nil {
			roles := r.gate.AllowedRoles(tool.Name())
			names := make([]string, 0, len(roles))
			for _, role := range roles {
				names = append(names, string(role))
			}
			output.WriteString(fmt.Sprintf("  Roles: %s\n", strings.Join(names, ", ")))
		}
	}
	return output.String()
}

// Dispatch validates args, enforces the permission table for write tools,
// runs the handler and writes exactly one audit entry per write attempt that
// passed validation. The handler payload is returned as JSON.
func (r *Registry) Dispatch(ctx context.Context, name string, args json.RawMessage, actor authz.Actor) (string, error) {
	r.mu.RLock()
	entry, exists := r.tools[strings.TrimSpace(name)]
	r.mu.RUnlock()
	if !exists {
		return "", fmt.Errorf("%w: %s", agenterr.ErrToolNotFound, name)
	}
	tool := entry.tool

	args = normalizeArgs(args)
	if err := entry.schema.ValidateJSON(args); err != nil {
		return "", fmt.Errorf("%w for %s: %v", agenterr.ErrInvalidArgs, tool.Name(), err)
	}

	isWrite := tool.Direction() == DirectionWrite
	if isWrite && (r.gate == nil || !r.gate.IsAllowed(actor.Role, tool.Name())) {
		reason := fmt.Sprintf("permission denied: role %s cannot run %s", actor.Role, tool.Name())
		r.record(ctx, actor, tool.Name(), args, false, reason)
		return "", fmt.Errorf("%w: role %s cannot run %s", agenterr.ErrPermissionDenied, actor.Role, tool.Name())
	}

	payload, err := tool.Execute(ctx, actor, args)
	var output []byte
	if err == nil {
		output, err = json.Marshal(payload)
		if err != nil {
			err = fmt.Errorf("encode %s result: %w", tool.Name(), err)
		}
	}

	if isWrite {
		success, reason := true, ""
		if err != nil {
			success, reason = false, err.Error()
		} else if outcome, ok := payload.(Outcome); ok && !outcome.Succeeded() {
			success, reason = false, outcome.FailureReason()
		}
		r.record(ctx, actor, tool.Name(), args, success, reason)
	}
	if err != nil {
		return "", err
	}
	return string(output), nil
}

func (r *Registry) record(ctx context.Context, actor authz.Actor, toolName string, args json.RawMessage, success bool, reason string) {
	if r.auditor == nil {
		r.logger.Warn("tool audit skipped: no auditor configured", "tool", toolName, "user_id", actor.ID)
		return
	}
	err := r.auditor.Record(ctx, audit.Entry{
		UserID:   actor.ID,
		ToolName: toolName,
		Input:    args,
		Success:  success,
		Error:    reason,
	})
	if err != nil {
		r.logger.Warn("tool audit write failed", "tool", toolName, "user_id", actor.ID, "error", err)
	}
}

func normalizeArgs(args json.RawMessage) json.RawMessage {
	trimmed := bytes.TrimSpace(args)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return json.RawMessage("{}")
	}
	return json.RawMessage(trimmed)
}

