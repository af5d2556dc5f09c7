package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dwizi/bizops-assistant/internal/agent/tools"
	"github.com/dwizi/bizops-assistant/internal/agenterr"
	"github.com/dwizi/bizops-assistant/internal/authz"
	"github.com/dwizi/bizops-assistant/internal/llm"
)

// StopReason tells why a turn ended.
type StopReason string

const (
	StopFinal    StopReason = "final"
	StopMaxSteps StopReason = "max_steps"
	StopBlocked  StopReason = "blocked"
)

// Agent coordinates the reasoning/tool loop.
type Agent struct {
	logger   *slog.Logger
	backend  llm.Backend
	registry *tools.Registry
	prompt   string // Base system prompt
	policy   Policy
}

// New creates a new Agent.
func New(logger *slog.Logger, backend llm.Backend, registry *tools.Registry, systemPrompt string) *Agent {
	if logger == nil {
		logger = slog.Default()
	}
	return &Agent{
		logger:   logger,
		backend:  backend,
		registry: registry,
		prompt:   strings.TrimSpace(systemPrompt),
		policy:   defaultPolicy(),
	}
}

func (a *Agent) SetPolicy(policy Policy) {
	a.policy = mergePolicy(defaultPolicy(), policy)
}

func (a *Agent) Policy() Policy {
	return a.policy
}

// Turn is one user request. The actor is fixed for the whole loop.
type Turn struct {
	Actor authz.Actor
	Text  string
	// SystemPrompt is appended to the agent's base prompt for this turn only.
	SystemPrompt string
}

// Result represents the outcome of an agent turn.
type Result struct {
	Reply       string // Text to show the user
	Steps       int
	StopReason  StopReason
	BlockReason string
	ToolCalls   []ToolCall
	Trace       []TraceEvent
}

// TraceEvent captures a notable step for diagnostics.
type TraceEvent struct {
	Time    time.Time
	Stage   string
	Message string
}

// ToolCall captures a tool invocation attempted by the agent loop.
type ToolCall struct {
	Step       int
	ToolName   string
	ToolArgs   string
	Status     string
	ToolOutput string
	Error      string
}

const (
	statusSucceeded = "succeeded"
	statusFailed    = "failed"
	statusDenied    = "denied"
	statusInvalid   = "invalid"
	statusSkipped   = "skipped"
)

// Run drives the bounded loop. It stops when the backend answers without tool
// calls or after MaxLoopSteps backend calls, whichever comes first. Tool
// failures are fed back to the backend; only a backend failure returns an
// error, wrapped with agenterr.ErrBackend.
func (a *Agent) Run(ctx context.Context, turn Turn) (Result, error) {
	result := Result{}
	appendTrace := func(stage, message string) {
		result.Trace = append(result.Trace, TraceEvent{
			Time:    time.Now().UTC(),
			Stage:   strings.TrimSpace(stage),
			Message: strings.TrimSpace(message),
		})
		a.logger.Info("agent_trace", "stage", stage, "message", message, "user_id", turn.Actor.ID)
	}

	policy := a.policy
	appendTrace("start", fmt.Sprintf("agent turn started for role %s", turn.Actor.Role))

	if policy.MaxInputChars > 0 && utf8.RuneCountInString(turn.Text) > policy.MaxInputChars {
		result.StopReason = StopBlocked
		result.BlockReason = "input exceeds max size policy"
		result.Reply = "El mensaje es demasiado largo para procesarlo en una sola solicitud. Divídelo en partes más cortas."
		appendTrace("policy.blocked", result.BlockReason)
		return result, nil
	}
	if a.backend == nil {
		return result, fmt.Errorf("%w: %w", agenterr.ErrBackend, llm.ErrUnavailable)
	}

	systemPrompt := a.prompt
	if extra := strings.TrimSpace(turn.SystemPrompt); extra != "" {
		if systemPrompt != "" {
			systemPrompt += "\n\n"
		}
		systemPrompt += extra
	}
	declarations := a.declarations()
	messages := []llm.Message{{Role: llm.RoleUser, Content: strings.TrimSpace(turn.Text)}}
	appendTrace("prompt.ready", fmt.Sprintf("prepared prompt with %d tools", len(declarations)))

	maxSteps := policy.MaxLoopSteps
	if maxSteps < 1 {
		maxSteps = 1
	}

	lastText := ""
	for step := 1; step <= maxSteps; step++ {
		result.Steps = step
		response, err := a.backend.Next(ctx, llm.Request{
			SystemPrompt: systemPrompt,
			Messages:     messages,
			Tools:        declarations,
		})
		if err != nil {
			appendTrace("llm.error", err.Error())
			return result, fmt.Errorf("%w: %w", agenterr.ErrBackend, err)
		}
		appendTrace("llm.reply", fmt.Sprintf("received model response at step %d with %d tool calls", step, len(response.ToolCalls)))

		if text := strings.TrimSpace(response.Text); text != "" {
			lastText = text
		}
		if len(response.ToolCalls) == 0 {
			result.Reply = lastText
			result.StopReason = StopFinal
			appendTrace("decision.reply", "model returned final response")
			return result, nil
		}

		calls := make([]llm.ToolCall, len(response.ToolCalls))
		for idx, call := range response.ToolCalls {
			if strings.TrimSpace(call.ID) == "" {
				call.ID = fmt.Sprintf("call_%d_%d", step, idx+1)
			}
			calls[idx] = call
		}
		messages = append(messages, llm.Message{
			Role:      llm.RoleAssistant,
			Content:   strings.TrimSpace(response.Text),
			ToolCalls: calls,
		})

		for idx, call := range calls {
			appendTrace("decision.tool", fmt.Sprintf("model selected tool %s", call.Name))
			record := ToolCall{
				Step:     step,
				ToolName: strings.TrimSpace(call.Name),
				ToolArgs: compactLoopText(string(call.Arguments), 800),
			}
			var output string
			if policy.MaxToolCallsPerStep > 0 && idx >= policy.MaxToolCallsPerStep {
				record.Status = statusSkipped
				record.Error = "too many tool calls in one step"
				output = errorPayload(record.Error)
				appendTrace("policy.blocked", record.Error)
			} else {
				output, err = a.dispatch(ctx, turn.Actor, call)
				if err != nil {
					record.Status = classifyToolError(err)
					record.Error = compactLoopText(err.Error(), 800)
					output = errorPayload(err.Error())
					appendTrace("tool.error", fmt.Sprintf("tool %s: %s", call.Name, record.Error))
				} else {
					record.Status = statusSucceeded
					record.ToolOutput = compactLoopText(output, 1200)
					appendTrace("tool.ok", fmt.Sprintf("tool %s executed successfully", call.Name))
				}
			}
			result.ToolCalls = append(result.ToolCalls, record)
			messages = append(messages, llm.Message{
				Role:       llm.RoleTool,
				ToolCallID: call.ID,
				Name:       call.Name,
				Content:    output,
			})
		}
	}

	result.Reply = lastText
	result.StopReason = StopMaxSteps
	appendTrace("loop.stop", "max loop steps reached")
	return result, nil
}

func (a *Agent) dispatch(ctx context.Context, actor authz.Actor, call llm.ToolCall) (string, error) {
	if a.registry == nil {
		return "", fmt.Errorf("tool registry is not configured")
	}
	return a.registry.Dispatch(ctx, call.Name, call.Arguments, actor)
}

func (a *Agent) declarations() []llm.ToolDeclaration {
	if a.registry == nil {
		return nil
	}
	list := a.registry.List()
	declarations := make([]llm.ToolDeclaration, 0, len(list))
	for _, tool := range list {
		declarations = append(declarations, llm.ToolDeclaration{
			Name:        tool.Name(),
			Description: tool.Description(),
			Parameters:  json.RawMessage(tool.ParametersSchema()),
		})
	}
	return declarations
}

func classifyToolError(err error) string {
	switch {
	case errors.Is(err, agenterr.ErrPermissionDenied):
		return statusDenied
	case errors.Is(err, agenterr.ErrInvalidArgs):
		return statusInvalid
	default:
		return statusFailed
	}
}

func errorPayload(message string) string {
	raw, _ := json.Marshal(map[string]any{
		"success": false,
		"error":   compactLoopText(message, 1000),
	})
	return string(raw)
}

func compactLoopText(input string, maxLen int) string {
	clean := strings.Join(strings.Fields(strings.TrimSpace(input)), " ")
	if maxLen < 1 || len(clean) <= maxLen {
		return clean
	}
	return strings.TrimSpace(clean[:maxLen]) + "..."
}
