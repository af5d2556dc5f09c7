// Package assistant is the single entry point callers use to ask the business
// assistant something on behalf of a user.
package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dwizi/bizops-assistant/internal/agent"
	"github.com/dwizi/bizops-assistant/internal/agenterr"
	"github.com/dwizi/bizops-assistant/internal/authz"
)

const emptyReply = "No pude generar una respuesta. Intenta reformular tu solicitud."

// Runner is the reasoning loop the assistant drives.
type Runner interface {
	Run(ctx context.Context, turn agent.Turn) (agent.Result, error)
}

type Options struct {
	AppName  string
	Location *time.Location
	Now      func() time.Time
}

type Assistant struct {
	runner   Runner
	logger   *slog.Logger
	appName  string
	location *time.Location
	now      func() time.Time
}

func New(logger *slog.Logger, runner Runner, opts Options) *Assistant {
	if logger == nil {
		logger = slog.Default()
	}
	location := opts.Location
	if location == nil {
		location = time.UTC
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Assistant{
		runner:   runner,
		logger:   logger,
		appName:  strings.TrimSpace(opts.AppName),
		location: location,
		now:      now,
	}
}

// GenerateReply answers prompt for actor. Tool failures are relayed in the
// reply text; only a reasoning backend failure is returned as an error.
func (a *Assistant) GenerateReply(ctx context.Context, actor authz.Actor, prompt string) (string, error) {
	result, err := a.Run(ctx, actor, prompt)
	if err != nil {
		return "", err
	}
	return result.Reply, nil
}

// Run is GenerateReply with the full loop result, for callers that want the
// tool trace.
func (a *Assistant) Run(ctx context.Context, actor authz.Actor, prompt string) (agent.Result, error) {
	if strings.TrimSpace(actor.ID) == "" {
		return agent.Result{}, fmt.Errorf("%w: actor id is required", agenterr.ErrInvalidArgs)
	}
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return agent.Result{}, fmt.Errorf("%w: prompt is empty", agenterr.ErrInvalidArgs)
	}

	started := time.Now()
	result, err := a.runner.Run(ctx, agent.Turn{
		Actor:        actor,
		Text:         prompt,
		SystemPrompt: SystemPrompt(a.now().In(a.location), a.appName),
	})
	if err != nil {
		a.logger.Error("assistant reply failed", "user_id", actor.ID, "role", actor.Role, "error", err)
		return result, err
	}
	if strings.TrimSpace(result.Reply) == "" {
		result.Reply = emptyReply
	}
	a.logger.Info("assistant reply generated",
		"user_id", actor.ID,
		"role", actor.Role,
		"steps", result.Steps,
		"tool_calls", len(result.ToolCalls),
		"stop_reason", result.StopReason,
		"duration_ms", time.Since(started).Milliseconds(),
	)
	return result, nil
}
