package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dwizi/bizops-assistant/internal/agent"
	"github.com/dwizi/bizops-assistant/internal/agent/tools"
	"github.com/dwizi/bizops-assistant/internal/assistant"
	"github.com/dwizi/bizops-assistant/internal/audit"
	"github.com/dwizi/bizops-assistant/internal/authz"
	"github.com/dwizi/bizops-assistant/internal/config"
	"github.com/dwizi/bizops-assistant/internal/crm"
	"github.com/dwizi/bizops-assistant/internal/llm"
	"github.com/dwizi/bizops-assistant/internal/llm/anthropic"
	"github.com/dwizi/bizops-assistant/internal/llm/openai"
	"github.com/dwizi/bizops-assistant/internal/notify"
	"github.com/dwizi/bizops-assistant/internal/resolve"
	"github.com/dwizi/bizops-assistant/internal/store"
)

// New opens the store, applies migrations and wires the tool registry, the
// agent loop and the assistant. The reasoning backend is only contacted when a
// reply is requested, so store-only commands work without credentials.
func New(cfg config.Config, logger *slog.Logger) (*Runtime, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	sqlStore, err := store.New(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	if err := sqlStore.AutoMigrate(context.Background()); err != nil {
		sqlStore.Close()
		return nil, err
	}

	gate, err := loadGate(cfg.AuthzFile)
	if err != nil {
		sqlStore.Close()
		return nil, err
	}
	backend, err := newBackend(cfg, logger.With("component", "llm"))
	if err != nil {
		sqlStore.Close()
		return nil, err
	}

	location := cfg.TimeLocation()
	auditLogger := audit.New(logger.With("component", "audit"), sqlStore)
	registry := tools.NewRegistry(logger.With("component", "tools"), gate, auditLogger)
	resolver := resolve.New(logger.With("component", "resolve"), sqlStore, resolve.Options{
		PlaceholderDomain: cfg.PlaceholderEmailDomain,
	})
	notifier := notify.New(logger.With("component", "notify"), sqlStore)
	service := crm.NewService(logger.With("component", "crm"), sqlStore, resolver, notifier, crm.Options{
		Location:        location,
		BulkConcurrency: cfg.BulkConcurrency,
	})
	if err := service.Register(registry); err != nil {
		sqlStore.Close()
		return nil, err
	}

	loop := agent.New(logger.With("component", "agent"), backend, registry, "")
	loop.SetPolicy(agent.Policy{
		MaxLoopSteps:        cfg.AgentMaxLoopSteps,
		MaxInputChars:       cfg.AgentMaxInputChars,
		MaxToolCallsPerStep: cfg.AgentMaxToolCallsPerStep,
	})

	return &Runtime{
		cfg:      cfg,
		logger:   logger,
		location: location,
		store:    sqlStore,
		audit:    auditLogger,
		registry: registry,
		assistant: assistant.New(logger.With("component", "assistant"), loop, assistant.Options{
			AppName:  cfg.AppName,
			Location: location,
		}),
	}, nil
}

func loadGate(path string) (*authz.Gate, error) {
	if strings.TrimSpace(path) == "" {
		return authz.NewGate(authz.DefaultRules())
	}
	gate, err := authz.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load permission table: %w", err)
	}
	return gate, nil
}

func newBackend(cfg config.Config, logger *slog.Logger) (llm.Backend, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.LLMProvider)) {
	case "", "openai":
		return openai.New(openai.Config{
			APIKey:  cfg.LLMAPIKey,
			BaseURL: cfg.LLMBaseURL,
			Model:   cfg.LLMModel,
			Timeout: cfg.LLMTimeout(),
		}, logger), nil
	case "anthropic":
		return anthropic.New(anthropic.Config{
			APIKey:  cfg.LLMAPIKey,
			BaseURL: cfg.LLMBaseURL,
			Model:   cfg.LLMModel,
			Timeout: cfg.LLMTimeout(),
		}, logger), nil
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.LLMProvider)
	}
}
