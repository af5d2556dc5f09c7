package app

import (
	"log/slog"
	"time"

	"github.com/dwizi/bizops-assistant/internal/agent/tools"
	"github.com/dwizi/bizops-assistant/internal/assistant"
	"github.com/dwizi/bizops-assistant/internal/audit"
	"github.com/dwizi/bizops-assistant/internal/config"
	"github.com/dwizi/bizops-assistant/internal/store"
)

type Runtime struct {
	cfg       config.Config
	logger    *slog.Logger
	location  *time.Location
	store     *store.Store
	audit     *audit.Logger
	registry  *tools.Registry
	assistant *assistant.Assistant
}
