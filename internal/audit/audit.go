package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dwizi/bizops-assistant/internal/store"
)

// ActionWrite is the only action kind recorded today.
const ActionWrite = "WRITE"

const maxInputBytes = 16 * 1024

// Store is the persistence the logger appends to.
type Store interface {
	CreateToolAuditRecord(ctx context.Context, input store.CreateToolAuditInput) (store.ToolAuditRecord, error)
	ListToolAuditRecords(ctx context.Context, input store.ListToolAuditInput) ([]store.ToolAuditRecord, error)
}

// Entry is one attempted privileged tool call.
type Entry struct {
	UserID   string
	ToolName string
	Input    json.RawMessage
	Success  bool
	Error    string
}

type Filter struct {
	UserID     string
	ToolName   string
	FailedOnly bool
	Limit      int
}

// Logger appends audit entries. It never updates or removes them.
type Logger struct {
	store  Store
	logger *slog.Logger
}

func New(logger *slog.Logger, auditStore Store) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logger{store: auditStore, logger: logger}
}

func (l *Logger) Record(ctx context.Context, entry Entry) error {
	if l == nil || l.store == nil {
		return fmt.Errorf("audit store is not configured")
	}
	record, err := l.store.CreateToolAuditRecord(ctx, store.CreateToolAuditInput{
		UserID:    entry.UserID,
		ToolName:  entry.ToolName,
		Action:    ActionWrite,
		InputJSON: snapshot(entry.Input),
		Success:   entry.Success,
		Error:     entry.Error,
	})
	if err != nil {
		return fmt.Errorf("record audit entry: %w", err)
	}
	l.logger.Info("tool audit recorded",
		"audit_id", record.ID,
		"user_id", record.UserID,
		"tool", record.ToolName,
		"success", record.Success,
	)
	return nil
}

func (l *Logger) List(ctx context.Context, filter Filter) ([]store.ToolAuditRecord, error) {
	if l == nil || l.store == nil {
		return nil, fmt.Errorf("audit store is not configured")
	}
	return l.store.ListToolAuditRecords(ctx, store.ListToolAuditInput{
		UserID:     filter.UserID,
		ToolName:   filter.ToolName,
		FailedOnly: filter.FailedOnly,
		Limit:      filter.Limit,
	})
}

// snapshot stores the input exactly as received, compacted. Input that is not
// valid JSON is kept as a JSON string so the column always holds JSON.
func snapshot(input json.RawMessage) string {
	trimmed := bytes.TrimSpace(input)
	if len(trimmed) == 0 {
		return "{}"
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		quoted, _ := json.Marshal(strings.ToValidUTF8(string(trimmed), ""))
		return truncate(string(quoted))
	}
	return truncate(buf.String())
}

func truncate(value string) string {
	if len(value) <= maxInputBytes {
		return value
	}
	quoted, _ := json.Marshal(map[string]any{
		"truncated": true,
		"prefix":    strings.ToValidUTF8(value[:maxInputBytes], ""),
	})
	return string(quoted)
}
