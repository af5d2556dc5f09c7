package store

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// ToolAuditRecord is one attempted privileged tool call. Rows are only ever
// inserted; the store offers no update or delete path for them.
type ToolAuditRecord struct {
	ID        string
	UserID    string
	ToolName  string
	Action    string
	InputJSON string
	Success   bool
	Error     string
	CreatedAt time.Time
}

type CreateToolAuditInput struct {
	UserID    string
	ToolName  string
	Action    string
	InputJSON string
	Success   bool
	Error     string
}

type ListToolAuditInput struct {
	UserID     string
	ToolName   string
	FailedOnly bool
	Limit      int
}

func (s *Store) CreateToolAuditRecord(ctx context.Context, input CreateToolAuditInput) (ToolAuditRecord, error) {
	record := ToolAuditRecord{
		ID:        newID("audit"),
		UserID:    strings.TrimSpace(input.UserID),
		ToolName:  strings.TrimSpace(input.ToolName),
		Action:    strings.ToUpper(strings.TrimSpace(input.Action)),
		InputJSON: strings.TrimSpace(input.InputJSON),
		Success:   input.Success,
		Error:     strings.TrimSpace(input.Error),
		CreatedAt: s.now(),
	}
	if record.UserID == "" || record.ToolName == "" || record.Action == "" {
		return ToolAuditRecord{}, fmt.Errorf("missing required tool audit fields")
	}
	if record.InputJSON == "" {
		record.InputJSON = "{}"
	}

	if _, err := s.db.ExecContext(
		ctx,
		`INSERT INTO tool_audit_log (id, user_id, tool_name, action, input_json, success, error, created_at_unix)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.UserID,
		record.ToolName,
		record.Action,
		record.InputJSON,
		boolToInt(record.Success),
		nullIfEmpty(record.Error),
		record.CreatedAt.Unix(),
	); err != nil {
		return ToolAuditRecord{}, fmt.Errorf("insert tool audit record: %w", err)
	}
	return record, nil
}

func (s *Store) ListToolAuditRecords(ctx context.Context, input ListToolAuditInput) ([]ToolAuditRecord, error) {
	limit := clampLimit(input.Limit, 100, 1000)
	whereParts := []string{"1=1"}
	args := make([]any, 0, 4)

	if userID := strings.TrimSpace(input.UserID); userID != "" {
		whereParts = append(whereParts, "user_id = ?")
		args = append(args, userID)
	}
	if toolName := strings.TrimSpace(input.ToolName); toolName != "" {
		whereParts = append(whereParts, "tool_name = ?")
		args = append(args, toolName)
	}
	if input.FailedOnly {
		whereParts = append(whereParts, "success = 0")
	}
	args = append(args, limit)

	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, user_id, tool_name, action, input_json, success, COALESCE(error, ''), created_at_unix
		 FROM tool_audit_log
		 WHERE `+strings.Join(whereParts, " AND ")+`
		 ORDER BY created_at_unix DESC, rowid DESC
		 LIMIT ?`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("query tool audit records: %w", err)
	}
	defer rows.Close()

	records := make([]ToolAuditRecord, 0, limit)
	for rows.Next() {
		var record ToolAuditRecord
		var success int
		var createdAtUnix int64
		if err := rows.Scan(
			&record.ID,
			&record.UserID,
			&record.ToolName,
			&record.Action,
			&record.InputJSON,
			&success,
			&record.Error,
			&createdAtUnix,
		); err != nil {
			return nil, err
		}
		record.Success = success == 1
		if createdAtUnix > 0 {
			record.CreatedAt = time.Unix(createdAtUnix, 0).UTC()
		}
		records = append(records, record)
	}
	return records, rows.Err()
}
