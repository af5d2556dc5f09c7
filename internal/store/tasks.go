package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

type TaskRecord struct {
	ID           string
	ProjectID    string
	ProjectName  string
	Title        string
	Description  string
	AssigneeID   string
	AssigneeName string
	CreatorID    string
	Priority     string
	Status       string
	StartDate    time.Time
	DueDate      time.Time
	CreatedAt    time.Time
}

type CreateTaskInput struct {
	ProjectID   string
	Title       string
	Description string
	AssigneeID  string
	CreatorID   string
	Priority    string
	StartDate   time.Time
	DueDate     time.Time
}

func (s *Store) CreateTask(ctx context.Context, input CreateTaskInput) (TaskRecord, error) {
	record := TaskRecord{
		ID:          newID("task"),
		ProjectID:   strings.TrimSpace(input.ProjectID),
		Title:       NormalizeText(input.Title),
		Description: strings.TrimSpace(input.Description),
		AssigneeID:  strings.TrimSpace(input.AssigneeID),
		CreatorID:   strings.TrimSpace(input.CreatorID),
		Priority:    strings.ToUpper(strings.TrimSpace(input.Priority)),
		Status:      "TODO",
		StartDate:   input.StartDate,
		DueDate:     input.DueDate,
		CreatedAt:   s.now(),
	}
	if record.ProjectID == "" || record.Title == "" {
		return TaskRecord{}, fmt.Errorf("task project and title are required")
	}
	if record.Priority == "" {
		record.Priority = "MEDIUM"
	}
	if _, err := s.db.ExecContext(
		ctx,
		`INSERT INTO tasks (
			id, project_id, title, description, assignee_id, creator_id, priority, status,
			start_date_unix, due_date_unix, created_at_unix
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.ProjectID,
		record.Title,
		nullIfEmpty(record.Description),
		nullIfEmpty(record.AssigneeID),
		nullIfEmpty(record.CreatorID),
		record.Priority,
		record.Status,
		nullIfZeroTime(record.StartDate),
		nullIfZeroTime(record.DueDate),
		record.CreatedAt.Unix(),
	); err != nil {
		return TaskRecord{}, fmt.Errorf("insert task: %w", err)
	}
	return record, nil
}

func (s *Store) GetTask(ctx context.Context, id string) (TaskRecord, error) {
	var task TaskRecord
	var startUnix, dueUnix sql.NullInt64
	var createdAtUnix int64
	err := s.db.QueryRowContext(
		ctx,
		`SELECT t.id, t.project_id, COALESCE(p.name, ''), t.title, COALESCE(t.description, ''),
		        COALESCE(t.assignee_id, ''), COALESCE(u.name, ''), COALESCE(t.creator_id, ''),
		        t.priority, t.status, t.start_date_unix, t.due_date_unix, t.created_at_unix
		 FROM tasks t
		 LEFT JOIN projects p ON p.id = t.project_id
		 LEFT JOIN users u ON u.id = t.assignee_id
		 WHERE t.id = ?`,
		strings.TrimSpace(id),
	).Scan(
		&task.ID,
		&task.ProjectID,
		&task.ProjectName,
		&task.Title,
		&task.Description,
		&task.AssigneeID,
		&task.AssigneeName,
		&task.CreatorID,
		&task.Priority,
		&task.Status,
		&startUnix,
		&dueUnix,
		&createdAtUnix,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return TaskRecord{}, ErrNotFound
		}
		return TaskRecord{}, fmt.Errorf("get task: %w", err)
	}
	task.StartDate = timeFromNullUnix(startUnix)
	task.DueDate = timeFromNullUnix(dueUnix)
	task.CreatedAt = time.Unix(createdAtUnix, 0).UTC()
	return task, nil
}
