package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// OpenProjectStatuses are the statuses a project can be matched by name in.
// COMPLETED projects are never reused.
var OpenProjectStatuses = []string{"PLANNING", "ACTIVE", "REVIEW", "ON_HOLD"}

type ProjectRecord struct {
	ID           string
	Name         string
	ClientID     string
	ClientName   string
	DirectorID   string
	DirectorName string
	Budget       float64
	ServiceType  string
	Status       string
	StartDate    time.Time
	EndDate      time.Time
	CreatedAt    time.Time
}

type CreateProjectInput struct {
	Name        string
	ClientID    string
	DirectorID  string
	Budget      float64
	ServiceType string
	Status      string
	StartDate   time.Time
	EndDate     time.Time
}

type ListProjectsInput struct {
	Status string
	Query  string
	Limit  int
}

func (s *Store) CreateProject(ctx context.Context, input CreateProjectInput) (ProjectRecord, error) {
	record := ProjectRecord{
		ID:          newID("prj"),
		Name:        NormalizeText(input.Name),
		ClientID:    strings.TrimSpace(input.ClientID),
		DirectorID:  strings.TrimSpace(input.DirectorID),
		Budget:      input.Budget,
		ServiceType: strings.TrimSpace(input.ServiceType),
		Status:      strings.ToUpper(strings.TrimSpace(input.Status)),
		StartDate:   input.StartDate,
		EndDate:     input.EndDate,
		CreatedAt:   s.now(),
	}
	if record.Name == "" || record.ClientID == "" || record.DirectorID == "" {
		return ProjectRecord{}, fmt.Errorf("project name, client and director are required")
	}
	if record.Status == "" {
		record.Status = "PLANNING"
	}
	if _, err := s.db.ExecContext(
		ctx,
		`INSERT INTO projects (
			id, name, name_key, client_id, director_id, budget, service_type, status,
			start_date_unix, end_date_unix, created_at_unix
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.Name,
		NameKey(record.Name),
		record.ClientID,
		record.DirectorID,
		record.Budget,
		nullIfEmpty(record.ServiceType),
		record.Status,
		nullIfZeroTime(record.StartDate),
		nullIfZeroTime(record.EndDate),
		record.CreatedAt.Unix(),
	); err != nil {
		return ProjectRecord{}, fmt.Errorf("insert project: %w", err)
	}
	return record, nil
}

func (s *Store) GetProject(ctx context.Context, id string) (ProjectRecord, error) {
	return scanProject(s.db.QueryRowContext(ctx, projectSelect+` WHERE p.id = ?`, strings.TrimSpace(id)))
}

// FindOpenProjectByName matches a non-completed project by case-insensitive
// name. An empty clientID searches across all clients; the newest match wins.
func (s *Store) FindOpenProjectByName(ctx context.Context, name, clientID string) (ProjectRecord, error) {
	args := []any{NameKey(name)}
	placeholders := make([]string, 0, len(OpenProjectStatuses))
	for _, status := range OpenProjectStatuses {
		placeholders = append(placeholders, "?")
		args = append(args, status)
	}
	query := projectSelect + ` WHERE p.name_key = ? AND p.status IN (` + strings.Join(placeholders, ", ") + `)`
	if clientID = strings.TrimSpace(clientID); clientID != "" {
		query += ` AND p.client_id = ?`
		args = append(args, clientID)
	}
	query += ` ORDER BY p.created_at_unix DESC, p.id DESC LIMIT 1`
	return scanProject(s.db.QueryRowContext(ctx, query, args...))
}

func (s *Store) ListProjects(ctx context.Context, input ListProjectsInput) ([]ProjectRecord, error) {
	limit := clampLimit(input.Limit, 10, 50)
	whereParts := []string{"1=1"}
	args := make([]any, 0, 4)
	if status := strings.ToUpper(strings.TrimSpace(input.Status)); status != "" {
		whereParts = append(whereParts, "p.status = ?")
		args = append(args, status)
	}
	if query := strings.TrimSpace(input.Query); query != "" {
		whereParts = append(whereParts, `(p.name_key LIKE ? ESCAPE '\' OR c.name_key LIKE ? ESCAPE '\')`)
		args = append(args, likePattern(query), likePattern(query))
	}
	args = append(args, limit)

	rows, err := s.db.QueryContext(
		ctx,
		projectSelect+` WHERE `+strings.Join(whereParts, " AND ")+`
		 ORDER BY p.created_at_unix DESC, p.id DESC
		 LIMIT ?`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("query projects: %w", err)
	}
	defer rows.Close()

	projects := []ProjectRecord{}
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, project)
	}
	return projects, rows.Err()
}

const projectSelect = `SELECT p.id, p.name, p.client_id, COALESCE(c.name, ''), p.director_id, COALESCE(u.name, ''),
	p.budget, COALESCE(p.service_type, ''), p.status, p.start_date_unix, p.end_date_unix, p.created_at_unix
	FROM projects p
	LEFT JOIN clients c ON c.id = p.client_id
	LEFT JOIN users u ON u.id = p.director_id`

func scanProject(row rowScanner) (ProjectRecord, error) {
	var project ProjectRecord
	var startUnix, endUnix sql.NullInt64
	var createdAtUnix int64
	if err := row.Scan(
		&project.ID,
		&project.Name,
		&project.ClientID,
		&project.ClientName,
		&project.DirectorID,
		&project.DirectorName,
		&project.Budget,
		&project.ServiceType,
		&project.Status,
		&startUnix,
		&endUnix,
		&createdAtUnix,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ProjectRecord{}, ErrNotFound
		}
		return ProjectRecord{}, fmt.Errorf("scan project: %w", err)
	}
	project.StartDate = timeFromNullUnix(startUnix)
	project.EndDate = timeFromNullUnix(endUnix)
	project.CreatedAt = time.Unix(createdAtUnix, 0).UTC()
	return project, nil
}
