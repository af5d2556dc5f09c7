package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

type UserRecord struct {
	ID        string
	Email     string
	Name      string
	Role      string
	Specialty string
	CreatedAt time.Time
}

type CreateUserInput struct {
	Email     string
	Name      string
	Role      string
	Specialty string
}

type ListUsersInput struct {
	Roles []string
	Limit int
}

// EnsureUser inserts a user unless one with the same email already exists.
// The boolean reports whether a row was inserted.
func (s *Store) EnsureUser(ctx context.Context, input CreateUserInput) (UserRecord, bool, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	name := NormalizeText(input.Name)
	role := strings.ToUpper(strings.TrimSpace(input.Role))
	if email == "" || name == "" || role == "" {
		return UserRecord{}, false, fmt.Errorf("user email, name and role are required")
	}
	record := UserRecord{
		ID:        newID("usr"),
		Email:     email,
		Name:      name,
		Role:      role,
		Specialty: strings.TrimSpace(input.Specialty),
		CreatedAt: s.now(),
	}
	result, err := s.db.ExecContext(
		ctx,
		`INSERT INTO users (id, email, email_key, name, name_key, role, specialty, created_at_unix)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(email_key) DO NOTHING`,
		record.ID,
		record.Email,
		NameKey(record.Email),
		record.Name,
		NameKey(record.Name),
		record.Role,
		nullIfEmpty(record.Specialty),
		record.CreatedAt.Unix(),
	)
	if err != nil {
		return UserRecord{}, false, fmt.Errorf("insert user: %w", err)
	}
	if affected, _ := result.RowsAffected(); affected == 1 {
		return record, true, nil
	}
	existing, err := s.FindUserByEmail(ctx, email)
	if err != nil {
		return UserRecord{}, false, err
	}
	return existing, false, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (UserRecord, error) {
	return s.scanUser(s.db.QueryRowContext(
		ctx,
		`SELECT id, email, name, role, COALESCE(specialty, ''), created_at_unix FROM users WHERE id = ?`,
		strings.TrimSpace(id),
	))
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (UserRecord, error) {
	return s.scanUser(s.db.QueryRowContext(
		ctx,
		`SELECT id, email, name, role, COALESCE(specialty, ''), created_at_unix FROM users WHERE email_key = ?`,
		NameKey(email),
	))
}

// ListUsers returns users ordered by name, optionally restricted to roles.
func (s *Store) ListUsers(ctx context.Context, input ListUsersInput) ([]UserRecord, error) {
	limit := clampLimit(input.Limit, 500, 5000)
	whereParts := []string{"1=1"}
	args := make([]any, 0, len(input.Roles)+1)
	if len(input.Roles) > 0 {
		placeholders := make([]string, 0, len(input.Roles))
		for _, role := range input.Roles {
			placeholders = append(placeholders, "?")
			args = append(args, strings.ToUpper(strings.TrimSpace(role)))
		}
		whereParts = append(whereParts, "role IN ("+strings.Join(placeholders, ", ")+")")
	}
	args = append(args, limit)

	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, email, name, role, COALESCE(specialty, ''), created_at_unix
		 FROM users
		 WHERE `+strings.Join(whereParts, " AND ")+`
		 ORDER BY name_key ASC, id ASC
		 LIMIT ?`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	users := []UserRecord{}
	for rows.Next() {
		var user UserRecord
		var createdAtUnix int64
		if err := rows.Scan(&user.ID, &user.Email, &user.Name, &user.Role, &user.Specialty, &createdAtUnix); err != nil {
			return nil, err
		}
		user.CreatedAt = time.Unix(createdAtUnix, 0).UTC()
		users = append(users, user)
	}
	return users, rows.Err()
}

func (s *Store) scanUser(row *sql.Row) (UserRecord, error) {
	var user UserRecord
	var createdAtUnix int64
	if err := row.Scan(&user.ID, &user.Email, &user.Name, &user.Role, &user.Specialty, &createdAtUnix); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return UserRecord{}, ErrNotFound
		}
		return UserRecord{}, fmt.Errorf("scan user: %w", err)
	}
	user.CreatedAt = time.Unix(createdAtUnix, 0).UTC()
	return user, nil
}
