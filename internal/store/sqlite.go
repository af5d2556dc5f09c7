package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("record not found")

type Store struct {
	db  *sql.DB
	now func() time.Time
}

func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA journal_mode=WAL; PRAGMA foreign_keys=ON; PRAGMA busy_timeout=5000;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply sqlite pragmas: %w", err)
	}
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (s *Store) AutoMigrate(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL,
			email_key TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			name_key TEXT NOT NULL,
			role TEXT NOT NULL,
			specialty TEXT,
			created_at_unix INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS clients (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			name_key TEXT NOT NULL UNIQUE,
			country TEXT,
			industry TEXT,
			tax_id TEXT,
			address TEXT,
			main_email TEXT,
			created_at_unix INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS contacts (
			id TEXT PRIMARY KEY,
			client_id TEXT NOT NULL,
			first_name TEXT NOT NULL,
			last_name TEXT NOT NULL DEFAULT '',
			name_key TEXT NOT NULL,
			email TEXT NOT NULL,
			email_key TEXT NOT NULL,
			pending_email INTEGER NOT NULL DEFAULT 0,
			phone TEXT,
			contact_method TEXT,
			country TEXT,
			specialty TEXT,
			created_at_unix INTEGER NOT NULL,
			UNIQUE(client_id, email_key),
			FOREIGN KEY(client_id) REFERENCES clients(id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS leads (
			id TEXT PRIMARY KEY,
			company_name TEXT,
			company_key TEXT,
			client_id TEXT,
			contact_id TEXT,
			service_requested TEXT NOT NULL,
			requirement_detail TEXT,
			estimated_value REAL NOT NULL DEFAULT 0,
			currency TEXT NOT NULL,
			source TEXT,
			status TEXT NOT NULL,
			created_by TEXT,
			created_at_unix INTEGER NOT NULL,
			updated_at_unix INTEGER NOT NULL,
			FOREIGN KEY(client_id) REFERENCES clients(id) ON DELETE SET NULL,
			FOREIGN KEY(contact_id) REFERENCES contacts(id) ON DELETE SET NULL
		);`,
		`CREATE TABLE IF NOT EXISTS projects (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			name_key TEXT NOT NULL,
			client_id TEXT NOT NULL,
			director_id TEXT NOT NULL,
			budget REAL NOT NULL DEFAULT 0,
			service_type TEXT,
			status TEXT NOT NULL,
			start_date_unix INTEGER,
			end_date_unix INTEGER,
			created_at_unix INTEGER NOT NULL,
			FOREIGN KEY(client_id) REFERENCES clients(id),
			FOREIGN KEY(director_id) REFERENCES users(id)
		);`,
		`CREATE TABLE IF NOT EXISTS tasks (
			id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL,
			title TEXT NOT NULL,
			description TEXT,
			assignee_id TEXT,
			creator_id TEXT,
			priority TEXT NOT NULL,
			status TEXT NOT NULL,
			start_date_unix INTEGER,
			due_date_unix INTEGER,
			created_at_unix INTEGER NOT NULL,
			FOREIGN KEY(project_id) REFERENCES projects(id) ON DELETE CASCADE,
			FOREIGN KEY(assignee_id) REFERENCES users(id) ON DELETE SET NULL
		);`,
		`CREATE TABLE IF NOT EXISTS suppliers (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			name_key TEXT NOT NULL,
			category TEXT,
			city TEXT,
			email TEXT,
			phone TEXT,
			created_at_unix INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id TEXT PRIMARY KEY,
			category TEXT NOT NULL,
			amount REAL NOT NULL,
			currency TEXT NOT NULL,
			description TEXT,
			date_unix INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS notifications (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			type TEXT NOT NULL,
			message TEXT NOT NULL,
			link TEXT,
			read INTEGER NOT NULL DEFAULT 0,
			created_at_unix INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS tool_audit_log (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			tool_name TEXT NOT NULL,
			action TEXT NOT NULL,
			input_json TEXT NOT NULL,
			success INTEGER NOT NULL,
			error TEXT,
			created_at_unix INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_contacts_client_name ON contacts(client_id, name_key);`,
		`CREATE INDEX IF NOT EXISTS idx_projects_name ON projects(name_key, client_id);`,
		`CREATE INDEX IF NOT EXISTS idx_users_name ON users(name_key);`,
		`CREATE INDEX IF NOT EXISTS idx_tool_audit_user ON tool_audit_log(user_id, created_at_unix);`,
	}

	for _, query := range queries {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("run migration: %w", err)
		}
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

// NormalizeText trims and collapses inner whitespace.
func NormalizeText(input string) string {
	return strings.Join(strings.Fields(input), " ")
}

// NameKey is the case-insensitive lookup key stored next to names and emails.
func NameKey(input string) string {
	return strings.ToLower(NormalizeText(input))
}

func newID(prefix string) string {
	return prefix + "_" + uuid.NewString()
}

func likePattern(query string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(NameKey(query))
	return "%" + escaped + "%"
}

func nullIfEmpty(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return strings.TrimSpace(value)
}

func nullIfZeroTime(value time.Time) any {
	if value.IsZero() {
		return nil
	}
	return value.Unix()
}

func timeFromNullUnix(value sql.NullInt64) time.Time {
	if !value.Valid || value.Int64 == 0 {
		return time.Time{}
	}
	return time.Unix(value.Int64, 0).UTC()
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func clampLimit(limit, fallback, max int) int {
	if limit < 1 {
		return fallback
	}
	if limit > max {
		return max
	}
	return limit
}
