package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

type ClientRecord struct {
	ID                 string
	Name               string
	Country            string
	Industry           string
	TaxID              string
	Address            string
	MainEmail          string
	ActiveProjectCount int
	CreatedAt          time.Time
}

type CreateClientInput struct {
	Name      string
	Country   string
	Industry  string
	TaxID     string
	Address   string
	MainEmail string
}

type ListClientsInput struct {
	Query             string
	HasActiveProjects *bool
	Limit             int
}

// EnsureClient inserts a client unless one with the same case-insensitive name
// exists. The boolean reports whether a row was inserted.
func (s *Store) EnsureClient(ctx context.Context, input CreateClientInput) (ClientRecord, bool, error) {
	name := NormalizeText(input.Name)
	if name == "" {
		return ClientRecord{}, false, fmt.Errorf("client name is required")
	}
	record := ClientRecord{
		ID:        newID("cli"),
		Name:      name,
		Country:   strings.TrimSpace(input.Country),
		Industry:  strings.TrimSpace(input.Industry),
		TaxID:     strings.TrimSpace(input.TaxID),
		Address:   strings.TrimSpace(input.Address),
		MainEmail: strings.ToLower(strings.TrimSpace(input.MainEmail)),
		CreatedAt: s.now(),
	}
	result, err := s.db.ExecContext(
		ctx,
		`INSERT INTO clients (id, name, name_key, country, industry, tax_id, address, main_email, created_at_unix)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(name_key) DO NOTHING`,
		record.ID,
		record.Name,
		NameKey(record.Name),
		nullIfEmpty(record.Country),
		nullIfEmpty(record.Industry),
		nullIfEmpty(record.TaxID),
		nullIfEmpty(record.Address),
		nullIfEmpty(record.MainEmail),
		record.CreatedAt.Unix(),
	)
	if err != nil {
		return ClientRecord{}, false, fmt.Errorf("insert client: %w", err)
	}
	if affected, _ := result.RowsAffected(); affected == 1 {
		return record, true, nil
	}
	existing, err := s.FindClientByName(ctx, name)
	if err != nil {
		return ClientRecord{}, false, err
	}
	return existing, false, nil
}

func (s *Store) GetClient(ctx context.Context, id string) (ClientRecord, error) {
	return scanClient(s.db.QueryRowContext(ctx, clientSelect+` WHERE c.id = ?`, strings.TrimSpace(id)))
}

// FindClientByName matches the whole name case-insensitively.
func (s *Store) FindClientByName(ctx context.Context, name string) (ClientRecord, error) {
	return scanClient(s.db.QueryRowContext(ctx, clientSelect+` WHERE c.name_key = ?`, NameKey(name)))
}

func (s *Store) ListClients(ctx context.Context, input ListClientsInput) ([]ClientRecord, error) {
	limit := clampLimit(input.Limit, 10, 30)
	whereParts := []string{"1=1"}
	args := make([]any, 0, 3)
	if query := strings.TrimSpace(input.Query); query != "" {
		whereParts = append(whereParts, `c.name_key LIKE ? ESCAPE '\'`)
		args = append(args, likePattern(query))
	}
	if input.HasActiveProjects != nil {
		if *input.HasActiveProjects {
			whereParts = append(whereParts, "active_projects > 0")
		} else {
			whereParts = append(whereParts, "active_projects = 0")
		}
	}
	args = append(args, limit)

	rows, err := s.db.QueryContext(
		ctx,
		`SELECT * FROM (`+clientSelect+`) AS c
		 WHERE `+strings.Join(whereParts, " AND ")+`
		 ORDER BY c.name ASC
		 LIMIT ?`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("query clients: %w", err)
	}
	defer rows.Close()

	clients := []ClientRecord{}
	for rows.Next() {
		client, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		clients = append(clients, client)
	}
	return clients, rows.Err()
}

const clientSelect = `SELECT c.id, c.name, c.name_key, COALESCE(c.country, '') AS country, COALESCE(c.industry, '') AS industry,
	COALESCE(c.tax_id, '') AS tax_id, COALESCE(c.address, '') AS address, COALESCE(c.main_email, '') AS main_email,
	(SELECT COUNT(1) FROM projects p WHERE p.client_id = c.id AND p.status IN ('PLANNING', 'ACTIVE', 'REVIEW')) AS active_projects,
	c.created_at_unix
	FROM clients c`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClient(row rowScanner) (ClientRecord, error) {
	var client ClientRecord
	var nameKey string
	var createdAtUnix int64
	if err := row.Scan(
		&client.ID,
		&client.Name,
		&nameKey,
		&client.Country,
		&client.Industry,
		&client.TaxID,
		&client.Address,
		&client.MainEmail,
		&client.ActiveProjectCount,
		&createdAtUnix,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ClientRecord{}, ErrNotFound
		}
		return ClientRecord{}, fmt.Errorf("scan client: %w", err)
	}
	client.CreatedAt = time.Unix(createdAtUnix, 0).UTC()
	return client, nil
}
