package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

type LeadRecord struct {
	ID                string
	CompanyName       string
	ClientID          string
	ContactID         string
	ContactName       string
	ServiceRequested  string
	RequirementDetail string
	EstimatedValue    float64
	Currency          string
	Source            string
	Status            string
	CreatedBy         string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type CreateLeadInput struct {
	CompanyName       string
	ClientID          string
	ContactID         string
	ServiceRequested  string
	RequirementDetail string
	EstimatedValue    float64
	Currency          string
	Source            string
	Status            string
	CreatedBy         string
}

type ListLeadsInput struct {
	Status string
	Query  string
	Limit  int
}

func (s *Store) CreateLead(ctx context.Context, input CreateLeadInput) (LeadRecord, error) {
	now := s.now()
	record := LeadRecord{
		ID:                newID("lead"),
		CompanyName:       NormalizeText(input.CompanyName),
		ClientID:          strings.TrimSpace(input.ClientID),
		ContactID:         strings.TrimSpace(input.ContactID),
		ServiceRequested:  NormalizeText(input.ServiceRequested),
		RequirementDetail: strings.TrimSpace(input.RequirementDetail),
		EstimatedValue:    input.EstimatedValue,
		Currency:          strings.ToUpper(strings.TrimSpace(input.Currency)),
		Source:            strings.TrimSpace(input.Source),
		Status:            strings.ToUpper(strings.TrimSpace(input.Status)),
		CreatedBy:         strings.TrimSpace(input.CreatedBy),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if record.ServiceRequested == "" {
		return LeadRecord{}, fmt.Errorf("lead service is required")
	}
	if record.Currency == "" {
		record.Currency = "USD"
	}
	if record.Status == "" {
		record.Status = "NEW"
	}
	if _, err := s.db.ExecContext(
		ctx,
		`INSERT INTO leads (
			id, company_name, company_key, client_id, contact_id, service_requested, requirement_detail,
			estimated_value, currency, source, status, created_by, created_at_unix, updated_at_unix
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		nullIfEmpty(record.CompanyName),
		nullIfEmpty(NameKey(record.CompanyName)),
		nullIfEmpty(record.ClientID),
		nullIfEmpty(record.ContactID),
		record.ServiceRequested,
		nullIfEmpty(record.RequirementDetail),
		record.EstimatedValue,
		record.Currency,
		nullIfEmpty(record.Source),
		record.Status,
		nullIfEmpty(record.CreatedBy),
		now.Unix(),
		now.Unix(),
	); err != nil {
		return LeadRecord{}, fmt.Errorf("insert lead: %w", err)
	}
	return record, nil
}

func (s *Store) UpdateLeadStatus(ctx context.Context, id, status string) (LeadRecord, error) {
	id = strings.TrimSpace(id)
	result, err := s.db.ExecContext(
		ctx,
		`UPDATE leads SET status = ?, updated_at_unix = ? WHERE id = ?`,
		strings.ToUpper(strings.TrimSpace(status)),
		s.now().Unix(),
		id,
	)
	if err != nil {
		return LeadRecord{}, fmt.Errorf("update lead status: %w", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return LeadRecord{}, ErrNotFound
	}
	return s.GetLead(ctx, id)
}

func (s *Store) GetLead(ctx context.Context, id string) (LeadRecord, error) {
	return scanLead(s.db.QueryRowContext(ctx, leadSelect+` WHERE l.id = ?`, strings.TrimSpace(id)))
}

// ListLeads returns the newest leads first.
func (s *Store) ListLeads(ctx context.Context, input ListLeadsInput) ([]LeadRecord, error) {
	limit := clampLimit(input.Limit, 10, 50)
	whereParts := []string{"1=1"}
	args := make([]any, 0, 4)
	if status := strings.ToUpper(strings.TrimSpace(input.Status)); status != "" {
		whereParts = append(whereParts, "l.status = ?")
		args = append(args, status)
	}
	if query := strings.TrimSpace(input.Query); query != "" {
		whereParts = append(whereParts, `(l.company_key LIKE ? ESCAPE '\' OR ct.name_key LIKE ? ESCAPE '\')`)
		args = append(args, likePattern(query), likePattern(query))
	}
	args = append(args, limit)

	rows, err := s.db.QueryContext(
		ctx,
		leadSelect+` WHERE `+strings.Join(whereParts, " AND ")+`
		 ORDER BY l.created_at_unix DESC, l.id DESC
		 LIMIT ?`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("query leads: %w", err)
	}
	defer rows.Close()

	leads := []LeadRecord{}
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}
	return leads, rows.Err()
}

const leadSelect = `SELECT l.id, COALESCE(l.company_name, ''), COALESCE(l.client_id, ''), COALESCE(l.contact_id, ''),
	COALESCE(TRIM(ct.first_name || ' ' || ct.last_name), ''), l.service_requested, COALESCE(l.requirement_detail, ''),
	l.estimated_value, l.currency, COALESCE(l.source, ''), l.status, COALESCE(l.created_by, ''), l.created_at_unix, l.updated_at_unix
	FROM leads l
	LEFT JOIN contacts ct ON ct.id = l.contact_id`

func scanLead(row rowScanner) (LeadRecord, error) {
	var lead LeadRecord
	var createdAtUnix, updatedAtUnix int64
	if err := row.Scan(
		&lead.ID,
		&lead.CompanyName,
		&lead.ClientID,
		&lead.ContactID,
		&lead.ContactName,
		&lead.ServiceRequested,
		&lead.RequirementDetail,
		&lead.EstimatedValue,
		&lead.Currency,
		&lead.Source,
		&lead.Status,
		&lead.CreatedBy,
		&createdAtUnix,
		&updatedAtUnix,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return LeadRecord{}, ErrNotFound
		}
		return LeadRecord{}, fmt.Errorf("scan lead: %w", err)
	}
	lead.CreatedAt = time.Unix(createdAtUnix, 0).UTC()
	lead.UpdatedAt = time.Unix(updatedAtUnix, 0).UTC()
	return lead, nil
}
