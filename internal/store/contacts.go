package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

type ContactRecord struct {
	ID            string
	ClientID      string
	ClientName    string
	FirstName     string
	LastName      string
	Email         string
	PendingEmail  bool
	Phone         string
	ContactMethod string
	Country       string
	Specialty     string
	CreatedAt     time.Time
}

// FullName joins first and last name.
func (c ContactRecord) FullName() string {
	return NormalizeText(c.FirstName + " " + c.LastName)
}

type CreateContactInput struct {
	ClientID      string
	FirstName     string
	LastName      string
	Email         string
	PendingEmail  bool
	Phone         string
	ContactMethod string
	Country       string
	Specialty     string
}

type ListContactsInput struct {
	Query      string
	ClientName string
	Limit      int
}

var ErrDuplicateContact = errors.New("contact email already exists for client")

func (s *Store) CreateContact(ctx context.Context, input CreateContactInput) (ContactRecord, error) {
	record := ContactRecord{
		ID:            newID("con"),
		ClientID:      strings.TrimSpace(input.ClientID),
		FirstName:     NormalizeText(input.FirstName),
		LastName:      NormalizeText(input.LastName),
		Email:         strings.ToLower(strings.TrimSpace(input.Email)),
		PendingEmail:  input.PendingEmail,
		Phone:         strings.TrimSpace(input.Phone),
		ContactMethod: strings.TrimSpace(input.ContactMethod),
		Country:       strings.TrimSpace(input.Country),
		Specialty:     strings.TrimSpace(input.Specialty),
		CreatedAt:     s.now(),
	}
	if record.ClientID == "" || record.FirstName == "" || record.Email == "" {
		return ContactRecord{}, fmt.Errorf("contact client, first name and email are required")
	}
	result, err := s.db.ExecContext(
		ctx,
		`INSERT INTO contacts (
			id, client_id, first_name, last_name, name_key, email, email_key, pending_email,
			phone, contact_method, country, specialty, created_at_unix
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(client_id, email_key) DO NOTHING`,
		record.ID,
		record.ClientID,
		record.FirstName,
		record.LastName,
		NameKey(record.FullName()),
		record.Email,
		NameKey(record.Email),
		boolToInt(record.PendingEmail),
		nullIfEmpty(record.Phone),
		nullIfEmpty(record.ContactMethod),
		nullIfEmpty(record.Country),
		nullIfEmpty(record.Specialty),
		record.CreatedAt.Unix(),
	)
	if err != nil {
		return ContactRecord{}, fmt.Errorf("insert contact: %w", err)
	}
	if affected, _ := result.RowsAffected(); affected != 1 {
		return ContactRecord{}, ErrDuplicateContact
	}
	return record, nil
}

func (s *Store) GetContact(ctx context.Context, id string) (ContactRecord, error) {
	return scanContact(s.db.QueryRowContext(ctx, contactSelect+` WHERE ct.id = ?`, strings.TrimSpace(id)))
}

// FindContactByEmail looks up a contact by case-insensitive email within one client.
func (s *Store) FindContactByEmail(ctx context.Context, clientID, email string) (ContactRecord, error) {
	return scanContact(s.db.QueryRowContext(
		ctx,
		contactSelect+` WHERE ct.client_id = ? AND ct.email_key = ?`,
		strings.TrimSpace(clientID),
		NameKey(email),
	))
}

// FindContactByName looks up a contact by case-insensitive full name within one
// client. The oldest match wins so repeated lookups stay stable.
func (s *Store) FindContactByName(ctx context.Context, clientID, fullName string) (ContactRecord, error) {
	return scanContact(s.db.QueryRowContext(
		ctx,
		contactSelect+` WHERE ct.client_id = ? AND ct.name_key = ? ORDER BY ct.created_at_unix ASC, ct.id ASC LIMIT 1`,
		strings.TrimSpace(clientID),
		NameKey(fullName),
	))
}

func (s *Store) ListContacts(ctx context.Context, input ListContactsInput) ([]ContactRecord, error) {
	limit := clampLimit(input.Limit, 10, 30)
	whereParts := []string{"1=1"}
	args := make([]any, 0, 4)
	if query := strings.TrimSpace(input.Query); query != "" {
		whereParts = append(whereParts, `(ct.name_key LIKE ? ESCAPE '\' OR ct.email_key LIKE ? ESCAPE '\')`)
		args = append(args, likePattern(query), likePattern(query))
	}
	if clientName := strings.TrimSpace(input.ClientName); clientName != "" {
		whereParts = append(whereParts, `c.name_key LIKE ? ESCAPE '\'`)
		args = append(args, likePattern(clientName))
	}
	args = append(args, limit)

	rows, err := s.db.QueryContext(
		ctx,
		contactSelect+` WHERE `+strings.Join(whereParts, " AND ")+`
		 ORDER BY ct.name_key ASC, ct.id ASC
		 LIMIT ?`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("query contacts: %w", err)
	}
	defer rows.Close()

	contacts := []ContactRecord{}
	for rows.Next() {
		contact, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, contact)
	}
	return contacts, rows.Err()
}

const contactSelect = `SELECT ct.id, ct.client_id, COALESCE(c.name, ''), ct.first_name, ct.last_name, ct.email, ct.pending_email,
	COALESCE(ct.phone, ''), COALESCE(ct.contact_method, ''), COALESCE(ct.country, ''), COALESCE(ct.specialty, ''), ct.created_at_unix
	FROM contacts ct
	LEFT JOIN clients c ON c.id = ct.client_id`

func scanContact(row rowScanner) (ContactRecord, error) {
	var contact ContactRecord
	var pending int
	var createdAtUnix int64
	if err := row.Scan(
		&contact.ID,
		&contact.ClientID,
		&contact.ClientName,
		&contact.FirstName,
		&contact.LastName,
		&contact.Email,
		&pending,
		&contact.Phone,
		&contact.ContactMethod,
		&contact.Country,
		&contact.Specialty,
		&createdAtUnix,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ContactRecord{}, ErrNotFound
		}
		return ContactRecord{}, fmt.Errorf("scan contact: %w", err)
	}
	contact.PendingEmail = pending == 1
	contact.CreatedAt = time.Unix(createdAtUnix, 0).UTC()
	return contact, nil
}
