package store

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type SupplierRecord struct {
	ID        string
	Name      string
	Category  string
	City      string
	Email     string
	Phone     string
	CreatedAt time.Time
}

type CreateSupplierInput struct {
	Name     string
	Category string
	City     string
	Email    string
	Phone    string
}

type ListSuppliersInput struct {
	Query    string
	Category string
	City     string
	Limit    int
}

type TransactionInput struct {
	Category    string
	Amount      float64
	Currency    string
	Description string
	Date        time.Time
}

// FinancialTotals sums transactions by category since a point in time.
type FinancialTotals struct {
	Income   float64
	Expenses float64
}

func (s *Store) CreateSupplier(ctx context.Context, input CreateSupplierInput) (SupplierRecord, error) {
	record := SupplierRecord{
		ID:        newID("sup"),
		Name:      NormalizeText(input.Name),
		Category:  strings.TrimSpace(input.Category),
		City:      strings.TrimSpace(input.City),
		Email:     strings.ToLower(strings.TrimSpace(input.Email)),
		Phone:     strings.TrimSpace(input.Phone),
		CreatedAt: s.now(),
	}
	if record.Name == "" {
		return SupplierRecord{}, fmt.Errorf("supplier name is required")
	}
	if _, err := s.db.ExecContext(
		ctx,
		`INSERT INTO suppliers (id, name, name_key, category, city, email, phone, created_at_unix)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.Name,
		NameKey(record.Name),
		nullIfEmpty(record.Category),
		nullIfEmpty(record.City),
		nullIfEmpty(record.Email),
		nullIfEmpty(record.Phone),
		record.CreatedAt.Unix(),
	); err != nil {
		return SupplierRecord{}, fmt.Errorf("insert supplier: %w", err)
	}
	return record, nil
}

func (s *Store) ListSuppliers(ctx context.Context, input ListSuppliersInput) ([]SupplierRecord, error) {
	limit := clampLimit(input.Limit, 20, 50)
	whereParts := []string{"1=1"}
	args := make([]any, 0, 4)
	if query := strings.TrimSpace(input.Query); query != "" {
		whereParts = append(whereParts, `name_key LIKE ? ESCAPE '\'`)
		args = append(args, likePattern(query))
	}
	if category := strings.TrimSpace(input.Category); category != "" {
		whereParts = append(whereParts, `LOWER(COALESCE(category, '')) LIKE ? ESCAPE '\'`)
		args = append(args, likePattern(category))
	}
	if city := strings.TrimSpace(input.City); city != "" {
		whereParts = append(whereParts, `LOWER(COALESCE(city, '')) LIKE ? ESCAPE '\'`)
		args = append(args, likePattern(city))
	}
	args = append(args, limit)

	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, name, COALESCE(category, ''), COALESCE(city, ''), COALESCE(email, ''), COALESCE(phone, ''), created_at_unix
		 FROM suppliers
		 WHERE `+strings.Join(whereParts, " AND ")+`
		 ORDER BY name_key ASC, id ASC
		 LIMIT ?`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("query suppliers: %w", err)
	}
	defer rows.Close()

	suppliers := []SupplierRecord{}
	for rows.Next() {
		var supplier SupplierRecord
		var createdAtUnix int64
		if err := rows.Scan(&supplier.ID, &supplier.Name, &supplier.Category, &supplier.City, &supplier.Email, &supplier.Phone, &createdAtUnix); err != nil {
			return nil, err
		}
		supplier.CreatedAt = time.Unix(createdAtUnix, 0).UTC()
		suppliers = append(suppliers, supplier)
	}
	return suppliers, rows.Err()
}

func (s *Store) CreateTransaction(ctx context.Context, input TransactionInput) error {
	category := strings.ToUpper(strings.TrimSpace(input.Category))
	if category != "INCOME" && category != "EXPENSE" {
		return fmt.Errorf("transaction category must be INCOME or EXPENSE")
	}
	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = "USD"
	}
	date := input.Date
	if date.IsZero() {
		date = s.now()
	}
	if _, err := s.db.ExecContext(
		ctx,
		`INSERT INTO transactions (id, category, amount, currency, description, date_unix) VALUES (?, ?, ?, ?, ?, ?)`,
		newID("txn"),
		category,
		input.Amount,
		currency,
		nullIfEmpty(input.Description),
		date.Unix(),
	); err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (s *Store) SumTransactionsSince(ctx context.Context, since time.Time) (FinancialTotals, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT category, COALESCE(SUM(amount), 0) FROM transactions WHERE date_unix >= ? GROUP BY category`,
		since.Unix(),
	)
	if err != nil {
		return FinancialTotals{}, fmt.Errorf("sum transactions: %w", err)
	}
	defer rows.Close()

	totals := FinancialTotals{}
	for rows.Next() {
		var category string
		var amount float64
		if err := rows.Scan(&category, &amount); err != nil {
			return FinancialTotals{}, err
		}
		switch category {
		case "INCOME":
			totals.Income = amount
		case "EXPENSE":
			totals.Expenses = amount
		}
	}
	return totals, rows.Err()
}
