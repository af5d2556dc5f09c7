package store

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type NotificationRecord struct {
	ID        string
	UserID    string
	Type      string
	Message   string
	Link      string
	Read      bool
	CreatedAt time.Time
}

type CreateNotificationInput struct {
	UserID  string
	Type    string
	Message string
	Link    string
}

func (s *Store) CreateNotification(ctx context.Context, input CreateNotificationInput) (NotificationRecord, error) {
	record := NotificationRecord{
		ID:        newID("ntf"),
		UserID:    strings.TrimSpace(input.UserID),
		Type:      strings.ToLower(strings.TrimSpace(input.Type)),
		Message:   strings.TrimSpace(input.Message),
		Link:      strings.TrimSpace(input.Link),
		CreatedAt: s.now(),
	}
	if record.UserID == "" || record.Type == "" || record.Message == "" {
		return NotificationRecord{}, fmt.Errorf("notification user, type and message are required")
	}
	if _, err := s.db.ExecContext(
		ctx,
		`INSERT INTO notifications (id, user_id, type, message, link, read, created_at_unix) VALUES (?, ?, ?, ?, ?, 0, ?)`,
		record.ID,
		record.UserID,
		record.Type,
		record.Message,
		nullIfEmpty(record.Link),
		record.CreatedAt.Unix(),
	); err != nil {
		return NotificationRecord{}, fmt.Errorf("insert notification: %w", err)
	}
	return record, nil
}

func (s *Store) ListNotifications(ctx context.Context, userID string, limit int) ([]NotificationRecord, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, user_id, type, message, COALESCE(link, ''), read, created_at_unix
		 FROM notifications
		 WHERE user_id = ?
		 ORDER BY created_at_unix DESC, id DESC
		 LIMIT ?`,
		strings.TrimSpace(userID),
		clampLimit(limit, 50, 500),
	)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	notifications := []NotificationRecord{}
	for rows.Next() {
		var record NotificationRecord
		var read int
		var createdAtUnix int64
		if err := rows.Scan(&record.ID, &record.UserID, &record.Type, &record.Message, &record.Link, &read, &createdAtUnix); err != nil {
			return nil, err
		}
		record.Read = read == 1
		record.CreatedAt = time.Unix(createdAtUnix, 0).UTC()
		notifications = append(notifications, record)
	}
	return notifications, rows.Err()
}
