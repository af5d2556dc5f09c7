package notify

import (
	"context"
	"log/slog"
	"strings"

	"github.com/dwizi/bizops-assistant/internal/authz"
	"github.com/dwizi/bizops-assistant/internal/store"
)

const (
	TypeTaskAssigned = "task_assigned"
	TypeLeadCreated  = "lead_created"
)

// Store persists in-app notifications.
type Store interface {
	CreateNotification(ctx context.Context, input store.CreateNotificationInput) (store.NotificationRecord, error)
	ListUsers(ctx context.Context, input store.ListUsersInput) ([]store.UserRecord, error)
}

type Message struct {
	Type    string
	Message string
	Link    string
}

// Notifier delivers best-effort notifications. Delivery failures are logged
// and never returned to the caller.
type Notifier struct {
	store  Store
	logger *slog.Logger
}

func New(logger *slog.Logger, notificationStore Store) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{store: notificationStore, logger: logger}
}

// NotifyUser sends message to one user. It reports whether it was stored.
func (n *Notifier) NotifyUser(ctx context.Context, userID string, message Message) bool {
	if n == nil || n.store == nil {
		return false
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return false
	}
	record, err := n.store.CreateNotification(ctx, store.CreateNotificationInput{
		UserID:  userID,
		Type:    message.Type,
		Message: message.Message,
		Link:    message.Link,
	})
	if err != nil {
		n.logger.Warn("notification delivery failed", "user_id", userID, "type", message.Type, "error", err)
		return false
	}
	n.logger.Info("notification stored", "notification_id", record.ID, "user_id", userID, "type", record.Type)
	return true
}

// NotifyRoles sends message to every user holding one of roles, skipping
// excludeUserID. It returns how many notifications were stored.
func (n *Notifier) NotifyRoles(ctx context.Context, roles []authz.Role, excludeUserID string, message Message) int {
	if n == nil || n.store == nil || len(roles) == 0 {
		return 0
	}
	names := make([]string, 0, len(roles))
	for _, role := range roles {
		names = append(names, string(role))
	}
	users, err := n.store.ListUsers(ctx, store.ListUsersInput{Roles: names})
	if err != nil {
		n.logger.Warn("notification recipients lookup failed", "roles", names, "error", err)
		return 0
	}
	sent := 0
	for _, user := range users {
		if user.ID == strings.TrimSpace(excludeUserID) {
			continue
		}
		if n.NotifyUser(ctx, user.ID, message) {
			sent++
		}
	}
	return sent
}
