package app

import (
	"context"
	"fmt"

	"github.com/dwizi/bizops-assistant/internal/agent/tools"
	"github.com/dwizi/bizops-assistant/internal/assistant"
	"github.com/dwizi/bizops-assistant/internal/audit"
	"github.com/dwizi/bizops-assistant/internal/authz"
	"github.com/dwizi/bizops-assistant/internal/store"
)

func (r *Runtime) Assistant() *assistant.Assistant { return r.assistant }

func (r *Runtime) Registry() *tools.Registry { return r.registry }

func (r *Runtime) Audit() *audit.Logger { return r.audit }

func (r *Runtime) Store() *store.Store { return r.store }

// ResolveActor loads the user and returns the actor the assistant runs as.
func (r *Runtime) ResolveActor(ctx context.Context, userID string) (authz.Actor, error) {
	user, err := r.store.GetUser(ctx, userID)
	if err != nil {
		return authz.Actor{}, fmt.Errorf("load user %s: %w", userID, err)
	}
	role, err := authz.ParseRole(user.Role)
	if err != nil {
		return authz.Actor{}, fmt.Errorf("user %s: %w", userID, err)
	}
	return authz.Actor{ID: user.ID, Role: role}, nil
}

// SeedAdmin makes sure the configured administrator exists. It is safe to
// run repeatedly.
func (r *Runtime) SeedAdmin(ctx context.Context) (store.UserRecord, bool, error) {
	user, created, err := r.store.EnsureUser(ctx, store.CreateUserInput{
		Email: r.cfg.SeedAdminEmail,
		Name:  r.cfg.SeedAdminName,
		Role:  string(authz.RoleAdmin),
	})
	if err != nil {
		return store.UserRecord{}, false, fmt.Errorf("seed admin: %w", err)
	}
	if created {
		r.logger.Info("admin user seeded", "user_id", user.ID, "email", user.Email)
	}
	return user, created, nil
}

func (r *Runtime) Close() error {
	if r.store == nil {
		return nil
	}
	return r.store.Close()
}
