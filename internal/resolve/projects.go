package resolve

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dwizi/bizops-assistant/internal/agenterr"
	"github.com/dwizi/bizops-assistant/internal/store"
)

// ProjectInput references an open project by id or by name within a client.
// An empty ClientID matches the name across all clients.
type ProjectInput struct {
	ID       string
	Name     string
	ClientID string
}

// Project matches an existing open project. Completed projects are never
// matched. It does not create.
func (r *Resolver) Project(ctx context.Context, input ProjectInput) (Ref, error) {
	if id := strings.TrimSpace(input.ID); id != "" {
		return Ref{ID: id}, nil
	}
	name := store.NormalizeText(input.Name)
	if name == "" {
		return Ref{}, fmt.Errorf("%w: project id or name is required", agenterr.ErrNotFound)
	}
	record, err := r.store.FindOpenProjectByName(ctx, name, input.ClientID)
	if errors.Is(err, store.ErrNotFound) {
		return Ref{}, fmt.Errorf("%w: no open project named %q", agenterr.ErrNotFound, name)
	}
	if err != nil {
		return Ref{}, fmt.Errorf("find project: %w", err)
	}
	return Ref{ID: record.ID, Name: record.Name}, nil
}

// EnsureProject reuses an open project with the same name in the same client
// or creates one from input.
func (r *Resolver) EnsureProject(ctx context.Context, input store.CreateProjectInput) (Ref, error) {
	name := store.NormalizeText(input.Name)
	if name == "" {
		return Ref{}, fmt.Errorf("project name is required")
	}
	existing, err := r.store.FindOpenProjectByName(ctx, name, input.ClientID)
	if err == nil {
		return Ref{ID: existing.ID, Name: existing.Name}, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return Ref{}, fmt.Errorf("find project: %w", err)
	}
	record, err := r.store.CreateProject(ctx, input)
	if err != nil {
		return Ref{}, fmt.Errorf("create project: %w", err)
	}
	r.logger.Info("project created by resolver", "project_id", record.ID, "client_id", record.ClientID)
	return Ref{ID: record.ID, Name: record.Name, Created: true}, nil
}
