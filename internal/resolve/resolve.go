// Package resolve implements find-or-create for the entities tools link to.
//
// Every resolver follows the same chain: a supplied id is trusted as is, then
// a case-insensitive exact match is reused, then a minimal record is created,
// and finally a sentinel record is used. Ambiguity never produces an error;
// only real store failures do.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dwizi/bizops-assistant/internal/store"
)

const (
	SentinelClientName   = "Sin empresa asignada"
	SentinelDirectorName = "Director por asignar"

	DefaultPlaceholderDomain = "pendiente.invalid"
)

// Ref is the outcome of a resolution. Created is true only when this call
// inserted the record. Fallback marks a sentinel or acting-user fallback.
type Ref struct {
	ID       string
	Name     string
	Created  bool
	Fallback bool
}

// Store is the subset of the business store the resolvers need.
type Store interface {
	EnsureClient(ctx context.Context, input store.CreateClientInput) (store.ClientRecord, bool, error)
	FindClientByName(ctx context.Context, name string) (store.ClientRecord, error)

	CreateContact(ctx context.Context, input store.CreateContactInput) (store.ContactRecord, error)
	FindContactByEmail(ctx context.Context, clientID, email string) (store.ContactRecord, error)
	FindContactByName(ctx context.Context, clientID, fullName string) (store.ContactRecord, error)

	CreateProject(ctx context.Context, input store.CreateProjectInput) (store.ProjectRecord, error)
	FindOpenProjectByName(ctx context.Context, name, clientID string) (store.ProjectRecord, error)

	EnsureUser(ctx context.Context, input store.CreateUserInput) (store.UserRecord, bool, error)
	FindUserByEmail(ctx context.Context, email string) (store.UserRecord, error)
	ListUsers(ctx context.Context, input store.ListUsersInput) ([]store.UserRecord, error)
}

type Options struct {
	// PlaceholderDomain is used for synthesized contact emails and the
	// sentinel director account.
	PlaceholderDomain string
	Now               func() time.Time
}

type Resolver struct {
	store             Store
	logger            *slog.Logger
	placeholderDomain string
	now               func() time.Time
}

func New(logger *slog.Logger, entityStore Store, opts Options) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	domain := strings.ToLower(strings.TrimSpace(opts.PlaceholderDomain))
	if domain == "" {
		domain = DefaultPlaceholderDomain
	}
	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Resolver{
		store:             entityStore,
		logger:            logger,
		placeholderDomain: domain,
		now:               now,
	}
}

// ClientInput carries the client reference plus the attributes used when a
// new client has to be created.
type ClientInput struct {
	ID        string
	Name      string
	Country   string
	Industry  string
	TaxID     string
	Address   string
	MainEmail string
}

// Client resolves a client. With neither id nor name it falls back to the
// sentinel client.
func (r *Resolver) Client(ctx context.Context, input ClientInput) (Ref, error) {
	if id := strings.TrimSpace(input.ID); id != "" {
		return Ref{ID: id}, nil
	}
	name := store.NormalizeText(input.Name)
	if name == "" {
		return r.sentinelClient(ctx)
	}

	existing, err := r.store.FindClientByName(ctx, name)
	if err == nil {
		return Ref{ID: existing.ID, Name: existing.Name}, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return Ref{}, fmt.Errorf("find client %q: %w", name, err)
	}

	// EnsureClient absorbs a concurrent insert of the same name.
	record, created, err := r.store.EnsureClient(ctx, store.CreateClientInput{
		Name:      name,
		Country:   input.Country,
		Industry:  input.Industry,
		TaxID:     input.TaxID,
		Address:   input.Address,
		MainEmail: input.MainEmail,
	})
	if err != nil {
		return Ref{}, fmt.Errorf("create client %q: %w", name, err)
	}
	if created {
		r.logger.Info("client created by resolver", "client_id", record.ID, "name", record.Name)
	}
	return Ref{ID: record.ID, Name: record.Name, Created: created}, nil
}

func (r *Resolver) sentinelClient(ctx context.Context) (Ref, error) {
	record, created, err := r.store.EnsureClient(ctx, store.CreateClientInput{Name: SentinelClientName})
	if err != nil {
		return Ref{}, fmt.Errorf("ensure sentinel client: %w", err)
	}
	if created {
		r.logger.Info("sentinel client created", "client_id", record.ID)
	}
	return Ref{ID: record.ID, Name: record.Name, Created: created, Fallback: true}, nil
}
