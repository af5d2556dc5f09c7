// Package crm holds the business tools the assistant can call: read tools
// that query the CRM and write tools that create or update records.
package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/dwizi/bizops-assistant/internal/agent/tools"
	"github.com/dwizi/bizops-assistant/internal/notify"
	"github.com/dwizi/bizops-assistant/internal/resolve"
	"github.com/dwizi/bizops-assistant/internal/store"
)

// Store is the business data the tools read and write.
type Store interface {
	resolve.Store

	ListClients(ctx context.Context, input store.ListClientsInput) ([]store.ClientRecord, error)
	ListContacts(ctx context.Context, input store.ListContactsInput) ([]store.ContactRecord, error)
	CreateLead(ctx context.Context, input store.CreateLeadInput) (store.LeadRecord, error)
	UpdateLeadStatus(ctx context.Context, id, status string) (store.LeadRecord, error)
	ListLeads(ctx context.Context, input store.ListLeadsInput) ([]store.LeadRecord, error)
	GetProject(ctx context.Context, id string) (store.ProjectRecord, error)
	ListProjects(ctx context.Context, input store.ListProjectsInput) ([]store.ProjectRecord, error)
	CreateTask(ctx context.Context, input store.CreateTaskInput) (store.TaskRecord, error)
	GetTask(ctx context.Context, id string) (store.TaskRecord, error)
	ListSuppliers(ctx context.Context, input store.ListSuppliersInput) ([]store.SupplierRecord, error)
	SumTransactionsSince(ctx context.Context, since time.Time) (store.FinancialTotals, error)
}

type Options struct {
	// Location defines "today" for relative dates and the financial month.
	Location *time.Location
	Now      func() time.Time
	// BulkConcurrency bounds concurrent items in bulk tools.
	BulkConcurrency int
}

// Service wires the collaborators every tool needs.
type Service struct {
	store           Store
	resolver        *resolve.Resolver
	notifier        *notify.Notifier
	logger          *slog.Logger
	location        *time.Location
	now             func() time.Time
	bulkConcurrency int
}

func NewService(logger *slog.Logger, crmStore Store, resolver *resolve.Resolver, notifier *notify.Notifier, opts Options) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	location := opts.Location
	if location == nil {
		location = time.UTC
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	concurrency := opts.BulkConcurrency
	if concurrency < 1 {
		concurrency = 5
	}
	return &Service{
		store:           crmStore,
		resolver:        resolver,
		notifier:        notifier,
		logger:          logger,
		location:        location,
		now:             now,
		bulkConcurrency: concurrency,
	}
}

// Tools returns every CRM tool, reads first.
func (s *Service) Tools() []tools.Tool {
	return []tools.Tool{
		&GetProjectsTool{svc: s},
		&GetLeadsTool{svc: s},
		&GetFinancialSummaryTool{svc: s},
		&GetUsersTool{svc: s},
		&GetClientsTool{svc: s},
		&GetContactsTool{svc: s},
		&GetSuppliersTool{svc: s},
		&CreateClientTool{svc: s},
		&CreateClientsBulkTool{svc: s},
		&CreateContactTool{svc: s},
		&CreateLeadTool{svc: s},
		&UpdateLeadStatusTool{svc: s},
		&CreateProjectTool{svc: s},
		&CreateTaskTool{svc: s},
	}
}

// Register adds every CRM tool to registry.
func (s *Service) Register(registry *tools.Registry) error {
	for _, tool := range s.Tools() {
		if err := registry.Register(tool); err != nil {
			return fmt.Errorf("register %s: %w", tool.Name(), err)
		}
	}
	return nil
}

func (s *Service) today() time.Time {
	return s.now().In(s.location)
}

func strictDecodeArgs(raw json.RawMessage, target any) error {
	payload := bytes.TrimSpace(raw)
	if len(payload) == 0 {
		payload = []byte(`{}`)
	}
	decoder := json.NewDecoder(bytes.NewReader(payload))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		return err
	}
	var trailing any
	if err := decoder.Decode(&trailing); err != io.EOF {
		return fmt.Errorf("unexpected trailing json")
	}
	return nil
}

type entityRef struct {
	ID       string `json:"id"`
	Name     string `json:"name,omitempty"`
	Created  bool   `json:"created"`
	Fallback bool   `json:"fallback,omitempty"`
}

func refPayload(ref resolve.Ref) entityRef {
	return entityRef{ID: ref.ID, Name: ref.Name, Created: ref.Created, Fallback: ref.Fallback}
}

func clientEditURL(clientID string) string {
	return "/comercial?tab=companies&editClientId=" + clientID
}

func projectURL(projectID string) string {
	return "/proyectos/" + projectID
}

func trimmed(value string) string {
	return strings.TrimSpace(value)
}
