package crm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dwizi/bizops-assistant/internal/agent/tools"
	"github.com/dwizi/bizops-assistant/internal/agenterr"
	"github.com/dwizi/bizops-assistant/internal/authz"
	"github.com/dwizi/bizops-assistant/internal/dates"
	"github.com/dwizi/bizops-assistant/internal/store"
)

var spanishMonthNames = [...]string{
	"enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

// GetProjectsTool lists recent projects.
type GetProjectsTool struct {
	svc *Service
}

func (t *GetProjectsTool) Name() string { return "getProjects" }

func (t *GetProjectsTool) Description() string {
	return "Lists up to 10 recent projects. Optional filters: status and a query matched against the project or client name."
}

func (t *GetProjectsTool) ParametersSchema() string {
	return `{
		"type": "object",
		"properties": {
			"status": {"type": "string", "enum": ["PLANNING", "ACTIVE", "REVIEW", "COMPLETED", "ON_HOLD"]},
			"query": {"type": "string"}
		},
		"additionalProperties": false
	}`
}

func (t *GetProjectsTool) Direction() tools.Direction { return tools.DirectionRead }

func (t *GetProjectsTool) Execute(ctx context.Context, actor authz.Actor, args json.RawMessage) (any, error) {
	var input struct {
		Status string `json:"status"`
		Query  string `json:"query"`
	}
	if err := strictDecodeArgs(args, &input); err != nil {
		return nil, fmt.Errorf("%w: %v", agenterr.ErrInvalidArgs, err)
	}
	projects, err := t.svc.store.ListProjects(ctx, store.ListProjectsInput{Status: input.Status, Query: input.Query, Limit: 10})
	if err != nil {
		return nil, err
	}
	type projectView struct {
		ID         string  `json:"id"`
		Name       string  `json:"name"`
		Status     string  `json:"status"`
		Client     string  `json:"client"`
		Director   string  `json:"director"`
		Budget     float64 `json:"budget"`
		StartDate  string  `json:"startDate,omitempty"`
		EndDate    string  `json:"endDate,omitempty"`
		ProjectURL string  `json:"url"`
	}
	views := make([]projectView, 0, len(projects))
	for _, project := range projects {
		views = append(views, projectView{
			ID:         project.ID,
			Name:       project.Name,
			Status:     project.Status,
			Client:     project.ClientName,
			Director:   project.DirectorName,
			Budget:     project.Budget,
			StartDate:  dates.Format(project.StartDate),
			EndDate:    dates.Format(project.EndDate),
			ProjectURL: projectURL(project.ID),
		})
	}
	return map[string]any{"projects": views, "count": len(views)}, nil
}

// GetLeadsTool lists the newest leads.
type GetLeadsTool struct {
	svc *Service
}

func (t *GetLeadsTool) Name() string { return "getLeads" }

func (t *GetLeadsTool) Description() string {
	return "Lists up to 10 of the newest leads. Optional filters: status and a query matched against the company or contact name."
}

func (t *GetLeadsTool) ParametersSchema() string {
	return `{
		"type": "object",
		"properties": {
			"status": {"type": "string", "enum": ["NEW", "CONTACTED", "QUALIFIED", "PROPOSAL", "WON", "LOST"]},
			"query": {"type": "string"}
		},
		"additionalProperties": false
	}`
}

func (t *GetLeadsTool) Direction() tools.Direction { return tools.DirectionRead }

func (t *GetLeadsTool) Execute(ctx context.Context, actor authz.Actor, args json.RawMessage) (any, error) {
	var input struct {
		Status string `json:"status"`
		Query  string `json:"query"`
	}
	if err := strictDecodeArgs(args, &input); err != nil {
		return nil, fmt.Errorf("%w: %v", agenterr.ErrInvalidArgs, err)
	}
	leads, err := t.svc.store.ListLeads(ctx, store.ListLeadsInput{Status: input.Status, Query: input.Query, Limit: 10})
	if err != nil {
		return nil, err
	}
	views := make([]leadView, 0, len(leads))
	for _, lead := range leads {
		views = append(views, newLeadView(lead))
	}
	return map[string]any{"leads": views, "count": len(views)}, nil
}

type leadView struct {
	ID               string  `json:"id"`
	CompanyName      string  `json:"companyName"`
	Contact          string  `json:"contact,omitempty"`
	ServiceRequested string  `json:"serviceRequested"`
	EstimatedValue   float64 `json:"estimatedValue"`
	Currency         string  `json:"currency"`
	Status           string  `json:"status"`
	Source           string  `json:"source,omitempty"`
	CreatedAt        string  `json:"createdAt"`
}

func newLeadView(lead store.LeadRecord) leadView {
	return leadView{
		ID:               lead.ID,
		CompanyName:      lead.CompanyName,
		Contact:          lead.ContactName,
		ServiceRequested: lead.ServiceRequested,
		EstimatedValue:   lead.EstimatedValue,
		Currency:         lead.Currency,
		Status:           lead.Status,
		Source:           lead.Source,
		CreatedAt:        dates.Format(lead.CreatedAt),
	}
}

// GetFinancialSummaryTool totals the current month's transactions.
type GetFinancialSummaryTool struct {
	svc *Service
}

func (t *GetFinancialSummaryTool) Name() string { return "getFinancialSummary" }

func (t *GetFinancialSummaryTool) Description() string {
	return "Returns income, expenses and profit for the current month."
}

func (t *GetFinancialSummaryTool) ParametersSchema() string {
	return `{"type": "object", "properties": {}, "additionalProperties": false}`
}

func (t *GetFinancialSummaryTool) Direction() tools.Direction { return tools.DirectionRead }

func (t *GetFinancialSummaryTool) Execute(ctx context.Context, actor authz.Actor, args json.RawMessage) (any, error) {
	now := t.svc.today()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	totals, err := t.svc.store.SumTransactionsSince(ctx, monthStart)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"month":    spanishMonthNames[now.Month()-1],
		"year":     now.Year(),
		"income":   totals.Income,
		"expenses": totals.Expenses,
		"profit":   totals.Income - totals.Expenses,
	}, nil
}

// GetUsersTool lists team members, optionally by role.
type GetUsersTool struct {
	svc *Service
}

func (t *GetUsersTool) Name() string { return "getUsers" }

func (t *GetUsersTool) Description() string {
	return "Lists team members with their id, name, role, email and specialty. Optional filter: role."
}

func (t *GetUsersTool) ParametersSchema() string {
	return `{
		"type": "object",
		"properties": {
			"role": {"type": "string", "enum": ["ADMIN", "GERENCIA", "CONTABILIDAD", "FINANZAS", "PROYECTOS", "MARKETING", "COMERCIAL"]}
		},
		"additionalProperties": false
	}`
}

func (t *GetUsersTool) Direction() tools.Direction { return tools.DirectionRead }

func (t *GetUsersTool) Execute(ctx context.Context, actor authz.Actor, args json.RawMessage) (any, error) {
	var input struct {
		Role string `json:"role"`
	}
	if err := strictDecodeArgs(args, &input); err != nil {
		return nil, fmt.Errorf("%w: %v", agenterr.ErrInvalidArgs, err)
	}
	filter := store.ListUsersInput{Limit: 100}
	if role := strings.TrimSpace(input.Role); role != "" {
		filter.Roles = []string{role}
	}
	users, err := t.svc.store.ListUsers(ctx, filter)
	if err != nil {
		return nil, err
	}
	type userView struct {
		ID        string `json:"id"`
		Name      string `json:"name"`
		Role      string `json:"role"`
		Email     string `json:"email"`
		Specialty string `json:"specialty,omitempty"`
	}
	views := make([]userView, 0, len(users))
	for _, user := range users {
		views = append(views, userView{ID: user.ID, Name: user.Name, Role: user.Role, Email: user.Email, Specialty: user.Specialty})
	}
	return map[string]any{"users": views, "count": len(views)}, nil
}

// GetClientsTool searches client companies.
type GetClientsTool struct {
	svc *Service
}

func (t *GetClientsTool) Name() string { return "getClients" }

func (t *GetClientsTool) Description() string {
	return "Searches client companies by name. Set hasActiveProjects to keep only clients with (or without) open projects."
}

func (t *GetClientsTool) ParametersSchema() string {
	return `{
		"type": "object",
		"properties": {
			"query": {"type": "string"},
			"hasActiveProjects": {"type": "boolean"},
			"limit": {"type": "integer", "minimum": 1, "maximum": 30}
		},
		"additionalProperties": false
	}`
}

func (t *GetClientsTool) Direction() tools.Direction { return tools.DirectionRead }

func (t *GetClientsTool) Execute(ctx context.Context, actor authz.Actor, args json.RawMessage) (any, error) {
	var input struct {
		Query             string `json:"query"`
		HasActiveProjects *bool  `json:"hasActiveProjects"`
		Limit             int    `json:"limit"`
	}
	if err := strictDecodeArgs(args, &input); err != nil {
		return nil, fmt.Errorf("%w: %v", agenterr.ErrInvalidArgs, err)
	}
	limit := input.Limit
	if limit == 0 {
		limit = 10
	}
	clients, err := t.svc.store.ListClients(ctx, store.ListClientsInput{
		Query:             input.Query,
		HasActiveProjects: input.HasActiveProjects,
		Limit:             limit,
	})
	if err != nil {
		return nil, err
	}
	type clientView struct {
		ID             string `json:"id"`
		Name           string `json:"name"`
		Country        string `json:"country,omitempty"`
		Industry       string `json:"industry,omitempty"`
		MainEmail      string `json:"mainEmail,omitempty"`
		ActiveProjects int    `json:"activeProjects"`
		EditURL        string `json:"editUrl"`
	}
	views := make([]clientView, 0, len(clients))
	for _, client := range clients {
		views = append(views, clientView{
			ID:             client.ID,
			Name:           client.Name,
			Country:        client.Country,
			Industry:       client.Industry,
			MainEmail:      client.MainEmail,
			ActiveProjects: client.ActiveProjectCount,
			EditURL:        clientEditURL(client.ID),
		})
	}
	return map[string]any{"clients": views, "count": len(views)}, nil
}

// GetContactsTool searches contacts across clients.
type GetContactsTool struct {
	svc *Service
}

func (t *GetContactsTool) Name() string { return "getContacts" }

func (t *GetContactsTool) Description() string {
	return "Searches contacts by name or email. Optional filter: clientName."
}

func (t *GetContactsTool) ParametersSchema() string {
	return `{
		"type": "object",
		"properties": {
			"query": {"type": "string"},
			"clientName": {"type": "string"},
			"limit": {"type": "integer", "minimum": 1, "maximum": 30}
		},
		"additionalProperties": false
	}`
}

func (t *GetContactsTool) Direction() tools.Direction { return tools.DirectionRead }

func (t *GetContactsTool) Execute(ctx context.Context, actor authz.Actor, args json.RawMessage) (any, error) {
	var input struct {
		Query      string `json:"query"`
		ClientName string `json:"clientName"`
		Limit      int    `json:"limit"`
	}
	if err := strictDecodeArgs(args, &input); err != nil {
		return nil, fmt.Errorf("%w: %v", agenterr.ErrInvalidArgs, err)
	}
	limit := input.Limit
	if limit == 0 {
		limit = 10
	}
	contacts, err := t.svc.store.ListContacts(ctx, store.ListContactsInput{Query: input.Query, ClientName: input.ClientName, Limit: limit})
	if err != nil {
		return nil, err
	}
	views := make([]contactView, 0, len(contacts))
	for _, contact := range contacts {
		views = append(views, newContactView(contact))
	}
	return map[string]any{"contacts": views, "count": len(views)}, nil
}

type contactView struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email,omitempty"`
	PendingEmail bool   `json:"pendingEmail,omitempty"`
	Phone        string `json:"phone,omitempty"`
	ClientID     string `json:"clientId"`
	ClientName   string `json:"clientName,omitempty"`
	Specialty    string `json:"specialty,omitempty"`
}

func newContactView(contact store.ContactRecord) contactView {
	view := contactView{
		ID:           contact.ID,
		Name:         contact.FullName(),
		PendingEmail: contact.PendingEmail,
		Phone:        contact.Phone,
		ClientID:     contact.ClientID,
		ClientName:   contact.ClientName,
		Specialty:    contact.Specialty,
	}
	if !contact.PendingEmail {
		view.Email = contact.Email
	}
	return view
}

// GetSuppliersTool lists suppliers. Only roles with access to the suppliers
// module may use it.
type GetSuppliersTool struct {
	svc *Service
}

func (t *GetSuppliersTool) Name() string { return "getSuppliers" }

func (t *GetSuppliersTool) Description() string {
	return "Searches suppliers by name, category or city. Restricted to administration, management, projects, accounting and finance."
}

func (t *GetSuppliersTool) ParametersSchema() string {
	return `{
		"type": "object",
		"properties": {
			"query": {"type": "string"},
			"category": {"type": "string"},
			"city": {"type": "string"}
		},
		"additionalProperties": false
	}`
}

func (t *GetSuppliersTool) Direction() tools.Direction { return tools.DirectionRead }

func (t *GetSuppliersTool) Execute(ctx context.Context, actor authz.Actor, args json.RawMessage) (any, error) {
	if !authz.CanAccess(actor.Role, authz.ModuleSuppliers) {
		return nil, fmt.Errorf("%w: role %s cannot view suppliers", agenterr.ErrAccessDenied, actor.Role)
	}
	var input struct {
		Query    string `json:"query"`
		Category string `json:"category"`
		City     string `json:"city"`
	}
	if err := strictDecodeArgs(args, &input); err != nil {
		return nil, fmt.Errorf("%w: %v", agenterr.ErrInvalidArgs, err)
	}
	suppliers, err := t.svc.store.ListSuppliers(ctx, store.ListSuppliersInput{Query: input.Query, Category: input.Category, City: input.City})
	if err != nil {
		return nil, err
	}
	type supplierView struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Category string `json:"category,omitempty"`
		City     string `json:"city,omitempty"`
		Email    string `json:"email,omitempty"`
		Phone    string `json:"phone,omitempty"`
	}
	views := make([]supplierView, 0, len(suppliers))
	for _, supplier := range suppliers {
		views = append(views, supplierView{ID: supplier.ID, Name: supplier.Name, Category: supplier.Category, City: supplier.City, Email: supplier.Email, Phone: supplier.Phone})
	}
	return map[string]any{"suppliers": views, "count": len(views)}, nil
}
