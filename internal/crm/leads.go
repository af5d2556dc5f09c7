package crm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dwizi/bizops-assistant/internal/agent/tools"
	"github.com/dwizi/bizops-assistant/internal/agenterr"
	"github.com/dwizi/bizops-assistant/internal/authz"
	"github.com/dwizi/bizops-assistant/internal/notify"
	"github.com/dwizi/bizops-assistant/internal/resolve"
	"github.com/dwizi/bizops-assistant/internal/store"
)

// leadAudience receives a notification for every new lead.
var leadAudience = []authz.Role{authz.RoleAdmin, authz.RoleManagement, authz.RoleSales}

// CreateLeadTool records a sales opportunity.
type CreateLeadTool struct {
	svc *Service
}

func (t *CreateLeadTool) Name() string { return "createLead" }

func (t *CreateLeadTool) Description() string {
	return "Creates a sales lead. companyName is matched to an existing client or creates one. Sales and management are notified."
}

func (t *CreateLeadTool) ParametersSchema() string {
	return `{
		"type": "object",
		"properties": {
			"companyName": {"type": "string"},
			"clientId": {"type": "string"},
			"contactId": {"type": "string"},
			"serviceRequested": {"type": "string", "minLength": 2},
			"requirementDetail": {"type": "string"},
			"estimatedValue": {"type": "number", "minimum": 0},
			"currency": {"type": "string", "enum": ["USD", "PEN"]},
			"source": {"type": "string"},
			"status": {"type": "string", "enum": ["NEW", "CONTACTED", "QUALIFIED", "PROPOSAL", "WON", "LOST"]}
		},
		"required": ["serviceRequested"],
		"additionalProperties": false
	}`
}

func (t *CreateLeadTool) Direction() tools.Direction { return tools.DirectionWrite }

func (t *CreateLeadTool) Execute(ctx context.Context, actor authz.Actor, args json.RawMessage) (any, error) {
	var input struct {
		CompanyName       string  `json:"companyName"`
		ClientID          string  `json:"clientId"`
		ContactID         string  `json:"contactId"`
		ServiceRequested  string  `json:"serviceRequested"`
		RequirementDetail string  `json:"requirementDetail"`
		EstimatedValue    float64 `json:"estimatedValue"`
		Currency          string  `json:"currency"`
		Source            string  `json:"source"`
		Status            string  `json:"status"`
	}
	if err := strictDecodeArgs(args, &input); err != nil {
		return nil, fmt.Errorf("%w: %v", agenterr.ErrInvalidArgs, err)
	}

	companyName := trimmed(input.CompanyName)
	var client resolve.Ref
	if trimmed(input.ClientID) != "" || companyName != "" {
		ref, err := t.svc.resolver.Client(ctx, resolve.ClientInput{ID: input.ClientID, Name: companyName})
		if err != nil {
			return nil, err
		}
		client = ref
		if companyName == "" {
			companyName = ref.Name
		}
	}

	lead, err := t.svc.store.CreateLead(ctx, store.CreateLeadInput{
		CompanyName:       companyName,
		ClientID:          client.ID,
		ContactID:         input.ContactID,
		ServiceRequested:  input.ServiceRequested,
		RequirementDetail: input.RequirementDetail,
		EstimatedValue:    input.EstimatedValue,
		Currency:          input.Currency,
		Source:            input.Source,
		Status:            input.Status,
		CreatedBy:         actor.ID,
	})
	if err != nil {
		return nil, err
	}

	label := lead.CompanyName
	if label == "" {
		label = "sin empresa"
	}
	notified := t.svc.notifier.NotifyRoles(ctx, leadAudience, actor.ID, notify.Message{
		Type:    notify.TypeLeadCreated,
		Message: fmt.Sprintf("Nuevo lead: %s - %s", label, lead.ServiceRequested),
		Link:    "/comercial?tab=leads",
	})

	payload := map[string]any{
		"success":  true,
		"lead":     newLeadView(lead),
		"notified": notified,
	}
	if client.ID != "" {
		payload["client"] = refPayload(client)
	}
	return payload, nil
}

// UpdateLeadStatusTool moves a lead through the sales pipeline.
type UpdateLeadStatusTool struct {
	svc *Service
}

func (t *UpdateLeadStatusTool) Name() string { return "updateLeadStatus" }

func (t *UpdateLeadStatusTool) Description() string {
	return "Changes the status of an existing lead. Use getLeads first to find the lead id."
}

func (t *UpdateLeadStatusTool) ParametersSchema() string {
	return `{
		"type": "object",
		"properties": {
			"leadId": {"type": "string", "minLength": 1},
			"status": {"type": "string", "enum": ["NEW", "CONTACTED", "QUALIFIED", "PROPOSAL", "WON", "LOST"]}
		},
		"required": ["leadId", "status"],
		"additionalProperties": false
	}`
}

func (t *UpdateLeadStatusTool) Direction() tools.Direction { return tools.DirectionWrite }

func (t *UpdateLeadStatusTool) Execute(ctx context.Context, actor authz.Actor, args json.RawMessage) (any, error) {
	var input struct {
		LeadID string `json:"leadId"`
		Status string `json:"status"`
	}
	if err := strictDecodeArgs(args, &input); err != nil {
		return nil, fmt.Errorf("%w: %v", agenterr.ErrInvalidArgs, err)
	}
	lead, err := t.svc.store.UpdateLeadStatus(ctx, input.LeadID, input.Status)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: lead %s", agenterr.ErrNotFound, strings.TrimSpace(input.LeadID))
	}
	if err != nil {
		return nil, err
	}
	return map[string]any{"success": true, "lead": newLeadView(lead)}, nil
}
