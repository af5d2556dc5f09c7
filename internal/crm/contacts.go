package crm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dwizi/bizops-assistant/internal/agent/tools"
	"github.com/dwizi/bizops-assistant/internal/agenterr"
	"github.com/dwizi/bizops-assistant/internal/authz"
	"github.com/dwizi/bizops-assistant/internal/resolve"
)

// CreateContactTool registers a contact inside a client. Without a client the
// contact is filed under the placeholder client.
type CreateContactTool struct {
	svc *Service
}

func (t *CreateContactTool) Name() string { return "createContact" }

func (t *CreateContactTool) Description() string {
	return "Creates a contact person for a client. Give firstName/lastName or fullName. An existing contact in that client is reused by email, or by name when no email is given. Without an email the contact is saved with a pending placeholder address."
}

func (t *CreateContactTool) ParametersSchema() string {
	return `{
		"type": "object",
		"properties": {
			"firstName": {"type": "string", "pattern": "\\S"},
			"lastName": {"type": "string"},
			"fullName": {"type": "string", "pattern": "\\S"},
			"email": {"type": "string", "format": "email"},
			"phone": {"type": "string"},
			"contactMethod": {"type": "string"},
			"country": {"type": "string"},
			"specialty": {"type": "string"},
			"clientId": {"type": "string"},
			"clientName": {"type": "string"}
		},
		"anyOf": [{"required": ["firstName"]}, {"required": ["fullName"]}],
		"additionalProperties": false
	}`
}

func (t *CreateContactTool) Direction() tools.Direction { return tools.DirectionWrite }

func (t *CreateContactTool) Execute(ctx context.Context, actor authz.Actor, args json.RawMessage) (any, error) {
	var input struct {
		FirstName     string `json:"firstName"`
		LastName      string `json:"lastName"`
		FullName      string `json:"fullName"`
		Email         string `json:"email"`
		Phone         string `json:"phone"`
		ContactMethod string `json:"contactMethod"`
		Country       string `json:"country"`
		Specialty     string `json:"specialty"`
		ClientID      string `json:"clientId"`
		ClientName    string `json:"clientName"`
	}
	if err := strictDecodeArgs(args, &input); err != nil {
		return nil, fmt.Errorf("%w: %v", agenterr.ErrInvalidArgs, err)
	}

	client, err := t.svc.resolver.Client(ctx, resolve.ClientInput{ID: input.ClientID, Name: input.ClientName})
	if err != nil {
		return nil, err
	}
	contact, err := t.svc.resolver.Contact(ctx, resolve.ContactInput{
		ClientID:      client.ID,
		FirstName:     input.FirstName,
		LastName:      input.LastName,
		FullName:      input.FullName,
		Email:         input.Email,
		Phone:         input.Phone,
		ContactMethod: input.ContactMethod,
		Country:       input.Country,
		Specialty:     input.Specialty,
	})
	if errors.Is(err, resolve.ErrContactNameRequired) {
		return nil, fmt.Errorf("%w: %v", agenterr.ErrInvalidArgs, err)
	}
	if err != nil {
		return nil, err
	}

	payload := map[string]any{
		"success": true,
		"created": contact.Created,
		"contact": map[string]any{
			"id":           contact.ID,
			"name":         contact.Name,
			"email":        contact.Email,
			"pendingEmail": contact.PendingEmail,
			"clientId":     client.ID,
		},
		"client":  refPayload(client),
		"editUrl": clientEditURL(client.ID),
	}
	if contact.PendingEmail {
		payload["note"] = "El contacto quedó con un correo pendiente; pide el correo real para actualizarlo."
	}
	return payload, nil
}
