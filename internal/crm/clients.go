package crm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/dwizi/bizops-assistant/internal/agent/tools"
	"github.com/dwizi/bizops-assistant/internal/agenterr"
	"github.com/dwizi/bizops-assistant/internal/authz"
	"github.com/dwizi/bizops-assistant/internal/resolve"
)

const clientSchema = `{
	"type": "object",
	"properties": {
		"name": {"type": "string", "minLength": 2},
		"country": {"type": "string"},
		"industry": {"type": "string"},
		"taxId": {"type": "string"},
		"address": {"type": "string"},
		"mainEmail": {"type": "string", "format": "email"}
	},
	"required": ["name"],
	"additionalProperties": false
}`

const bulkClientFailure = "No se pudo crear el cliente"

var clientItemSchema = sync.OnceValues(func() (*tools.Schema, error) {
	return tools.CompileSchema("createClient.item", clientSchema)
})

type clientArgs struct {
	Name      string `json:"name"`
	Country   string `json:"country"`
	Industry  string `json:"industry"`
	TaxID     string `json:"taxId"`
	Address   string `json:"address"`
	MainEmail string `json:"mainEmail"`
}

func (s *Service) ensureClient(ctx context.Context, input clientArgs) (resolve.Ref, error) {
	return s.resolver.Client(ctx, resolve.ClientInput{
		Name:      input.Name,
		Country:   input.Country,
		Industry:  input.Industry,
		TaxID:     input.TaxID,
		Address:   input.Address,
		MainEmail: input.MainEmail,
	})
}

// CreateClientTool registers a client company, reusing one with the same name.
type CreateClientTool struct {
	svc *Service
}

func (t *CreateClientTool) Name() string { return "createClient" }

func (t *CreateClientTool) Description() string {
	return "Creates a client company. If a client with the same name exists it is reused and created is false."
}

func (t *CreateClientTool) ParametersSchema() string { return clientSchema }

func (t *CreateClientTool) Direction() tools.Direction { return tools.DirectionWrite }

func (t *CreateClientTool) Execute(ctx context.Context, actor authz.Actor, args json.RawMessage) (any, error) {
	var input clientArgs
	if err := strictDecodeArgs(args, &input); err != nil {
		return nil, fmt.Errorf("%w: %v", agenterr.ErrInvalidArgs, err)
	}
	ref, err := t.svc.ensureClient(ctx, input)
	if err != nil {
		return nil, err
	}
	t.svc.logger.Info("client resolved", "client_id", ref.ID, "created", ref.Created, "user_id", actor.ID)
	return map[string]any{
		"success": true,
		"created": ref.Created,
		"client":  map[string]string{"id": ref.ID, "name": ref.Name},
		"editUrl": clientEditURL(ref.ID),
	}, nil
}

// CreateClientsBulkTool registers several clients at once. Each item is
// validated and created on its own; one bad item never fails the batch.
type CreateClientsBulkTool struct {
	svc *Service
}

func (t *CreateClientsBulkTool) Name() string { return "createClientsBulk" }

func (t *CreateClientsBulkTool) Description() string {
	return "Creates between 1 and 20 client companies in one call. Each item takes the same fields as createClient. Returns one result per item."
}

func (t *CreateClientsBulkTool) ParametersSchema() string {
	return `{
		"type": "object",
		"properties": {
			"clients": {
				"type": "array",
				"minItems": 1,
				"maxItems": 20,
				"items": {}
			}
		},
		"required": ["clients"],
		"additionalProperties": false
	}`
}

func (t *CreateClientsBulkTool) Direction() tools.Direction { return tools.DirectionWrite }

func (t *CreateClientsBulkTool) Execute(ctx context.Context, actor authz.Actor, args json.RawMessage) (any, error) {
	var input struct {
		Clients []json.RawMessage `json:"clients"`
	}
	if err := strictDecodeArgs(args, &input); err != nil {
		return nil, fmt.Errorf("%w: %v", agenterr.ErrInvalidArgs, err)
	}
	schema, err := clientItemSchema()
	if err != nil {
		return nil, err
	}
	report := Aggregate(ctx, input.Clients, t.svc.bulkConcurrency, func(ctx context.Context, raw json.RawMessage) BulkItemResult {
		return t.createOne(ctx, schema, raw)
	})
	t.svc.logger.Info("bulk client creation finished",
		"user_id", actor.ID,
		"total", report.Total,
		"created", report.CreatedCount,
		"success", report.Success,
	)
	return report, nil
}

func (t *CreateClientsBulkTool) createOne(ctx context.Context, schema *tools.Schema, raw json.RawMessage) BulkItemResult {
	result := BulkItemResult{Name: itemName(raw)}
	if err := schema.ValidateJSON(raw); err != nil {
		result.Error = err.Error()
		return result
	}
	var item clientArgs
	if err := strictDecodeArgs(raw, &item); err != nil {
		result.Error = err.Error()
		return result
	}
	ref, err := t.svc.ensureClient(ctx, item)
	if err != nil {
		t.svc.logger.Warn("bulk client item failed", "name", result.Name, "error", err)
		result.Error = bulkClientFailure
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			result.Error = msg
		}
		return result
	}
	result.Success = true
	result.Name = ref.Name
	result.Created = ref.Created
	result.ClientID = ref.ID
	result.EditURL = clientEditURL(ref.ID)
	return result
}

// itemName pulls a display name out of an item that may not be valid.
func itemName(raw json.RawMessage) string {
	var probe struct {
		Name any `json:"name"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return ""
	}
	if name, ok := probe.Name.(string); ok {
		return strings.TrimSpace(name)
	}
	return ""
}
