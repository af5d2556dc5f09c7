package tools

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/dwizi/bizops-assistant/internal/agenterr"
	"github.com/dwizi/bizops-assistant/internal/audit"
	"github.com/dwizi/bizops-assistant/internal/authz"
)

type recordingAuditor struct {
	mu      sync.Mutex
	entries []audit.Entry
	err     error
}

func (a *recordingAuditor) Record(_ context.Context, entry audit.Entry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entry)
	return a.err
}

func (a *recordingAuditor) Entries() []audit.Entry {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]audit.Entry(nil), a.entries...)
}

const nameSchema = `{
	"type": "object",
	"properties": {"name": {"type": "string", "minLength": 2}},
	"required": ["name"],
	"additionalProperties": false
}`

func newTestRegistry(t *testing.T) (*Registry, *recordingAuditor) {
	t.Helper()
	gate, err := authz.NewGate(authz.DefaultRules())
	if err != nil {
		t.Fatalf("new gate: %v", err)
	}
	auditor := &recordingAuditor{}
	return NewRegistry(nil, gate, auditor), auditor
}

func mustRegister(t *testing.T, reg *Registry, tool Tool) {
	t.Helper()
	if err := reg.Register(tool); err != nil {
		t.Fatalf("register %s: %v", tool.Name(), err)
	}
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	reg, _ := newTestRegistry(t)
	mustRegister(t, reg, &MockTool{NameVal: "getProjects"})

	retrieved, ok := reg.Get("getProjects")
	if !ok {
		t.Fatal("expected to retrieve tool")
	}
	if retrieved.Name() != "getProjects" {
		t.Errorf("expected name 'getProjects', got '%s'", retrieved.Name())
	}
	if err := reg.Register(&MockTool{NameVal: "getProjects"}); err == nil {
		t.Error("expected duplicate registration to fail")
	}
}

func TestRegistry_RegisterRejectsUngatedWriteTool(t *testing.T) {
	reg, _ := newTestRegistry(t)
	err := reg.Register(&MockTool{NameVal: "deleteClient", DirectionVal: DirectionWrite})
	if err == nil {
		t.Fatal("expected write tool without permission rule to be rejected")
	}
}

func TestRegistry_RegisterRejectsBadSchema(t *testing.T) {
	reg, _ := newTestRegistry(t)
	err := reg.Register(&MockTool{NameVal: "getLeads", SchemaVal: `{"type": 12}`})
	if err == nil {
		t.Fatal("expected invalid schema to be rejected")
	}
}

func TestRegistry_List(t *testing.T) {
	reg, _ := newTestRegistry(t)
	mustRegister(t, reg, &MockTool{NameVal: "getUsers"})
	mustRegister(t, reg, &MockTool{NameVal: "getClients"})

	list := reg.List()
	if len(list) != 2 {
		t.Errorf("expected 2 tools, got %d", len(list))
	}
	if list[0].Name() != "getClients" {
		t.Errorf("expected sorted order, got %s first", list[0].Name())
	}
}

func TestRegistry_DescribeAll(t *testing.T) {
	reg, _ := newTestRegistry(t)
	mustRegister(t, reg, &MockTool{NameVal: "createClient", DescVal: "creates a client", DirectionVal: DirectionWrite})

	desc := reg.DescribeAll()
	if !strings.Contains(desc, "createClient [write]: creates a client") {
		t.Errorf("description missing tool details: %s", desc)
	}
	if !strings.Contains(desc, "Roles: ADMIN, COMERCIAL, GERENCIA") {
		t.Errorf("description missing roles: %s", desc)
	}
}

func TestDispatch_UnknownTool(t *testing.T) {
	reg, auditor := newTestRegistry(t)
	_, err := reg.Dispatch(context.Background(), "dropDatabase", nil, authz.Actor{ID: "u1", Role: authz.RoleAdmin})
	if !errors.Is(err, agenterr.ErrToolNotFound) {
		t.Fatalf("expected ErrToolNotFound, got %v", err)
	}
	if len(auditor.Entries()) != 0 {
		t.Fatal("expected no audit entry for unknown tool")
	}
}

func TestDispatch_ValidationFailureSkipsHandlerAndAudit(t *testing.T) {
	reg, auditor := newTestRegistry(t)
	spy := &MockTool{NameVal: "createClient", SchemaVal: nameSchema, DirectionVal: DirectionWrite}
	mustRegister(t, reg, spy)
	actor := authz.Actor{ID: "u1", Role: authz.RoleSales}

	for _, args := range []string{`{"name":"A"}`, `{}`, `{"name":"Acme","extra":1}`, `{"name":`, `[]`} {
		_, err := reg.Dispatch(context.Background(), "createClient", json.RawMessage(args), actor)
		if !errors.Is(err, agenterr.ErrInvalidArgs) {
			t.Fatalf("args %s: expected ErrInvalidArgs, got %v", args, err)
		}
	}
	if spy.Calls() != 0 {
		t.Fatalf("expected handler not to run, ran %d times", spy.Calls())
	}
	if len(auditor.Entries()) != 0 {
		t.Fatalf("expected no audit entries, got %d", len(auditor.Entries()))
	}
}

func TestDispatch_RoleMatrix(t *testing.T) {
	roles := []authz.Role{
		authz.RoleAdmin,
		authz.RoleManagement,
		authz.RoleAccounting,
		authz.RoleFinance,
		authz.RoleProjects,
		authz.RoleMarketing,
		authz.RoleSales,
	}
	rules := authz.DefaultRules()
	gate, err := authz.NewGate(rules)
	if err != nil {
		t.Fatalf("new gate: %v", err)
	}

	for toolName := range rules {
		for _, role := range roles {
			auditor := &recordingAuditor{}
			reg := NewRegistry(nil, gate, auditor)
			spy := &MockTool{NameVal: toolName, SchemaVal: nameSchema, DirectionVal: DirectionWrite}
			mustRegister(t, reg, spy)

			_, err := reg.Dispatch(context.Background(), toolName, json.RawMessage(`{"name":"Acme"}`), authz.Actor{ID: "u1", Role: role})
			allowed := gate.IsAllowed(role, toolName)
			entries := auditor.Entries()
			if len(entries) != 1 {
				t.Fatalf("%s/%s: expected exactly one audit entry, got %d", toolName, role, len(entries))
			}
			if allowed {
				if err != nil || spy.Calls() != 1 || !entries[0].Success {
					t.Fatalf("%s/%s: expected handler to run and succeed, err=%v calls=%d entry=%+v", toolName, role, err, spy.Calls(), entries[0])
				}
				continue
			}
			if !errors.Is(err, agenterr.ErrPermissionDenied) {
				t.Fatalf("%s/%s: expected ErrPermissionDenied, got %v", toolName, role, err)
			}
			if spy.Calls() != 0 {
				t.Fatalf("%s/%s: handler ran %d times for denied role", toolName, role, spy.Calls())
			}
			if entries[0].Success || !strings.Contains(entries[0].Error, "permission denied") {
				t.Fatalf("%s/%s: unexpected audit entry %+v", toolName, role, entries[0])
			}
		}
	}
}

func TestDispatch_HandlerErrorIsAudited(t *testing.T) {
	reg, auditor := newTestRegistry(t)
	mustRegister(t, reg, &MockTool{
		NameVal:      "createClient",
		SchemaVal:    nameSchema,
		DirectionVal: DirectionWrite,
		ExecFunc: func(context.Context, authz.Actor, json.RawMessage) (any, error) {
			return nil, errors.New("database is locked")
		},
	})

	_, err := reg.Dispatch(context.Background(), "createClient", json.RawMessage(`{"name":"Acme"}`), authz.Actor{ID: "u1", Role: authz.RoleAdmin})
	if err == nil || err.Error() != "database is locked" {
		t.Fatalf("expected handler error unchanged, got %v", err)
	}
	entries := auditor.Entries()
	if len(entries) != 1 || entries[0].Success || entries[0].Error != "database is locked" {
		t.Fatalf("unexpected audit entries: %+v", entries)
	}
	if string(entries[0].Input) != `{"name":"Acme"}` {
		t.Fatalf("expected input snapshot, got %s", entries[0].Input)
	}
}

type partialReport struct {
	OK bool `json:"success"`
}

func (p partialReport) Succeeded() bool       { return p.OK }
func (p partialReport) FailureReason() string { return "no item succeeded" }

func TestDispatch_OutcomeDecidesAuditFlag(t *testing.T) {
	reg, auditor := newTestRegistry(t)
	mustRegister(t, reg, &MockTool{
		NameVal:      "createClientsBulk",
		DirectionVal: DirectionWrite,
		ExecFunc: func(context.Context, authz.Actor, json.RawMessage) (any, error) {
			return partialReport{OK: false}, nil
		},
	})

	output, err := reg.Dispatch(context.Background(), "createClientsBulk", nil, authz.Actor{ID: "u1", Role: authz.RoleSales})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if output != `{"success":false}` {
		t.Fatalf("unexpected output %s", output)
	}
	entries := auditor.Entries()
	if len(entries) != 1 || entries[0].Success || entries[0].Error != "no item succeeded" {
		t.Fatalf("unexpected audit entries: %+v", entries)
	}
}

func TestDispatch_ReadToolsAreNeverAudited(t *testing.T) {
	reg, auditor := newTestRegistry(t)
	mustRegister(t, reg, &MockTool{
		NameVal: "getProjects",
		ExecFunc: func(_ context.Context, actor authz.Actor, _ json.RawMessage) (any, error) {
			return map[string]string{"actor": actor.ID}, nil
		},
	})
	mustRegister(t, reg, &MockTool{
		NameVal: "getLeads",
		ExecFunc: func(context.Context, authz.Actor, json.RawMessage) (any, error) {
			return nil, errors.New("boom")
		},
	})

	output, err := reg.Dispatch(context.Background(), "getProjects", nil, authz.Actor{ID: "u9", Role: authz.RoleMarketing})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if output != `{"actor":"u9"}` {
		t.Fatalf("unexpected output %s", output)
	}
	if _, err := reg.Dispatch(context.Background(), "getLeads", nil, authz.Actor{ID: "u9", Role: authz.RoleMarketing}); err == nil {
		t.Fatal("expected read handler error")
	}
	if len(auditor.Entries()) != 0 {
		t.Fatalf("expected no audit entries for reads, got %d", len(auditor.Entries()))
	}
}

func TestDispatch_AuditFailureDoesNotFailTool(t *testing.T) {
	gate, _ := authz.NewGate(authz.DefaultRules())
	auditor := &recordingAuditor{err: errors.New("audit table missing")}
	reg := NewRegistry(nil, gate, auditor)
	mustRegister(t, reg, &MockTool{NameVal: "createLead", DirectionVal: DirectionWrite})

	if _, err := reg.Dispatch(context.Background(), "createLead", json.RawMessage(`{}`), authz.Actor{ID: "u1", Role: authz.RoleSales}); err != nil {
		t.Fatalf("expected audit failure to be absorbed, got %v", err)
	}
}

func TestCompileSchemaAssertsFormat(t *testing.T) {
	schema, err := CompileSchema("contact", `{"type":"object","properties":{"email":{"type":"string","format":"email"}}}`)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if err := schema.ValidateJSON(json.RawMessage(`{"email":"not-an-email"}`)); err == nil {
		t.Fatal("expected invalid email to fail")
	}
	if err := schema.ValidateJSON(json.RawMessage(`{"email":"ana@acme.com"}`)); err != nil {
		t.Fatalf("expected valid email, got %v", err)
	}
}
