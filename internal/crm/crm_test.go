package crm

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dwizi/bizops-assistant/internal/agent/tools"
	"github.com/dwizi/bizops-assistant/internal/agenterr"
	"github.com/dwizi/bizops-assistant/internal/audit"
	"github.com/dwizi/bizops-assistant/internal/authz"
	"github.com/dwizi/bizops-assistant/internal/notify"
	"github.com/dwizi/bizops-assistant/internal/resolve"
	"github.com/dwizi/bizops-assistant/internal/store"
)

var fixedNow = time.Date(2026, time.October, 16, 15, 0, 0, 0, time.UTC)

type harness struct {
	store    *store.Store
	registry *tools.Registry
	audit    *audit.Logger
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	sqlStore, err := store.New(filepath.Join(t.TempDir(), "crm_test.sqlite"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = sqlStore.Close() })
	if err := sqlStore.AutoMigrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	gate, err := authz.NewGate(authz.DefaultRules())
	if err != nil {
		t.Fatalf("gate: %v", err)
	}
	now := func() time.Time { return fixedNow }
	auditor := audit.New(nil, sqlStore)
	registry := tools.NewRegistry(nil, gate, auditor)
	resolver := resolve.New(nil, sqlStore, resolve.Options{Now: now})
	svc := NewService(nil, sqlStore, resolver, notify.New(nil, sqlStore), Options{Now: now, BulkConcurrency: 3})
	if err := svc.Register(registry); err != nil {
		t.Fatalf("register tools: %v", err)
	}
	return &harness{store: sqlStore, registry: registry, audit: auditor}
}

func (h *harness) user(t *testing.T, email, name string, role authz.Role) authz.Actor {
	t.Helper()
	record, _, err := h.store.EnsureUser(context.Background(), store.CreateUserInput{Email: email, Name: name, Role: string(role)})
	if err != nil {
		t.Fatalf("ensure user %s: %v", email, err)
	}
	return authz.Actor{ID: record.ID, Role: role}
}

func (h *harness) call(t *testing.T, actor authz.Actor, name, args string) map[string]any {
	t.Helper()
	out, err := h.registry.Dispatch(context.Background(), name, json.RawMessage(args), actor)
	if err != nil {
		t.Fatalf("dispatch %s: %v", name, err)
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("decode %s output %q: %v", name, out, err)
	}
	return payload
}

func (h *harness) auditRecords(t *testing.T, toolName string) []store.ToolAuditRecord {
	t.Helper()
	records, err := h.audit.List(context.Background(), audit.Filter{ToolName: toolName})
	if err != nil {
		t.Fatalf("list audit: %v", err)
	}
	return records
}

func TestRegisterExposesEveryTool(t *testing.T) {
	h := newHarness(t)
	want := []string{
		"createClient", "createClientsBulk", "createContact", "createLead", "createProject", "createTask",
		"getClients", "getContacts", "getFinancialSummary", "getLeads", "getProjects", "getSuppliers", "getUsers",
		"updateLeadStatus",
	}
	listed := h.registry.List()
	if len(listed) != len(want) {
		t.Fatalf("expected %d tools, got %d", len(want), len(listed))
	}
	for idx, tool := range listed {
		if tool.Name() != want[idx] {
			t.Fatalf("tool %d: expected %s, got %s", idx, want[idx], tool.Name())
		}
	}
}

func TestCreateClientReusesExistingName(t *testing.T) {
	h := newHarness(t)
	actor := h.user(t, "ventas@example.com", "Vera Ventas", authz.RoleSales)

	first := h.call(t, actor, "createClient", `{"name":"Acme","country":"PE"}`)
	if first["success"] != true || first["created"] != true {
		t.Fatalf("unexpected first result %v", first)
	}
	second := h.call(t, actor, "createClient", `{"name":"ACME"}`)
	if second["created"] != false {
		t.Fatalf("expected reuse, got %v", second)
	}
	firstID := first["client"].(map[string]any)["id"]
	if second["client"].(map[string]any)["id"] != firstID {
		t.Fatalf("expected same client id, got %v and %v", firstID, second["client"])
	}
	if !strings.HasPrefix(second["editUrl"].(string), "/comercial?tab=companies&editClientId=") {
		t.Fatalf("unexpected edit url %v", second["editUrl"])
	}
	if got := len(h.auditRecords(t, "createClient")); got != 2 {
		t.Fatalf("expected 2 audit records, got %d", got)
	}
}

func TestBulkCreateClientsIsolatesInvalidItem(t *testing.T) {
	h := newHarness(t)
	actor := h.user(t, "admin@example.com", "Ada Admin", authz.RoleAdmin)

	out, err := h.registry.Dispatch(context.Background(), "createClientsBulk", json.RawMessage(`{"clients":[
		{"name":"Acme"},
		{"name":"Bad","mainEmail":"not-an-email"},
		{"name":"Beta Corp","industry":"Retail"}
	]}`), actor)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	var report BulkReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if !report.Success || report.Total != 3 || report.CreatedCount != 2 {
		t.Fatalf("unexpected report %+v", report)
	}
	if report.Results[1].Success || report.Results[1].Name != "Bad" || report.Results[1].Error == "" {
		t.Fatalf("expected isolated failure for item 2, got %+v", report.Results[1])
	}
	if report.Results[0].Name != "Acme" || report.Results[2].Name != "Beta Corp" {
		t.Fatalf("results lost input order: %+v", report.Results)
	}
	if !strings.HasSuffix(report.Results[2].EditURL, report.Results[2].ClientID) {
		t.Fatalf("unexpected edit url %+v", report.Results[2])
	}

	records := h.auditRecords(t, "createClientsBulk")
	if len(records) != 1 || !records[0].Success {
		t.Fatalf("expected one successful bulk audit record, got %+v", records)
	}
}

func TestBulkCreateClientsIsolatesNonObjectItem(t *testing.T) {
	h := newHarness(t)
	actor := h.user(t, "admin@example.com", "Ada Admin", authz.RoleAdmin)

	out, err := h.registry.Dispatch(context.Background(), "createClientsBulk",
		json.RawMessage(`{"clients":[{"name":"Acme"},"Bad Corp",{"name":"Beta Corp"}]}`), actor)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	var report BulkReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if !report.Success || report.Total != 3 || report.CreatedCount != 2 {
		t.Fatalf("unexpected report %+v", report)
	}
	if report.Results[1].Success || report.Results[1].Error == "" {
		t.Fatalf("expected item 2 to fail alone, got %+v", report.Results[1])
	}
	if records := h.auditRecords(t, "createClientsBulk"); len(records) != 1 || !records[0].Success {
		t.Fatalf("expected one successful bulk audit record, got %+v", records)
	}
}

func TestBulkCreateClientsCountsDuplicatesOnce(t *testing.T) {
	h := newHarness(t)
	actor := h.user(t, "admin@example.com", "Ada Admin", authz.RoleAdmin)

	out, err := h.registry.Dispatch(context.Background(), "createClientsBulk",
		json.RawMessage(`{"clients":[{"name":"Acme"},{"name":"acme"},{"name":"ACME"}]}`), actor)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	var report BulkReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if report.Total != 3 || report.CreatedCount != 1 {
		t.Fatalf("expected a single creation, got %+v", report)
	}
	for _, result := range report.Results {
		if !result.Success || result.ClientID != report.Results[0].ClientID {
			t.Fatalf("expected every item to resolve to one client, got %+v", report.Results)
		}
	}
}

func TestBulkAllFailedIsAuditedAsFailure(t *testing.T) {
	h := newHarness(t)
	actor := h.user(t, "admin@example.com", "Ada Admin", authz.RoleAdmin)

	out, err := h.registry.Dispatch(context.Background(), "createClientsBulk",
		json.RawMessage(`{"clients":[{"name":"A"},{"nombre":"Sin campo"}]}`), actor)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	var report BulkReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if report.Success || report.CreatedCount != 0 || report.Total != 2 {
		t.Fatalf("unexpected report %+v", report)
	}
	records := h.auditRecords(t, "createClientsBulk")
	if len(records) != 1 || records[0].Success || records[0].Error == "" {
		t.Fatalf("expected one failed audit record, got %+v", records)
	}
}

func TestBulkRejectsMoreThanTwentyItems(t *testing.T) {
	h := newHarness(t)
	actor := h.user(t, "admin@example.com", "Ada Admin", authz.RoleAdmin)

	items := make([]string, 21)
	for idx := range items {
		items[idx] = `{"name":"Cliente"}`
	}
	_, err := h.registry.Dispatch(context.Background(), "createClientsBulk",
		json.RawMessage(`{"clients":[`+strings.Join(items, ",")+`]}`), actor)
	if !errors.Is(err, agenterr.ErrInvalidArgs) {
		t.Fatalf("expected invalid args, got %v", err)
	}
}

func TestAggregateBoundsConcurrencyAndKeepsOrder(t *testing.T) {
	var running, peak atomic.Int32
	items := []int{1, 2, 3, 4, 5, 6, 7, 8}
	report := Aggregate(context.Background(), items, 2, func(_ context.Context, item int) BulkItemResult {
		current := running.Add(1)
		for {
			seen := peak.Load()
			if current <= seen || peak.CompareAndSwap(seen, current) {
				break
			}
		}
		time.Sleep(time.Duration(10-item) * time.Millisecond)
		running.Add(-1)
		return BulkItemResult{Success: item%2 == 0, Created: item%4 == 0, Name: string(rune('a' + item))}
	})
	if peak.Load() > 2 {
		t.Fatalf("expected at most 2 concurrent items, saw %d", peak.Load())
	}
	for idx, result := range report.Results {
		if result.Name != string(rune('a'+items[idx])) {
			t.Fatalf("result %d out of order: %+v", idx, result)
		}
	}
	if !report.Success || report.Total != 8 || report.CreatedCount != 2 {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestCreateContactWithoutEmailUsesSentinelClientAndPlaceholder(t *testing.T) {
	h := newHarness(t)
	actor := h.user(t, "ventas@example.com", "Vera Ventas", authz.RoleSales)

	result := h.call(t, actor, "createContact", `{"fullName":"Juan Pérez"}`)
	contact := result["contact"].(map[string]any)
	if result["created"] != true || contact["pendingEmail"] != true {
		t.Fatalf("expected pending contact creation, got %v", result)
	}
	if !strings.HasSuffix(contact["email"].(string), "@"+resolve.DefaultPlaceholderDomain) {
		t.Fatalf("expected placeholder email, got %v", contact["email"])
	}
	client := result["client"].(map[string]any)
	if client["name"] != resolve.SentinelClientName || client["fallback"] != true {
		t.Fatalf("expected sentinel client, got %v", client)
	}

	again := h.call(t, actor, "createContact", `{"firstName":"juan","lastName":"pérez"}`)
	if again["created"] != false || again["contact"].(map[string]any)["id"] != contact["id"] {
		t.Fatalf("expected name match on retry, got %v", again)
	}
}

func TestCreateContactRequiresName(t *testing.T) {
	h := newHarness(t)
	actor := h.user(t, "ventas@example.com", "Vera Ventas", authz.RoleSales)

	_, err := h.registry.Dispatch(context.Background(), "createContact", json.RawMessage(`{"email":"x@example.com"}`), actor)
	if !errors.Is(err, agenterr.ErrInvalidArgs) {
		t.Fatalf("expected invalid args, got %v", err)
	}
	if got := len(h.auditRecords(t, "createContact")); got != 0 {
		t.Fatalf("schema failures must not be audited, got %d records", got)
	}
}

func TestCreateContactRejectsBlankName(t *testing.T) {
	h := newHarness(t)
	actor := h.user(t, "ventas@example.com", "Vera Ventas", authz.RoleSales)

	_, err := h.registry.Dispatch(context.Background(), "createContact", json.RawMessage(`{"firstName":"   "}`), actor)
	if !errors.Is(err, agenterr.ErrInvalidArgs) {
		t.Fatalf("expected invalid args, got %v", err)
	}
	if got := len(h.auditRecords(t, "createContact")); got != 0 {
		t.Fatalf("blank names must not be audited, got %d records", got)
	}
}

func TestCreateContactDoesNotMergeDifferentEmails(t *testing.T) {
	h := newHarness(t)
	actor := h.user(t, "ventas@example.com", "Vera Ventas", authz.RoleSales)

	first := h.call(t, actor, "createContact", `{"firstName":"Ana","email":"ana@acme.com","clientName":"Acme"}`)
	second := h.call(t, actor, "createContact", `{"firstName":"Ana","email":"ana.other@acme.com","clientName":"Acme"}`)
	contact := second["contact"].(map[string]any)
	if second["created"] != true || contact["id"] == first["contact"].(map[string]any)["id"] {
		t.Fatalf("expected a second contact, got %v", second)
	}
	if contact["email"] != "ana.other@acme.com" {
		t.Fatalf("expected the new email to be kept, got %v", contact["email"])
	}
}

func TestCreateLeadNotifiesSalesAudience(t *testing.T) {
	h := newHarness(t)
	actor := h.user(t, "admin@example.com", "Ada Admin", authz.RoleAdmin)
	seller := h.user(t, "ventas@example.com", "Vera Ventas", authz.RoleSales)
	marketer := h.user(t, "mkt@example.com", "Mario Marketing", authz.RoleMarketing)

	result := h.call(t, actor, "createLead", `{"companyName":"Acme","serviceRequested":"Auditoría","estimatedValue":1500,"currency":"PEN"}`)
	lead := result["lead"].(map[string]any)
	if lead["currency"] != "PEN" || lead["status"] != "NEW" || lead["companyName"] != "Acme" {
		t.Fatalf("unexpected lead %v", lead)
	}
	if result["notified"].(float64) != 1 {
		t.Fatalf("expected one notification, got %v", result["notified"])
	}
	if result["client"].(map[string]any)["created"] != true {
		t.Fatalf("expected client creation from company name, got %v", result["client"])
	}

	ctx := context.Background()
	sellerInbox, err := h.store.ListNotifications(ctx, seller.ID, 10)
	if err != nil {
		t.Fatalf("list notifications: %v", err)
	}
	if len(sellerInbox) != 1 || sellerInbox[0].Type != notify.TypeLeadCreated {
		t.Fatalf("expected lead notification for seller, got %+v", sellerInbox)
	}
	for _, id := range []string{actor.ID, marketer.ID} {
		inbox, err := h.store.ListNotifications(ctx, id, 10)
		if err != nil {
			t.Fatalf("list notifications: %v", err)
		}
		if len(inbox) != 0 {
			t.Fatalf("user %s should not be notified, got %+v", id, inbox)
		}
	}

	updated := h.call(t, seller, "updateLeadStatus", `{"leadId":"`+lead["id"].(string)+`","status":"WON"}`)
	if updated["lead"].(map[string]any)["status"] != "WON" {
		t.Fatalf("unexpected update result %v", updated)
	}
}

func TestUpdateLeadStatusUnknownLead(t *testing.T) {
	h := newHarness(t)
	actor := h.user(t, "ventas@example.com", "Vera Ventas", authz.RoleSales)

	_, err := h.registry.Dispatch(context.Background(), "updateLeadStatus", json.RawMessage(`{"leadId":"lead_missing","status":"LOST"}`), actor)
	if !errors.Is(err, agenterr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	records := h.auditRecords(t, "updateLeadStatus")
	if len(records) != 1 || records[0].Success {
		t.Fatalf("expected failed audit record, got %+v", records)
	}
}

func TestCreateProjectUsesActingDirectorAndNormalizesDates(t *testing.T) {
	h := newHarness(t)
	actor := h.user(t, "pm@example.com", "Pablo Proyectos", authz.RoleProjects)

	result := h.call(t, actor, "createProject", `{"name":"Portal Web","clientName":"Acme","startDate":"mañana","endDate":"3 de diciembre"}`)
	project := result["project"].(map[string]any)
	if project["startDate"] != "17/10/2026" || project["endDate"] != "03/12/2026" {
		t.Fatalf("unexpected dates %v", project)
	}
	if project["director"] != "Pablo Proyectos" || project["status"] != "PLANNING" {
		t.Fatalf("unexpected project %v", project)
	}
	if result["url"] != "/proyectos/"+project["id"].(string) {
		t.Fatalf("unexpected url %v", result["url"])
	}

	again := h.call(t, actor, "createProject", `{"name":"portal web","clientName":"ACME"}`)
	if again["created"] != false || again["project"].(map[string]any)["id"] != project["id"] {
		t.Fatalf("expected reuse of open project, got %v", again)
	}
}

func TestCreateProjectUnknownDirectorFallsBackToActor(t *testing.T) {
	h := newHarness(t)
	manager := h.user(t, "ger@example.com", "Gina Gerencia", authz.RoleManagement)

	result := h.call(t, manager, "createProject", `{"name":"Migración ERP","directorName":"Nadie Conocido"}`)
	director := result["director"].(map[string]any)
	if director["id"] != manager.ID || director["fallback"] != true {
		t.Fatalf("expected acting manager as director, got %v", director)
	}
	client := result["client"].(map[string]any)
	if client["name"] != resolve.SentinelClientName {
		t.Fatalf("expected sentinel client without a client name, got %v", client)
	}
}

func TestCreateProjectRejectsCompletedStatus(t *testing.T) {
	h := newHarness(t)
	actor := h.user(t, "pm@example.com", "Pablo Proyectos", authz.RoleProjects)

	_, err := h.registry.Dispatch(context.Background(), "createProject", json.RawMessage(`{"name":"Portal Web","status":"COMPLETED"}`), actor)
	if !errors.Is(err, agenterr.ErrInvalidArgs) {
		t.Fatalf("expected invalid args, got %v", err)
	}
	if got := len(h.auditRecords(t, "createProject")); got != 0 {
		t.Fatalf("schema failures must not be audited, got %d records", got)
	}
}

func TestCreateProjectDeniedForMarketing(t *testing.T) {
	h := newHarness(t)
	actor := h.user(t, "mkt@example.com", "Mario Marketing", authz.RoleMarketing)

	_, err := h.registry.Dispatch(context.Background(), "createProject", json.RawMessage(`{"name":"Campaña"}`), actor)
	if !errors.Is(err, agenterr.ErrPermissionDenied) {
		t.Fatalf("expected permission denied, got %v", err)
	}
	records := h.auditRecords(t, "createProject")
	if len(records) != 1 || records[0].Success || records[0].UserID != actor.ID {
		t.Fatalf("expected one denied audit record, got %+v", records)
	}
	projects, err := h.store.ListProjects(context.Background(), store.ListProjectsInput{})
	if err != nil {
		t.Fatalf("list projects: %v", err)
	}
	if len(projects) != 0 {
		t.Fatalf("denied call must not write, got %+v", projects)
	}
}

func TestCreateTaskRequiresProjectReference(t *testing.T) {
	h := newHarness(t)
	actor := h.user(t, "pm@example.com", "Pablo Proyectos", authz.RoleProjects)

	_, err := h.registry.Dispatch(context.Background(), "createTask", json.RawMessage(`{"title":"Revisar planos"}`), actor)
	if !errors.Is(err, agenterr.ErrInvalidArgs) {
		t.Fatalf("expected invalid args, got %v", err)
	}
}

func TestCreateTaskAssignsByNameAndNotifies(t *testing.T) {
	h := newHarness(t)
	actor := h.user(t, "pm@example.com", "Pablo Proyectos", authz.RoleProjects)
	assignee := h.user(t, "ana@example.com", "Ana Torres", authz.RoleProjects)

	h.call(t, actor, "createProject", `{"name":"Portal Web","clientName":"Acme"}`)
	result := h.call(t, actor, "createTask", `{"title":"Revisar planos","projectName":"portal web","assigneeName":"ana","priority":"HIGH","dueDate":"20/10/2026"}`)
	task := result["task"].(map[string]any)
	if task["assigneeId"] != assignee.ID || task["priority"] != "HIGH" || task["dueDate"] != "20/10/2026" {
		t.Fatalf("unexpected task %v", task)
	}
	if task["projectName"] != "Portal Web" || result["notified"] != true {
		t.Fatalf("unexpected result %v", result)
	}
	inbox, err := h.store.ListNotifications(context.Background(), assignee.ID, 10)
	if err != nil {
		t.Fatalf("list notifications: %v", err)
	}
	if len(inbox) != 1 || inbox[0].Type != notify.TypeTaskAssigned {
		t.Fatalf("expected task notification, got %+v", inbox)
	}

	self := h.call(t, actor, "createTask", `{"title":"Cerrar acta","projectName":"Portal Web"}`)
	selfTask := self["task"].(map[string]any)
	if selfTask["assigneeId"] != actor.ID || self["notified"] != false || self["assigneeFallback"] != true {
		t.Fatalf("expected fallback to actor without notification, got %v", self)
	}
}

func TestCreateTaskUnknownProjectFails(t *testing.T) {
	h := newHarness(t)
	actor := h.user(t, "pm@example.com", "Pablo Proyectos", authz.RoleProjects)

	_, err := h.registry.Dispatch(context.Background(), "createTask", json.RawMessage(`{"title":"Revisar","projectName":"Inexistente"}`), actor)
	if !errors.Is(err, agenterr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestGetSuppliersRequiresModuleAccess(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	if _, err := h.store.CreateSupplier(ctx, store.CreateSupplierInput{Name: "Cementos Lima", Category: "Materiales", City: "Lima"}); err != nil {
		t.Fatalf("create supplier: %v", err)
	}
	marketer := h.user(t, "mkt@example.com", "Mario Marketing", authz.RoleMarketing)
	accountant := h.user(t, "conta@example.com", "Carla Conta", authz.RoleAccounting)

	_, err := h.registry.Dispatch(ctx, "getSuppliers", json.RawMessage(`{}`), marketer)
	if !errors.Is(err, agenterr.ErrAccessDenied) {
		t.Fatalf("expected access denied, got %v", err)
	}
	result := h.call(t, accountant, "getSuppliers", `{"city":"lima"}`)
	if result["count"].(float64) != 1 {
		t.Fatalf("expected one supplier, got %v", result)
	}
	if got := len(h.auditRecords(t, "getSuppliers")); got != 0 {
		t.Fatalf("reads are never audited, got %d", got)
	}
}

func TestGetFinancialSummaryCoversCurrentMonth(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	for _, txn := range []store.TransactionInput{
		{Category: "INCOME", Amount: 5000, Date: time.Date(2026, time.October, 2, 12, 0, 0, 0, time.UTC)},
		{Category: "EXPENSE", Amount: 1200, Date: time.Date(2026, time.October, 10, 12, 0, 0, 0, time.UTC)},
		{Category: "INCOME", Amount: 9999, Date: time.Date(2026, time.September, 30, 12, 0, 0, 0, time.UTC)},
	} {
		if err := h.store.CreateTransaction(ctx, txn); err != nil {
			t.Fatalf("create transaction: %v", err)
		}
	}
	actor := h.user(t, "fin@example.com", "Fito Finanzas", authz.RoleFinance)

	result := h.call(t, actor, "getFinancialSummary", `{}`)
	if result["month"] != "octubre" || result["income"].(float64) != 5000 || result["expenses"].(float64) != 1200 || result["profit"].(float64) != 3800 {
		t.Fatalf("unexpected summary %v", result)
	}
}

func TestReadToolsFilter(t *testing.T) {
	h := newHarness(t)
	actor := h.user(t, "admin@example.com", "Ada Admin", authz.RoleAdmin)
	h.user(t, "ventas@example.com", "Vera Ventas", authz.RoleSales)

	h.call(t, actor, "createProject", `{"name":"Portal Web","clientName":"Acme","status":"ACTIVE"}`)
	h.call(t, actor, "createProject", `{"name":"Inventario","clientName":"Beta"}`)

	byClient := h.call(t, actor, "getProjects", `{"query":"acme"}`)
	if byClient["count"].(float64) != 1 {
		t.Fatalf("expected one project for acme, got %v", byClient)
	}
	active := h.call(t, actor, "getClients", `{"hasActiveProjects":true}`)
	if active["count"].(float64) != 2 {
		t.Fatalf("expected both clients with open projects, got %v", active)
	}
	sellers := h.call(t, actor, "getUsers", `{"role":"COMERCIAL"}`)
	if sellers["count"].(float64) != 1 {
		t.Fatalf("expected one seller, got %v", sellers)
	}
	if _, err := h.registry.Dispatch(context.Background(), "getClients", json.RawMessage(`{"limit":31}`), actor); !errors.Is(err, agenterr.ErrInvalidArgs) {
		t.Fatalf("expected limit validation error, got %v", err)
	}
}
