package authz

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDefaultGate(t *testing.T) {
	gate, err := NewGate(DefaultRules())
	if err != nil {
		t.Fatalf("new gate: %v", err)
	}

	cases := []struct {
		role Role
		tool string
		want bool
	}{
		{RoleSales, "createClient", true},
		{RoleManagement, "createLead", true},
		{RoleMarketing, "createClient", false},
		{RoleProjects, "createClient", false},
		{RoleProjects, "createTask", true},
		{RoleSales, "createProject", false},
		{RoleAdmin, "deleteEverything", false},
		{Role("INTERN"), "createClient", false},
	}
	for _, tc := range cases {
		if got := gate.IsAllowed(tc.role, tc.tool); got != tc.want {
			t.Errorf("IsAllowed(%s, %s) = %t, want %t", tc.role, tc.tool, got, tc.want)
		}
	}
}

func TestNilGateDenies(t *testing.T) {
	var gate *Gate
	if gate.IsAllowed(RoleAdmin, "createClient") {
		t.Fatal("expected nil gate to deny")
	}
}

func TestNewGateRejectsEmptyRoleSet(t *testing.T) {
	if _, err := NewGate(map[string][]Role{"createClient": {}}); err == nil {
		t.Fatal("expected error for tool without roles")
	}
}

func TestGateCopiesRules(t *testing.T) {
	rules := map[string][]Role{"createClient": {RoleSales}}
	gate, err := NewGate(rules)
	if err != nil {
		t.Fatalf("new gate: %v", err)
	}
	rules["createClient"] = append(rules["createClient"], RoleMarketing)
	if gate.IsAllowed(RoleMarketing, "createClient") {
		t.Fatal("expected gate to be unaffected by later changes to the input map")
	}
}

func TestAllowedRolesSorted(t *testing.T) {
	gate, err := NewGate(DefaultRules())
	if err != nil {
		t.Fatalf("new gate: %v", err)
	}
	want := []Role{RoleAdmin, RoleSales, RoleManagement}
	if diff := cmp.Diff(want, gate.AllowedRoles("createLead")); diff != "" {
		t.Fatalf("allowed roles mismatch (-want +got):\n%s", diff)
	}
	if roles := gate.AllowedRoles("getProjects"); roles != nil {
		t.Fatalf("expected nil for read tool, got %v", roles)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "permissions.yaml")
	content := "tools:\n  createClient: [admin, marketing]\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	gate, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load file: %v", err)
	}
	if !gate.IsAllowed(RoleMarketing, "createClient") {
		t.Fatal("expected marketing to be allowed by file")
	}
	if gate.IsAllowed(RoleSales, "createClient") {
		t.Fatal("expected file rule to replace the default")
	}
	if !gate.IsAllowed(RoleProjects, "createTask") {
		t.Fatal("expected untouched tools to keep defaults")
	}
}

func TestLoadFileRejectsUnknownRole(t *testing.T) {
	path := filepath.Join(t.TempDir(), "permissions.yaml")
	if err := os.WriteFile(path, []byte("tools:\n  createClient: [janitor]\n"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Fatal("expected unknown role error")
	}
}

func TestParseRoleAndModuleAccess(t *testing.T) {
	role, err := ParseRole(" Sales ")
	if err != nil || role != RoleSales {
		t.Fatalf("ParseRole(sales) = %s, %v", role, err)
	}
	if _, err := ParseRole("janitor"); err == nil {
		t.Fatal("expected error for unknown role")
	}
	if !CanAccess(RoleFinance, ModuleSuppliers) {
		t.Fatal("expected finance to access suppliers")
	}
	if CanAccess(RoleSales, ModuleSuppliers) {
		t.Fatal("expected sales to be denied suppliers")
	}
}
