package authz

import (
	"fmt"
	"strings"
)

// Role is a business role as stored on the user record.
type Role string

const (
	RoleAdmin      Role = "ADMIN"
	RoleManagement Role = "GERENCIA"
	RoleAccounting Role = "CONTABILIDAD"
	RoleFinance    Role = "FINANZAS"
	RoleProjects   Role = "PROYECTOS"
	RoleMarketing  Role = "MARKETING"
	RoleSales      Role = "COMERCIAL"
)

var knownRoles = map[string]Role{
	"admin":        RoleAdmin,
	"gerencia":     RoleManagement,
	"management":   RoleManagement,
	"contabilidad": RoleAccounting,
	"accounting":   RoleAccounting,
	"finanzas":     RoleFinance,
	"finance":      RoleFinance,
	"proyectos":    RoleProjects,
	"projects":     RoleProjects,
	"marketing":    RoleMarketing,
	"comercial":    RoleSales,
	"sales":        RoleSales,
}

// ParseRole accepts the stored role names and their English aliases, ignoring case.
func ParseRole(value string) (Role, error) {
	role, ok := knownRoles[strings.ToLower(strings.TrimSpace(value))]
	if !ok {
		return "", fmt.Errorf("unknown role %q", value)
	}
	return role, nil
}

// Actor is the authenticated user a request runs on behalf of.
type Actor struct {
	ID   string
	Role Role
}

// Module is a UI-level area whose access is checked inside read handlers.
type Module string

const ModuleSuppliers Module = "suppliers"

var moduleAccess = map[Module][]Role{
	ModuleSuppliers: {RoleAdmin, RoleManagement, RoleProjects, RoleAccounting, RoleFinance},
}

// CanAccess reports whether role may open module. Unknown modules deny.
func CanAccess(role Role, module Module) bool {
	for _, allowed := range moduleAccess[module] {
		if allowed == role {
			return true
		}
	}
	return false
}
