package authz

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Gate decides whether a role may run a write tool. The table is copied on
// construction and never mutated afterwards, so a Gate is safe to share.
type Gate struct {
	rules map[string]map[Role]struct{}
}

// DefaultRules is the built-in permission table for write tools.
func DefaultRules() map[string][]Role {
	sales := []Role{RoleAdmin, RoleManagement, RoleSales}
	projects := []Role{RoleAdmin, RoleManagement, RoleProjects}
	return map[string][]Role{
		"createClient":      sales,
		"createClientsBulk": sales,
		"createContact":     sales,
		"createLead":        sales,
		"updateLeadStatus":  sales,
		"createProject":     projects,
		"createTask":        projects,
	}
}

// NewGate builds a gate from tool name to allowed roles. Every tool must allow
// at least one role.
func NewGate(rules map[string][]Role) (*Gate, error) {
	gate := &Gate{rules: make(map[string]map[Role]struct{}, len(rules))}
	for tool, roles := range rules {
		name := strings.TrimSpace(tool)
		if name == "" {
			return nil, fmt.Errorf("permission rule has empty tool name")
		}
		set := make(map[Role]struct{}, len(roles))
		for _, role := range roles {
			if strings.TrimSpace(string(role)) == "" {
				continue
			}
			set[role] = struct{}{}
		}
		if len(set) == 0 {
			return nil, fmt.Errorf("tool %s has no allowed roles", name)
		}
		gate.rules[name] = set
	}
	return gate, nil
}

// IsAllowed fails closed: unknown tools and unknown roles are denied.
func (g *Gate) IsAllowed(role Role, toolName string) bool {
	if g == nil {
		return false
	}
	set, ok := g.rules[strings.TrimSpace(toolName)]
	if !ok {
		return false
	}
	_, ok = set[role]
	return ok
}

// AllowedRoles returns the sorted role set for a tool, or nil when the tool
// has no rule.
func (g *Gate) AllowedRoles(toolName string) []Role {
	if g == nil {
		return nil
	}
	set, ok := g.rules[strings.TrimSpace(toolName)]
	if !ok {
		return nil
	}
	roles := make([]Role, 0, len(set))
	for role := range set {
		roles = append(roles, role)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i] < roles[j] })
	return roles
}

type fileRules struct {
	Tools map[string][]string `yaml:"tools"`
}

// LoadFile reads a YAML permission table of the form
//
//	tools:
//	  createClient: [admin, gerencia, comercial]
//
// Tools missing from the file keep their default rule.
func LoadFile(path string) (*Gate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read permission file: %w", err)
	}
	var parsed fileRules
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse permission file: %w", err)
	}
	rules := DefaultRules()
	for tool, names := range parsed.Tools {
		roles := make([]Role, 0, len(names))
		for _, name := range names {
			role, err := ParseRole(name)
			if err != nil {
				return nil, fmt.Errorf("tool %s: %w", tool, err)
			}
			roles = append(roles, role)
		}
		rules[tool] = roles
	}
	return NewGate(rules)
}
