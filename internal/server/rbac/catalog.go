// Package rbac maps roles to permission patterns and answers whether a role
// holds a permission.
//
// A pattern is either "*", an exact permission such as "inventory.read", or a
// namespace wildcard such as "inventory.*" which matches every permission
// starting with "inventory.".
package rbac

import "strings"

// AdminRole bypasses every permission and policy check.
const AdminRole = "admin"

const (
	RoleManager     = "Menadžer"
	RoleOperator    = "Operater"
	RoleCoordinator = "Koordinator stanica"
	RoleAnalyst     = "Analitičar"
	RoleSecurity    = "Bezbednost"
)

// Permissions guarding the security administration surface.
const (
	PermSecurityRead   = "security.read"
	PermSecurityManage = "security.manage"
)

// Catalog is an immutable role to patterns table.
type Catalog struct {
	roles map[string][]string
}

// NewCatalog copies roles so later changes to the argument have no effect.
func NewCatalog(roles map[string][]string) *Catalog {
	c := &Catalog{roles: make(map[string][]string, len(roles))}
	for role, patterns := range roles {
		c.roles[role] = append([]string(nil), patterns...)
	}
	return c
}

// DefaultCatalog returns the refinery dashboard roles.
func DefaultCatalog() *Catalog {
	return NewCatalog(map[string][]string{
		RoleManager:     {"inventory.*", "production.*", "stations.*", "tasks.*", "reports.*", "users.read", PermSecurityRead},
		RoleOperator:    {"inventory.read", "inventory.update", "production.*", "tasks.read", "tasks.update"},
		RoleCoordinator: {"stations.*", "tasks.read", "tasks.update", "reports.read"},
		RoleAnalyst:     {"inventory.read", "production.read", "stations.read", "reports.*"},
		RoleSecurity:    {"security.*", "users.read"},
	})
}

// Known reports whether role is admin or present in the catalog.
func (c *Catalog) Known(role string) bool {
	if role == AdminRole {
		return true
	}
	_, ok := c.roles[role]
	return ok
}

// HasPermission reports whether role may perform required. Unknown roles
// hold nothing.
func (c *Catalog) HasPermission(role, required string) bool {
	if role == AdminRole {
		return true
	}
	patterns, ok := c.roles[role]
	if !ok {
		return false
	}
	for _, p := range patterns {
		if Match(p, required) {
			return true
		}
	}
	return false
}

// Permissions returns a copy of the patterns held by role.
func (c *Catalog) Permissions(role string) []string {
	return append([]string(nil), c.roles[role]...)
}

// Match reports whether pattern grants required.
func Match(pattern, required string) bool {
	switch {
	case pattern == "*":
		return true
	case pattern == required:
		return true
	case strings.HasSuffix(pattern, ".*"):
		return strings.HasPrefix(required, strings.TrimSuffix(pattern, "*"))
	}
	return false
}
