package identity

import (
	"context"
	"strings"
)

type Portal string

const (
	PortalAdmin    Portal = "Admin"
	PortalEmployee Portal = "Employee"
)

const (
	RoleAdmin    = "Admin"
	RoleHR       = "HR"
	RoleManager  = "Manager"
	RoleEmployee = "Employee"
)

// Principal is the resolved caller for one authenticated session. It is
// immutable once built.
type Principal struct {
	ID                 string `json:"id"`
	EmployeeID         string `json:"employeeId,omitempty"`
	Role               string `json:"role"`
	Portal             Portal `json:"portal"`
	IsManager          bool   `json:"isManager"`
	DirectReportsCount int    `json:"directReportsCount"`
	// Fallback marks a principal resolved without a directory profile.
	Fallback bool `json:"fallback,omitempty"`
}

// IsAdministrator reports whether the role is Admin or HR, case-insensitively.
func (p Principal) IsAdministrator() bool {
	return IsAdminRole(p.Role)
}

func IsAdminRole(role string) bool {
	normalized := strings.ToLower(strings.TrimSpace(role))
	return normalized == "admin" || normalized == "hr"
}

func PortalForRole(role string) Portal {
	if IsAdminRole(role) {
		return PortalAdmin
	}
	return PortalEmployee
}

type ctxKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(Principal)
	return p, ok
}
