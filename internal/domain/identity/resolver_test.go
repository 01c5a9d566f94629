package identity

import (
	"context"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"perfeval/internal/domain/directory"
	"perfeval/internal/domain/directory/directorytest"
)

func newDirectory() *directorytest.Memory {
	dir := directorytest.New()
	dir.AddEmployee(directorytest.Employee{ID: "e-hr", UserID: "u-hr", Role: "hr"})
	dir.AddEmployee(directorytest.Employee{ID: "e-lead", UserID: "u-lead", Role: "Employee"})
	dir.AddEmployee(directorytest.Employee{ID: "e-dev", UserID: "u-dev", Role: "Employee", ManagerID: "e-lead"})
	dir.AddEmployee(directorytest.Employee{ID: "e-mgr", UserID: "u-mgr", Role: "MANAGER"})
	return dir
}

func TestResolve(t *testing.T) {
	resolver := NewResolver(newDirectory(), true, zerolog.Nop())

	tests := []struct {
		name      string
		principal string
		role      string
		portal    Portal
		manager   bool
		fallback  bool
	}{
		{name: "hr is admin portal", principal: "u-hr", role: "hr", portal: PortalAdmin},
		{name: "direct reports make a manager", principal: "u-lead", role: "Employee", portal: PortalEmployee, manager: true},
		{name: "plain employee", principal: "u-dev", role: "Employee", portal: PortalEmployee},
		{name: "manager role tag without reports", principal: "u-mgr", role: "MANAGER", portal: PortalEmployee, manager: true},
		{name: "missing profile falls back to admin", principal: "u-ghost", role: RoleAdmin, portal: PortalAdmin, fallback: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p, err := resolver.Resolve(context.Background(), tc.principal)
			require.NoError(t, err)
			require.Equal(t, tc.role, p.Role)
			require.Equal(t, tc.portal, p.Portal)
			require.Equal(t, tc.manager, p.IsManager)
			require.Equal(t, tc.fallback, p.Fallback)
			require.Equal(t, tc.principal, p.ID)
		})
	}
}

func TestResolveWithoutFallback(t *testing.T) {
	resolver := NewResolver(newDirectory(), false, zerolog.Nop())
	p, err := resolver.Resolve(context.Background(), "u-ghost")
	require.NoError(t, err)
	require.Equal(t, RoleEmployee, p.Role)
	require.Equal(t, PortalEmployee, p.Portal)
	require.False(t, p.IsAdministrator())
}

func TestResolvePropagatesOutage(t *testing.T) {
	dir := newDirectory()
	dir.Err = fmt.Errorf("%w: timeout", directory.ErrUnavailable)
	resolver := NewResolver(dir, true, zerolog.Nop())

	_, err := resolver.Resolve(context.Background(), "u-hr")
	require.ErrorIs(t, err, directory.ErrUnavailable)
}

func TestPrincipalContextRoundTrip(t *testing.T) {
	ctx := WithPrincipal(context.Background(), Principal{ID: "u1", Role: RoleHR})
	p, ok := FromContext(ctx)
	require.True(t, ok)
	require.True(t, p.IsAdministrator())

	_, ok = FromContext(context.Background())
	require.False(t, ok)
}
