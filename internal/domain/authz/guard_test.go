package authz

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"perfeval/internal/domain/directory"
	"perfeval/internal/domain/directory/directorytest"
	"perfeval/internal/domain/identity"
)

func team() *directorytest.Memory {
	dir := directorytest.New()
	dir.AddEmployee(directorytest.Employee{ID: "mgr", UserID: "u-mgr", Role: "Manager"})
	dir.AddEmployee(directorytest.Employee{ID: "e5", UserID: "u-5", Role: "Employee", ManagerID: "mgr"})
	dir.AddEmployee(directorytest.Employee{ID: "e6", UserID: "u-6", Role: "Employee"})
	return dir
}

var (
	hr       = identity.Principal{ID: "u-hr", EmployeeID: "hr", Role: "HR", Portal: identity.PortalAdmin}
	fallback = identity.Principal{ID: "u-x", Role: identity.RoleAdmin, Portal: identity.PortalAdmin, Fallback: true}
	manager  = identity.Principal{ID: "u-mgr", EmployeeID: "mgr", Role: "Manager", Portal: identity.PortalEmployee, IsManager: true}
	employee = identity.Principal{ID: "u-5", EmployeeID: "e5", Role: "Employee", Portal: identity.PortalEmployee}
)

func TestAllow(t *testing.T) {
	guard := NewGuard(team())

	tests := []struct {
		name      string
		principal identity.Principal
		cap       Capability
		want      bool
	}{
		{name: "hr manages kpis", principal: hr, cap: ManageKPIs(), want: true},
		{name: "fallback admin manages kpis", principal: fallback, cap: ManageKPIs(), want: true},
		{name: "fallback admin manages periods", principal: fallback, cap: ManagePeriods(), want: true},
		{name: "admin role is case-insensitive", principal: identity.Principal{Role: "aDmIn"}, cap: ManagePeriods(), want: true},
		{name: "manager cannot manage kpis", principal: manager, cap: ManageKPIs(), want: false},
		{name: "manager scores a direct report", principal: manager, cap: ScoreReview("e5"), want: true},
		{name: "manager cannot score outside team", principal: manager, cap: ScoreReview("e6"), want: false},
		{name: "employee cannot score self", principal: employee, cap: ScoreReview("e5"), want: false},
		{name: "hr without reports cannot score", principal: hr, cap: ScoreReview("e5"), want: false},
		{name: "employee views own reviews", principal: employee, cap: ViewOwnReviews("e5"), want: true},
		{name: "employee cannot view others", principal: employee, cap: ViewOwnReviews("e6"), want: false},
		{name: "fallback has no own reviews", principal: fallback, cap: ViewOwnReviews(""), want: false},
		{name: "manager views team", principal: manager, cap: ViewTeamReviews(), want: true},
		{name: "employee cannot view team", principal: employee, cap: ViewTeamReviews(), want: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := guard.Allow(context.Background(), tc.principal, tc.cap)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestRequireWrapsForbidden(t *testing.T) {
	var denied []Capability
	guard := NewGuard(team())
	guard.OnDeny = func(_ identity.Principal, c Capability) { denied = append(denied, c) }

	err := guard.Require(context.Background(), employee, ManageKPIs())
	require.ErrorIs(t, err, ErrForbidden)
	require.Equal(t, []Capability{ManageKPIs()}, denied)

	require.NoError(t, guard.Require(context.Background(), hr, ManageKPIs()))
}

func TestScoreReviewDirectoryOutage(t *testing.T) {
	dir := team()
	dir.Err = directory.ErrUnavailable
	guard := NewGuard(dir)

	allowed, err := guard.Allow(context.Background(), manager, ScoreReview("e5"))
	require.False(t, allowed)
	require.True(t, errors.Is(err, directory.ErrUnavailable))
}

func TestRequireReviewAccess(t *testing.T) {
	guard := NewGuard(team())
	ctx := context.Background()

	require.NoError(t, guard.RequireReviewAccess(ctx, hr, "e6"))
	require.NoError(t, guard.RequireReviewAccess(ctx, employee, "e5"))
	require.NoError(t, guard.RequireReviewAccess(ctx, manager, "e5"))
	require.NoError(t, guard.RequireReviewAccess(ctx, manager, "mgr"))
	require.ErrorIs(t, guard.RequireReviewAccess(ctx, manager, "e6"), ErrForbidden)
	require.ErrorIs(t, guard.RequireReviewAccess(ctx, employee, "e6"), ErrForbidden)
}

func TestKindString(t *testing.T) {
	require.Equal(t, "ScoreReview(e5)", ScoreReview("e5").String())
	require.Equal(t, "ManageKPIs", ManageKPIs().String())
	require.Equal(t, "Kind(99)", Kind(99).String())
}

func TestRequireAdministrator(t *testing.T) {
	guard := NewGuard(team())
	require.NoError(t, guard.RequireAdministrator(hr))
	require.NoError(t, guard.RequireAdministrator(fallback))
	require.ErrorIs(t, guard.RequireAdministrator(manager), ErrForbidden)
}
