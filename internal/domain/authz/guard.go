// Package authz decides whether a resolved principal may exercise a
// performance capability. Every decision is derived from the principal and a
// fresh directory read; the guard keeps no state between calls.
package authz

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"perfeval/internal/domain/identity"
)

var ErrForbidden = errors.New("forbidden")

type Kind int

const (
	KindManageKPIs Kind = iota + 1
	KindManagePeriods
	KindScoreReview
	KindViewOwnReviews
	KindViewTeamReviews
)

func (k Kind) String() string {
	switch k {
	case KindManageKPIs:
		return "ManageKPIs"
	case KindManagePeriods:
		return "ManagePeriods"
	case KindScoreReview:
		return "ScoreReview"
	case KindViewOwnReviews:
		return "ViewOwnReviews"
	case KindViewTeamReviews:
		return "ViewTeamReviews"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Capability is a requested action plus its target employee, when the
// action has one.
type Capability struct {
	Kind       Kind
	EmployeeID string
}

func (c Capability) String() string {
	if c.EmployeeID == "" {
		return c.Kind.String()
	}
	return c.Kind.String() + "(" + c.EmployeeID + ")"
}

func ManageKPIs() Capability    { return Capability{Kind: KindManageKPIs} }
func ManagePeriods() Capability { return Capability{Kind: KindManagePeriods} }
func ViewTeamReviews() Capability {
	return Capability{Kind: KindViewTeamReviews}
}

func ScoreReview(employeeID string) Capability {
	return Capability{Kind: KindScoreReview, EmployeeID: employeeID}
}

func ViewOwnReviews(employeeID string) Capability {
	return Capability{Kind: KindViewOwnReviews, EmployeeID: employeeID}
}

type TeamLister interface {
	GetTeamMembers(ctx context.Context, managerID string) ([]string, error)
}

type Guard struct {
	Team TeamLister
	// OnDeny, when set, observes every denied decision.
	OnDeny func(p identity.Principal, c Capability)
}

func NewGuard(team TeamLister) *Guard {
	return &Guard{Team: team}
}

// Allow decides c for p. An error means the decision could not be made (the
// directory read failed); it is never a partial allow.
func (g *Guard) Allow(ctx context.Context, p identity.Principal, c Capability) (bool, error) {
	allowed, err := g.decide(ctx, p, c)
	if err != nil {
		return false, err
	}
	if !allowed && g.OnDeny != nil {
		g.OnDeny(p, c)
	}
	return allowed, nil
}

func (g *Guard) decide(ctx context.Context, p identity.Principal, c Capability) (bool, error) {
	switch c.Kind {
	case KindManageKPIs, KindManagePeriods:
		return p.IsAdministrator(), nil
	case KindScoreReview:
		if !p.IsManager || c.EmployeeID == "" {
			return false, nil
		}
		return g.inTeam(ctx, p, c.EmployeeID)
	case KindViewOwnReviews:
		return p.EmployeeID != "" && c.EmployeeID == p.EmployeeID, nil
	case KindViewTeamReviews:
		return p.IsManager, nil
	}
	return false, nil
}

// Require is Allow that reports a denial as ErrForbidden.
func (g *Guard) Require(ctx context.Context, p identity.Principal, c Capability) error {
	allowed, err := g.Allow(ctx, p, c)
	if err != nil {
		return err
	}
	if !allowed {
		return fmt.Errorf("%w: %s", ErrForbidden, c)
	}
	return nil
}

// RequireAdministrator admits Admin and HR only; it gates organisation-wide
// listings that have no narrower capability.
func (g *Guard) RequireAdministrator(p identity.Principal) error {
	if p.IsAdministrator() {
		return nil
	}
	if g.OnDeny != nil {
		g.OnDeny(p, ManageKPIs())
	}
	return fmt.Errorf("%w: administrator role required", ErrForbidden)
}

// RequireReviewAccess gates reads of employeeID's reviews: Admin/HR always,
// the employee themself, or a manager whose direct reports include them.
func (g *Guard) RequireReviewAccess(ctx context.Context, p identity.Principal, employeeID string) error {
	if p.IsAdministrator() {
		return nil
	}
	if own, _ := g.decide(ctx, p, ViewOwnReviews(employeeID)); own {
		return nil
	}
	if p.IsManager && p.EmployeeID != "" {
		member, err := g.inTeam(ctx, p, employeeID)
		if err != nil {
			return err
		}
		if member {
			return nil
		}
	}
	if g.OnDeny != nil {
		g.OnDeny(p, ViewTeamReviews())
	}
	return fmt.Errorf("%w: reviews of %s", ErrForbidden, employeeID)
}

// TeamOf returns the principal's current direct reports.
func (g *Guard) TeamOf(ctx context.Context, p identity.Principal) ([]string, error) {
	if p.EmployeeID == "" {
		return nil, nil
	}
	return g.Team.GetTeamMembers(ctx, p.EmployeeID)
}

func (g *Guard) inTeam(ctx context.Context, p identity.Principal, employeeID string) (bool, error) {
	if p.EmployeeID == "" {
		return false, nil
	}
	members, err := g.Team.GetTeamMembers(ctx, p.EmployeeID)
	if err != nil {
		return false, err
	}
	return slices.Contains(members, employeeID), nil
}
