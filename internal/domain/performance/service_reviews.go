package performance

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"perfeval/internal/domain/audit"
	"perfeval/internal/domain/authz"
	"perfeval/internal/domain/identity"
)

// SaveReview scores an employee for an active period. A second save for the
// same (employee, period) replaces the items and final comment of the first;
// a failed save leaves any earlier review untouched.
func (s *Service) SaveReview(ctx context.Context, p identity.Principal, in SaveReviewInput) (review Review, err error) {
	in.EmployeeID = strings.TrimSpace(in.EmployeeID)
	in.PeriodID = strings.TrimSpace(in.PeriodID)
	in.FinalComment = strings.TrimSpace(in.FinalComment)

	ctx, end := s.span(ctx, "SaveReview",
		attribute.String("employee.id", in.EmployeeID),
		attribute.String("period.id", in.PeriodID),
		attribute.Int("review.items", len(in.Items)))
	defer end(&err)

	if err := s.check(in, ""); err != nil {
		return Review{}, err
	}
	if err := s.guard.Require(ctx, p, authz.ScoreReview(in.EmployeeID)); err != nil {
		return Review{}, err
	}

	release := s.Locker.Acquire(ctx, "review:"+in.EmployeeID+":"+in.PeriodID)
	defer release()

	kpiIDs := make([]string, 0, len(in.Items))
	for _, item := range in.Items {
		kpiIDs = append(kpiIDs, strings.TrimSpace(item.KPIID))
	}

	review, created, err := s.store.SaveReview(ctx, ReviewWrite{
		EmployeeID: in.EmployeeID,
		PeriodID:   in.PeriodID,
		KPIIDs:     kpiIDs,
	}, func(snap ReviewSnapshot) (Review, error) {
		return s.buildReview(p, in, snap)
	})
	if err != nil {
		return Review{}, err
	}

	s.Metrics.ReviewSaved(created)
	s.record(ctx, p.ID, audit.ActionReviewSave, audit.EntityReview, review.ID, map[string]any{
		"employeeId": review.EmployeeID,
		"periodId":   review.PeriodID,
		"items":      len(review.Items),
		"totalScore": review.TotalScore,
		"created":    created,
	})
	return review, nil
}

func (s *Service) buildReview(p identity.Principal, in SaveReviewInput, snap ReviewSnapshot) (Review, error) {
	if snap.Period.Status != PeriodStatusActive {
		return Review{}, fmt.Errorf("%w: period is %s", ErrPeriodNotOpen, snap.Period.Status)
	}

	seen := make(map[string]struct{}, len(in.Items))
	items := make([]ReviewItem, 0, len(in.Items))
	for i, input := range in.Items {
		input.KPIID = strings.TrimSpace(input.KPIID)
		input.Comment = strings.TrimSpace(input.Comment)
		if err := s.check(input, fmt.Sprintf("items[%d]", i)); err != nil {
			return Review{}, err
		}
		if _, dup := seen[input.KPIID]; dup {
			return Review{}, invalid(itemField(i, "kpiId"), "kpi scored more than once")
		}
		seen[input.KPIID] = struct{}{}

		score, err := itemScore(i, input.Score)
		if err != nil {
			return Review{}, err
		}

		kpi, ok := snap.KPIs[input.KPIID]
		if !ok {
			return Review{}, invalid(itemField(i, "kpiId"), "unknown kpi")
		}
		if !kpi.Active {
			return Review{}, invalid(itemField(i, "kpiId"), "kpi is not active")
		}

		items = append(items, ReviewItem{
			KPIID:         kpi.ID,
			KPITitle:      kpi.Title,
			KPICategory:   kpi.Category,
			KPIWeight:     kpi.Weight,
			Score:         score,
			Comment:       input.Comment,
			WeightedScore: WeightedScore(score, kpi.Weight),
		})
	}

	managerID := p.EmployeeID
	if managerID == "" {
		managerID = p.ID
	}
	return Review{
		EmployeeID:   in.EmployeeID,
		PeriodID:     in.PeriodID,
		ManagerID:    managerID,
		Items:        items,
		FinalComment: in.FinalComment,
		TotalScore:   TotalScore(items),
	}, nil
}

// GetReview applies the same guard as ListReviewsForEmployee, resolved by
// the review's stored employee.
func (s *Service) GetReview(ctx context.Context, p identity.Principal, id string) (review Review, err error) {
	ctx, end := s.span(ctx, "GetReview", attribute.String("review.id", id))
	defer end(&err)

	review, err = s.store.GetReview(ctx, id)
	if err != nil {
		return Review{}, err
	}
	if err := s.guard.RequireReviewAccess(ctx, p, review.EmployeeID); err != nil {
		return Review{}, err
	}
	return review, nil
}

func (s *Service) ListReviewsForEmployee(ctx context.Context, p identity.Principal, employeeID string) (reviews []Review, err error) {
	employeeID = strings.TrimSpace(employeeID)
	ctx, end := s.span(ctx, "ListReviewsForEmployee", attribute.String("employee.id", employeeID))
	defer end(&err)

	if employeeID == "" {
		return nil, invalid("employeeId", "is required")
	}
	if err := s.guard.RequireReviewAccess(ctx, p, employeeID); err != nil {
		return nil, err
	}
	return s.listReviews(ctx, ReviewFilter{EmployeeID: employeeID})
}

// ListTeamReviews lists reviews of the principal's current direct reports.
func (s *Service) ListTeamReviews(ctx context.Context, p identity.Principal, periodID string) (reviews []Review, err error) {
	ctx, end := s.span(ctx, "ListTeamReviews")
	defer end(&err)

	if err := s.guard.Require(ctx, p, authz.ViewTeamReviews()); err != nil {
		return nil, err
	}
	team, err := s.guard.TeamOf(ctx, p)
	if err != nil {
		return nil, err
	}
	if team == nil {
		team = []string{}
	}
	return s.listReviews(ctx, ReviewFilter{EmployeeIDs: team, PeriodID: strings.TrimSpace(periodID)})
}

func (s *Service) ListAllReviews(ctx context.Context, p identity.Principal, filter ReviewFilter) (reviews []Review, err error) {
	ctx, end := s.span(ctx, "ListAllReviews")
	defer end(&err)

	if err := s.guard.RequireAdministrator(p); err != nil {
		return nil, err
	}
	filter.EmployeeIDs = nil
	return s.listReviews(ctx, filter)
}

func (s *Service) listReviews(ctx context.Context, filter ReviewFilter) ([]Review, error) {
	reviews, err := s.store.ListReviews(ctx, filter)
	if err != nil {
		return nil, err
	}
	if reviews == nil {
		reviews = []Review{}
	}
	return reviews, nil
}
