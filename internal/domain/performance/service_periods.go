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

// activateFrom moves Draft or Active to Active; Closed is terminal.
func activateFrom(current PeriodStatus) (PeriodStatus, error) {
	switch current {
	case PeriodStatusDraft, PeriodStatusActive:
		return PeriodStatusActive, nil
	}
	return current, fmt.Errorf("%w: cannot activate a %s period", ErrInvalidTransition, current)
}

func closeFrom(current PeriodStatus) (PeriodStatus, error) {
	switch current {
	case PeriodStatusDraft, PeriodStatusActive, PeriodStatusClosed:
		return PeriodStatusClosed, nil
	}
	return current, fmt.Errorf("%w: cannot close a %s period", ErrInvalidTransition, current)
}

func (s *Service) CreatePeriod(ctx context.Context, p identity.Principal, fields PeriodFields) (period Period, err error) {
	ctx, end := s.span(ctx, "CreatePeriod")
	defer end(&err)

	if err := s.guard.Require(ctx, p, authz.ManagePeriods()); err != nil {
		return Period{}, err
	}
	fields, err = s.normalizePeriod(fields)
	if err != nil {
		return Period{}, err
	}

	period, err = s.store.CreatePeriod(ctx, Period{
		Name:      fields.Name,
		Type:      fields.Type,
		StartDate: fields.StartDate,
		EndDate:   fields.EndDate,
		Status:    PeriodStatusDraft,
	})
	if err != nil {
		return Period{}, err
	}
	s.record(ctx, p.ID, audit.ActionPeriodCreate, audit.EntityEvaluationPeriod, period.ID, period)
	return period, nil
}

// EditPeriod updates metadata in any status. It never changes the status,
// so editing a closed period does not reopen scoring.
func (s *Service) EditPeriod(ctx context.Context, p identity.Principal, id string, fields PeriodFields) (period Period, err error) {
	ctx, end := s.span(ctx, "EditPeriod", attribute.String("period.id", id))
	defer end(&err)

	if err := s.guard.Require(ctx, p, authz.ManagePeriods()); err != nil {
		return Period{}, err
	}
	fields, err = s.normalizePeriod(fields)
	if err != nil {
		return Period{}, err
	}

	period, err = s.store.UpdatePeriod(ctx, id, fields)
	if err != nil {
		return Period{}, err
	}
	s.record(ctx, p.ID, audit.ActionPeriodEdit, audit.EntityEvaluationPeriod, period.ID, period)
	return period, nil
}

func (s *Service) ActivatePeriod(ctx context.Context, p identity.Principal, id string) (Period, error) {
	return s.transition(ctx, p, id, "ActivatePeriod", audit.ActionPeriodActivate, activateFrom)
}

func (s *Service) ClosePeriod(ctx context.Context, p identity.Principal, id string) (Period, error) {
	return s.transition(ctx, p, id, "ClosePeriod", audit.ActionPeriodClose, closeFrom)
}

func (s *Service) transition(ctx context.Context, p identity.Principal, id, name, action string, next func(PeriodStatus) (PeriodStatus, error)) (period Period, err error) {
	ctx, end := s.span(ctx, name, attribute.String("period.id", id))
	defer end(&err)

	if err := s.guard.Require(ctx, p, authz.ManagePeriods()); err != nil {
		return Period{}, err
	}
	period, changed, err := s.store.TransitionPeriod(ctx, id, next)
	if err != nil {
		return Period{}, err
	}
	if changed {
		s.record(ctx, p.ID, action, audit.EntityEvaluationPeriod, period.ID, map[string]any{"status": period.Status})
		s.Log.Info().Str("periodId", period.ID).Str("status", string(period.Status)).Str("actor", p.ID).Msg("evaluation period transitioned")
	}
	return period, nil
}

// GetPeriod hides non-active periods from principals outside Admin/HR.
func (s *Service) GetPeriod(ctx context.Context, p identity.Principal, id string) (Period, error) {
	period, err := s.store.GetPeriod(ctx, id)
	if err != nil {
		return Period{}, err
	}
	if period.Status != PeriodStatusActive && !p.IsAdministrator() {
		return Period{}, ErrPeriodNotFound
	}
	return period, nil
}

func (s *Service) ListPeriods(ctx context.Context, p identity.Principal, filter PeriodFilter) (periods []Period, err error) {
	ctx, end := s.span(ctx, "ListPeriods")
	defer end(&err)

	if !p.IsAdministrator() {
		if filter.Status != "" && filter.Status != PeriodStatusActive {
			return []Period{}, nil
		}
		filter.Status = PeriodStatusActive
	}
	periods, err = s.store.ListPeriods(ctx, filter)
	if err != nil {
		return nil, err
	}
	if periods == nil {
		periods = []Period{}
	}
	return periods, nil
}

func (s *Service) normalizePeriod(fields PeriodFields) (PeriodFields, error) {
	fields.Name = strings.TrimSpace(fields.Name)
	fields.Type = PeriodType(strings.ToUpper(strings.TrimSpace(string(fields.Type))))
	if fields.Type == "" {
		fields.Type = PeriodTypeMonthly
	}
	if err := s.check(fields, ""); err != nil {
		return PeriodFields{}, err
	}
	if fields.StartDate.After(fields.EndDate) {
		return PeriodFields{}, invalid("endDate", "must not be before startDate")
	}
	return fields, nil
}
