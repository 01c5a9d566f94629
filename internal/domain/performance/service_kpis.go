package performance

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"perfeval/internal/domain/audit"
	"perfeval/internal/domain/authz"
	"perfeval/internal/domain/directory"
	"perfeval/internal/domain/identity"
)

func (s *Service) CreateKPI(ctx context.Context, p identity.Principal, fields KPIFields) (kpi KPI, err error) {
	ctx, end := s.span(ctx, "CreateKPI")
	defer end(&err)

	if err := s.guard.Require(ctx, p, authz.ManageKPIs()); err != nil {
		return KPI{}, err
	}
	fields, err = s.normalizeKPI(ctx, fields)
	if err != nil {
		return KPI{}, err
	}

	kpi, err = s.store.CreateKPI(ctx, KPI{
		Title:        fields.Title,
		Category:     fields.Category,
		Weight:       fields.Weight,
		Description:  fields.Description,
		Active:       true,
		DepartmentID: fields.DepartmentID,
		RelatedRole:  fields.RelatedRole,
	})
	if err != nil {
		return KPI{}, err
	}
	s.record(ctx, p.ID, audit.ActionKPICreate, audit.EntityKPI, kpi.ID, kpi)
	return kpi, nil
}

func (s *Service) UpdateKPI(ctx context.Context, p identity.Principal, id string, fields KPIFields) (kpi KPI, err error) {
	ctx, end := s.span(ctx, "UpdateKPI", attribute.String("kpi.id", id))
	defer end(&err)

	if err := s.guard.Require(ctx, p, authz.ManageKPIs()); err != nil {
		return KPI{}, err
	}
	fields, err = s.normalizeKPI(ctx, fields)
	if err != nil {
		return KPI{}, err
	}

	kpi, err = s.store.UpdateKPI(ctx, id, fields)
	if err != nil {
		return KPI{}, err
	}
	s.record(ctx, p.ID, audit.ActionKPIUpdate, audit.EntityKPI, kpi.ID, kpi)
	return kpi, nil
}

// SetKPIActive toggles the soft flag. Reviews keep referencing inactive KPIs.
func (s *Service) SetKPIActive(ctx context.Context, p identity.Principal, id string, active bool) (kpi KPI, err error) {
	ctx, end := s.span(ctx, "SetKPIActive", attribute.String("kpi.id", id), attribute.Bool("kpi.active", active))
	defer end(&err)

	if err := s.guard.Require(ctx, p, authz.ManageKPIs()); err != nil {
		return KPI{}, err
	}
	kpi, err = s.store.SetKPIActive(ctx, id, active)
	if err != nil {
		return KPI{}, err
	}
	s.record(ctx, p.ID, audit.ActionKPISetActive, audit.EntityKPI, kpi.ID, map[string]any{"isActive": kpi.Active})
	return kpi, nil
}

// ListActiveKPIs is open to any authenticated principal.
func (s *Service) ListActiveKPIs(ctx context.Context, filter KPIFilter) ([]KPI, error) {
	active := true
	filter.Active = &active
	return s.listKPIs(ctx, filter)
}

// ListKPIs returns the full catalog to Admin/HR and the active catalog to
// everyone else.
func (s *Service) ListKPIs(ctx context.Context, p identity.Principal, filter KPIFilter) ([]KPI, error) {
	if !p.IsAdministrator() {
		return s.ListActiveKPIs(ctx, filter)
	}
	return s.listKPIs(ctx, filter)
}

func (s *Service) listKPIs(ctx context.Context, filter KPIFilter) (kpis []KPI, err error) {
	ctx, end := s.span(ctx, "ListKPIs")
	defer end(&err)

	filter.Search = strings.TrimSpace(filter.Search)
	filter.Role = strings.TrimSpace(filter.Role)
	kpis, err = s.store.ListKPIs(ctx, filter)
	if err != nil {
		return nil, err
	}
	if kpis == nil {
		kpis = []KPI{}
	}
	return kpis, nil
}

func (s *Service) GetKPI(ctx context.Context, p identity.Principal, id string) (KPI, error) {
	kpi, err := s.store.GetKPI(ctx, id)
	if err != nil {
		return KPI{}, err
	}
	if !kpi.Active && !p.IsAdministrator() {
		return KPI{}, ErrKPINotFound
	}
	return kpi, nil
}

func (s *Service) ListDepartments(ctx context.Context) ([]directory.Department, error) {
	if s.Departments == nil {
		return []directory.Department{}, nil
	}
	departments, err := s.Departments.ListDepartments(ctx)
	if err != nil {
		return nil, err
	}
	if departments == nil {
		departments = []directory.Department{}
	}
	return departments, nil
}

func (s *Service) normalizeKPI(ctx context.Context, fields KPIFields) (KPIFields, error) {
	fields.Title = strings.TrimSpace(fields.Title)
	fields.Description = strings.TrimSpace(fields.Description)
	fields.DepartmentID = strings.TrimSpace(fields.DepartmentID)
	fields.RelatedRole = strings.TrimSpace(fields.RelatedRole)
	fields.Category = Category(strings.ToUpper(strings.TrimSpace(string(fields.Category))))
	if fields.Category == "" {
		fields.Category = CategoryGeneral
	}

	if err := s.check(fields, ""); err != nil {
		return KPIFields{}, err
	}
	if err := validWeight(fields.Weight); err != nil {
		return KPIFields{}, err
	}
	if fields.DepartmentID != "" && s.Departments != nil {
		departments, err := s.Departments.ListDepartments(ctx)
		if err != nil {
			return KPIFields{}, err
		}
		known := false
		for _, dept := range departments {
			if dept.ID == fields.DepartmentID {
				known = true
				break
			}
		}
		if !known {
			return KPIFields{}, invalid("departmentId", "unknown department")
		}
	}
	return fields, nil
}
