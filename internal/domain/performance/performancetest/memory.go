// Package performancetest provides an in-memory performance.StoreAPI for
// service and handler tests.
package performancetest

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"perfeval/internal/domain/performance"
)

var _ performance.StoreAPI = (*MemoryStore)(nil)

type reviewKey struct {
	employeeID string
	periodID   string
}

// MemoryStore serializes every operation on one mutex, which gives
// SaveReview and TransitionPeriod the same atomicity the Postgres store
// gets from row locks.
type MemoryStore struct {
	mu      sync.Mutex
	kpis    map[string]performance.KPI
	periods map[string]performance.Period
	reviews map[string]performance.Review
	byKey   map[reviewKey]string
	now     func() time.Time
	// Err, when set, is returned from every call.
	Err error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		kpis:    map[string]performance.KPI{},
		periods: map[string]performance.Period{},
		reviews: map[string]performance.Review{},
		byKey:   map[reviewKey]string{},
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (m *MemoryStore) CreateKPI(_ context.Context, kpi performance.KPI) (performance.KPI, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return performance.KPI{}, m.Err
	}
	kpi.ID = uuid.NewString()
	kpi.CreatedAt = m.now()
	kpi.UpdatedAt = kpi.CreatedAt
	m.kpis[kpi.ID] = kpi
	return kpi, nil
}

func (m *MemoryStore) UpdateKPI(_ context.Context, id string, fields performance.KPIFields) (performance.KPI, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return performance.KPI{}, m.Err
	}
	kpi, ok := m.kpis[id]
	if !ok {
		return performance.KPI{}, performance.ErrKPINotFound
	}
	kpi.Title = fields.Title
	kpi.Category = fields.Category
	kpi.Weight = fields.Weight
	kpi.Description = fields.Description
	kpi.DepartmentID = fields.DepartmentID
	kpi.RelatedRole = fields.RelatedRole
	kpi.UpdatedAt = m.now()
	m.kpis[id] = kpi
	return kpi, nil
}

func (m *MemoryStore) SetKPIActive(_ context.Context, id string, active bool) (performance.KPI, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return performance.KPI{}, m.Err
	}
	kpi, ok := m.kpis[id]
	if !ok {
		return performance.KPI{}, performance.ErrKPINotFound
	}
	if kpi.Active != active {
		kpi.Active = active
		kpi.UpdatedAt = m.now()
		m.kpis[id] = kpi
	}
	return kpi, nil
}

func (m *MemoryStore) GetKPI(_ context.Context, id string) (performance.KPI, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return performance.KPI{}, m.Err
	}
	kpi, ok := m.kpis[id]
	if !ok {
		return performance.KPI{}, performance.ErrKPINotFound
	}
	return kpi, nil
}

func (m *MemoryStore) ListKPIs(_ context.Context, filter performance.KPIFilter) ([]performance.KPI, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	search := strings.ToLower(filter.Search)
	var out []performance.KPI
	for _, kpi := range m.kpis {
		if filter.Category != "" && kpi.Category != filter.Category {
			continue
		}
		if filter.Active != nil && kpi.Active != *filter.Active {
			continue
		}
		if filter.DepartmentID != "" && kpi.DepartmentID != "" && kpi.DepartmentID != filter.DepartmentID {
			continue
		}
		if filter.Role != "" && kpi.RelatedRole != "" && !strings.EqualFold(kpi.RelatedRole, filter.Role) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(kpi.Title), search) && !strings.Contains(strings.ToLower(kpi.Description), search) {
			continue
		}
		out = append(out, kpi)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Active != b.Active {
			return a.Active
		}
		if a.Category != b.Category {
			return a.Category < b.Category
		}
		if a.Title != b.Title {
			return a.Title < b.Title
		}
		return a.ID < b.ID
	})
	return out, nil
}

func (m *MemoryStore) CreatePeriod(_ context.Context, period performance.Period) (performance.Period, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return performance.Period{}, m.Err
	}
	period.ID = uuid.NewString()
	period.CreatedAt = m.now()
	period.UpdatedAt = period.CreatedAt
	m.periods[period.ID] = period
	return period, nil
}

func (m *MemoryStore) UpdatePeriod(_ context.Context, id string, fields performance.PeriodFields) (performance.Period, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return performance.Period{}, m.Err
	}
	period, ok := m.periods[id]
	if !ok {
		return performance.Period{}, performance.ErrPeriodNotFound
	}
	period.Name = fields.Name
	period.Type = fields.Type
	period.StartDate = fields.StartDate
	period.EndDate = fields.EndDate
	period.UpdatedAt = m.now()
	m.periods[id] = period
	return period, nil
}

func (m *MemoryStore) TransitionPeriod(_ context.Context, id string, next func(performance.PeriodStatus) (performance.PeriodStatus, error)) (performance.Period, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return performance.Period{}, false, m.Err
	}
	period, ok := m.periods[id]
	if !ok {
		return performance.Period{}, false, performance.ErrPeriodNotFound
	}
	target, err := next(period.Status)
	if err != nil {
		return period, false, err
	}
	if target == period.Status {
		return period, false, nil
	}
	period.Status = target
	period.UpdatedAt = m.now()
	m.periods[id] = period
	return period, true, nil
}

func (m *MemoryStore) GetPeriod(_ context.Context, id string) (performance.Period, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return performance.Period{}, m.Err
	}
	period, ok := m.periods[id]
	if !ok {
		return performance.Period{}, performance.ErrPeriodNotFound
	}
	return period, nil
}

func (m *MemoryStore) ListPeriods(_ context.Context, filter performance.PeriodFilter) ([]performance.Period, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var out []performance.Period
	for _, period := range m.periods {
		if filter.Type != "" && period.Type != filter.Type {
			continue
		}
		if filter.Status != "" && period.Status != filter.Status {
			continue
		}
		out = append(out, period)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartDate.Equal(out[j].StartDate) {
			return out[i].StartDate.After(out[j].StartDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *MemoryStore) SaveReview(_ context.Context, w performance.ReviewWrite, build func(performance.ReviewSnapshot) (performance.Review, error)) (performance.Review, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return performance.Review{}, false, m.Err
	}
	period, ok := m.periods[w.PeriodID]
	if !ok {
		return performance.Review{}, false, performance.ErrPeriodNotFound
	}
	kpis := make(map[string]performance.KPI, len(w.KPIIDs))
	for _, id := range w.KPIIDs {
		if kpi, ok := m.kpis[id]; ok {
			kpis[id] = kpi
		}
	}

	review, err := build(performance.ReviewSnapshot{Period: period, KPIs: kpis})
	if err != nil {
		return performance.Review{}, false, err
	}

	key := reviewKey{employeeID: w.EmployeeID, periodID: w.PeriodID}
	now := m.now()
	review.EmployeeID = w.EmployeeID
	review.PeriodID = w.PeriodID
	review.Items = slices.Clone(review.Items)
	review.UpdatedAt = now

	existingID, exists := m.byKey[key]
	if exists {
		review.ID = existingID
		review.CreatedAt = m.reviews[existingID].CreatedAt
	} else {
		review.ID = uuid.NewString()
		review.CreatedAt = now
		m.byKey[key] = review.ID
	}
	m.reviews[review.ID] = review
	return m.withCatalog(review), !exists, nil
}

func (m *MemoryStore) GetReview(_ context.Context, id string) (performance.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return performance.Review{}, m.Err
	}
	review, ok := m.reviews[id]
	if !ok {
		return performance.Review{}, performance.ErrReviewNotFound
	}
	return m.withCatalog(review), nil
}

func (m *MemoryStore) ListReviews(_ context.Context, filter performance.ReviewFilter) ([]performance.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var out []performance.Review
	for _, review := range m.reviews {
		if filter.EmployeeID != "" && review.EmployeeID != filter.EmployeeID {
			continue
		}
		if filter.ManagerID != "" && review.ManagerID != filter.ManagerID {
			continue
		}
		if filter.PeriodID != "" && review.PeriodID != filter.PeriodID {
			continue
		}
		if filter.EmployeeIDs != nil && !slices.Contains(filter.EmployeeIDs, review.EmployeeID) {
			continue
		}
		out = append(out, m.withCatalog(review))
	}
	sort.Slice(out, func(i, j int) bool {
		si, sj := m.periods[out[i].PeriodID].StartDate, m.periods[out[j].PeriodID].StartDate
		if !si.Equal(sj) {
			return si.After(sj)
		}
		if out[i].EmployeeID != out[j].EmployeeID {
			return out[i].EmployeeID < out[j].EmployeeID
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// withCatalog returns a copy of review whose items carry the current performance.KPI
// title and category next to the stored weight snapshot.
func (m *MemoryStore) withCatalog(review performance.Review) performance.Review {
	items := make([]performance.ReviewItem, len(review.Items))
	for i, item := range review.Items {
		if kpi, ok := m.kpis[item.KPIID]; ok {
			item.KPITitle = kpi.Title
			item.KPICategory = kpi.Category
		}
		item.WeightedScore = performance.WeightedScore(item.Score, item.KPIWeight)
		items[i] = item
	}
	review.Items = items
	return review
}
