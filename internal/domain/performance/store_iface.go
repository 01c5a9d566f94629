package performance

import "context"

// StoreAPI is the transactional repository behind the catalog, the period
// lifecycle and the review engine.
type StoreAPI interface {
	CreateKPI(ctx context.Context, kpi KPI) (KPI, error)
	UpdateKPI(ctx context.Context, id string, fields KPIFields) (KPI, error)
	SetKPIActive(ctx context.Context, id string, active bool) (KPI, error)
	GetKPI(ctx context.Context, id string) (KPI, error)
	// ListKPIs orders active KPIs first, then by category, title and id.
	ListKPIs(ctx context.Context, filter KPIFilter) ([]KPI, error)

	CreatePeriod(ctx context.Context, period Period) (Period, error)
	UpdatePeriod(ctx context.Context, id string, fields PeriodFields) (Period, error)
	// TransitionPeriod locks the period, asks next for the target status
	// and stores it. changed is false when the status was already the
	// target.
	TransitionPeriod(ctx context.Context, id string, next func(current PeriodStatus) (PeriodStatus, error)) (period Period, changed bool, err error)
	GetPeriod(ctx context.Context, id string) (Period, error)
	// ListPeriods orders by start date descending, then id.
	ListPeriods(ctx context.Context, filter PeriodFilter) ([]Period, error)

	// SaveReview reads the snapshot for w, calls build and upserts the
	// result by (employee, period), replacing all items. The read, build
	// and write happen atomically; if build fails nothing is written.
	SaveReview(ctx context.Context, w ReviewWrite, build func(ReviewSnapshot) (Review, error)) (review Review, created bool, err error)
	GetReview(ctx context.Context, id string) (Review, error)
	// ListReviews orders by period start descending, then employee and id.
	ListReviews(ctx context.Context, filter ReviewFilter) ([]Review, error)
}
