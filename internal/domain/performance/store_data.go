package performance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Store is the Postgres StoreAPI.
type Store struct {
	DB      *pgxpool.Pool
	Timeout time.Duration
}

func NewStore(db *pgxpool.Pool, timeout time.Duration) *Store {
	return &Store{DB: db, Timeout: timeout}
}

const kpiColumns = `id::text, title, category, weight, description, is_active,
    COALESCE(department_id::text, ''), COALESCE(related_role, ''), created_at, updated_at`

const periodColumns = `id::text, name, period_type, start_date, end_date, status, created_at, updated_at`

func scanKPI(row pgx.Row) (KPI, error) {
	var kpi KPI
	err := row.Scan(&kpi.ID, &kpi.Title, &kpi.Category, &kpi.Weight, &kpi.Description, &kpi.Active,
		&kpi.DepartmentID, &kpi.RelatedRole, &kpi.CreatedAt, &kpi.UpdatedAt)
	return kpi, err
}

func scanPeriod(row pgx.Row) (Period, error) {
	var period Period
	err := row.Scan(&period.ID, &period.Name, &period.Type, &period.StartDate, &period.EndDate, &period.Status,
		&period.CreatedAt, &period.UpdatedAt)
	return period, err
}

func (s *Store) CreateKPI(ctx context.Context, kpi KPI) (KPI, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	created, err := scanKPI(s.DB.QueryRow(ctx, `
    INSERT INTO kpis (title, category, weight, description, is_active, department_id, related_role)
    VALUES ($1,$2,$3,$4,$5,$6,$7)
    RETURNING `+kpiColumns,
		kpi.Title, kpi.Category, kpi.Weight, kpi.Description, kpi.Active, nullableID(kpi.DepartmentID), nullable(kpi.RelatedRole)))
	if err != nil {
		return KPI{}, classify(err, ErrKPINotFound)
	}
	return created, nil
}

func (s *Store) UpdateKPI(ctx context.Context, id string, fields KPIFields) (KPI, error) {
	kpiID, ok := parseID(id)
	if !ok {
		return KPI{}, ErrKPINotFound
	}
	ctx, cancel := s.bound(ctx)
	defer cancel()

	updated, err := scanKPI(s.DB.QueryRow(ctx, `
    UPDATE kpis
    SET title = $1, category = $2, weight = $3, description = $4, department_id = $5, related_role = $6, updated_at = now()
    WHERE id = $7
    RETURNING `+kpiColumns,
		fields.Title, fields.Category, fields.Weight, fields.Description, nullableID(fields.DepartmentID), nullable(fields.RelatedRole), kpiID))
	if err != nil {
		return KPI{}, classify(err, ErrKPINotFound)
	}
	return updated, nil
}

func (s *Store) SetKPIActive(ctx context.Context, id string, active bool) (KPI, error) {
	kpiID, ok := parseID(id)
	if !ok {
		return KPI{}, ErrKPINotFound
	}
	ctx, cancel := s.bound(ctx)
	defer cancel()

	updated, err := scanKPI(s.DB.QueryRow(ctx, `
    UPDATE kpis
    SET is_active = $1, updated_at = CASE WHEN is_active = $1 THEN updated_at ELSE now() END
    WHERE id = $2
    RETURNING `+kpiColumns, active, kpiID))
	if err != nil {
		return KPI{}, classify(err, ErrKPINotFound)
	}
	return updated, nil
}

func (s *Store) GetKPI(ctx context.Context, id string) (KPI, error) {
	kpiID, ok := parseID(id)
	if !ok {
		return KPI{}, ErrKPINotFound
	}
	ctx, cancel := s.bound(ctx)
	defer cancel()

	kpi, err := scanKPI(s.DB.QueryRow(ctx, "SELECT "+kpiColumns+" FROM kpis WHERE id = $1", kpiID))
	if err != nil {
		return KPI{}, classify(err, ErrKPINotFound)
	}
	return kpi, nil
}

func (s *Store) ListKPIs(ctx context.Context, filter KPIFilter) ([]KPI, error) {
	query := "SELECT " + kpiColumns + " FROM kpis WHERE 1=1"
	var args []any
	if filter.Category != "" {
		args = append(args, filter.Category)
		query += fmt.Sprintf(" AND category = $%d", len(args))
	}
	if filter.Active != nil {
		args = append(args, *filter.Active)
		query += fmt.Sprintf(" AND is_active = $%d", len(args))
	}
	if filter.DepartmentID != "" {
		deptID, ok := parseID(filter.DepartmentID)
		if !ok {
			query += " AND department_id IS NULL"
		} else {
			args = append(args, deptID)
			query += fmt.Sprintf(" AND (department_id = $%d OR department_id IS NULL)", len(args))
		}
	}
	if filter.Role != "" {
		args = append(args, filter.Role)
		query += fmt.Sprintf(" AND (lower(related_role) = lower($%d) OR COALESCE(related_role, '') = '')", len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		query += fmt.Sprintf(" AND (title ILIKE $%d OR description ILIKE $%d)", len(args), len(args))
	}
	query += " ORDER BY is_active DESC, category, title, id"

	ctx, cancel := s.bound(ctx)
	defer cancel()

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, classify(err, ErrKPINotFound)
	}
	defer rows.Close()

	var kpis []KPI
	for rows.Next() {
		kpi, err := scanKPI(rows)
		if err != nil {
			return nil, classify(err, ErrKPINotFound)
		}
		kpis = append(kpis, kpi)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err, ErrKPINotFound)
	}
	return kpis, nil
}

func (s *Store) CreatePeriod(ctx context.Context, period Period) (Period, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	created, err := scanPeriod(s.DB.QueryRow(ctx, `
    INSERT INTO evaluation_periods (name, period_type, start_date, end_date, status)
    VALUES ($1,$2,$3,$4,$5)
    RETURNING `+periodColumns,
		period.Name, period.Type, period.StartDate, period.EndDate, period.Status))
	if err != nil {
		return Period{}, classify(err, ErrPeriodNotFound)
	}
	return created, nil
}

func (s *Store) UpdatePeriod(ctx context.Context, id string, fields PeriodFields) (Period, error) {
	periodID, ok := parseID(id)
	if !ok {
		return Period{}, ErrPeriodNotFound
	}
	ctx, cancel := s.bound(ctx)
	defer cancel()

	updated, err := scanPeriod(s.DB.QueryRow(ctx, `
    UPDATE evaluation_periods
    SET name = $1, period_type = $2, start_date = $3, end_date = $4, updated_at = now()
    WHERE id = $5
    RETURNING `+periodColumns,
		fields.Name, fields.Type, fields.StartDate, fields.EndDate, periodID))
	if err != nil {
		return Period{}, classify(err, ErrPeriodNotFound)
	}
	return updated, nil
}

func (s *Store) TransitionPeriod(ctx context.Context, id string, next func(PeriodStatus) (PeriodStatus, error)) (Period, bool, error) {
	periodID, ok := parseID(id)
	if !ok {
		return Period{}, false, ErrPeriodNotFound
	}
	ctx, cancel := s.bound(ctx)
	defer cancel()

	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return Period{}, false, classify(err, ErrPeriodNotFound)
	}
	defer func() { _ = tx.Rollback(context.WithoutCancel(ctx)) }()

	current, err := scanPeriod(tx.QueryRow(ctx, "SELECT "+periodColumns+" FROM evaluation_periods WHERE id = $1 FOR UPDATE", periodID))
	if err != nil {
		return Period{}, false, classify(err, ErrPeriodNotFound)
	}
	target, err := next(current.Status)
	if err != nil {
		return current, false, err
	}
	if target == current.Status {
		return current, false, nil
	}

	updated, err := scanPeriod(tx.QueryRow(ctx, `
    UPDATE evaluation_periods SET status = $1, updated_at = now()
    WHERE id = $2
    RETURNING `+periodColumns, target, periodID))
	if err != nil {
		return Period{}, false, classify(err, ErrPeriodNotFound)
	}
	if err := tx.Commit(ctx); err != nil {
		return Period{}, false, classify(err, ErrPeriodNotFound)
	}
	return updated, true, nil
}

func (s *Store) GetPeriod(ctx context.Context, id string) (Period, error) {
	periodID, ok := parseID(id)
	if !ok {
		return Period{}, ErrPeriodNotFound
	}
	ctx, cancel := s.bound(ctx)
	defer cancel()

	period, err := scanPeriod(s.DB.QueryRow(ctx, "SELECT "+periodColumns+" FROM evaluation_periods WHERE id = $1", periodID))
	if err != nil {
		return Period{}, classify(err, ErrPeriodNotFound)
	}
	return period, nil
}

func (s *Store) ListPeriods(ctx context.Context, filter PeriodFilter) ([]Period, error) {
	query := "SELECT " + periodColumns + " FROM evaluation_periods WHERE 1=1"
	var args []any
	if filter.Type != "" {
		args = append(args, filter.Type)
		query += fmt.Sprintf(" AND period_type = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	query += " ORDER BY start_date DESC, id"

	ctx, cancel := s.bound(ctx)
	defer cancel()

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, classify(err, ErrPeriodNotFound)
	}
	defer rows.Close()

	var periods []Period
	for rows.Next() {
		period, err := scanPeriod(rows)
		if err != nil {
			return nil, classify(err, ErrPeriodNotFound)
		}
		periods = append(periods, period)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err, ErrPeriodNotFound)
	}
	return periods, nil
}

// SaveReview holds the period row FOR SHARE for the whole transaction, so a
// concurrent close either waits for this save to commit or is observed here
// as CLOSED. Saves of the same pair serialize on the review row lock taken
// by the upsert; the later writer replaces the earlier writer's items.
func (s *Store) SaveReview(ctx context.Context, w ReviewWrite, build func(ReviewSnapshot) (Review, error)) (Review, bool, error) {
	periodID, ok := parseID(w.PeriodID)
	if !ok {
		return Review{}, false, ErrPeriodNotFound
	}
	ctx, cancel := s.bound(ctx)
	defer cancel()

	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return Review{}, false, classify(err, ErrReviewNotFound)
	}
	defer func() { _ = tx.Rollback(context.WithoutCancel(ctx)) }()

	period, err := scanPeriod(tx.QueryRow(ctx, "SELECT "+periodColumns+" FROM evaluation_periods WHERE id = $1 FOR SHARE", periodID))
	if err != nil {
		return Review{}, false, classify(err, ErrPeriodNotFound)
	}

	kpis, err := lockKPIs(ctx, tx, w.KPIIDs)
	if err != nil {
		return Review{}, false, err
	}

	review, err := build(ReviewSnapshot{Period: period, KPIs: kpis})
	if err != nil {
		return Review{}, false, err
	}

	total := decimal.NullDecimal{}
	if review.TotalScore != nil {
		total = decimal.NullDecimal{Decimal: *review.TotalScore, Valid: true}
	}
	var created bool
	err = tx.QueryRow(ctx, `
    INSERT INTO performance_reviews (employee_id, period_id, manager_id, final_comment, total_score)
    VALUES ($1,$2,$3,$4,$5)
    ON CONFLICT (employee_id, period_id) DO UPDATE
    SET manager_id = EXCLUDED.manager_id,
        final_comment = EXCLUDED.final_comment,
        total_score = EXCLUDED.total_score,
        updated_at = now()
    RETURNING id::text, created_at, updated_at, (xmax = 0)
  `, w.EmployeeID, periodID, review.ManagerID, review.FinalComment, total).Scan(&review.ID, &review.CreatedAt, &review.UpdatedAt, &created)
	if err != nil {
		return Review{}, false, classify(err, ErrReviewNotFound)
	}

	if _, err := tx.Exec(ctx, "DELETE FROM performance_review_items WHERE review_id = $1", review.ID); err != nil {
		return Review{}, false, classify(err, ErrReviewNotFound)
	}

	if len(review.Items) > 0 {
		batch := &pgx.Batch{}
		for i, item := range review.Items {
			batch.Queue(`
        INSERT INTO performance_review_items (review_id, position, kpi_id, kpi_weight, score, comment)
        VALUES ($1,$2,$3,$4,$5,$6)
      `, review.ID, i, item.KPIID, item.KPIWeight, item.Score, item.Comment)
		}
		results := tx.SendBatch(ctx, batch)
		for range review.Items {
			if _, err := results.Exec(); err != nil {
				_ = results.Close()
				return Review{}, false, classify(err, ErrReviewNotFound)
			}
		}
		if err := results.Close(); err != nil {
			return Review{}, false, classify(err, ErrReviewNotFound)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Review{}, false, classify(err, ErrReviewNotFound)
	}
	return review, created, nil
}

func lockKPIs(ctx context.Context, tx pgx.Tx, ids []string) (map[string]KPI, error) {
	kpis := make(map[string]KPI, len(ids))
	parsed := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if kpiID, ok := parseID(id); ok {
			parsed = append(parsed, kpiID)
		}
	}
	if len(parsed) == 0 {
		return kpis, nil
	}

	rows, err := tx.Query(ctx, "SELECT "+kpiColumns+" FROM kpis WHERE id = ANY($1) ORDER BY id FOR SHARE", parsed)
	if err != nil {
		return nil, classify(err, ErrKPINotFound)
	}
	defer rows.Close()
	for rows.Next() {
		kpi, err := scanKPI(rows)
		if err != nil {
			return nil, classify(err, ErrKPINotFound)
		}
		kpis[kpi.ID] = kpi
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err, ErrKPINotFound)
	}
	return kpis, nil
}

const reviewColumns = `r.id::text, r.employee_id, r.period_id::text, r.manager_id, r.final_comment, r.total_score, r.created_at, r.updated_at`

func scanReview(row pgx.Row) (Review, error) {
	var review Review
	var total decimal.NullDecimal
	err := row.Scan(&review.ID, &review.EmployeeID, &review.PeriodID, &review.ManagerID, &review.FinalComment, &total,
		&review.CreatedAt, &review.UpdatedAt)
	if total.Valid {
		review.TotalScore = &total.Decimal
	}
	return review, err
}

func (s *Store) GetReview(ctx context.Context, id string) (Review, error) {
	reviewID, ok := parseID(id)
	if !ok {
		return Review{}, ErrReviewNotFound
	}
	ctx, cancel := s.bound(ctx)
	defer cancel()

	review, err := scanReview(s.DB.QueryRow(ctx, "SELECT "+reviewColumns+" FROM performance_reviews r WHERE r.id = $1", reviewID))
	if err != nil {
		return Review{}, classify(err, ErrReviewNotFound)
	}
	reviews := []Review{review}
	if err := s.attachItems(ctx, reviews); err != nil {
		return Review{}, err
	}
	return reviews[0], nil
}

func (s *Store) ListReviews(ctx context.Context, filter ReviewFilter) ([]Review, error) {
	query := "SELECT " + reviewColumns + " FROM performance_reviews r JOIN evaluation_periods p ON p.id = r.period_id WHERE 1=1"
	var args []any
	if filter.EmployeeID != "" {
		args = append(args, filter.EmployeeID)
		query += fmt.Sprintf(" AND r.employee_id = $%d", len(args))
	}
	if filter.ManagerID != "" {
		args = append(args, filter.ManagerID)
		query += fmt.Sprintf(" AND r.manager_id = $%d", len(args))
	}
	if filter.PeriodID != "" {
		periodID, ok := parseID(filter.PeriodID)
		if !ok {
			return nil, nil
		}
		args = append(args, periodID)
		query += fmt.Sprintf(" AND r.period_id = $%d", len(args))
	}
	if filter.EmployeeIDs != nil {
		if len(filter.EmployeeIDs) == 0 {
			return nil, nil
		}
		args = append(args, filter.EmployeeIDs)
		query += fmt.Sprintf(" AND r.employee_id = ANY($%d)", len(args))
	}
	query += " ORDER BY p.start_date DESC, r.employee_id, r.id"

	ctx, cancel := s.bound(ctx)
	defer cancel()

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, classify(err, ErrReviewNotFound)
	}
	var reviews []Review
	for rows.Next() {
		review, err := scanReview(rows)
		if err != nil {
			rows.Close()
			return nil, classify(err, ErrReviewNotFound)
		}
		reviews = append(reviews, review)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, classify(err, ErrReviewNotFound)
	}

	if err := s.attachItems(ctx, reviews); err != nil {
		return nil, err
	}
	return reviews, nil
}

func (s *Store) attachItems(ctx context.Context, reviews []Review) error {
	if len(reviews) == 0 {
		return nil
	}
	index := make(map[string]int, len(reviews))
	ids := make([]uuid.UUID, 0, len(reviews))
	for i, review := range reviews {
		index[review.ID] = i
		if reviewID, ok := parseID(review.ID); ok {
			ids = append(ids, reviewID)
		}
		reviews[i].Items = []ReviewItem{}
	}

	rows, err := s.DB.Query(ctx, `
    SELECT i.review_id::text, i.kpi_id::text, k.title, k.category, i.kpi_weight, i.score, i.comment
    FROM performance_review_items i
    JOIN kpis k ON k.id = i.kpi_id
    WHERE i.review_id = ANY($1)
    ORDER BY i.review_id, i.position
  `, ids)
	if err != nil {
		return classify(err, ErrReviewNotFound)
	}
	defer rows.Close()

	for rows.Next() {
		var reviewID string
		var item ReviewItem
		if err := rows.Scan(&reviewID, &item.KPIID, &item.KPITitle, &item.KPICategory, &item.KPIWeight, &item.Score, &item.Comment); err != nil {
			return classify(err, ErrReviewNotFound)
		}
		item.WeightedScore = WeightedScore(item.Score, item.KPIWeight)
		i := index[reviewID]
		reviews[i].Items = append(reviews[i].Items, item)
	}
	if err := rows.Err(); err != nil {
		return classify(err, ErrReviewNotFound)
	}
	return nil
}

func (s *Store) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.Timeout)
}

func parseID(id string) (uuid.UUID, bool) {
	parsed, err := uuid.Parse(id)
	return parsed, err == nil
}

func nullableID(id string) any {
	if parsed, ok := parseID(id); ok {
		return parsed
	}
	return nil
}

func nullable(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func classify(err error, notFound error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return notFound
	}
	var connectErr *pgconn.ConnectError
	if errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err) || errors.As(err, &connectErr) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01", "23505":
			return fmt.Errorf("%w: %s", ErrConflict, pgErr.Message)
		case "57014", "55P03", "53300":
			return fmt.Errorf("%w: %s", ErrUnavailable, pgErr.Message)
		case "23503":
			return invalid("departmentId", "unknown department")
		}
	}
	return err
}
