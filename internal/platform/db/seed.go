package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

type seedKPI struct {
	Title       string
	Category    string
	Weight      string
	Description string
}

var defaultKPIs = []seedKPI{
	{Title: "Quality of work", Category: "GENERAL", Weight: "2.00", Description: "Accuracy and thoroughness of delivered work."},
	{Title: "Productivity", Category: "GENERAL", Weight: "2.00", Description: "Volume of work completed against agreed goals."},
	{Title: "Collaboration", Category: "GENERAL", Weight: "1.00", Description: "Works effectively with colleagues and other teams."},
	{Title: "Attendance and punctuality", Category: "GENERAL", Weight: "1.00", Description: "Reliability in schedule and commitments."},
}

// Seed inserts the default General KPIs when the catalog is empty. It
// returns the number of KPIs inserted.
func Seed(ctx context.Context, pool *pgxpool.Pool) (int, error) {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(context.WithoutCancel(ctx)) }()

	if _, err := tx.Exec(ctx, "LOCK TABLE kpis IN SHARE ROW EXCLUSIVE MODE"); err != nil {
		return 0, err
	}
	var existing int
	if err := tx.QueryRow(ctx, "SELECT COUNT(1) FROM kpis").Scan(&existing); err != nil {
		return 0, err
	}
	if existing > 0 {
		return 0, nil
	}

	for _, kpi := range defaultKPIs {
		if _, err := tx.Exec(ctx, `
      INSERT INTO kpis (title, category, weight, description)
      VALUES ($1, $2, $3::numeric, $4)
    `, kpi.Title, kpi.Category, kpi.Weight, kpi.Description); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return len(defaultKPIs), nil
}
