package directory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	DB      *pgxpool.Pool
	Timeout time.Duration
}

func NewStore(db *pgxpool.Pool, timeout time.Duration) *Store {
	return &Store{DB: db, Timeout: timeout}
}

func (s *Store) GetEmployeeProfile(ctx context.Context, principalID string) (Profile, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	var profile Profile
	err := s.DB.QueryRow(ctx, `
    SELECT e.id::text, e.user_id, e.role, COALESCE(e.department_id::text, ''),
           (SELECT COUNT(1) FROM employees r WHERE r.manager_id = e.id AND r.status = 'active')
    FROM employees e
    WHERE e.user_id = $1
  `, principalID).Scan(&profile.EmployeeID, &profile.UserID, &profile.Role, &profile.DepartmentID, &profile.DirectReportsCount)
	if err != nil {
		return Profile{}, classify(err)
	}
	return profile, nil
}

func (s *Store) GetTeamMembers(ctx context.Context, managerID string) ([]string, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	rows, err := s.DB.Query(ctx, `
    SELECT id::text
    FROM employees
    WHERE manager_id::text = $1 AND status = 'active'
    ORDER BY id
  `, managerID)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, classify(err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	return ids, nil
}

func (s *Store) ListDepartments(ctx context.Context) ([]Department, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	rows, err := s.DB.Query(ctx, "SELECT id::text, name FROM departments ORDER BY name, id")
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var departments []Department
	for rows.Next() {
		var dept Department
		if err := rows.Scan(&dept.ID, &dept.Name); err != nil {
			return nil, classify(err)
		}
		departments = append(departments, dept)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	return departments, nil
}

func (s *Store) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.Timeout)
}

func classify(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var connectErr *pgconn.ConnectError
	if errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err) || errors.As(err, &connectErr) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}
