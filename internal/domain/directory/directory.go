// Package directory reads employee profiles, reporting lines and departments
// from the HR employee directory. The directory is owned by the core HR
// module; this package only reads it.
package directory

import (
	"context"
	"errors"
)

var (
	ErrNotFound    = errors.New("employee profile not found")
	ErrUnavailable = errors.New("employee directory unavailable")
)

type Profile struct {
	EmployeeID         string `json:"employeeId"`
	UserID             string `json:"userId"`
	Role               string `json:"role"`
	DepartmentID       string `json:"departmentId,omitempty"`
	DirectReportsCount int    `json:"directReportsCount"`
}

type Department struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Directory interface {
	// GetEmployeeProfile looks up the profile linked to an authenticated
	// principal id. Returns ErrNotFound when no employee record exists.
	GetEmployeeProfile(ctx context.Context, principalID string) (Profile, error)
	// GetTeamMembers lists the employee ids whose manager is managerID.
	GetTeamMembers(ctx context.Context, managerID string) ([]string, error)
	ListDepartments(ctx context.Context) ([]Department, error)
}
