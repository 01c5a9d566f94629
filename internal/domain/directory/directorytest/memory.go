// Package directorytest provides an in-memory directory for tests.
package directorytest

import (
	"context"
	"sort"
	"sync"

	"perfeval/internal/domain/directory"
)

var _ directory.Directory = (*Memory)(nil)

// Employee is a directory row held by Memory. Profiles derive their
// direct-report count from the ManagerID links.
type Employee struct {
	ID           string
	UserID       string
	Role         string
	DepartmentID string
	ManagerID    string
}

// Memory is an in-process directory.Directory.
type Memory struct {
	mu          sync.RWMutex
	employees   map[string]Employee
	departments []directory.Department
	// Err, when set, is returned from every call.
	Err error
}

func New() *Memory {
	return &Memory{employees: map[string]Employee{}}
}

func (m *Memory) AddEmployee(e Employee) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.employees[e.ID] = e
}

func (m *Memory) AddDepartment(d directory.Department) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.departments = append(m.departments, d)
}

func (m *Memory) GetEmployeeProfile(_ context.Context, principalID string) (directory.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return directory.Profile{}, m.Err
	}
	for _, e := range m.employees {
		if e.UserID != principalID {
			continue
		}
		reports := 0
		for _, other := range m.employees {
			if other.ManagerID == e.ID {
				reports++
			}
		}
		return directory.Profile{
			EmployeeID:         e.ID,
			UserID:             e.UserID,
			Role:               e.Role,
			DepartmentID:       e.DepartmentID,
			DirectReportsCount: reports,
		}, nil
	}
	return directory.Profile{}, directory.ErrNotFound
}

func (m *Memory) GetTeamMembers(_ context.Context, managerID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var ids []string
	for _, e := range m.employees {
		if e.ManagerID == managerID {
			ids = append(ids, e.ID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *Memory) ListDepartments(_ context.Context) ([]directory.Department, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]directory.Department, len(m.departments))
	copy(out, m.departments)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
