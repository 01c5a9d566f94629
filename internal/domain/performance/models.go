package performance

import (
	"time"

	"github.com/shopspring/decimal"
)

type KPI struct {
	ID           string          `json:"id"`
	Title        string          `json:"title"`
	Category     Category        `json:"category"`
	Weight       decimal.Decimal `json:"weight"`
	Description  string          `json:"description"`
	Active       bool            `json:"isActive"`
	DepartmentID string          `json:"departmentId,omitempty"`
	RelatedRole  string          `json:"relatedRole,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// KPIFields are the mutable KPI attributes; update replaces all of them.
type KPIFields struct {
	Title        string          `json:"title" validate:"required,max=200"`
	Category     Category        `json:"category" validate:"omitempty,oneof=GENERAL JOB_SPECIFIC STRATEGIC"`
	Weight       decimal.Decimal `json:"weight" validate:"-"`
	Description  string          `json:"description" validate:"max=4000"`
	DepartmentID string          `json:"departmentId"`
	RelatedRole  string          `json:"relatedRole" validate:"max=100"`
}

type KPIFilter struct {
	Category     Category
	Active       *bool
	DepartmentID string
	Role         string
	Search       string
}

type Period struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Type      PeriodType   `json:"periodType"`
	StartDate time.Time    `json:"startDate"`
	EndDate   time.Time    `json:"endDate"`
	Status    PeriodStatus `json:"status"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

type PeriodFields struct {
	Name      string     `json:"name" validate:"required,max=200"`
	Type      PeriodType `json:"periodType" validate:"omitempty,oneof=MONTHLY QUARTERLY ANNUAL"`
	StartDate time.Time  `json:"startDate" validate:"required"`
	EndDate   time.Time  `json:"endDate" validate:"required"`
}

type PeriodFilter struct {
	Type   PeriodType
	Status PeriodStatus
}

type Review struct {
	ID           string           `json:"id"`
	EmployeeID   string           `json:"employeeId"`
	PeriodID     string           `json:"periodId"`
	ManagerID    string           `json:"managerId"`
	Items        []ReviewItem     `json:"items"`
	FinalComment string           `json:"finalComment"`
	TotalScore   *decimal.Decimal `json:"totalScore"`
	CreatedAt    time.Time        `json:"createdAt"`
	UpdatedAt    time.Time        `json:"updatedAt"`
}

// ReviewItem is one scored KPI. KPIWeight is the weight the KPI carried when
// the review was saved; later catalog edits do not move stored totals.
type ReviewItem struct {
	KPIID         string          `json:"kpiId"`
	KPITitle      string          `json:"kpiTitle"`
	KPICategory   Category        `json:"kpiCategory"`
	KPIWeight     decimal.Decimal `json:"kpiWeight"`
	Score         int             `json:"score"`
	Comment       string          `json:"comment"`
	WeightedScore decimal.Decimal `json:"weightedScore"`
}

// ItemInput carries the score as a decimal so a fractional value reaches
// validation and is reported against its item instead of failing decoding.
type ItemInput struct {
	KPIID   string           `json:"kpiId" validate:"required"`
	Score   *decimal.Decimal `json:"score" validate:"required"`
	Comment string           `json:"comment" validate:"max=4000"`
}

type SaveReviewInput struct {
	EmployeeID   string      `json:"employeeId" validate:"required"`
	PeriodID     string      `json:"periodId" validate:"required"`
	Items        []ItemInput `json:"items" validate:"max=200"`
	FinalComment string      `json:"finalComment" validate:"max=4000"`
}

type ReviewFilter struct {
	EmployeeID string
	ManagerID  string
	PeriodID   string
	// EmployeeIDs restricts results to these employees when non-nil.
	EmployeeIDs []string
}

// ReviewWrite identifies the review a save targets and the KPIs it scores.
type ReviewWrite struct {
	EmployeeID string
	PeriodID   string
	KPIIDs     []string
}

// ReviewSnapshot is the state a save is validated against, read inside the
// same transaction that writes the review.
type ReviewSnapshot struct {
	Period Period
	KPIs   map[string]KPI
}
