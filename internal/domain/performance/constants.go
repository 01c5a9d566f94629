package performance

type Category string

const (
	CategoryGeneral     Category = "GENERAL"
	CategoryJobSpecific Category = "JOB_SPECIFIC"
	CategoryStrategic   Category = "STRATEGIC"
)

type PeriodType string

const (
	PeriodTypeMonthly   PeriodType = "MONTHLY"
	PeriodTypeQuarterly PeriodType = "QUARTERLY"
	PeriodTypeAnnual    PeriodType = "ANNUAL"
)

type PeriodStatus string

const (
	PeriodStatusDraft  PeriodStatus = "DRAFT"
	PeriodStatusActive PeriodStatus = "ACTIVE"
	PeriodStatusClosed PeriodStatus = "CLOSED"
)

const (
	MinScore = 0
	MaxScore = 100
)

func (c Category) Valid() bool {
	switch c {
	case CategoryGeneral, CategoryJobSpecific, CategoryStrategic:
		return true
	}
	return false
}

func (t PeriodType) Valid() bool {
	switch t {
	case PeriodTypeMonthly, PeriodTypeQuarterly, PeriodTypeAnnual:
		return true
	}
	return false
}

func (s PeriodStatus) Valid() bool {
	switch s {
	case PeriodStatusDraft, PeriodStatusActive, PeriodStatusClosed:
		return true
	}
	return false
}
