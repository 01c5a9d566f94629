package performancehandler

import (
	"time"

	"perfeval/internal/domain/performance"
	"perfeval/internal/transport/http/shared"
)

// Decimal values leave the API as fixed two-place strings so clients never
// see binary float artefacts.

type kpiView struct {
	ID           string               `json:"id"`
	Title        string               `json:"title"`
	Category     performance.Category `json:"category"`
	Weight       string               `json:"weight"`
	Description  string               `json:"description"`
	Active       bool                 `json:"isActive"`
	DepartmentID string               `json:"departmentId,omitempty"`
	RelatedRole  string               `json:"relatedRole,omitempty"`
	CreatedAt    time.Time            `json:"createdAt"`
	UpdatedAt    time.Time            `json:"updatedAt"`
}

func toKPIView(k performance.KPI) kpiView {
	return kpiView{
		ID:           k.ID,
		Title:        k.Title,
		Category:     k.Category,
		Weight:       k.Weight.StringFixed(2),
		Description:  k.Description,
		Active:       k.Active,
		DepartmentID: k.DepartmentID,
		RelatedRole:  k.RelatedRole,
		CreatedAt:    k.CreatedAt,
		UpdatedAt:    k.UpdatedAt,
	}
}

func toKPIViews(kpis []performance.KPI) []kpiView {
	out := make([]kpiView, 0, len(kpis))
	for _, k := range kpis {
		out = append(out, toKPIView(k))
	}
	return out
}

type periodView struct {
	ID        string                   `json:"id"`
	Name      string                   `json:"name"`
	Type      performance.PeriodType   `json:"periodType"`
	StartDate string                   `json:"startDate"`
	EndDate   string                   `json:"endDate"`
	Status    performance.PeriodStatus `json:"status"`
	CreatedAt time.Time                `json:"createdAt"`
	UpdatedAt time.Time                `json:"updatedAt"`
}

func toPeriodView(p performance.Period) periodView {
	return periodView{
		ID:        p.ID,
		Name:      p.Name,
		Type:      p.Type,
		StartDate: shared.FormatDate(p.StartDate),
		EndDate:   shared.FormatDate(p.EndDate),
		Status:    p.Status,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func toPeriodViews(periods []performance.Period) []periodView {
	out := make([]periodView, 0, len(periods))
	for _, p := range periods {
		out = append(out, toPeriodView(p))
	}
	return out
}

type reviewItemView struct {
	KPIID         string               `json:"kpiId"`
	KPITitle      string               `json:"kpiTitle"`
	KPICategory   performance.Category `json:"kpiCategory"`
	KPIWeight     string               `json:"kpiWeight"`
	Score         int                  `json:"score"`
	Comment       string               `json:"comment"`
	WeightedScore string               `json:"weightedScore"`
}

type reviewView struct {
	ID           string           `json:"id"`
	EmployeeID   string           `json:"employeeId"`
	PeriodID     string           `json:"periodId"`
	ManagerID    string           `json:"managerId"`
	Items        []reviewItemView `json:"items"`
	FinalComment string           `json:"finalComment"`
	TotalScore   *string          `json:"totalScore"`
	CreatedAt    time.Time        `json:"createdAt"`
	UpdatedAt    time.Time        `json:"updatedAt"`
}

func toReviewView(r performance.Review) reviewView {
	items := make([]reviewItemView, 0, len(r.Items))
	for _, item := range r.Items {
		items = append(items, reviewItemView{
			KPIID:         item.KPIID,
			KPITitle:      item.KPITitle,
			KPICategory:   item.KPICategory,
			KPIWeight:     item.KPIWeight.StringFixed(2),
			Score:         item.Score,
			Comment:       item.Comment,
			WeightedScore: item.WeightedScore.StringFixed(2),
		})
	}
	view := reviewView{
		ID:           r.ID,
		EmployeeID:   r.EmployeeID,
		PeriodID:     r.PeriodID,
		ManagerID:    r.ManagerID,
		Items:        items,
		FinalComment: r.FinalComment,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
	if r.TotalScore != nil {
		total := r.TotalScore.StringFixed(2)
		view.TotalScore = &total
	}
	return view
}

func toReviewViews(reviews []performance.Review) []reviewView {
	out := make([]reviewView, 0, len(reviews))
	for _, r := range reviews {
		out = append(out, toReviewView(r))
	}
	return out
}
