package performance

import (
	"bytes"
	"context"
	"fmt"

	"github.com/jung-kurt/gofpdf"

	"perfeval/internal/domain/identity"
)

// Scorecard renders a review as a one-page PDF. Access follows GetReview.
func (s *Service) Scorecard(ctx context.Context, p identity.Principal, reviewID string) ([]byte, error) {
	review, err := s.GetReview(ctx, p, reviewID)
	if err != nil {
		return nil, err
	}
	period, err := s.store.GetPeriod(ctx, review.PeriodID)
	if err != nil {
		return nil, err
	}
	return RenderScorecard(review, period)
}

func RenderScorecard(review Review, period Period) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Performance Scorecard")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 7, tr(fmt.Sprintf("Employee: %s", review.EmployeeID)))
	pdf.Ln(6)
	pdf.Cell(0, 7, tr(fmt.Sprintf("Period: %s (%s to %s, %s)", period.Name,
		period.StartDate.Format("2006-01-02"), period.EndDate.Format("2006-01-02"), period.Status)))
	pdf.Ln(6)
	pdf.Cell(0, 7, tr(fmt.Sprintf("Scored by: %s on %s", review.ManagerID, review.UpdatedAt.Format("2006-01-02"))))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(80, 7, "KPI", "1", 0, "L", false, 0, "")
	pdf.CellFormat(30, 7, "Category", "1", 0, "L", false, 0, "")
	pdf.CellFormat(20, 7, "Weight", "1", 0, "R", false, 0, "")
	pdf.CellFormat(20, 7, "Score", "1", 0, "R", false, 0, "")
	pdf.CellFormat(30, 7, "Weighted", "1", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	for _, item := range review.Items {
		pdf.CellFormat(80, 7, tr(item.KPITitle), "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 7, string(item.KPICategory), "1", 0, "L", false, 0, "")
		pdf.CellFormat(20, 7, item.KPIWeight.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(20, 7, fmt.Sprintf("%d", item.Score), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 7, item.WeightedScore.StringFixed(2), "1", 1, "R", false, 0, "")
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 12)
	total := "n/a"
	if review.TotalScore != nil {
		total = review.TotalScore.StringFixed(2)
	}
	pdf.Cell(0, 8, "Total score: "+total)
	pdf.Ln(10)

	if review.FinalComment != "" {
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, 5, tr("Final comment: "+review.FinalComment), "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
