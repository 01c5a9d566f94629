package shared

import (
	"net/http/httptest"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	got, err := ParseDate("2026-03-31")
	if err != nil || !got.Equal(time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected date %v (%v)", got, err)
	}
	got, err = ParseDate("2026-03-31T22:15:00Z")
	if err != nil || FormatDate(got) != "2026-03-31" {
		t.Fatalf("unexpected rfc3339 date %v (%v)", got, err)
	}
	if _, err := ParseDate("31/03/2026"); err == nil {
		t.Fatal("expected error for unsupported layout")
	}
}

func TestValidatorCollectsIssues(t *testing.T) {
	v := NewValidator()
	if got := v.Enum("status", "active", "DRAFT", "ACTIVE", "CLOSED"); got != "ACTIVE" {
		t.Fatalf("expected ACTIVE, got %q", got)
	}
	v.Enum("category", "misc", "GENERAL")
	if v.Bool("active", "maybe") != nil {
		t.Fatal("expected nil for invalid bool")
	}
	start, _ := v.Date("startDate", "2026-04-10")
	end, _ := v.Date("endDate", "2026-04-01")
	v.DateOrder("startDate", start, "endDate", end)

	issues := v.Issues()
	if len(issues) != 4 {
		t.Fatalf("expected 4 issues, got %+v", issues)
	}
	if issues[0].Field != "active" || issues[1].Field != "category" {
		t.Fatalf("expected issues sorted by field, got %+v", issues)
	}
}

func TestPage(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	req := httptest.NewRequest("GET", "/?limit=2&offset=2", nil)
	p := ParsePagination(req, 50, 100)
	if got := Page(items, p); len(got) != 2 || got[0] != 3 || got[1] != 4 {
		t.Fatalf("unexpected page %v", got)
	}
	if got := Page(items, Pagination{Limit: 10, Offset: 9}); len(got) != 0 {
		t.Fatalf("expected empty page, got %v", got)
	}
	if got := Page(items, Pagination{Offset: 3}); len(got) != 2 {
		t.Fatalf("expected tail without limit, got %v", got)
	}
}
