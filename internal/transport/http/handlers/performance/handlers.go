package performancehandler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"perfeval/internal/domain/identity"
	"perfeval/internal/domain/performance"
	"perfeval/internal/transport/http/api"
	"perfeval/internal/transport/http/middleware"
	"perfeval/internal/transport/http/shared"
)

const maxListLimit = 500

var defaultKPIWeight = decimal.NewFromInt(1)

type Handler struct {
	Service *performance.Service
	Log     zerolog.Logger
}

func NewHandler(service *performance.Service, log zerolog.Logger) *Handler {
	return &Handler{Service: service, Log: log}
}

// RegisterRoutes mounts the engine on r. Every route expects
// middleware.ResolvePrincipal to have run.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/me", h.handleMe)
	r.Route("/performance", func(r chi.Router) {
		r.Get("/departments", h.handleListDepartments)

		r.Get("/kpis", h.handleListKPIs)
		r.Post("/kpis", h.handleCreateKPI)
		r.Get("/kpis/{kpiID}", h.handleGetKPI)
		r.Put("/kpis/{kpiID}", h.handleUpdateKPI)
		r.Post("/kpis/{kpiID}/activate", h.handleSetKPIActive(true))
		r.Post("/kpis/{kpiID}/deactivate", h.handleSetKPIActive(false))

		r.Get("/periods", h.handleListPeriods)
		r.Post("/periods", h.handleCreatePeriod)
		r.Get("/periods/{periodID}", h.handleGetPeriod)
		r.Put("/periods/{periodID}", h.handleEditPeriod)
		r.Post("/periods/{periodID}/activate", h.handleActivatePeriod)
		r.Post("/periods/{periodID}/close", h.handleClosePeriod)

		r.Get("/reviews", h.handleListAllReviews)
		r.Post("/reviews", h.handleSaveReview)
		r.Get("/reviews/team", h.handleListTeamReviews)
		r.Get("/reviews/{reviewID}", h.handleGetReview)
		r.Get("/reviews/{reviewID}/scorecard.pdf", h.handleScorecard)
		r.Get("/employees/{employeeID}/reviews", h.handleListEmployeeReviews)
	})
}

func (h *Handler) principal(w http.ResponseWriter, r *http.Request) (identity.Principal, bool) {
	p, ok := identity.FromContext(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return identity.Principal{}, false
	}
	return p, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return false
	}
	return true
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	api.Success(w, p, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListDepartments(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.principal(w, r); !ok {
		return
	}
	departments, err := h.Service.ListDepartments(r.Context())
	if err != nil {
		writeError(w, r, h.Log, err, "department_list_failed")
		return
	}
	api.Success(w, departments, middleware.GetRequestID(r.Context()))
}

type kpiPayload struct {
	Title        string           `json:"title"`
	Category     string           `json:"category"`
	Weight       *decimal.Decimal `json:"weight"`
	Description  string           `json:"description"`
	DepartmentID string           `json:"departmentId"`
	RelatedRole  string           `json:"relatedRole"`
}

func (h *Handler) kpiFields(w http.ResponseWriter, r *http.Request) (performance.KPIFields, bool) {
	var payload kpiPayload
	if !h.decode(w, r, &payload) {
		return performance.KPIFields{}, false
	}
	v := shared.NewValidator()
	category := v.Enum("category", payload.Category,
		string(performance.CategoryGeneral), string(performance.CategoryJobSpecific), string(performance.CategoryStrategic))
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return performance.KPIFields{}, false
	}
	weight := defaultKPIWeight
	if payload.Weight != nil {
		weight = *payload.Weight
	}
	return performance.KPIFields{
		Title:        payload.Title,
		Category:     performance.Category(category),
		Weight:       weight,
		Description:  payload.Description,
		DepartmentID: payload.DepartmentID,
		RelatedRole:  payload.RelatedRole,
	}, true
}

func (h *Handler) handleListKPIs(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	v := shared.NewValidator()
	filter := performance.KPIFilter{
		Category: performance.Category(v.Enum("category", q.Get("category"),
			string(performance.CategoryGeneral), string(performance.CategoryJobSpecific), string(performance.CategoryStrategic))),
		Active:       v.Bool("active", q.Get("active")),
		DepartmentID: q.Get("departmentId"),
		Role:         q.Get("role"),
		Search:       q.Get("search"),
	}
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	kpis, err := h.Service.ListKPIs(r.Context(), p, filter)
	if err != nil {
		writeError(w, r, h.Log, err, "kpi_list_failed")
		return
	}
	page := shared.Page(kpis, shared.ParsePagination(r, 0, maxListLimit))
	api.Success(w, toKPIViews(page), middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateKPI(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	fields, ok := h.kpiFields(w, r)
	if !ok {
		return
	}
	kpi, err := h.Service.CreateKPI(r.Context(), p, fields)
	if err != nil {
		writeError(w, r, h.Log, err, "kpi_create_failed")
		return
	}
	api.Created(w, toKPIView(kpi), middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetKPI(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	kpi, err := h.Service.GetKPI(r.Context(), p, chi.URLParam(r, "kpiID"))
	if err != nil {
		writeError(w, r, h.Log, err, "kpi_get_failed")
		return
	}
	api.Success(w, toKPIView(kpi), middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdateKPI(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	fields, ok := h.kpiFields(w, r)
	if !ok {
		return
	}
	kpi, err := h.Service.UpdateKPI(r.Context(), p, chi.URLParam(r, "kpiID"), fields)
	if err != nil {
		writeError(w, r, h.Log, err, "kpi_update_failed")
		return
	}
	api.Success(w, toKPIView(kpi), middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleSetKPIActive(active bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := h.principal(w, r)
		if !ok {
			return
		}
		kpi, err := h.Service.SetKPIActive(r.Context(), p, chi.URLParam(r, "kpiID"), active)
		if err != nil {
			writeError(w, r, h.Log, err, "kpi_update_failed")
			return
		}
		api.Success(w, toKPIView(kpi), middleware.GetRequestID(r.Context()))
	}
}

type periodPayload struct {
	Name       string `json:"name"`
	PeriodType string `json:"periodType"`
	StartDate  string `json:"startDate"`
	EndDate    string `json:"endDate"`
}

func (h *Handler) periodFields(w http.ResponseWriter, r *http.Request) (performance.PeriodFields, bool) {
	var payload periodPayload
	if !h.decode(w, r, &payload) {
		return performance.PeriodFields{}, false
	}
	v := shared.NewValidator()
	periodType := v.Enum("periodType", payload.PeriodType,
		string(performance.PeriodTypeMonthly), string(performance.PeriodTypeQuarterly), string(performance.PeriodTypeAnnual))
	start, _ := v.Date("startDate", payload.StartDate)
	end, _ := v.Date("endDate", payload.EndDate)
	v.DateOrder("startDate", start, "endDate", end)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return performance.PeriodFields{}, false
	}
	return performance.PeriodFields{
		Name:      payload.Name,
		Type:      performance.PeriodType(periodType),
		StartDate: start,
		EndDate:   end,
	}, true
}

func (h *Handler) handleListPeriods(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	v := shared.NewValidator()
	filter := performance.PeriodFilter{
		Type: performance.PeriodType(v.Enum("periodType", q.Get("periodType"),
			string(performance.PeriodTypeMonthly), string(performance.PeriodTypeQuarterly), string(performance.PeriodTypeAnnual))),
		Status: performance.PeriodStatus(v.Enum("status", q.Get("status"),
			string(performance.PeriodStatusDraft), string(performance.PeriodStatusActive), string(performance.PeriodStatusClosed))),
	}
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	periods, err := h.Service.ListPeriods(r.Context(), p, filter)
	if err != nil {
		writeError(w, r, h.Log, err, "period_list_failed")
		return
	}
	page := shared.Page(periods, shared.ParsePagination(r, 0, maxListLimit))
	api.Success(w, toPeriodViews(page), middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreatePeriod(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	fields, ok := h.periodFields(w, r)
	if !ok {
		return
	}
	period, err := h.Service.CreatePeriod(r.Context(), p, fields)
	if err != nil {
		writeError(w, r, h.Log, err, "period_create_failed")
		return
	}
	api.Created(w, toPeriodView(period), middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetPeriod(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	period, err := h.Service.GetPeriod(r.Context(), p, chi.URLParam(r, "periodID"))
	if err != nil {
		writeError(w, r, h.Log, err, "period_get_failed")
		return
	}
	api.Success(w, toPeriodView(period), middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleEditPeriod(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	fields, ok := h.periodFields(w, r)
	if !ok {
		return
	}
	period, err := h.Service.EditPeriod(r.Context(), p, chi.URLParam(r, "periodID"), fields)
	if err != nil {
		writeError(w, r, h.Log, err, "period_update_failed")
		return
	}
	api.Success(w, toPeriodView(period), middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleActivatePeriod(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	period, err := h.Service.ActivatePeriod(r.Context(), p, chi.URLParam(r, "periodID"))
	if err != nil {
		writeError(w, r, h.Log, err, "period_activate_failed")
		return
	}
	api.Success(w, toPeriodView(period), middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleClosePeriod(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	period, err := h.Service.ClosePeriod(r.Context(), p, chi.URLParam(r, "periodID"))
	if err != nil {
		writeError(w, r, h.Log, err, "period_close_failed")
		return
	}
	api.Success(w, toPeriodView(period), middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleSaveReview(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	var payload performance.SaveReviewInput
	if !h.decode(w, r, &payload) {
		return
	}
	review, err := h.Service.SaveReview(r.Context(), p, payload)
	if err != nil {
		writeError(w, r, h.Log, err, "review_save_failed")
		return
	}
	api.Success(w, toReviewView(review), middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetReview(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	review, err := h.Service.GetReview(r.Context(), p, chi.URLParam(r, "reviewID"))
	if err != nil {
		writeError(w, r, h.Log, err, "review_get_failed")
		return
	}
	api.Success(w, toReviewView(review), middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListEmployeeReviews(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	reviews, err := h.Service.ListReviewsForEmployee(r.Context(), p, chi.URLParam(r, "employeeID"))
	if err != nil {
		writeError(w, r, h.Log, err, "review_list_failed")
		return
	}
	page := shared.Page(reviews, shared.ParsePagination(r, 0, maxListLimit))
	api.Success(w, toReviewViews(page), middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListTeamReviews(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	reviews, err := h.Service.ListTeamReviews(r.Context(), p, r.URL.Query().Get("periodId"))
	if err != nil {
		writeError(w, r, h.Log, err, "review_list_failed")
		return
	}
	page := shared.Page(reviews, shared.ParsePagination(r, 0, maxListLimit))
	api.Success(w, toReviewViews(page), middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListAllReviews(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	reviews, err := h.Service.ListAllReviews(r.Context(), p, performance.ReviewFilter{
		EmployeeID: q.Get("employeeId"),
		ManagerID:  q.Get("managerId"),
		PeriodID:   q.Get("periodId"),
	})
	if err != nil {
		writeError(w, r, h.Log, err, "review_list_failed")
		return
	}
	page := shared.Page(reviews, shared.ParsePagination(r, 0, maxListLimit))
	api.Success(w, toReviewViews(page), middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleScorecard(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	reviewID := chi.URLParam(r, "reviewID")
	pdf, err := h.Service.Scorecard(r.Context(), p, reviewID)
	if err != nil {
		writeError(w, r, h.Log, err, "scorecard_failed")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=\"scorecard-"+reviewID+".pdf\"")
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(pdf); err != nil {
		h.Log.Warn().Err(err).Str("reviewId", reviewID).Msg("scorecard write failed")
	}
}
