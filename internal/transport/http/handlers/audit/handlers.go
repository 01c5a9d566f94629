package audithandler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"perfeval/internal/domain/audit"
	"perfeval/internal/domain/authz"
	"perfeval/internal/domain/identity"
	"perfeval/internal/transport/http/api"
	"perfeval/internal/transport/http/middleware"
	"perfeval/internal/transport/http/shared"
)

type Lister interface {
	List(ctx context.Context, filter audit.Filter, limit, offset int) ([]audit.Event, error)
}

// Handler exposes the performance audit trail to Admin/HR.
type Handler struct {
	Events Lister
	Guard  *authz.Guard
	Log    zerolog.Logger
}

func NewHandler(events Lister, guard *authz.Guard, log zerolog.Logger) *Handler {
	return &Handler{Events: events, Guard: guard, Log: log}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/audit/events", h.handleListEvents)
}

func (h *Handler) handleListEvents(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	p, ok := identity.FromContext(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", requestID)
		return
	}
	if err := h.Guard.RequireAdministrator(p); err != nil {
		api.Fail(w, http.StatusForbidden, "forbidden", "not allowed", requestID)
		return
	}

	page := shared.ParsePagination(r, 100, 500)
	q := r.URL.Query()
	filter := audit.Filter{
		Action:     q.Get("action"),
		EntityType: q.Get("entityType"),
		EntityID:   q.Get("entityId"),
	}
	events, err := h.Events.List(r.Context(), filter, page.Limit, page.Offset)
	if err != nil {
		h.Log.Error().Err(err).Str("requestId", requestID).Msg("audit list failed")
		api.Fail(w, http.StatusInternalServerError, "audit_list_failed", "failed to list audit events", requestID)
		return
	}
	if events == nil {
		events = []audit.Event{}
	}
	api.Success(w, events, requestID)
}
