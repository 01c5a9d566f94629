// Package audit records who changed what in the performance catalog,
// period lifecycle and reviews.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"perfeval/internal/requestctx"
)

const (
	ActionKPICreate        = "performance.kpi.create"
	ActionKPIUpdate        = "performance.kpi.update"
	ActionKPISetActive     = "performance.kpi.set_active"
	ActionPeriodCreate     = "performance.period.create"
	ActionPeriodEdit       = "performance.period.edit"
	ActionPeriodActivate   = "performance.period.activate"
	ActionPeriodClose      = "performance.period.close"
	ActionReviewSave       = "performance.review.save"
	EntityKPI              = "kpi"
	EntityEvaluationPeriod = "evaluation_period"
	EntityReview           = "performance_review"
)

type Event struct {
	ID         string          `json:"id"`
	ActorID    string          `json:"actorId"`
	Action     string          `json:"action"`
	EntityType string          `json:"entityType"`
	EntityID   string          `json:"entityId"`
	RequestID  string          `json:"requestId"`
	IP         string          `json:"ip"`
	CreatedAt  time.Time       `json:"createdAt"`
	After      json.RawMessage `json:"after,omitempty"`
}

type Filter struct {
	Action     string
	EntityType string
	EntityID   string
}

// Recorder persists audit events. Failures are logged and swallowed: an
// audit write never fails the mutation it describes.
type Recorder interface {
	Record(ctx context.Context, actorID, action, entityType, entityID string, after any)
}

type Service struct {
	DB  *pgxpool.Pool
	Log zerolog.Logger
}

func New(db *pgxpool.Pool, log zerolog.Logger) *Service {
	return &Service{DB: db, Log: log}
}

func (s *Service) Record(ctx context.Context, actorID, action, entityType, entityID string, after any) {
	if s == nil || s.DB == nil {
		return
	}
	afterJSON, err := marshal(after)
	if err != nil {
		s.Log.Warn().Err(err).Str("action", action).Msg("audit payload encode failed")
		return
	}
	_, err = s.DB.Exec(context.WithoutCancel(ctx), `
    INSERT INTO audit_events (actor_id, action, entity_type, entity_id, after_json, request_id, ip)
    VALUES ($1,$2,$3,$4,$5,$6,$7)
  `, actorID, action, entityType, entityID, afterJSON, requestctx.GetRequestID(ctx), requestctx.GetClientIP(ctx))
	if err != nil {
		s.Log.Warn().Err(err).Str("action", action).Str("entityId", entityID).Msg("audit write failed")
	}
}

func (s *Service) List(ctx context.Context, filter Filter, limit, offset int) ([]Event, error) {
	query := "SELECT id::text, actor_id, action, entity_type, entity_id, request_id, ip, created_at, after_json FROM audit_events WHERE 1=1"
	var args []any
	if filter.Action != "" {
		args = append(args, filter.Action)
		query += fmt.Sprintf(" AND action = $%d", len(args))
	}
	if filter.EntityType != "" {
		args = append(args, filter.EntityType)
		query += fmt.Sprintf(" AND entity_type = $%d", len(args))
	}
	if filter.EntityID != "" {
		args = append(args, filter.EntityID)
		query += fmt.Sprintf(" AND entity_id = $%d", len(args))
	}
	args = append(args, limit, offset)
	query += fmt.Sprintf(" ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var evt Event
		if err := rows.Scan(&evt.ID, &evt.ActorID, &evt.Action, &evt.EntityType, &evt.EntityID, &evt.RequestID, &evt.IP, &evt.CreatedAt, &evt.After); err != nil {
			return nil, err
		}
		out = append(out, evt)
	}
	return out, rows.Err()
}

func marshal(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}
