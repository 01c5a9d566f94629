// Package audittest provides an in-memory audit trail for tests.
package audittest

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"perfeval/internal/domain/audit"
	"perfeval/internal/requestctx"
)

var _ audit.Recorder = (*Memory)(nil)

// Memory keeps recorded events in process and serves them back through the
// same List contract as audit.Service.
type Memory struct {
	mu     sync.Mutex
	events []audit.Event
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Record(ctx context.Context, actorID, action, entityType, entityID string, after any) {
	var payload json.RawMessage
	if after != nil {
		payload, _ = json.Marshal(after)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, audit.Event{
		ID:         strconv.Itoa(len(m.events) + 1),
		ActorID:    actorID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		RequestID:  requestctx.GetRequestID(ctx),
		IP:         requestctx.GetClientIP(ctx),
		CreatedAt:  time.Now().UTC(),
		After:      payload,
	})
}

func (m *Memory) Events() []audit.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]audit.Event, len(m.events))
	copy(out, m.events)
	return out
}

// List returns matching events newest first, then applies offset and limit.
func (m *Memory) List(_ context.Context, filter audit.Filter, limit, offset int) ([]audit.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []audit.Event
	for i := len(m.events) - 1; i >= 0; i-- {
		evt := m.events[i]
		if filter.Action != "" && evt.Action != filter.Action {
			continue
		}
		if filter.EntityType != "" && evt.EntityType != filter.EntityType {
			continue
		}
		if filter.EntityID != "" && evt.EntityID != filter.EntityID {
			continue
		}
		out = append(out, evt)
	}
	if offset >= len(out) {
		return []audit.Event{}, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}
