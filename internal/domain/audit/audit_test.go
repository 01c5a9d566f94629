package audit

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestNilServiceRecordIsNoop(t *testing.T) {
	var s *Service
	s.Record(context.Background(), "u-1", ActionKPICreate, EntityKPI, "k-1", nil)

	s = New(nil, zerolog.Nop())
	s.Record(context.Background(), "u-1", ActionKPICreate, EntityKPI, "k-1", map[string]string{"title": "Delivery"})
}

func TestMarshalPayload(t *testing.T) {
	raw, err := marshal(nil)
	require.NoError(t, err)
	require.Nil(t, raw)

	raw, err = marshal(map[string]any{"status": "ACTIVE", "items": 2})
	require.NoError(t, err)
	require.JSONEq(t, `{"status":"ACTIVE","items":2}`, string(raw))

	_, err = marshal(make(chan int))
	require.Error(t, err)
}
