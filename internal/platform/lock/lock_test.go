package lock

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestNilLockerIsNoop(t *testing.T) {
	var l *Locker
	release := l.Acquire(context.Background(), "review:e1:p1")
	require.NotNil(t, release)
	release()

	require.Nil(t, New(nil, time.Second, zerolog.Nop()))
}

func TestLockerSerializesHolders(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}

	rdb, err := Connect(context.Background(), addr)
	require.NoError(t, err)
	defer rdb.Close()

	l := New(rdb, time.Second, zerolog.Nop())
	release := l.Acquire(context.Background(), "test:serialize")

	acquired := make(chan struct{})
	go func() {
		second := l.Acquire(context.Background(), "test:serialize")
		close(acquired)
		second()
	}()

	select {
	case <-acquired:
		t.Fatal("second holder acquired while first still held the lock")
	case <-time.After(100 * time.Millisecond):
	}

	release()
	select {
	case <-acquired:
	case <-time.After(2 * time.Second):
		t.Fatal("second holder never acquired the lock")
	}
}
