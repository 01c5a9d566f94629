package metrics

import (
	"testing"
	"time"
)

func TestCollectorSnapshot(t *testing.T) {
	c := New()
	c.Record(200, 10*time.Millisecond)
	c.Record(503, 30*time.Millisecond)
	c.Record(429, 0)
	c.ReviewSaved(true)
	c.ReviewSaved(false)
	c.ReviewSaved(false)
	c.AuthzDenied()

	snap := c.Snapshot()
	if snap["requestsTotal"] != uint64(3) {
		t.Fatalf("expected 3 requests, got %v", snap["requestsTotal"])
	}
	if snap["errorsTotal"] != uint64(1) {
		t.Fatalf("expected 1 error, got %v", snap["errorsTotal"])
	}
	if snap["rateLimitedTotal"] != uint64(1) {
		t.Fatalf("expected 1 rate limited, got %v", snap["rateLimitedTotal"])
	}
	if snap["reviewsCreatedTotal"] != uint64(1) || snap["reviewsUpdatedTotal"] != uint64(2) {
		t.Fatalf("unexpected review counters: %+v", snap)
	}
	if snap["authzDenialsTotal"] != uint64(1) {
		t.Fatalf("expected 1 denial, got %v", snap["authzDenialsTotal"])
	}
}

func TestNilCollectorIsSafe(t *testing.T) {
	var c *Collector
	c.Record(200, time.Millisecond)
	c.ReviewSaved(true)
	c.AuthzDenied()
}
