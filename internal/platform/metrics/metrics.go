package metrics

import (
	"sync/atomic"
	"time"
)

type Collector struct {
	totalRequests   uint64
	errorRequests   uint64
	rateLimited     uint64
	totalDurationMs uint64
	reviewsCreated  uint64
	reviewsUpdated  uint64
	authzDenials    uint64
}

func New() *Collector {
	return &Collector{}
}

func (c *Collector) Record(status int, duration time.Duration) {
	if c == nil {
		return
	}
	atomic.AddUint64(&c.totalRequests, 1)
	if status >= 500 {
		atomic.AddUint64(&c.errorRequests, 1)
	}
	if status == 429 {
		atomic.AddUint64(&c.rateLimited, 1)
	}
	atomic.AddUint64(&c.totalDurationMs, uint64(duration.Milliseconds()))
}

// ReviewSaved counts a persisted review save, split by insert vs overwrite.
func (c *Collector) ReviewSaved(created bool) {
	if c == nil {
		return
	}
	if created {
		atomic.AddUint64(&c.reviewsCreated, 1)
		return
	}
	atomic.AddUint64(&c.reviewsUpdated, 1)
}

func (c *Collector) AuthzDenied() {
	if c == nil {
		return
	}
	atomic.AddUint64(&c.authzDenials, 1)
}

func (c *Collector) Snapshot() map[string]any {
	total := atomic.LoadUint64(&c.totalRequests)
	errs := atomic.LoadUint64(&c.errorRequests)
	limited := atomic.LoadUint64(&c.rateLimited)
	totalMs := atomic.LoadUint64(&c.totalDurationMs)
	avg := float64(0)
	if total > 0 {
		avg = float64(totalMs) / float64(total)
	}
	return map[string]any{
		"requestsTotal":       total,
		"errorsTotal":         errs,
		"rateLimitedTotal":    limited,
		"avgDurationMs":       avg,
		"totalDurationMs":     totalMs,
		"reviewsCreatedTotal": atomic.LoadUint64(&c.reviewsCreated),
		"reviewsUpdatedTotal": atomic.LoadUint64(&c.reviewsUpdated),
		"authzDenialsTotal":   atomic.LoadUint64(&c.authzDenials),
	}
}
