// Package ratelimit provides the two non-blocking request gates guarding
// the single-credential and batch-credential endpoints.
package ratelimit

import (
	"golang.org/x/time/rate"
)

// DefaultSingleRPM and DefaultBatchRPM are used when the configured value is
// zero or negative.
const (
	DefaultSingleRPM = 60
	DefaultBatchRPM  = 10
)

// Limiter holds the two independent gates. Each is a token bucket that
// refills at rpm/60 tokens per second with a burst equal to rpm, so a
// caller can spend a full minute's allowance in one instant and must then
// wait for it to trickle back in.
type Limiter struct {
	single *rate.Limiter
	batch  *rate.Limiter
}

// New constructs a Limiter from the configured requests-per-minute values,
// falling back to the protocol defaults for non-positive inputs.
func New(singleRPM, batchRPM int) *Limiter {
	if singleRPM <= 0 {
		singleRPM = DefaultSingleRPM
	}
	if batchRPM <= 0 {
		batchRPM = DefaultBatchRPM
	}
	return &Limiter{
		single: rate.NewLimiter(rate.Limit(float64(singleRPM)/60), singleRPM),
		batch:  rate.NewLimiter(rate.Limit(float64(batchRPM)/60), batchRPM),
	}
}

// AllowSingle reports whether a single-credential check may proceed now,
// consuming a token if so.
func (l *Limiter) AllowSingle() bool {
	return l.single.Allow()
}

// AllowBatch reports whether a batch submission may proceed now, consuming
// a token if so.
func (l *Limiter) AllowBatch() bool {
	return l.batch.Allow()
}
