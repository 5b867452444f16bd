package core

// upload_limiter.go bounds how many exports are parsed at once.
//
// Every slot load across every session takes one permit before reading the
// file and releases it after the parse. When all permits are taken a load
// waits up to maxWait and then fails with ErrTooManyUploads. WaitForDrain
// lets shutdown block until in-flight parses finish.

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

// ErrTooManyUploads is returned when no parse permit frees up within the
// wait timeout. Clients should retry after a short delay.
var ErrTooManyUploads = errors.New("too many concurrent uploads, please try again later")

// DefaultMaxConcurrentUploads is the default number of parallel parses.
const DefaultMaxConcurrentUploads = 4

// DefaultMaxWaitTime is how long a load waits for a permit.
const DefaultMaxWaitTime = 15 * time.Second

// UploadLimiter is a counting semaphore over export parsing.
type UploadLimiter struct {
	permits chan struct{}
	maxWait time.Duration
	active  atomic.Int64
}

// NewUploadLimiter allows at most maxConcurrent parses at a time.
// Non-positive arguments fall back to the defaults.
func NewUploadLimiter(maxConcurrent int, maxWait time.Duration) *UploadLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentUploads
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}
	return &UploadLimiter{
		permits: make(chan struct{}, maxConcurrent),
		maxWait: maxWait,
	}
}

// Acquire takes a permit. It returns ctx.Err() if ctx ends first and
// ErrTooManyUploads if the wait times out. Callers must Release on success.
func (l *UploadLimiter) Acquire(ctx context.Context) error {
	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case l.permits <- struct{}{}:
		l.active.Add(1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrTooManyUploads
	}
}

// Release returns a permit taken by Acquire.
func (l *UploadLimiter) Release() {
	l.active.Add(-1)
	<-l.permits
}

// ActiveCount returns the number of parses holding a permit.
func (l *UploadLimiter) ActiveCount() int {
	return int(l.active.Load())
}

// MaxConcurrent returns the permit count.
func (l *UploadLimiter) MaxConcurrent() int {
	return cap(l.permits)
}

// WaitForDrain blocks until no parse holds a permit or ctx ends.
func (l *UploadLimiter) WaitForDrain(ctx context.Context) error {
	if l.ActiveCount() == 0 {
		return nil
	}

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if l.ActiveCount() == 0 {
				return nil
			}
		}
	}
}

// UploadLimiterStatus is a snapshot of limiter usage for the health endpoint.
type UploadLimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"max_concurrent"`
}

// Status returns the current limiter usage.
func (l *UploadLimiter) Status() UploadLimiterStatus {
	return UploadLimiterStatus{
		Active:        l.ActiveCount(),
		Available:     cap(l.permits) - len(l.permits),
		MaxConcurrent: cap(l.permits),
	}
}
