package core

// handle_lease.go serializes access to the automation handle.
//
// The application holds one present unit setting and one staging area for
// the whole process, so two operations running at once would see each
// other's unit switches and staged rows. The lease is a one-slot semaphore:
// an operation waits up to maxWait for the slot before failing with
// ErrHandleBusy.
//
// WaitForDrain blocks until the current holder releases, for graceful
// shutdown before the handle is closed.

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrHandleBusy is returned when the handle stays leased for longer than
// the wait timeout. Clients should retry after a short delay.
var ErrHandleBusy = errors.New("automation handle is busy, please try again later")

// DefaultHandleWait is how long to wait for the handle before rejecting.
const DefaultHandleWait = 30 * time.Second

// HandleLease grants exclusive use of the automation handle.
type HandleLease struct {
	slot    chan struct{}
	maxWait time.Duration

	mu      sync.RWMutex
	holder  string
	since   time.Time
	waiting int
}

// NewHandleLease creates a lease that waits at most maxWait in Acquire.
func NewHandleLease(maxWait time.Duration) *HandleLease {
	if maxWait <= 0 {
		maxWait = DefaultHandleWait
	}
	return &HandleLease{
		slot:    make(chan struct{}, 1),
		maxWait: maxWait,
	}
}

// Acquire takes the lease for operation op.
// Returns nil on success, ErrHandleBusy if the wait expires, or the
// context's error if ctx ends first.
// The caller MUST call Release() when the operation completes (use defer).
func (l *HandleLease) Acquire(ctx context.Context, op string) error {
	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	l.mu.Lock()
	l.waiting++
	l.mu.Unlock()
	defer func() {
		l.mu.Lock()
		l.waiting--
		l.mu.Unlock()
	}()

	select {
	case l.slot <- struct{}{}:
		l.take(op)
		return nil

	case <-waitCtx.Done():
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrHandleBusy
	}
}

// TryAcquire takes the lease without blocking.
func (l *HandleLease) TryAcquire(op string) bool {
	select {
	case l.slot <- struct{}{}:
		l.take(op)
		return true
	default:
		return false
	}
}

func (l *HandleLease) take(op string) {
	l.mu.Lock()
	l.holder = op
	l.since = time.Now()
	l.mu.Unlock()
}

// Release gives the lease back.
// Must be called exactly once for each successful Acquire/TryAcquire.
func (l *HandleLease) Release() {
	l.mu.Lock()
	l.holder = ""
	l.since = time.Time{}
	l.mu.Unlock()

	<-l.slot
}

// Held reports whether an operation holds the lease.
func (l *HandleLease) Held() bool {
	return len(l.slot) == 1
}

// WaitForDrain blocks until no operation holds the lease or ctx ends.
func (l *HandleLease) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		if !l.Held() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// LeaseStatus is a snapshot of the lease.
type LeaseStatus struct {
	Held      bool          `json:"held"`
	Operation string        `json:"operation,omitempty"`
	HeldFor   time.Duration `json:"heldFor,omitempty"`
	Waiting   int           `json:"waiting"`
}

// Status returns the current lease state for monitoring.
func (l *HandleLease) Status() LeaseStatus {
	l.mu.RLock()
	defer l.mu.RUnlock()

	st := LeaseStatus{Held: l.holder != "" || len(l.slot) == 1, Operation: l.holder, Waiting: l.waiting}
	if !l.since.IsZero() {
		st.HeldFor = time.Since(l.since)
	}
	return st
}
