package simengine

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Recorder logs the calls made on an engine and tracks how many run at
// once.
type Recorder struct {
	mu          sync.Mutex
	calls       []string
	inflight    int
	maxInflight int
}

func (r *Recorder) record(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, fmt.Sprintf(format, args...))
}

// enter marks a call as running and returns the func that ends it.
func (r *Recorder) enter() func() {
	r.mu.Lock()
	r.inflight++
	if r.inflight > r.maxInflight {
		r.maxInflight = r.inflight
	}
	r.mu.Unlock()
	return func() {
		r.mu.Lock()
		r.inflight--
		r.mu.Unlock()
	}
}

// Calls returns the recorded calls in order.
func (r *Recorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

// MaxConcurrent returns the largest number of calls that overlapped.
func (r *Recorder) MaxConcurrent() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.maxInflight
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
