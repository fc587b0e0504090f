package resilience

import (
	"context"
	"sync/atomic"
)

// BulkheadConfig configures a bulkhead.
type BulkheadConfig struct {
	// MaxConcurrent is the number of calls admitted at once. Defaults to 1.
	MaxConcurrent int
}

// Bulkhead admits a bounded number of concurrent calls. Calls that find it
// full queue until a slot frees or their context is done.
type Bulkhead struct {
	sem     chan struct{}
	waiting atomic.Int32
}

// NewBulkhead creates a bulkhead.
func NewBulkhead(config BulkheadConfig) *Bulkhead {
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 1
	}
	return &Bulkhead{sem: make(chan struct{}, config.MaxConcurrent)}
}

// NewSingleFlight returns a bulkhead that admits one call at a time.
func NewSingleFlight() *Bulkhead {
	return NewBulkhead(BulkheadConfig{MaxConcurrent: 1})
}

// Execute runs fn once a slot is free. It returns ctx.Err() if the context
// ends while queued.
func (b *Bulkhead) Execute(ctx context.Context, fn func() error) error {
	if err := b.acquire(ctx); err != nil {
		return err
	}
	defer func() { <-b.sem }()
	return fn()
}

func (b *Bulkhead) acquire(ctx context.Context) error {
	select {
	case b.sem <- struct{}{}:
		return nil
	default:
	}

	b.waiting.Add(1)
	defer b.waiting.Add(-1)
	select {
	case b.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// InUse returns the number of calls currently running.
func (b *Bulkhead) InUse() int { return len(b.sem) }

// Waiting returns the number of calls queued for a slot.
func (b *Bulkhead) Waiting() int { return int(b.waiting.Load()) }
