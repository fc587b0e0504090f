package engine

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/kbukum/mediaflow/errors"
	"github.com/kbukum/mediaflow/options"
	"github.com/kbukum/mediaflow/resilience"
)

func flakyFactory(failures int, calls *int, failWith error) Factory[Demuxer[int]] {
	return func(_ context.Context, opts options.Options) (Demuxer[int], error) {
		*calls++
		if *calls <= failures {
			return nil, failWith
		}
		return &namedDemuxer{name: "flaky", opts: opts}, nil
	}
}

func TestRetrying(t *testing.T) {
	cfg := resilience.RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond}
	tests := []struct {
		name      string
		cfg       resilience.RetryConfig
		failures  int
		failWith  error
		wantCalls int
		wantErr   bool
	}{
		{"opens on third attempt", cfg, 2, stderrors.New("connection refused"), 3, false},
		{"gives up after max attempts", cfg, 5, stderrors.New("connection refused"), 3, true},
		{"configuration faults fail fast", cfg, 5, errors.MissingField("url"), 1, true},
		{"disabled passes through", resilience.RetryConfig{MaxAttempts: 1}, 1, stderrors.New("down"), 1, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			calls := 0
			f := Retrying(flakyFactory(tc.failures, &calls, tc.failWith), tc.cfg)
			d, err := f(context.Background(), options.Options{"url": "rtmp://origin/live"})
			if (err != nil) != tc.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tc.wantErr)
			}
			if calls != tc.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tc.wantCalls)
			}
			if !tc.wantErr && d.(*namedDemuxer).opts.Target() != "rtmp://origin/live" {
				t.Errorf("options not passed through: %v", d.(*namedDemuxer).opts)
			}
		})
	}
}
