package stage

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/kbukum/mediaflow/engine"
	"github.com/kbukum/mediaflow/options"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type engineDemuxer = engine.Demuxer[string]

// fakeDemuxer yields units from a slice.
type fakeDemuxer struct {
	units  []string
	reads  int
	closed int
}

func (d *fakeDemuxer) Read(ctx context.Context) (string, error) {
	d.reads++
	if d.reads > len(d.units) {
		return "", io.EOF
	}
	return d.units[d.reads-1], nil
}

func (d *fakeDemuxer) Close(context.Context) error {
	d.closed++
	return nil
}

// fakeCodec maps each input through fn and counts overlapping calls.
type fakeCodec struct {
	fn       func(string) []string
	flushOut []string
	delay    time.Duration
	block    chan struct{}
	err      error

	mu          sync.Mutex
	calls       []string
	inflight    int
	maxInflight int
	flushes     int
	closed      int
}

func (c *fakeCodec) enter() func() {
	c.mu.Lock()
	c.inflight++
	if c.inflight > c.maxInflight {
		c.maxInflight = c.inflight
	}
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		c.inflight--
		c.mu.Unlock()
	}
}

func (c *fakeCodec) Process(ctx context.Context, in []string) ([]string, error) {
	defer c.enter()()
	if c.block != nil {
		<-c.block
	}
	if c.delay > 0 {
		time.Sleep(c.delay)
	}
	c.mu.Lock()
	c.calls = append(c.calls, in...)
	c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	var out []string
	for _, s := range in {
		out = append(out, c.fn(s)...)
	}
	return out, nil
}

func (c *fakeCodec) Flush(context.Context) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.flushes++
	return c.flushOut, nil
}

func (c *fakeCodec) Close(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed++
	return nil
}

// fakeFilterer returns the configured groups for every call.
type fakeFilterer struct {
	groups func(in []string) []engine.Group[string]
	calls  int
}

func (f *fakeFilterer) Filter(_ context.Context, in []string) ([]engine.Group[string], error) {
	f.calls++
	return f.groups(in), nil
}

// prime maps "x" to ["x'"] and "skip" to nothing.
func prime(s string) []string {
	if s == "skip" {
		return nil
	}
	return []string{s + "'"}
}

func demuxerFactory(d *fakeDemuxer) engine.Factory[engine.Demuxer[string]] {
	return func(context.Context, options.Options) (engine.Demuxer[string], error) { return d, nil }
}

func codecFactory(c *fakeCodec) engine.Factory[engine.Codec[string, string]] {
	return func(context.Context, options.Options) (engine.Codec[string, string], error) { return c, nil }
}

func filtererFactory(f *fakeFilterer) engine.Factory[engine.Filterer[string, string]] {
	return func(context.Context, options.Options) (engine.Filterer[string, string], error) { return f, nil }
}

func failingFactory[E any](err error) engine.Factory[E] {
	return func(context.Context, options.Options) (E, error) {
		var zero E
		return zero, err
	}
}

var errBoom = errors.New("boom")
