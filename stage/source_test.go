package stage

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	mferrors "github.com/kbukum/mediaflow/errors"
	"github.com/kbukum/mediaflow/options"
	"github.com/kbukum/mediaflow/pipeline"
)

func TestSource_PullUntilEOF(t *testing.T) {
	ctx := context.Background()
	d := &fakeDemuxer{units: []string{"p0", "p1", "p2"}}
	var got options.Options
	factory := demuxerFactory(d)
	src, err := NewSource(ctx, "input.mp4", func(ctx context.Context, o options.Options) (engineDemuxer, error) {
		got = o
		return factory(ctx, o)
	}, StreamOptions{})
	if err != nil {
		t.Fatal(err)
	}

	var units []string
	for {
		u, ok, err := src.Pull(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			break
		}
		units = append(units, u)
	}
	if diff := cmp.Diff([]string{"p0", "p1", "p2"}, units); diff != "" {
		t.Errorf("units mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(options.Options{"url": "input.mp4"}, got); diff != "" {
		t.Errorf("bare string should become a url (-want +got):\n%s", diff)
	}

	// End of stream is signalled once; the engine is not read again.
	if _, ok, err := src.Pull(ctx); ok || err != nil {
		t.Errorf("Pull after EOF: ok=%v err=%v", ok, err)
	}
	if d.reads != 4 {
		t.Errorf("engine reads = %d, want 4", d.reads)
	}

	if err := src.Close(ctx); err != nil {
		t.Fatal(err)
	}
	if _, _, err := src.Pull(ctx); !mferrors.Is(err, mferrors.ErrCodeLifecycle) {
		t.Errorf("Pull after Close = %v, want lifecycle error", err)
	}
	if d.closed != 1 {
		t.Errorf("engine closed %d times, want 1", d.closed)
	}
}

func TestSource_Pipeline(t *testing.T) {
	for _, hwm := range []int{0, 2} {
		d := &fakeDemuxer{units: []string{"a", "b", "c", "d"}}
		src, err := NewSource(context.Background(), nil, demuxerFactory(d), StreamOptions{HighWaterMark: hwm})
		if err != nil {
			t.Fatal(err)
		}
		got, err := pipeline.Collect(context.Background(), src.Pipeline())
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff([]string{"a", "b", "c", "d"}, got); diff != "" {
			t.Errorf("hwm=%d: mismatch (-want +got):\n%s", hwm, diff)
		}
		if src.State() != StateClosed {
			t.Errorf("hwm=%d: state = %s, want closed", hwm, src.State())
		}
	}
}

func TestSource_ConstructionError(t *testing.T) {
	src, err := NewSource(context.Background(), nil, failingFactory[engineDemuxer](errBoom), StreamOptions{Name: "demux"})
	if err != nil {
		t.Fatal(err)
	}
	_, _, err = src.Pull(context.Background())
	appErr, ok := mferrors.AsAppError(err)
	if !ok || appErr.Code != mferrors.ErrCodeEngineCreation || appErr.Stage != "demux" {
		t.Fatalf("err = %v, want engine creation error from demux", err)
	}
	if err := src.Start(context.Background()); err == nil {
		t.Error("Start should report the construction failure")
	}
	if err := src.Close(context.Background()); err != nil {
		t.Errorf("Close: %v", err)
	}
}
