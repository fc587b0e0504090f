package options

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	apperrors "github.com/kbukum/mediaflow/errors"
	"github.com/kbukum/mediaflow/future"
)

func TestResolve_IdentityForResolvedMapping(t *testing.T) {
	in := Options{"url": "file:in.mp4", "width": 1280, "nested": map[string]any{"a": 1}}
	got, err := Resolve(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff(in, got); diff != "" {
		t.Errorf("resolved mapping differs (-want +got):\n%s", diff)
	}
}

func TestResolve_NonMappingUnchanged(t *testing.T) {
	for _, in := range []any{"file:in.mp4", 7, nil, []int{1, 2}} {
		got, err := Resolve(context.Background(), in)
		if err != nil {
			t.Fatalf("unexpected error for %v: %v", in, err)
		}
		if diff := cmp.Diff(in, got); diff != "" {
			t.Errorf("value changed (-want +got):\n%s", diff)
		}
	}
}

func TestResolve_PendingFields(t *testing.T) {
	ctx := context.Background()
	in := Options{
		"name":    "libx264",
		"width":   future.Resolved(1280),
		"pix_fmt": future.Go(ctx, func(context.Context) (string, error) { return "yuv420p", nil }),
		"nested":  future.Resolved(future.Resolved(25)),
	}

	got, err := ResolveOptions(ctx, in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := Options{"name": "libx264", "width": 1280, "pix_fmt": "yuv420p", "nested": 25}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("resolved options mismatch (-want +got):\n%s", diff)
	}
	if _, pending := in["width"].(future.Pending); !pending {
		t.Error("input mapping must not be modified")
	}
}

func TestResolve_WaitsForAllFields(t *testing.T) {
	ctx := context.Background()
	const n = 5
	var settled atomic.Int32
	in := Options{}
	for i := range n {
		in[string(rune('a'+i))] = future.Go(ctx, func(context.Context) (int, error) {
			time.Sleep(time.Duration(i+1) * 2 * time.Millisecond)
			settled.Add(1)
			return i, nil
		})
	}

	got, err := ResolveOptions(ctx, in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settled.Load() != n {
		t.Errorf("expected all %d fields settled before completion, got %d", n, settled.Load())
	}
	if len(got) != n {
		t.Errorf("expected %d keys, got %d", n, len(got))
	}
}

func TestResolve_FirstFailureFails(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("encoder failed")
	slow, _ := future.New[int]()
	in := Options{
		"ok":   future.Resolved(1),
		"bad":  future.Failed[int](boom),
		"slow": slow,
	}

	done := make(chan struct{})
	var got Options
	var err error
	go func() {
		got, err = ResolveOptions(ctx, in)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("resolution did not fail fast on the first failing field")
	}
	if got != nil {
		t.Errorf("expected no partial mapping, got %v", got)
	}
	if !errors.Is(err, boom) {
		t.Errorf("expected cause %v, got %v", boom, err)
	}
	if !apperrors.Is(err, apperrors.ErrCodeConfiguration) {
		t.Errorf("expected configuration error, got %v", err)
	}
	appErr, _ := apperrors.AsAppError(err)
	if appErr.Details["field"] != "bad" {
		t.Errorf("expected field=bad, got %v", appErr.Details["field"])
	}
}

func TestResolve_NilFutureField(t *testing.T) {
	var codecpar *future.Future[Options]
	_, err := ResolveOptions(context.Background(), Options{"codecpar": codecpar})
	if !errors.Is(err, future.ErrNilFuture) {
		t.Errorf("expected cause %v, got %v", future.ErrNilFuture, err)
	}
	if !apperrors.Is(err, apperrors.ErrCodeConfiguration) {
		t.Errorf("expected configuration error, got %v", err)
	}
}

func TestResolve_PendingTopLevel(t *testing.T) {
	ctx := context.Background()
	in := future.Resolved(Options{"url": future.Resolved("file:a.mp4")})
	got, err := ResolveOptions(ctx, in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Target() != "file:a.mp4" {
		t.Errorf("expected target file:a.mp4, got %q", got.Target())
	}
}

func TestResolve_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	never, _ := future.New[int]()
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()

	_, err := Resolve(ctx, Options{"x": never})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestResolveOptions_Shapes(t *testing.T) {
	ctx := context.Background()

	got, err := ResolveOptions(ctx, "file:in.mp4")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff(Options{"url": "file:in.mp4"}, got); diff != "" {
		t.Errorf("string shorthand mismatch (-want +got):\n%s", diff)
	}

	got, err = ResolveOptions(ctx, nil)
	if err != nil || len(got) != 0 {
		t.Errorf("expected empty options for nil, got %v/%v", got, err)
	}

	got, err = ResolveOptions(ctx, map[string]any{"a": 1})
	if err != nil || got["a"] != 1 {
		t.Errorf("expected plain map accepted, got %v/%v", got, err)
	}

	if _, err = ResolveOptions(ctx, 42); !apperrors.Is(err, apperrors.ErrCodeConfiguration) {
		t.Errorf("expected configuration error for int, got %v", err)
	}
}

func TestOptions_Helpers(t *testing.T) {
	o := Options{"filename": "out.mp4", "streams": []any{}, "format_name": "mp4"}
	if o.Target() != "out.mp4" {
		t.Errorf("expected filename target, got %q", o.Target())
	}
	rest := o.Without(KeyStreams)
	if rest.Has(KeyStreams) || !o.Has(KeyStreams) {
		t.Error("Without must copy, not mutate")
	}
	if s, ok := o.String("format_name"); !ok || s != "mp4" {
		t.Errorf("expected format_name=mp4, got %q", s)
	}
}

func TestList_Table(t *testing.T) {
	tests := []struct {
		name    string
		in      any
		want    int
		wantErr bool
	}{
		{"options slice", []Options{{}, {}}, 2, false},
		{"map slice", []map[string]any{{"a": 1}}, 1, false},
		{"any slice", []any{Options{}, map[string]any{}}, 2, false},
		{"any slice with scalar", []any{Options{}, 3}, 0, true},
		{"not a list", Options{}, 0, true},
		{"nil", nil, 0, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := List(tc.in)
			if (err != nil) != tc.wantErr {
				t.Fatalf("expected error=%v, got %v", tc.wantErr, err)
			}
			if len(got) != tc.want {
				t.Errorf("expected %d elements, got %d", tc.want, len(got))
			}
		})
	}
}

func TestDecode_TypedConfig(t *testing.T) {
	type encoderConfig struct {
		Name      string        `mapstructure:"name"`
		Width     int           `mapstructure:"width"`
		BitRate   int64         `mapstructure:"bit_rate"`
		TimeBase  []int         `mapstructure:"time_base"`
		Keyframes time.Duration `mapstructure:"keyframe_interval"`
	}

	var cfg encoderConfig
	err := Decode(Options{
		"name":              "libx264",
		"width":             "1920",
		"bit_rate":          2000000,
		"time_base":         []int{1, 25},
		"keyframe_interval": "2s",
		"unknown":           true,
	}, &cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := encoderConfig{Name: "libx264", Width: 1920, BitRate: 2000000, TimeBase: []int{1, 25}, Keyframes: 2 * time.Second}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("decoded config mismatch (-want +got):\n%s", diff)
	}
}

func TestDecode_InvalidValue(t *testing.T) {
	var cfg struct {
		Width int `mapstructure:"width"`
	}
	err := Decode(Options{"width": "wide"}, &cfg)
	if !apperrors.Is(err, apperrors.ErrCodeConfiguration) {
		t.Errorf("expected configuration error, got %v", err)
	}
}
