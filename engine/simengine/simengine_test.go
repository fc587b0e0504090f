package simengine

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"

	mferrors "github.com/kbukum/mediaflow/errors"
	"github.com/kbukum/mediaflow/options"
)

func TestFixture_Generate(t *testing.T) {
	packets := DefaultFixture().Generate()
	if len(packets) != 1719 {
		t.Fatalf("len(packets) = %d, want 1719", len(packets))
	}
	var video int
	var lastPTS int64 = -1
	for _, p := range packets {
		if p.StreamIndex != VideoStream {
			continue
		}
		if p.PTS != lastPTS+1 {
			t.Fatalf("video PTS %d follows %d", p.PTS, lastPTS)
		}
		lastPTS = p.PTS
		video++
	}
	if video != 555 {
		t.Errorf("video packets = %d, want 555", video)
	}
}

func TestDemuxer_ReadsUntilEOF(t *testing.T) {
	ctx := context.Background()
	d, err := NewDemuxer(ctx, options.Options{"url": "sim://small", "packets": 10, "video_packets": "4"})
	if err != nil {
		t.Fatalf("NewDemuxer: %v", err)
	}
	var n int
	for {
		_, err := d.Read(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		n++
	}
	if n != 10 {
		t.Errorf("read %d packets, want 10", n)
	}
}

func TestDemuxer_InvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		opts options.Options
	}{
		{"missing url", options.Options{}},
		{"more video than packets", options.Options{"url": "x", "packets": 2, "video_packets": 3}},
		{"not a number", options.Options{"url": "x", "packets": "many"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDemuxer(context.Background(), tt.opts)
			if mferrors.KindOfError(err) != mferrors.KindConfiguration {
				t.Errorf("err = %v, want a configuration error", err)
			}
		})
	}
}

func TestDecoder_RejectsOtherStreams(t *testing.T) {
	d, err := NewDecoder(context.Background(), options.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := d.Process(context.Background(), []Packet{{StreamIndex: AudioStream}}); err == nil {
		t.Error("expected error for audio packet")
	}
}

func TestEncoder_LookaheadAndDrops(t *testing.T) {
	ctx := context.Background()
	e, err := NewEncoder(ctx, options.Options{"codec": "sim264"})
	if err != nil {
		t.Fatal(err)
	}
	var total int
	for i := 0; i < 555; i++ {
		out, err := e.Process(ctx, []Frame{{Width: 1920, Height: 1080, PTS: int64(i)}})
		if err != nil {
			t.Fatalf("Process %d: %v", i, err)
		}
		if i < 3 && len(out) != 0 {
			t.Fatalf("frame %d produced %d packets during lookahead", i, len(out))
		}
		total += len(out)
	}
	rest, err := e.Flush(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(rest) != 3 {
		t.Errorf("flush returned %d packets, want 3", len(rest))
	}
	if total+len(rest) != 505 {
		t.Errorf("encoded %d packets, want 505", total+len(rest))
	}
	if _, err := e.Process(ctx, []Frame{{}}); err == nil {
		t.Error("Process after Flush should fail")
	}
}

func TestEncoder_FrameSizeCheck(t *testing.T) {
	e, err := NewEncoder(context.Background(), options.Options{"codec": "sim264", "width": 1280, "height": 720})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.Process(context.Background(), []Frame{{Width: 1920, Height: 1080}}); err == nil {
		t.Error("expected frame size error")
	}
	params, err := CodecParametersOf(e)
	if err != nil {
		t.Fatal(err)
	}
	want := options.Options{"codec": "sim264", "width": 1280, "height": 720, "pixel_format": "yuv420p"}
	if diff := cmp.Diff(want, params); diff != "" {
		t.Errorf("CodecParameters mismatch (-want +got):\n%s", diff)
	}
}

func TestFilterer_Scale(t *testing.T) {
	f, err := NewFilterer(context.Background(), options.Options{"filter_spec": "scale=1280:720"})
	if err != nil {
		t.Fatal(err)
	}
	groups, err := f.Filter(context.Background(), []Frame{{Width: 1920, Height: 1080, PTS: 7}})
	if err != nil {
		t.Fatal(err)
	}
	want := []Frame{{Width: 1280, Height: 720, PTS: 7}}
	if len(groups) != 1 || groups[0].Name != "out" {
		t.Fatalf("groups = %+v", groups)
	}
	if diff := cmp.Diff(want, groups[0].Units); diff != "" {
		t.Errorf("Filter mismatch (-want +got):\n%s", diff)
	}
}

func TestFilterer_BadSpec(t *testing.T) {
	for _, spec := range []string{"", "crop=1:2", "scale=0:720"} {
		if _, err := NewFilterer(context.Background(), options.Options{"filter_spec": spec}); err == nil {
			t.Errorf("NewFilterer(%q) should fail", spec)
		}
	}
}

func TestMuxer_EnforcesOrder(t *testing.T) {
	ctx := context.Background()
	eng, err := NewMuxer(ctx, options.Options{"url": "mem://out"})
	if err != nil {
		t.Fatal(err)
	}
	m := eng.(*Muxer)

	if err := m.WriteUnit(ctx, Packet{}); err == nil {
		t.Error("write before header should fail")
	}
	if err := m.WriteHeader(ctx); err == nil {
		t.Error("header before open should fail")
	}
	if _, err := m.NewStream(ctx, options.Options{"codec": "sim264"}); err != nil {
		t.Fatal(err)
	}
	if err := m.OpenOutput(ctx, ""); err != nil {
		t.Fatal(err)
	}
	if err := m.WriteHeader(ctx); err != nil {
		t.Fatal(err)
	}
	if err := m.WriteUnit(ctx, Packet{StreamIndex: 1}); err == nil {
		t.Error("write to undeclared stream should fail")
	}
	if err := m.WriteUnit(ctx, Packet{}); err != nil {
		t.Fatal(err)
	}
	if err := m.WriteTrailer(ctx); err != nil {
		t.Fatal(err)
	}
	if err := m.WriteTrailer(ctx); err == nil {
		t.Error("second trailer should fail")
	}

	want := []string{"new_stream 0", "open_output mem://out", "write_header", "write_unit 0", "write_trailer"}
	if diff := cmp.Diff(want, m.Calls()); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
}
