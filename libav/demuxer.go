package libav

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"

	"github.com/asticode/go-astiav"
	"github.com/asticode/go-astikit"

	"github.com/kbukum/mediaflow/engine"
	"github.com/kbukum/mediaflow/options"
	"github.com/kbukum/mediaflow/validation"
)

// DemuxerConfig configures a Demuxer.
type DemuxerConfig struct {
	URL     string            `mapstructure:"url" validate:"required"`
	Format  string            `mapstructure:"format"`
	Options map[string]string `mapstructure:"options"`
}

// StreamInfo describes one input stream. The codec parameters belong to the
// demuxer and stay valid until it is closed.
type StreamInfo struct {
	Index           int
	MediaType       astiav.MediaType
	CodecParameters *astiav.CodecParameters
	TimeBase        astiav.Rational
	FrameRate       astiav.Rational
}

// Demuxer reads packets from an input container.
type Demuxer struct {
	closer *astikit.Closer
	fc     *astiav.FormatContext
}

// NewDemuxer is an engine.Factory for Demuxer.
func NewDemuxer(_ context.Context, opts options.Options) (engine.Demuxer[*astiav.Packet], error) {
	var cfg DemuxerConfig
	if err := options.Decode(opts, &cfg); err != nil {
		return nil, err
	}
	if err := validation.Validate(cfg); err != nil {
		return nil, err
	}

	d := &Demuxer{closer: astikit.NewCloser()}
	if d.fc = astiav.AllocFormatContext(); d.fc == nil {
		return nil, stderrors.New("input format context is nil")
	}
	d.closer.Add(d.fc.Free)

	var inputFormat *astiav.InputFormat
	if cfg.Format != "" {
		if inputFormat = astiav.FindInputFormat(cfg.Format); inputFormat == nil {
			_ = d.closer.Close()
			return nil, fmt.Errorf("unknown input format %q", cfg.Format)
		}
	}
	dict, err := dictionary(cfg.Options)
	if err != nil {
		_ = d.closer.Close()
		return nil, err
	}
	defer freeDictionary(dict)

	if err := d.fc.OpenInput(cfg.URL, inputFormat, dict); err != nil {
		_ = d.closer.Close()
		return nil, fmt.Errorf("opening input %s: %w", cfg.URL, err)
	}
	d.closer.Add(d.fc.CloseInput)

	if err := d.fc.FindStreamInfo(nil); err != nil {
		_ = d.closer.Close()
		return nil, fmt.Errorf("finding stream info: %w", err)
	}
	return d, nil
}

// Read implements engine.Demuxer. The returned packet is owned by the
// caller.
func (d *Demuxer) Read(ctx context.Context) (*astiav.Packet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pkt := astiav.AllocPacket()
	if err := d.fc.ReadFrame(pkt); err != nil {
		pkt.Free()
		if stderrors.Is(err, astiav.ErrEof) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("reading frame: %w", err)
	}
	return pkt, nil
}

// Streams describes every input stream.
func (d *Demuxer) Streams() []StreamInfo {
	streams := d.fc.Streams()
	out := make([]StreamInfo, 0, len(streams))
	for _, s := range streams {
		info := StreamInfo{
			Index:           s.Index(),
			MediaType:       s.CodecParameters().MediaType(),
			CodecParameters: s.CodecParameters(),
			TimeBase:        s.TimeBase(),
		}
		if info.MediaType == astiav.MediaTypeVideo {
			info.FrameRate = d.fc.GuessFrameRate(s, nil)
		}
		out = append(out, info)
	}
	return out
}

// Close implements engine.Closeable.
func (d *Demuxer) Close(context.Context) error {
	return d.closer.Close()
}

// BestStream returns a function, suitable for future.Then on a demuxer
// engine handle, that picks the first stream of the given media type.
func BestStream(mt astiav.MediaType) func(engine.Demuxer[*astiav.Packet]) (*StreamInfo, error) {
	return func(e engine.Demuxer[*astiav.Packet]) (*StreamInfo, error) {
		d, ok := e.(*Demuxer)
		if !ok {
			return nil, fmt.Errorf("%T is not a libav demuxer", e)
		}
		for _, s := range d.Streams() {
			if s.MediaType == mt {
				return &s, nil
			}
		}
		return nil, fmt.Errorf("no %s stream in input", mt)
	}
}

// StreamIndex returns a predicate accepting packets of stream index.
func StreamIndex(index int) func(context.Context, *astiav.Packet) (bool, error) {
	return func(_ context.Context, pkt *astiav.Packet) (bool, error) {
		if pkt.StreamIndex() == index {
			return true, nil
		}
		pkt.Free()
		return false, nil
	}
}
