package simengine

import (
	"context"
	"fmt"
	"time"

	"github.com/kbukum/mediaflow/engine"
	"github.com/kbukum/mediaflow/options"
	"github.com/kbukum/mediaflow/validation"
)

const defaultPixelFormat = "yuv420p"

// DecoderConfig configures a Decoder.
type DecoderConfig struct {
	StreamIndex int           `mapstructure:"stream_index" validate:"gte=0"`
	Width       int           `mapstructure:"width" validate:"gt=0"`
	Height      int           `mapstructure:"height" validate:"gt=0"`
	PixelFormat string        `mapstructure:"pixel_format" validate:"required"`
	Delay       time.Duration `mapstructure:"delay" validate:"gte=0"`
}

// Decoder turns each packet of its stream into one frame.
type Decoder struct {
	Recorder
	cfg DecoderConfig
}

// NewDecoder is an engine.Factory for Decoder.
func NewDecoder(_ context.Context, opts options.Options) (engine.Codec[Packet, Frame], error) {
	fx := DefaultFixture()
	cfg := DecoderConfig{Width: fx.Width, Height: fx.Height, PixelFormat: defaultPixelFormat}
	if err := options.Decode(opts, &cfg); err != nil {
		return nil, err
	}
	if err := validation.Validate(cfg); err != nil {
		return nil, err
	}
	return &Decoder{cfg: cfg}, nil
}

// Process implements engine.Codec.
func (d *Decoder) Process(ctx context.Context, packets []Packet) ([]Frame, error) {
	defer d.enter()()
	d.record("process %d", len(packets))
	if err := sleep(ctx, d.cfg.Delay); err != nil {
		return nil, err
	}
	frames := make([]Frame, 0, len(packets))
	for _, p := range packets {
		if p.StreamIndex != d.cfg.StreamIndex {
			return nil, fmt.Errorf("packet from stream %d sent to decoder for stream %d", p.StreamIndex, d.cfg.StreamIndex)
		}
		frames = append(frames, Frame{
			Width:       d.cfg.Width,
			Height:      d.cfg.Height,
			PixelFormat: d.cfg.PixelFormat,
			PTS:         p.PTS,
		})
	}
	return frames, nil
}

// Flush implements engine.Codec. The decoder holds no frames back.
func (d *Decoder) Flush(context.Context) ([]Frame, error) {
	d.record("flush")
	return nil, nil
}

// EncoderConfig configures an Encoder. Width and Height, when set, are
// required of every input frame.
type EncoderConfig struct {
	Codec       string        `mapstructure:"codec" validate:"required"`
	Width       int           `mapstructure:"width" validate:"gte=0"`
	Height      int           `mapstructure:"height" validate:"gte=0"`
	PixelFormat string        `mapstructure:"pixel_format" validate:"required"`
	Lookahead   int           `mapstructure:"lookahead" validate:"gte=0"`
	DropEvery   int           `mapstructure:"drop_every" validate:"gte=0"`
	GOPSize     int           `mapstructure:"gop_size" validate:"gt=0"`
	Delay       time.Duration `mapstructure:"delay" validate:"gte=0"`
}

// Encoder buffers Lookahead frames before emitting packets and drops every
// DropEvery-th input frame.
type Encoder struct {
	Recorder
	cfg     EncoderConfig
	pending []Frame
	seen    int
	emitted int64
	flushed bool
}

// NewEncoder is an engine.Factory for Encoder.
func NewEncoder(_ context.Context, opts options.Options) (engine.Codec[Frame, Packet], error) {
	cfg := EncoderConfig{
		PixelFormat: defaultPixelFormat,
		Lookahead:   3,
		DropEvery:   11,
		GOPSize:     12,
	}
	if err := options.Decode(opts, &cfg); err != nil {
		return nil, err
	}
	if err := validation.Validate(cfg); err != nil {
		return nil, err
	}
	return &Encoder{cfg: cfg}, nil
}

// Process implements engine.Codec.
func (e *Encoder) Process(ctx context.Context, frames []Frame) ([]Packet, error) {
	defer e.enter()()
	e.record("process %d", len(frames))
	if e.flushed {
		return nil, fmt.Errorf("encoder already flushed")
	}
	if err := sleep(ctx, e.cfg.Delay); err != nil {
		return nil, err
	}
	for _, f := range frames {
		if e.cfg.Width > 0 && (f.Width != e.cfg.Width || f.Height != e.cfg.Height) {
			return nil, fmt.Errorf("frame is %dx%d, encoder expects %dx%d", f.Width, f.Height, e.cfg.Width, e.cfg.Height)
		}
		e.seen++
		if e.cfg.DropEvery > 0 && e.seen%e.cfg.DropEvery == 0 {
			continue
		}
		e.pending = append(e.pending, f)
	}
	var out []Packet
	for len(e.pending) > e.cfg.Lookahead {
		out = append(out, e.encode(e.pending[0]))
		e.pending = e.pending[1:]
	}
	return out, nil
}

// Flush implements engine.Codec and emits every buffered frame.
func (e *Encoder) Flush(context.Context) ([]Packet, error) {
	e.record("flush")
	e.flushed = true
	out := make([]Packet, 0, len(e.pending))
	for _, f := range e.pending {
		out = append(out, e.encode(f))
	}
	e.pending = nil
	return out, nil
}

func (e *Encoder) encode(f Frame) Packet {
	p := Packet{
		StreamIndex: VideoStream,
		PTS:         f.PTS,
		DTS:         e.emitted,
		Key:         e.emitted%int64(e.cfg.GOPSize) == 0,
		Size:        f.Width * f.Height / 100,
	}
	e.emitted++
	return p
}

// CodecParameters describes the encoder's output for a muxer stream.
func (e *Encoder) CodecParameters() options.Options {
	return options.Options{
		"codec":        e.cfg.Codec,
		"width":        e.cfg.Width,
		"height":       e.cfg.Height,
		"pixel_format": e.cfg.PixelFormat,
	}
}

// CodecParametersOf returns the codec parameters of an encoder created by
// NewEncoder.
func CodecParametersOf(c engine.Codec[Frame, Packet]) (options.Options, error) {
	enc, ok := c.(*Encoder)
	if !ok {
		return nil, fmt.Errorf("%T is not a simengine encoder", c)
	}
	return enc.CodecParameters(), nil
}
