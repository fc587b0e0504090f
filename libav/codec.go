package libav

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/asticode/go-astiav"
	"github.com/asticode/go-astikit"

	"github.com/kbukum/mediaflow/engine"
	"github.com/kbukum/mediaflow/errors"
	"github.com/kbukum/mediaflow/options"
	"github.com/kbukum/mediaflow/validation"
)

// DecoderConfig configures a Decoder. The stream to decode is given under
// KeyStream as a *StreamInfo, usually from BestStream.
type DecoderConfig struct {
	Codec   string            `mapstructure:"codec"`
	Threads int               `mapstructure:"threads" validate:"gte=0"`
	Options map[string]string `mapstructure:"options"`
}

// Decoder turns packets of one input stream into frames.
type Decoder struct {
	closer *astikit.Closer
	cc     *astiav.CodecContext
	stream *StreamInfo
}

// NewDecoder is an engine.Factory for Decoder.
func NewDecoder(_ context.Context, opts options.Options) (engine.Codec[*astiav.Packet, *astiav.Frame], error) {
	var cfg DecoderConfig
	if err := options.Decode(opts, &cfg); err != nil {
		return nil, err
	}
	if err := validation.Validate(cfg); err != nil {
		return nil, err
	}
	stream, ok := opts[KeyStream].(*StreamInfo)
	if !ok || stream == nil {
		return nil, errors.MissingField(KeyStream)
	}

	var codec *astiav.Codec
	if cfg.Codec != "" {
		codec = astiav.FindDecoderByName(cfg.Codec)
	} else {
		codec = astiav.FindDecoder(stream.CodecParameters.CodecID())
	}
	if codec == nil {
		return nil, fmt.Errorf("no decoder for stream %d", stream.Index)
	}

	d := &Decoder{closer: astikit.NewCloser(), stream: stream}
	if d.cc = astiav.AllocCodecContext(codec); d.cc == nil {
		return nil, stderrors.New("decoder codec context is nil")
	}
	d.closer.Add(d.cc.Free)

	if err := stream.CodecParameters.ToCodecContext(d.cc); err != nil {
		_ = d.closer.Close()
		return nil, fmt.Errorf("updating codec context: %w", err)
	}
	if stream.MediaType == astiav.MediaTypeVideo {
		d.cc.SetFramerate(stream.FrameRate)
	}
	if cfg.Threads > 0 {
		d.cc.SetThreadCount(cfg.Threads)
	}

	dict, err := dictionary(cfg.Options)
	if err != nil {
		_ = d.closer.Close()
		return nil, err
	}
	defer freeDictionary(dict)
	if err := d.cc.Open(codec, dict); err != nil {
		_ = d.closer.Close()
		return nil, fmt.Errorf("opening decoder: %w", err)
	}
	d.cc.SetTimeBase(stream.TimeBase)
	return d, nil
}

// Process implements engine.Codec. It releases every packet it is given.
func (d *Decoder) Process(ctx context.Context, packets []*astiav.Packet) ([]*astiav.Frame, error) {
	defer freePackets(packets)
	var frames []*astiav.Frame
	for _, pkt := range packets {
		if err := ctx.Err(); err != nil {
			freeFrames(frames)
			return nil, err
		}
		if pkt.StreamIndex() != d.stream.Index {
			freeFrames(frames)
			return nil, fmt.Errorf("packet from stream %d sent to decoder for stream %d", pkt.StreamIndex(), d.stream.Index)
		}
		pkt.RescaleTs(d.stream.TimeBase, d.cc.TimeBase())
		if err := d.cc.SendPacket(pkt); err != nil {
			freeFrames(frames)
			return nil, fmt.Errorf("sending packet: %w", err)
		}
		var err error
		if frames, err = receiveFrames(d.cc, frames); err != nil {
			return nil, err
		}
	}
	return frames, nil
}

// Flush implements engine.Codec.
func (d *Decoder) Flush(context.Context) ([]*astiav.Frame, error) {
	if err := d.cc.SendPacket(nil); err != nil && !stderrors.Is(err, astiav.ErrEof) {
		return nil, fmt.Errorf("flushing decoder: %w", err)
	}
	return receiveFrames(d.cc, nil)
}

// Output describes the frames this decoder produces.
func (d *Decoder) Output() options.Options {
	return options.Options{
		"width":        d.cc.Width(),
		"height":       d.cc.Height(),
		"pixel_format": d.cc.PixelFormat().String(),
		KeyTimeBase:    d.cc.TimeBase(),
	}
}

// Close implements engine.Closeable.
func (d *Decoder) Close(context.Context) error {
	return d.closer.Close()
}

// DecoderOutput returns the frame geometry and time base of a decoder
// created by NewDecoder, for use as encoder or filterer options.
func DecoderOutput(c engine.Codec[*astiav.Packet, *astiav.Frame]) (options.Options, error) {
	d, ok := c.(*Decoder)
	if !ok {
		return nil, fmt.Errorf("%T is not a libav decoder", c)
	}
	return d.Output(), nil
}

// receiveFrames drains every frame the codec context has ready onto out.
// On error the frames received so far are released.
func receiveFrames(cc *astiav.CodecContext, out []*astiav.Frame) ([]*astiav.Frame, error) {
	for {
		f := astiav.AllocFrame()
		if err := cc.ReceiveFrame(f); err != nil {
			f.Free()
			if stderrors.Is(err, astiav.ErrEof) || stderrors.Is(err, astiav.ErrEagain) {
				return out, nil
			}
			freeFrames(out)
			return nil, fmt.Errorf("receiving frame: %w", err)
		}
		out = append(out, f)
	}
}

// EncoderConfig configures an Encoder.
type EncoderConfig struct {
	Codec        string            `mapstructure:"codec" validate:"required"`
	Width        int               `mapstructure:"width" validate:"gt=0"`
	Height       int               `mapstructure:"height" validate:"gt=0"`
	PixelFormat  string            `mapstructure:"pixel_format" validate:"required"`
	BitRate      int64             `mapstructure:"bit_rate" validate:"gte=0"`
	GOPSize      int               `mapstructure:"gop_size" validate:"gte=0"`
	GlobalHeader bool              `mapstructure:"global_header"`
	Options      map[string]string `mapstructure:"options"`
}

// Encoder turns frames into packets.
type Encoder struct {
	closer *astikit.Closer
	cc     *astiav.CodecContext
	params *astiav.CodecParameters
}

// NewEncoder is an engine.Factory for Encoder. The time base is read from
// KeyTimeBase and defaults to 1/25.
func NewEncoder(_ context.Context, opts options.Options) (engine.Codec[*astiav.Frame, *astiav.Packet], error) {
	cfg := EncoderConfig{PixelFormat: "yuv420p"}
	if err := options.Decode(opts, &cfg); err != nil {
		return nil, err
	}
	if err := validation.Validate(cfg); err != nil {
		return nil, err
	}
	timeBase, ok, err := rational(opts, KeyTimeBase)
	if err != nil {
		return nil, err
	}
	if !ok {
		timeBase = defaultTimeBase
	}
	pixFmt := astiav.FindPixelFormatByName(cfg.PixelFormat)
	if pixFmt == astiav.PixelFormatNone {
		return nil, errors.InvalidInput("pixel_format", fmt.Sprintf("unknown pixel format %q", cfg.PixelFormat))
	}

	codec := astiav.FindEncoderByName(cfg.Codec)
	if codec == nil {
		return nil, fmt.Errorf("encoder %q not found", cfg.Codec)
	}

	e := &Encoder{closer: astikit.NewCloser()}
	if e.cc = astiav.AllocCodecContext(codec); e.cc == nil {
		return nil, stderrors.New("encoder codec context is nil")
	}
	e.closer.Add(e.cc.Free)

	e.cc.SetWidth(cfg.Width)
	e.cc.SetHeight(cfg.Height)
	e.cc.SetPixelFormat(pixFmt)
	e.cc.SetTimeBase(timeBase)
	e.cc.SetFramerate(astiav.NewRational(timeBase.Den(), timeBase.Num()))
	if cfg.BitRate > 0 {
		e.cc.SetBitRate(cfg.BitRate)
	}
	if cfg.GOPSize > 0 {
		e.cc.SetGopSize(cfg.GOPSize)
	}
	if cfg.GlobalHeader {
		e.cc.SetFlags(e.cc.Flags() | astiav.CodecContextFlags(astiav.CodecContextFlagGlobalHeader))
	}

	dict, err := dictionary(cfg.Options)
	if err != nil {
		_ = e.closer.Close()
		return nil, err
	}
	defer freeDictionary(dict)
	if err := e.cc.Open(codec, dict); err != nil {
		_ = e.closer.Close()
		return nil, fmt.Errorf("opening encoder %s: %w", cfg.Codec, err)
	}

	if e.params = astiav.AllocCodecParameters(); e.params == nil {
		_ = e.closer.Close()
		return nil, stderrors.New("codec parameters are nil")
	}
	e.closer.Add(e.params.Free)
	if err := e.params.FromCodecContext(e.cc); err != nil {
		_ = e.closer.Close()
		return nil, fmt.Errorf("reading codec parameters: %w", err)
	}
	return e, nil
}

// Process implements engine.Codec. It releases every frame it is given.
func (e *Encoder) Process(ctx context.Context, frames []*astiav.Frame) ([]*astiav.Packet, error) {
	defer freeFrames(frames)
	var packets []*astiav.Packet
	for _, f := range frames {
		if err := ctx.Err(); err != nil {
			freePackets(packets)
			return nil, err
		}
		f.SetPictureType(astiav.PictureTypeNone)
		if err := e.cc.SendFrame(f); err != nil {
			freePackets(packets)
			return nil, fmt.Errorf("sending frame: %w", err)
		}
		var err error
		if packets, err = e.receive(packets); err != nil {
			return nil, err
		}
	}
	return packets, nil
}

// Flush implements engine.Codec.
func (e *Encoder) Flush(context.Context) ([]*astiav.Packet, error) {
	if err := e.cc.SendFrame(nil); err != nil && !stderrors.Is(err, astiav.ErrEof) {
		return nil, fmt.Errorf("flushing encoder: %w", err)
	}
	return e.receive(nil)
}

func (e *Encoder) receive(out []*astiav.Packet) ([]*astiav.Packet, error) {
	for {
		pkt := astiav.AllocPacket()
		if err := e.cc.ReceivePacket(pkt); err != nil {
			pkt.Free()
			if stderrors.Is(err, astiav.ErrEof) || stderrors.Is(err, astiav.ErrEagain) {
				return out, nil
			}
			freePackets(out)
			return nil, fmt.Errorf("receiving packet: %w", err)
		}
		out = append(out, pkt)
	}
}

// CodecParameters returns the encoder's output description for a muxer
// stream: the codec parameters and the time base packets are stamped in.
func (e *Encoder) CodecParameters() options.Options {
	return options.Options{
		KeyCodecParameters: e.params,
		KeyTimeBase:        e.cc.TimeBase(),
	}
}

// Close implements engine.Closeable.
func (e *Encoder) Close(context.Context) error {
	return e.closer.Close()
}

// CodecParametersOf returns the codec parameters of an encoder created by
// NewEncoder.
func CodecParametersOf(c engine.Codec[*astiav.Frame, *astiav.Packet]) (options.Options, error) {
	e, ok := c.(*Encoder)
	if !ok {
		return nil, fmt.Errorf("%T is not a libav encoder", c)
	}
	return e.CodecParameters(), nil
}
