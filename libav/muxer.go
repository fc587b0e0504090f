package libav

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"

	"github.com/asticode/go-astiav"
	"github.com/asticode/go-astikit"

	"github.com/kbukum/mediaflow/engine"
	"github.com/kbukum/mediaflow/errors"
	"github.com/kbukum/mediaflow/options"
	"github.com/kbukum/mediaflow/validation"
)

// MuxerConfig configures a Muxer. The container format is guessed from URL
// unless Format is set.
type MuxerConfig struct {
	URL     string            `mapstructure:"url"`
	Format  string            `mapstructure:"format"`
	Options map[string]string `mapstructure:"options"`
}

// Muxer writes packets into an output container.
type Muxer struct {
	closer *astikit.Closer
	fc     *astiav.FormatContext
	url    string
	opts   map[string]string

	mu      sync.Mutex
	streams map[int]*Stream
}

// Stream is an output stream declared on a Muxer.
type Stream struct {
	stream *astiav.Stream
	// src is the time base of the packets written to this stream.
	src astiav.Rational
}

// Index implements engine.Stream.
func (s *Stream) Index() int { return s.stream.Index() }

// SetCodecParameters implements engine.Stream. It copies the codec
// parameters under KeyCodecParameters and records KeyTimeBase as the time
// base of incoming packets.
func (s *Stream) SetCodecParameters(_ context.Context, params options.Options) error {
	if cp, ok := params[KeyCodecParameters].(*astiav.CodecParameters); ok && cp != nil {
		if err := cp.Copy(s.stream.CodecParameters()); err != nil {
			return fmt.Errorf("copying codec parameters: %w", err)
		}
		s.stream.CodecParameters().SetCodecTag(0)
	}
	tb, ok, err := rational(params, KeyTimeBase)
	if err != nil {
		return err
	}
	if ok {
		s.src = tb
		s.stream.SetTimeBase(tb)
	}
	return nil
}

// NewMuxer is an engine.Factory for Muxer.
func NewMuxer(_ context.Context, opts options.Options) (engine.Muxer[*astiav.Packet], error) {
	var cfg MuxerConfig
	if err := options.Decode(opts, &cfg); err != nil {
		return nil, err
	}
	if err := validation.Validate(cfg); err != nil {
		return nil, err
	}
	// Either a url or a format picks the container.
	if appErr := validation.New().Required("url", cfg.URL+cfg.Format).Validate(); appErr != nil {
		return nil, appErr
	}

	fc, err := astiav.AllocOutputFormatContext(nil, cfg.Format, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("allocating output format context: %w", err)
	}
	if fc == nil {
		return nil, stderrors.New("output format context is nil")
	}
	m := &Muxer{
		closer:  astikit.NewCloser(),
		fc:      fc,
		url:     cfg.URL,
		opts:    cfg.Options,
		streams: make(map[int]*Stream),
	}
	m.closer.Add(fc.Free)
	return m, nil
}

// NewStream implements engine.Muxer. A KeyTimeBase entry in decl sets the
// stream time base.
func (m *Muxer) NewStream(_ context.Context, decl options.Options) (engine.Stream, error) {
	s := m.fc.NewStream(nil)
	if s == nil {
		return nil, stderrors.New("output stream is nil")
	}
	st := &Stream{stream: s}
	tb, ok, err := rational(decl, KeyTimeBase)
	if err != nil {
		return nil, err
	}
	if ok {
		st.src = tb
		s.SetTimeBase(tb)
	}
	m.mu.Lock()
	m.streams[s.Index()] = st
	m.mu.Unlock()
	return st, nil
}

// OpenOutput implements engine.Muxer.
func (m *Muxer) OpenOutput(_ context.Context, url string) error {
	if url == "" {
		url = m.url
	}
	if m.fc.OutputFormat().Flags().Has(astiav.IOFormatFlagNofile) {
		return nil
	}
	if url == "" {
		return errors.MissingField("url")
	}
	ioCtx, err := astiav.OpenIOContext(url, astiav.NewIOContextFlags(astiav.IOContextFlagWrite), nil, nil)
	if err != nil {
		return fmt.Errorf("opening io context %s: %w", url, err)
	}
	m.closer.AddWithError(ioCtx.Close)
	m.fc.SetPb(ioCtx)
	return nil
}

// WriteHeader implements engine.Muxer.
func (m *Muxer) WriteHeader(context.Context) error {
	dict, err := dictionary(m.opts)
	if err != nil {
		return err
	}
	defer freeDictionary(dict)
	if err := m.fc.WriteHeader(dict); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	return nil
}

// WriteUnit implements engine.Muxer. The packet is rescaled from its
// stream's source time base and released.
func (m *Muxer) WriteUnit(_ context.Context, pkt *astiav.Packet) error {
	defer pkt.Free()
	m.mu.Lock()
	s, ok := m.streams[pkt.StreamIndex()]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("packet for undeclared stream %d", pkt.StreamIndex())
	}
	if s.src.Num() != 0 {
		pkt.RescaleTs(s.src, s.stream.TimeBase())
	}
	if err := m.fc.WriteInterleavedFrame(pkt); err != nil {
		return fmt.Errorf("writing packet: %w", err)
	}
	return nil
}

// WriteTrailer implements engine.Muxer.
func (m *Muxer) WriteTrailer(context.Context) error {
	if err := m.fc.WriteTrailer(); err != nil {
		return fmt.Errorf("writing trailer: %w", err)
	}
	return nil
}

// Close implements engine.Closeable.
func (m *Muxer) Close(context.Context) error {
	return m.closer.Close()
}
