package simengine

import (
	"context"
	"fmt"
	"sync"

	"github.com/kbukum/mediaflow/engine"
	"github.com/kbukum/mediaflow/options"
)

// MuxerConfig configures a Muxer.
type MuxerConfig struct {
	URL      string `mapstructure:"url"`
	Filename string `mapstructure:"filename"`
	Format   string `mapstructure:"format"`
}

// Muxer records what would be written to a container and enforces the
// container call order: streams, open, header, units, trailer.
type Muxer struct {
	Recorder
	cfg MuxerConfig

	mu      sync.Mutex
	url     string
	streams []*Stream
	units   []Packet
	opened  bool
	header  bool
	trailer bool
}

// Stream is a declared output stream.
type Stream struct {
	mu     sync.Mutex
	index  int
	decl   options.Options
	params options.Options
}

// Index implements engine.Stream.
func (s *Stream) Index() int { return s.index }

// SetCodecParameters implements engine.Stream.
func (s *Stream) SetCodecParameters(_ context.Context, params options.Options) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.params == nil {
		s.params = options.Options{}
	}
	for k, v := range params {
		s.params[k] = v
	}
	return nil
}

// Declaration returns the options the stream was declared with.
func (s *Stream) Declaration() options.Options { return s.decl }

// CodecParameters returns the merged codec parameters.
func (s *Stream) CodecParameters() options.Options {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.params.Clone()
}

// NewMuxer is an engine.Factory for Muxer.
func NewMuxer(_ context.Context, opts options.Options) (engine.Muxer[Packet], error) {
	var cfg MuxerConfig
	if err := options.Decode(opts, &cfg); err != nil {
		return nil, err
	}
	return &Muxer{cfg: cfg}, nil
}

// NewStream implements engine.Muxer.
func (m *Muxer) NewStream(_ context.Context, decl options.Options) (engine.Stream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.header {
		return nil, fmt.Errorf("stream declared after header")
	}
	s := &Stream{index: len(m.streams), decl: decl.Clone()}
	m.streams = append(m.streams, s)
	m.record("new_stream %d", s.index)
	return s, nil
}

// OpenOutput implements engine.Muxer.
func (m *Muxer) OpenOutput(_ context.Context, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if url == "" {
		url = m.cfg.URL
	}
	if url == "" {
		url = m.cfg.Filename
	}
	if url == "" {
		return fmt.Errorf("no output url")
	}
	if m.opened {
		return fmt.Errorf("output already open at %s", m.url)
	}
	m.url, m.opened = url, true
	m.record("open_output %s", url)
	return nil
}

// WriteHeader implements engine.Muxer.
func (m *Muxer) WriteHeader(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case !m.opened:
		return fmt.Errorf("header written before output was opened")
	case m.header:
		return fmt.Errorf("header already written")
	}
	m.header = true
	m.record("write_header")
	return nil
}

// WriteUnit implements engine.Muxer.
func (m *Muxer) WriteUnit(_ context.Context, p Packet) error {
	defer m.enter()()
	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case !m.header:
		return fmt.Errorf("unit written before header")
	case m.trailer:
		return fmt.Errorf("unit written after trailer")
	case p.StreamIndex < 0 || p.StreamIndex >= len(m.streams):
		return fmt.Errorf("no stream %d", p.StreamIndex)
	}
	m.units = append(m.units, p)
	m.record("write_unit %d", p.StreamIndex)
	return nil
}

// WriteTrailer implements engine.Muxer.
func (m *Muxer) WriteTrailer(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case !m.header:
		return fmt.Errorf("trailer written before header")
	case m.trailer:
		return fmt.Errorf("trailer already written")
	}
	m.trailer = true
	m.record("write_trailer")
	return nil
}

// Close implements engine.Closeable.
func (m *Muxer) Close(context.Context) error {
	m.record("close")
	return nil
}

// URL returns the opened output location.
func (m *Muxer) URL() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.url
}

// Streams returns the declared streams.
func (m *Muxer) Streams() []*Stream {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*Stream(nil), m.streams...)
}

// Units returns the written units in write order.
func (m *Muxer) Units() []Packet {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Packet(nil), m.units...)
}
