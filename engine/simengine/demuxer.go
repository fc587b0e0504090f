package simengine

import (
	"context"
	"io"

	"github.com/kbukum/mediaflow/engine"
	"github.com/kbukum/mediaflow/options"
	"github.com/kbukum/mediaflow/validation"
)

// DemuxerConfig configures a Demuxer. Fixture fields are optional and
// default to DefaultFixture.
type DemuxerConfig struct {
	URL     string `mapstructure:"url" validate:"required"`
	Fixture `mapstructure:",squash"`
}

// Demuxer yields the packets of a Fixture.
type Demuxer struct {
	Recorder
	url     string
	packets []Packet
	pos     int
}

// NewDemuxer is an engine.Factory for Demuxer.
func NewDemuxer(_ context.Context, opts options.Options) (engine.Demuxer[Packet], error) {
	cfg := DemuxerConfig{Fixture: DefaultFixture()}
	if err := options.Decode(opts, &cfg); err != nil {
		return nil, err
	}
	if err := validation.Validate(cfg); err != nil {
		return nil, err
	}
	return &Demuxer{url: cfg.URL, packets: cfg.Generate()}, nil
}

// Read implements engine.Demuxer.
func (d *Demuxer) Read(ctx context.Context) (Packet, error) {
	defer d.enter()()
	if err := ctx.Err(); err != nil {
		return Packet{}, err
	}
	if d.pos >= len(d.packets) {
		d.record("read eof")
		return Packet{}, io.EOF
	}
	p := d.packets[d.pos]
	d.pos++
	return p, nil
}

// Close implements engine.Closeable.
func (d *Demuxer) Close(context.Context) error {
	d.record("close")
	return nil
}
