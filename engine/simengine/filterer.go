package simengine

import (
	"context"
	"fmt"
	"strings"

	"github.com/kbukum/mediaflow/engine"
	"github.com/kbukum/mediaflow/options"
	"github.com/kbukum/mediaflow/validation"
)

// FiltererConfig configures a Filterer. FilterSpec is "null" or
// "scale=W:H".
type FiltererConfig struct {
	FilterSpec string `mapstructure:"filter_spec" validate:"required"`
	Output     string `mapstructure:"output" validate:"required"`
}

// Filterer applies a single filter to every frame and returns the result
// as one named group.
type Filterer struct {
	Recorder
	output string
	width  int
	height int
}

// NewFilterer is an engine.Factory for Filterer.
func NewFilterer(_ context.Context, opts options.Options) (engine.Filterer[Frame, Frame], error) {
	cfg := FiltererConfig{Output: "out"}
	if err := options.Decode(opts, &cfg); err != nil {
		return nil, err
	}
	if err := validation.Validate(cfg); err != nil {
		return nil, err
	}
	f := &Filterer{output: cfg.Output}
	spec := strings.TrimSpace(cfg.FilterSpec)
	if spec == "null" {
		return f, nil
	}
	if _, err := fmt.Sscanf(spec, "scale=%d:%d", &f.width, &f.height); err != nil {
		return nil, fmt.Errorf("unsupported filter %q: %w", spec, err)
	}
	if f.width <= 0 || f.height <= 0 {
		return nil, fmt.Errorf("invalid scale %dx%d", f.width, f.height)
	}
	return f, nil
}

// Filter implements engine.Filterer.
func (f *Filterer) Filter(_ context.Context, frames []Frame) ([]engine.Group[Frame], error) {
	defer f.enter()()
	f.record("filter %d", len(frames))
	out := make([]Frame, 0, len(frames))
	for _, fr := range frames {
		if f.width > 0 {
			fr.Width, fr.Height = f.width, f.height
		}
		out = append(out, fr)
	}
	return []engine.Group[Frame]{{Name: f.output, Units: out}}, nil
}
