package libav

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/asticode/go-astiav"
	"github.com/asticode/go-astikit"

	"github.com/kbukum/mediaflow/engine"
	"github.com/kbukum/mediaflow/options"
	"github.com/kbukum/mediaflow/validation"
)

// FiltererConfig configures a Filterer. FilterSpec is an FFmpeg video
// filter description such as "scale=1280:720".
type FiltererConfig struct {
	FilterSpec string `mapstructure:"filter_spec" validate:"required"`
	Output     string `mapstructure:"output" validate:"required"`
}

// Filterer runs frames through a single-input, single-output video filter
// graph. The graph is configured from the first frame it sees.
type Filterer struct {
	cfg      FiltererConfig
	timeBase astiav.Rational
	closer   *astikit.Closer

	graph *astiav.FilterGraph
	src   *astiav.BuffersrcFilterContext
	sink  *astiav.BuffersinkFilterContext
}

// NewFilterer is an engine.Factory for Filterer. The input time base is read
// from KeyTimeBase and defaults to 1/25.
func NewFilterer(_ context.Context, opts options.Options) (engine.Filterer[*astiav.Frame, *astiav.Frame], error) {
	cfg := FiltererConfig{Output: "out"}
	if err := options.Decode(opts, &cfg); err != nil {
		return nil, err
	}
	if err := validation.Validate(cfg); err != nil {
		return nil, err
	}
	tb, ok, err := rational(opts, KeyTimeBase)
	if err != nil {
		return nil, err
	}
	if !ok {
		tb = defaultTimeBase
	}
	return &Filterer{cfg: cfg, timeBase: tb, closer: astikit.NewCloser()}, nil
}

func (f *Filterer) configure(first *astiav.Frame) error {
	graph := astiav.AllocFilterGraph()
	if graph == nil {
		return stderrors.New("unable to allocate filter graph")
	}
	f.closer.Add(graph.Free)

	srcFilter := astiav.FindFilterByName("buffer")
	sinkFilter := astiav.FindFilterByName("buffersink")
	if srcFilter == nil || sinkFilter == nil {
		return stderrors.New("buffer or buffersink filter not found")
	}
	src, err := graph.NewBuffersrcFilterContext(srcFilter, "in")
	if err != nil {
		return fmt.Errorf("creating buffersrc: %w", err)
	}
	sink, err := graph.NewBuffersinkFilterContext(sinkFilter, "out")
	if err != nil {
		return fmt.Errorf("creating buffersink: %w", err)
	}

	params := astiav.AllocBuffersrcFilterContextParameters()
	defer params.Free()
	params.SetWidth(first.Width())
	params.SetHeight(first.Height())
	params.SetPixelFormat(first.PixelFormat())
	params.SetTimeBase(f.timeBase)
	params.SetSampleAspectRatio(first.SampleAspectRatio())
	if err := src.SetParameters(params); err != nil {
		return fmt.Errorf("setting buffersrc parameters: %w", err)
	}
	if err := src.Initialize(nil); err != nil {
		return fmt.Errorf("initializing buffersrc: %w", err)
	}

	outputs := astiav.AllocFilterInOut()
	defer outputs.Free()
	outputs.SetName("in")
	outputs.SetFilterContext(src.FilterContext())
	outputs.SetPadIdx(0)
	outputs.SetNext(nil)

	inputs := astiav.AllocFilterInOut()
	defer inputs.Free()
	inputs.SetName("out")
	inputs.SetFilterContext(sink.FilterContext())
	inputs.SetPadIdx(0)
	inputs.SetNext(nil)

	if err := graph.Parse(f.cfg.FilterSpec, inputs, outputs); err != nil {
		return fmt.Errorf("parsing filter %q: %w", f.cfg.FilterSpec, err)
	}
	if err := graph.Configure(); err != nil {
		return fmt.Errorf("configuring filter graph: %w", err)
	}
	f.graph, f.src, f.sink = graph, src, sink
	return nil
}

// Filter implements engine.Filterer. It releases every frame it is given
// and returns the filtered frames as one group named by the Output option.
func (f *Filterer) Filter(ctx context.Context, frames []*astiav.Frame) ([]engine.Group[*astiav.Frame], error) {
	defer freeFrames(frames)
	var out []*astiav.Frame
	for _, fr := range frames {
		if err := ctx.Err(); err != nil {
			freeFrames(out)
			return nil, err
		}
		if f.graph == nil {
			if err := f.configure(fr); err != nil {
				return nil, err
			}
		}
		if err := f.src.AddFrame(fr, astiav.NewBuffersrcFlags(astiav.BuffersrcFlagKeepRef)); err != nil {
			freeFrames(out)
			return nil, fmt.Errorf("adding frame to filter graph: %w", err)
		}
		for {
			filtered := astiav.AllocFrame()
			if err := f.sink.GetFrame(filtered, astiav.NewBuffersinkFlags()); err != nil {
				filtered.Free()
				if stderrors.Is(err, astiav.ErrEof) || stderrors.Is(err, astiav.ErrEagain) {
					break
				}
				freeFrames(out)
				return nil, fmt.Errorf("getting filtered frame: %w", err)
			}
			out = append(out, filtered)
		}
	}
	return []engine.Group[*astiav.Frame]{{Name: f.cfg.Output, Units: out}}, nil
}

// Close implements engine.Closeable.
func (f *Filterer) Close(context.Context) error {
	return f.closer.Close()
}
