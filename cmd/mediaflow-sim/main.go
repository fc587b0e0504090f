// Command mediaflow-sim runs a demux, decode, filter, encode and mux
// pipeline against the simulated engines. It exercises the stage layer and
// the app lifecycle without native media libraries.
package main

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/spf13/pflag"

	"github.com/kbukum/mediaflow/bootstrap"
	"github.com/kbukum/mediaflow/component"
	"github.com/kbukum/mediaflow/config"
	"github.com/kbukum/mediaflow/engine"
	"github.com/kbukum/mediaflow/engine/simengine"
	"github.com/kbukum/mediaflow/future"
	"github.com/kbukum/mediaflow/logger"
	"github.com/kbukum/mediaflow/options"
	"github.com/kbukum/mediaflow/pipeline"
	"github.com/kbukum/mediaflow/stage"
	"github.com/kbukum/mediaflow/version"
)

const serviceName = "mediaflow-sim"

type flags struct {
	configFile string
	envFile    string
	engineName string
	input      string
	output     string
	scale      string
	codec      string
	shutdown   time.Duration
	version    bool
}

func parseFlags() flags {
	var f flags
	pflag.StringVarP(&f.configFile, "config", "c", "", "path to a config file")
	pflag.StringVar(&f.envFile, "env-file", "", "path to a .env file")
	pflag.StringVar(&f.engineName, "engine", "sim", "engine backend for every stage")
	pflag.StringVarP(&f.input, "input", "i", "input.mp4", "input URL")
	pflag.StringVarP(&f.output, "output", "o", "output.mkv", "output URL")
	pflag.StringVar(&f.scale, "scale", "", "filter spec applied between decode and encode, e.g. scale=1280:720")
	pflag.StringVar(&f.codec, "codec", "sim264", "output codec")
	pflag.DurationVar(&f.shutdown, "shutdown-timeout", 15*time.Second, "upper bound for stopping stages and flushing telemetry")
	pflag.BoolVarP(&f.version, "version", "v", false, "print the version and exit")
	pflag.Parse()
	return f
}

// engines holds one registry per engine kind.
type engines struct {
	demuxers  *engine.Registry[engine.Demuxer[simengine.Packet]]
	decoders  *engine.Registry[engine.Codec[simengine.Packet, simengine.Frame]]
	encoders  *engine.Registry[engine.Codec[simengine.Frame, simengine.Packet]]
	filterers *engine.Registry[engine.Filterer[simengine.Frame, simengine.Frame]]
	muxers    *engine.Registry[engine.Muxer[simengine.Packet]]
}

func newEngines() *engines {
	e := &engines{
		demuxers:  engine.NewRegistry[engine.Demuxer[simengine.Packet]](),
		decoders:  engine.NewRegistry[engine.Codec[simengine.Packet, simengine.Frame]](),
		encoders:  engine.NewRegistry[engine.Codec[simengine.Frame, simengine.Packet]](),
		filterers: engine.NewRegistry[engine.Filterer[simengine.Frame, simengine.Frame]](),
		muxers:    engine.NewRegistry[engine.Muxer[simengine.Packet]](),
	}
	e.demuxers.RegisterFactory("sim", simengine.NewDemuxer)
	e.decoders.RegisterFactory("sim", simengine.NewDecoder)
	e.encoders.RegisterFactory("sim", simengine.NewEncoder)
	e.filterers.RegisterFactory("sim", simengine.NewFilterer)
	e.muxers.RegisterFactory("sim", simengine.NewMuxer)
	return e
}

func main() {
	f := parseFlags()
	if f.version {
		fmt.Println(version.Get().String())
		return
	}
	if err := run(f); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", serviceName, err)
		os.Exit(1)
	}
}

func run(f flags) error {
	ctx := context.Background()

	var loadOpts []config.LoaderOption
	if f.configFile != "" {
		loadOpts = append(loadOpts, config.WithConfigFile(f.configFile))
	}
	if f.envFile != "" {
		loadOpts = append(loadOpts, config.WithEnvFile(f.envFile))
	}
	cfg, err := config.Load(serviceName, loadOpts...)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	app, err := bootstrap.NewApp(ctx, cfg, bootstrap.WithGracefulTimeout(f.shutdown))
	if err != nil {
		return err
	}

	p, err := buildPipeline(ctx, app, newEngines(), f)
	if err != nil {
		return err
	}
	return app.RunTask(ctx, p.run)
}

type transcode struct {
	log     *logger.Logger
	runner  *pipeline.Runnable
	packets atomic.Int64
}

func (t *transcode) run(ctx context.Context) error {
	if err := t.runner.Run(ctx); err != nil {
		return err
	}
	t.log.Info("Transcode complete", logger.Fields("packets", t.packets.Load()))
	return nil
}

// buildPipeline creates every stage, registers them with the app in
// pipeline order and composes the chain.
func buildPipeline(ctx context.Context, app *bootstrap.App, e *engines, f flags) (*transcode, error) {
	withEngine := func(o options.Options) options.Options {
		o["engine"] = f.engineName
		return o
	}

	demux, err := stage.NewSource(ctx, withEngine(options.Options{"url": f.input}),
		engine.Retrying(e.demuxers.Select("engine", "sim"), app.Cfg.Stream.OpenRetry), app.StreamOptions("demux"))
	if err != nil {
		return nil, err
	}
	video, err := stage.Predicate(func(_ context.Context, p simengine.Packet) (bool, error) {
		return p.StreamIndex == simengine.VideoStream, nil
	}, app.StreamOptions("video-only"))
	if err != nil {
		return nil, err
	}
	dec, err := stage.NewDecoder(ctx, withEngine(options.Options{"stream_index": simengine.VideoStream}),
		e.decoders.Select("engine", "sim"),
		stage.TransformOptions[simengine.Frame]{StreamOptions: app.StreamOptions("decode")})
	if err != nil {
		return nil, err
	}

	frames := dec.Via(video.Via(demux.Pipeline()))
	stages := []component.Component{demux, video, dec}

	if f.scale != "" {
		scale, err := stage.NewFilterer(ctx, withEngine(options.Options{"filter_spec": f.scale}),
			e.filterers.Select("engine", "sim"),
			stage.TransformOptions[simengine.Frame]{StreamOptions: app.StreamOptions("filter")})
		if err != nil {
			return nil, err
		}
		frames = scale.Via(frames)
		stages = append(stages, scale)
	}

	enc, err := stage.NewEncoder(ctx, withEngine(options.Options{"codec": f.codec}), e.encoders.Select("engine", "sim"),
		stage.TransformOptions[simengine.Packet]{StreamOptions: app.StreamOptions("encode")})
	if err != nil {
		return nil, err
	}
	mux, err := stage.NewSink(ctx, withEngine(options.Options{
		"url":    f.output,
		"stream": options.Options{"codecpar": future.Then(ctx, enc.Engine(), simengine.CodecParametersOf)},
	}), engine.Retrying(e.muxers.Select("engine", "sim"), app.Cfg.Stream.OpenRetry), app.StreamOptions("mux"))
	if err != nil {
		return nil, err
	}

	if err := app.Register(append(stages, enc, mux)...); err != nil {
		return nil, err
	}

	t := &transcode{log: app.Logger}
	packets := pipeline.Tap(enc.Via(frames), func(context.Context, simengine.Packet) error {
		t.packets.Add(1)
		return nil
	})
	t.runner = mux.From(packets)
	return t, nil
}
