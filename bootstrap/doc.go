// Package bootstrap runs a media pipeline as a finite task with the same
// lifecycle every time: load configuration, initialize logging and
// telemetry, start stages in registration order, run the pipeline, then stop
// stages in reverse order within a graceful timeout.
//
//	cfg, _ := config.Load("mediaflow-sim")
//	app, _ := bootstrap.NewApp(cfg)
//	dec, _ := stage.NewDecoder(ctx, nil, simengine.NewDecoder, stage.TransformOptions[simengine.Frame]{
//		StreamOptions: app.StreamOptions("decode"),
//	})
//	_ = app.Register(dec)
//	err := app.RunTask(ctx, func(ctx context.Context) error {
//		return mux.From(enc.Via(dec.Via(demux.Pipeline()))).Run(ctx)
//	})
//
// SIGINT and SIGTERM cancel the task; stages still release their engines.
package bootstrap
