// Package stage adapts media engines to pipeline stages.
//
// Each stage owns one engine. Construction starts when the stage is
// created: its configuration is resolved (fields may be futures produced by
// other stages) and the engine is created in the background. Engine()
// exposes the engine as a future so downstream configuration can depend on
// it, for example a sink stream whose codec parameters come from an
// encoder.
//
// Stages are single-flight: a stage never runs two engine calls at once,
// and a transform does not pull its next input until every unit produced
// by the previous one has been taken downstream.
//
//	demux, _ := stage.NewSource(ctx, "input.mp4", libav.NewDemuxer, stage.StreamOptions{})
//	video, _ := stage.Predicate(func(_ context.Context, p *astiav.Packet) (bool, error) {
//	    return p.StreamIndex() == 0, nil
//	}, stage.StreamOptions{})
//	dec, _ := stage.NewDecoder(ctx, decCfg, libav.NewDecoder, stage.TransformOptions[*astiav.Frame]{})
//	enc, _ := stage.NewEncoder(ctx, encCfg, libav.NewEncoder, stage.TransformOptions[*astiav.Packet]{})
//	mux, _ := stage.NewSink(ctx, muxCfg, libav.NewMuxer, stage.StreamOptions{})
//
//	packets := enc.Via(dec.Via(video.Via(demux.Pipeline())))
//	err := mux.From(packets).Run(ctx)
package stage
