// Package libav implements the mediaflow engine contracts on top of FFmpeg
// through go-astiav.
//
// Units are *astiav.Packet and *astiav.Frame. Every unit an engine returns
// is a fresh reference owned by the caller, and every unit handed to an
// engine is released by it, so a unit travels through a pipeline without
// copies and is freed exactly once by the last engine that touches it.
//
// Stages wire engines together through deferred configuration:
//
//	demux, _ := stage.NewSource(ctx, "input.mp4", libav.NewDemuxer, stage.StreamOptions{})
//	dec, _ := stage.NewDecoder(ctx, options.Options{
//		libav.KeyStream: future.Then(ctx, demux.Engine(), libav.BestStream(astiav.MediaTypeVideo)),
//	}, libav.NewDecoder, stage.TransformOptions[*astiav.Frame]{})
//	enc, _ := stage.NewEncoder(ctx, options.Options{
//		"codec": "mpeg4", "width": 1280, "height": 720, "pixel_format": "yuv420p",
//	}, libav.NewEncoder, stage.TransformOptions[*astiav.Packet]{})
//	mux, _ := stage.NewSink(ctx, options.Options{
//		"url":    "out.mkv",
//		"stream": options.Options{"codecpar": future.Then(ctx, enc.Engine(), libav.CodecParametersOf)},
//	}, libav.NewMuxer, stage.StreamOptions{})
//
// This package needs cgo and the FFmpeg development libraries go-astiav
// builds against; it lives in its own module so the root module stays pure
// Go.
package libav
