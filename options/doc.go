// Package options implements stage configuration objects.
//
// An Options value maps option names to concrete values or to pending
// values (anything implementing future.Pending, including futures of
// futures). Resolve awaits every top-level field concurrently and yields a
// plain Options once all of them have settled; Decode then maps the
// resolved object onto an engine's typed configuration struct.
//
//	cfg := options.Options{
//	    "name":    "libx264",
//	    "pix_fmt": future.Then(ctx, dec.Engine(), pixelFormatOf),
//	}
//	resolved, err := options.ResolveOptions(ctx, cfg)
package options
