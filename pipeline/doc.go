// Package pipeline provides composable, pull-based stream plumbing.
//
// Pipelines are lazy. No work happens until values are pulled via Collect,
// Drain, ForEach or a Runnable returned by Into. Each stage pulls from the
// previous one on demand, so a slow consumer slows the producer.
//
// # Operators
//
//   - Map: transform each value
//   - Filter: keep values matching a predicate
//   - Tap: side-effect without altering the value
//   - Buffer: read ahead a bounded number of values in a goroutine
//   - Via: attach a Stage, adding a Buffer when the stage asks for one
//   - Into: write every value to a Sink and close it
//
// # Usage
//
//	frames := pipeline.Via(packets, pipeline.Stage[Packet, []Frame](decoder))
//	frames = pipeline.Buffer(frames, 4)
//	err := pipeline.ForEach(ctx, frames, render)
package pipeline
