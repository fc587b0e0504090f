// Package simengine is a deterministic in-memory media engine.
//
// It implements every engine contract over plain Packet and Frame values so
// pipelines can be built and tested without native libraries. The default
// Fixture reproduces the shape of a short two-stream recording: 1719
// packets of which 555 belong to the video stream. The decoder is one frame
// per packet; the encoder holds a few frames of lookahead and drops every
// eleventh frame, so 555 decoded frames become 505 packets.
//
// Every engine records the calls made on it so tests can assert ordering.
package simengine
