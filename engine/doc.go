// Package engine defines the contract between stages and the external media
// engine that does the real work.
//
// Each stage kind talks to exactly one engine interface:
//
//   - Demuxer: pull one unit at a time, io.EOF at end of data
//   - Codec: decoder and encoder, batch in, batch out, with Flush
//   - Filterer: batch in, named output groups out, no Flush
//   - Muxer: declare streams, open output, header, units, trailer
//
// Engines are created by a Factory from fully resolved options. Stages never
// share an engine; an engine that also implements Closeable is released when
// its stage closes.
package engine
