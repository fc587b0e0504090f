package engine

import (
	"context"

	"github.com/kbukum/mediaflow/options"
)

// Demuxer reads units from an input container.
type Demuxer[U any] interface {
	// Read returns the next unit, or io.EOF once the input is exhausted.
	Read(ctx context.Context) (U, error)
}

// Codec is a decoder or an encoder. Process may return fewer or more units
// than it was given; Flush drains whatever the engine still buffers.
type Codec[I, O any] interface {
	Process(ctx context.Context, units []I) ([]O, error)
	Flush(ctx context.Context) ([]O, error)
}

// Group is one named output of a filter graph.
type Group[O any] struct {
	Name  string
	Units []O
}

// Filterer runs units through a filter graph.
type Filterer[I, O any] interface {
	Filter(ctx context.Context, units []I) ([]Group[O], error)
}

// Stream is an output stream declared on a Muxer.
type Stream interface {
	Index() int
	// SetCodecParameters merges codec parameters into the stream.
	SetCodecParameters(ctx context.Context, params options.Options) error
}

// Muxer writes units into an output container.
type Muxer[U any] interface {
	NewStream(ctx context.Context, decl options.Options) (Stream, error)
	// OpenOutput opens the output location; an empty url uses the one the
	// muxer was created with.
	OpenOutput(ctx context.Context, url string) error
	WriteHeader(ctx context.Context) error
	WriteUnit(ctx context.Context, unit U) error
	WriteTrailer(ctx context.Context) error
}

// Factory creates an engine from resolved options.
type Factory[E any] func(ctx context.Context, opts options.Options) (E, error)
