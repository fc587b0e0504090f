package options

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/kbukum/mediaflow/errors"
	"github.com/kbukum/mediaflow/future"
)

// Resolve returns v with every pending value settled.
//
// A pending v is awaited first. A mapping has all of its fields awaited
// concurrently and a new mapping with the same keys is returned; only
// top-level fields are awaited, nested mappings are kept as they are. Any
// other value is returned unchanged. The first field to fail fails the
// whole resolution and no partial mapping is returned.
func Resolve(ctx context.Context, v any) (any, error) {
	v, err := future.AwaitValue(ctx, v)
	if err != nil {
		return nil, resolveError("", err)
	}
	m, ok := AsOptions(v)
	if !ok {
		return v, nil
	}
	return resolveFields(ctx, m)
}

// ResolveOptions resolves v and requires the result to be a mapping.
// A bare string is shorthand for {"url": s}; nil resolves to empty Options.
func ResolveOptions(ctx context.Context, v any) (Options, error) {
	r, err := Resolve(ctx, v)
	if err != nil {
		return nil, err
	}
	switch o := r.(type) {
	case nil:
		return Options{}, nil
	case string:
		return Options{KeyURL: o}, nil
	case Options:
		return o, nil
	default:
		return nil, errors.Configuration(fmt.Sprintf("configuration must be a mapping or a string, got %T", r))
	}
}

func resolveFields(ctx context.Context, m Options) (Options, error) {
	out := make(Options, len(m))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for k, v := range m {
		if _, pending := v.(future.Pending); !pending {
			mu.Lock()
			out[k] = v
			mu.Unlock()
			continue
		}
		g.Go(func() error {
			r, err := future.AwaitValue(gctx, v)
			if err != nil {
				return resolveError(k, err)
			}
			mu.Lock()
			out[k] = r
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}
	return out, nil
}

func resolveError(field string, err error) error {
	if errors.IsCanceled(err) {
		return err
	}
	msg := "pending configuration failed"
	if field != "" {
		msg = fmt.Sprintf("pending configuration field %q failed", field)
	}
	appErr := errors.Configuration(msg).WithCause(err)
	if field != "" {
		appErr.WithDetail("field", field)
	}
	return appErr
}
