package engine

import "context"

// Closeable is optionally implemented by engines that hold native resources.
// The owning stage calls Close once when it is torn down.
type Closeable interface {
	Close(ctx context.Context) error
}

// Close releases e if it implements Closeable.
func Close(ctx context.Context, e any) error {
	if c, ok := e.(Closeable); ok {
		return c.Close(ctx)
	}
	return nil
}
