package bootstrap

import (
	"io"
	"time"

	"github.com/kbukum/mediaflow/logger"
)

// Option customizes an App in NewApp.
type Option func(*App)

// WithLogger replaces the logger NewApp would build from the config's
// logging section.
func WithLogger(l *logger.Logger) Option {
	return func(a *App) { a.Logger = l }
}

// WithGracefulTimeout bounds the whole shutdown, stop hooks included.
func WithGracefulTimeout(d time.Duration) Option {
	return func(a *App) { a.gracefulTimeout = d }
}

// WithSummaryOutput redirects the run summaries, stdout by default. A nil
// writer silences them.
func WithSummaryOutput(w io.Writer) Option {
	return func(a *App) {
		if w == nil {
			w = io.Discard
		}
		a.summaryOut = w
	}
}
