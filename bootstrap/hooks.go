package bootstrap

import (
	"context"
	stderrors "errors"
	"fmt"
	"slices"
)

// Hook runs around the stage lifecycle.
type Hook func(ctx context.Context) error

// OnStart adds hooks that run once every stage is ready, before the task.
func (a *App) OnStart(hooks ...Hook) {
	a.onStart = append(a.onStart, hooks...)
}

// OnStop adds hooks that run after the stages stop, last added first.
// Telemetry providers flush here.
func (a *App) OnStop(hooks ...Hook) {
	a.onStop = append(a.onStop, hooks...)
}

func (a *App) runStartHooks(ctx context.Context) error {
	for i, h := range a.onStart {
		if err := h(ctx); err != nil {
			return fmt.Errorf("start hook %d: %w", i, err)
		}
	}
	return nil
}

func (a *App) runStopHooks(ctx context.Context) error {
	var errs []error
	for i, h := range slices.Backward(a.onStop) {
		if err := h(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop hook %d: %w", i, err))
		}
	}
	return stderrors.Join(errs...)
}
