package stage

import (
	"context"

	"github.com/kbukum/mediaflow/logger"
	"github.com/kbukum/mediaflow/observability"
	"github.com/kbukum/mediaflow/validation"
)

// StreamOptions are the pipeline-level options every stage accepts.
type StreamOptions struct {
	// HighWaterMark is the number of units that may wait downstream of the
	// stage. 0 keeps the stage a pure pull step.
	HighWaterMark int `mapstructure:"high_water_mark" validate:"gte=0"`
	// Name labels the stage in logs, spans and metrics. Defaults to the
	// stage kind plus a short instance ID.
	Name string `mapstructure:"name"`
	// Logger defaults to logger.Get("stage").
	Logger *logger.Logger `mapstructure:"-"`
	// Metrics is optional; when nil no metrics are recorded.
	Metrics *observability.StageMetrics `mapstructure:"-"`
}

// Validate checks the options.
func (o StreamOptions) Validate() error {
	return validation.Validate(o)
}

// TransformOptions configure a decoder, encoder or filterer stage. U is the
// engine's output unit type.
type TransformOptions[U any] struct {
	StreamOptions
	// PostProcess, if set, is applied to every non-empty batch the engine
	// returns, including the flush batch, before it is emitted. Returning an
	// empty batch emits nothing.
	PostProcess func(ctx context.Context, units []U) ([]U, error)
}
