package bootstrap

import (
	"context"
	"fmt"

	"github.com/kbukum/mediaflow/observability"
)

const meterName = "github.com/kbukum/mediaflow/stage"

// setupTelemetry installs the OTLP tracer and meter providers the config
// enables and registers their shutdown as OnStop hooks. Stage metrics are
// created on the global meter either way, so they are no-ops without a
// provider.
func (a *App) setupTelemetry(ctx context.Context) error {
	svc := observability.Service{Name: a.Name, Version: a.Version, Environment: a.Cfg.Environment}

	if t := a.Cfg.Tracing; t.Enabled {
		tp, err := observability.InitTracer(ctx, observability.TracerConfig{
			Service:    svc,
			Collector:  observability.Collector{Endpoint: t.Endpoint, Insecure: t.Insecure},
			SampleRate: t.SampleRate,
		})
		if err != nil {
			return fmt.Errorf("initializing tracer: %w", err)
		}
		a.OnStop(tp.Shutdown)
	}

	if m := a.Cfg.Metrics; m.Enabled {
		mc := observability.DefaultMeterConfig(a.Name)
		mc.Service = svc
		mc.Collector = observability.Collector{Endpoint: m.Endpoint, Insecure: m.Insecure}
		mp, err := observability.InitMeter(ctx, mc)
		if err != nil {
			return fmt.Errorf("initializing meter: %w", err)
		}
		a.OnStop(mp.Shutdown)
	}

	metrics, err := observability.NewStageMetrics(observability.Meter(meterName))
	if err != nil {
		return err
	}
	a.Metrics = metrics
	return nil
}
