package bootstrap

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kbukum/mediaflow/component"
	"github.com/kbukum/mediaflow/config"
	"github.com/kbukum/mediaflow/logger"
	"github.com/kbukum/mediaflow/observability"
	"github.com/kbukum/mediaflow/stage"
	"github.com/kbukum/mediaflow/version"
)

// App owns the stages of one pipeline run and the process-wide concerns
// around them.
type App struct {
	Name       string
	Version    string
	Cfg        *config.Config
	Components *component.Registry
	Logger     *logger.Logger
	Metrics    *observability.StageMetrics
	Summary    *Summary

	summaryOut      io.Writer
	gracefulTimeout time.Duration
	onStart         []Hook
	onStop          []Hook
}

// NewApp creates an application from a loaded configuration and installs
// its logger and telemetry providers.
func NewApp(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	app := &App{
		Name:            cfg.Name,
		Version:         cfg.Version,
		Cfg:             cfg,
		Components:      component.NewRegistry(),
		summaryOut:      os.Stdout,
		gracefulTimeout: 15 * time.Second,
	}
	if app.Version == "" {
		app.Version = version.Short()
	}

	for _, opt := range opts {
		opt(app)
	}
	app.Components.StopTimeout = app.gracefulTimeout
	if app.Logger == nil {
		logger.Init(cfg.Logging)
		app.Logger = logger.GetGlobalLogger().WithComponent(cfg.Name)
	}
	logger.Register("stage", app.Logger.WithComponent("stage"))

	if err := app.setupTelemetry(ctx); err != nil {
		return nil, err
	}
	app.Summary = NewSummary(app.Name, app.Version)
	return app, nil
}

// StreamOptions returns stage options carrying the configured high water
// mark, the app logger and stage metrics.
func (a *App) StreamOptions(name string) stage.StreamOptions {
	return stage.StreamOptions{
		Name:          name,
		HighWaterMark: a.Cfg.Stream.HighWaterMark,
		Logger:        a.Logger,
		Metrics:       a.Metrics,
	}
}

// Register adds stages or other components in pipeline order.
func (a *App) Register(cs ...component.Component) error {
	for _, c := range cs {
		if err := a.Components.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// RunTask starts every registered component, runs task and shuts down when
// the task returns or the process is interrupted. The task error wins over
// a shutdown error.
func (a *App) RunTask(ctx context.Context, task func(ctx context.Context) error) error {
	if err := a.startup(ctx); err != nil {
		if stopErr := a.stop(); stopErr != nil {
			a.Logger.Error("Shutdown after failed startup", logger.ErrorFields("stop", stopErr))
		}
		return err
	}

	taskCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case sig := <-sigCh:
			a.Logger.Info("Received signal, canceling pipeline", logger.Fields("signal", sig.String()))
			cancel()
		case <-taskCtx.Done():
		}
	}()

	start := time.Now()
	taskErr := task(taskCtx)
	a.Summary.SetRunDuration(time.Since(start))
	if taskErr != nil {
		a.Logger.Error("Pipeline failed", logger.ErrorFields("run", taskErr))
	} else {
		a.Logger.Info("Pipeline finished", logger.DurationFields("run", time.Since(start)))
	}

	stopErr := a.stop()
	a.Summary.DisplayFinish(a.summaryOut, a.Components, taskErr)
	if taskErr != nil {
		return taskErr
	}
	return stopErr
}

// startup starts components in order, then runs OnStart hooks.
func (a *App) startup(ctx context.Context) error {
	start := time.Now()
	a.Logger.Info("Starting pipeline", logger.Fields(
		"name", a.Name,
		"version", a.Version,
		"stages", len(a.Components.All()),
	))

	if err := a.Components.StartAll(ctx); err != nil {
		return fmt.Errorf("starting stages: %w", err)
	}
	if err := a.runStartHooks(ctx); err != nil {
		return err
	}

	a.Summary.SetStartupDuration(time.Since(start))
	a.Summary.DisplayStart(a.summaryOut, a.Components)
	return nil
}

// Shutdown stops every component and runs OnStop hooks. Use it when not
// going through RunTask.
func (a *App) Shutdown() error {
	return a.stop()
}

// stop stops components in reverse order within the graceful timeout, then
// runs OnStop hooks.
func (a *App) stop() error {
	a.Logger.Info("Shutting down", logger.Fields("timeout", a.gracefulTimeout.String()))

	ctx, cancel := context.WithTimeout(context.Background(), a.gracefulTimeout)
	defer cancel()

	var shutdownErr error
	if err := a.Components.StopAll(ctx); err != nil {
		a.Logger.Error("Stages stopped with errors", logger.ErrorFields("stop", err))
		shutdownErr = err
	}
	if err := a.runStopHooks(ctx); err != nil {
		a.Logger.Error("OnStop hook error", logger.ErrorFields("stop", err))
		if shutdownErr == nil {
			shutdownErr = err
		}
	}

	a.Logger.Info("Shutdown complete")
	return shutdownErr
}
