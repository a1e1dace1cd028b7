package main

import (
	"context"
	"fmt"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/skillsenselab/whisperd/internal/config"
	"github.com/skillsenselab/whisperd/internal/gate"
	"github.com/skillsenselab/whisperd/internal/logger"
	"github.com/skillsenselab/whisperd/internal/observability"
	"github.com/skillsenselab/whisperd/internal/pool"
	"github.com/skillsenselab/whisperd/internal/server"
	"github.com/skillsenselab/whisperd/internal/transcribe"
	"github.com/skillsenselab/whisperd/internal/version"
	"github.com/skillsenselab/whisperd/internal/whisper"
	"github.com/skillsenselab/whisperd/internal/whisper/turbo"
)

// App holds every long-lived collaborator of the service. All wiring is
// explicit: no package-level singletons beyond the global logger.
type App struct {
	cfg     *config.Config
	log     *logger.Logger
	gate    *gate.Gate[whisper.Engine]
	pool    *pool.Pool
	loader  *whisper.Loader
	server  *server.Server
	metrics *observability.Metrics

	meterProvider  *sdkmetric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
}

// newApp wires the service from configuration. The model is not loaded yet;
// Start kicks that off in the background.
func newApp(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	app := &App{
		cfg:    cfg,
		log:    log,
		gate:   gate.New[whisper.Engine](),
		pool:   pool.New(cfg.Pool.Workers),
		loader: whisper.NewLoader(cfg.Model, turbo.New, log),
	}

	if cfg.Observability.Enabled {
		ver := version.GetShortVersion()
		mp, err := observability.InitMeter(ctx, cfg.Observability.MeterConfig(cfg.Base.Name, ver, cfg.Base.Environment))
		if err != nil {
			return nil, fmt.Errorf("init meter: %w", err)
		}
		app.meterProvider = mp

		tp, err := observability.InitTracer(ctx, cfg.Observability.TracerConfig(cfg.Base.Name, ver, cfg.Base.Environment))
		if err != nil {
			return nil, fmt.Errorf("init tracer: %w", err)
		}
		app.tracerProvider = tp

		metrics, err := observability.NewMetrics(observability.Meter(cfg.Base.Name))
		if err != nil {
			return nil, fmt.Errorf("create metrics: %w", err)
		}
		app.metrics = metrics
	}

	svc := transcribe.New(cfg.Transcribe, app.gate, app.pool, log)

	srv := server.New(cfg.Server, log)
	srv.ApplyMiddleware()
	srv.RegisterRoutes(server.Deps{
		Transcriber: svc,
		ModelState:  func() (bool, error) { return app.gate.Ready(), app.gate.Err() },
		Metrics:     app.metrics,
		Version:     version.GetShortVersion(),
	})
	app.server = srv

	return app, nil
}

// Start begins serving HTTP and launches the one-time model load. The server
// accepts traffic immediately; transcription requests wait on the gate.
func (a *App) Start(ctx context.Context) error {
	go a.loadModel(ctx)
	return a.server.Start(ctx)
}

func (a *App) loadModel(ctx context.Context) {
	start := time.Now()
	a.loader.Run(ctx, a.gate)

	if a.metrics != nil {
		status := "ok"
		if a.gate.Err() != nil {
			status = "error"
		}
		a.metrics.RecordModelLoad(ctx, status, time.Since(start))
	}
}

// Stop shuts everything down in reverse order: stop accepting requests,
// drain the worker pool, then flush telemetry.
func (a *App) Stop(ctx context.Context) error {
	var firstErr error

	if err := a.server.Stop(ctx); err != nil {
		firstErr = err
	}

	a.pool.Close()

	if a.meterProvider != nil {
		if err := a.meterProvider.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("meter shutdown: %w", err)
		}
	}
	if a.tracerProvider != nil {
		if err := a.tracerProvider.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("tracer shutdown: %w", err)
		}
	}

	return firstErr
}
