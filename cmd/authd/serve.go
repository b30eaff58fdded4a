package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"github.com/MrEthical07/authd/internal/housekeeping"
	"github.com/MrEthical07/authd/internal/httpapi"
	otelexport "github.com/MrEthical07/authd/metrics/export/otel"
	promexport "github.com/MrEthical07/authd/metrics/export/prometheus"
)

// cleanupTimeout bounds one scheduled IP history cleanup.
const cleanupTimeout = 10 * time.Minute

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and the IP history cleanup job",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	d, err := openDeps(ctx)
	if err != nil {
		return err
	}
	defer d.Close()
	logger := d.logger

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		promexport.NewCollector(d.engine),
	)

	// Exported through whatever global MeterProvider the process installs.
	otelExporter, err := otelexport.NewExporter(otel.GetMeterProvider().Meter(serviceName), d.engine)
	if err != nil {
		return oops.Code("METRICS_INIT_FAILED").Wrap(err)
	}
	defer func() { _ = otelExporter.Close() }()

	scheduler, err := housekeeping.New(d.engine, d.cfg.Engine.IPHistory.CleanupSchedule, logger,
		housekeeping.WithTimeout(cleanupTimeout))
	if err != nil {
		return oops.Code("CONFIG_INVALID").With("field", "ip_history.cleanup_schedule").Wrap(err)
	}
	scheduler.Start()

	if !d.cfg.Development() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := httpapi.NewRouter(d.engine, httpapi.Options{
		BasePath:    d.cfg.HTTP.BasePath,
		Development: d.cfg.Development(),
		TrackIP:     d.cfg.Engine.Policy.TrackIPPerRequest,
		Metrics:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
		MetricsPath: d.cfg.HTTP.MetricsPath,
		Logger:      logger,
	})

	srv := &http.Server{
		Addr:         d.cfg.HTTP.Addr(),
		Handler:      router,
		ReadTimeout:  d.cfg.HTTP.ReadTimeout,
		WriteTimeout: d.cfg.HTTP.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", srv.Addr, "base_path", d.cfg.HTTP.BasePath)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			_ = scheduler.Stop(context.Background())
			return oops.Code("HTTP_SERVE_FAILED").With("addr", srv.Addr).Wrap(err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), d.cfg.HTTP.ShutdownTimeout)
	defer cancel()

	httpErr := srv.Shutdown(shutdownCtx)
	jobErr := scheduler.Stop(shutdownCtx)
	if err := errors.Join(httpErr, jobErr); err != nil {
		return oops.Code("SHUTDOWN_FAILED").Wrap(err)
	}
	logger.Info("shutdown complete")
	return nil
}
