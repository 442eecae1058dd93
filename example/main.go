// An instrumented variant of the demo server: logs flow through the OTel
// slog bridge and the server's connection counters are exported over OTLP
// gRPC. Point OTEL_EXPORTER_OTLP_ENDPOINT at a collector before running.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/flinthq/flint/http"
)

const name = "github.com/flinthq/flint/example"

func main() {
	if err := run(context.Background()); err != nil {
		log.Fatalln(err)
	}
}

func run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName("flint-example")))
	if err != nil {
		return err
	}

	metricExp, err := otlpmetricgrpc.New(ctx)
	if err != nil {
		return err
	}
	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExp)),
	)
	defer meterProvider.Shutdown(context.Background())
	otel.SetMeterProvider(meterProvider)

	logExp, err := otlploggrpc.New(ctx)
	if err != nil {
		return err
	}
	loggerProvider := sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(logExp)),
	)
	defer loggerProvider.Shutdown(context.Background())

	logger := otelslog.NewLogger(name, otelslog.WithLoggerProvider(loggerProvider))

	srv := http.NewServer(http.Config{
		Port:   8080,
		Mode:   http.ModeReactor,
		Logger: logger,
		Meter:  meterProvider.Meter(name),
	})

	srv.AddEndpoint("GET", "/status", func(method, path string) string {
		return http.BuildResponse(http.StatusOK, "text/plain", "Status: OK")
	})
	srv.AddEndpoint("GET", "/slow", func(method, path string) string {
		time.Sleep(500 * time.Millisecond)
		return http.BuildResponse(http.StatusOK, "text/plain", "Task complete after 500ms delay.")
	})

	serverErrCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "port", 8080)
		serverErrCh <- srv.Start()
	}()

	select {
	case err := <-serverErrCh:
		return err
	case <-ctx.Done():
		stop()
	}

	srv.Stop()
	return <-serverErrCh
}
