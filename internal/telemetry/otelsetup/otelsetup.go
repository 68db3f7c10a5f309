// Package otelsetup installs the process-wide OpenTelemetry SDK providers
// the rest of the runtime's telemetry surfaces lean on: a TracerProvider
// consumed by internal/telemetry/controlplane's otelgrpc.NewServerHandler,
// and a LoggerProvider bridged onto the shared *slog.Logger via
// go.opentelemetry.io/contrib/bridges/otelslog so every slog call the
// runtime already makes is also an OTel log record, without a second
// logging call anywhere.
//
// No exporter is wired here: the core names no remote telemetry backend,
// so Install only builds the in-process SDK pipeline a host can attach an
// exporter to later (span/log processors are the natural extension point).
package otelsetup

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Providers holds the SDK providers installed by Install, so the caller's
// shutdown hook can flush and release them in the right order.
type Providers struct {
	Tracer *sdktrace.TracerProvider
	Logger *sdklog.LoggerProvider
}

// Install builds the TracerProvider and LoggerProvider, registers the
// tracer provider as the otel package global, and returns a *slog.Logger
// whose records also flow into the LoggerProvider.
func Install(serviceName string) (*slog.Logger, *Providers, error) {
	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)

	lp := sdklog.NewLoggerProvider()

	logger := slog.New(otelslog.NewHandler(serviceName, otelslog.WithLoggerProvider(lp)))
	return logger, &Providers{Tracer: tp, Logger: lp}, nil
}

// Shutdown flushes and releases both providers, logging (via the standard
// library only, since the bridged logger may itself be mid-shutdown) the
// first error encountered but always attempting both.
func (p *Providers) Shutdown(ctx context.Context) error {
	err := p.Tracer.Shutdown(ctx)
	if lerr := p.Logger.Shutdown(ctx); lerr != nil && err == nil {
		err = lerr
	}
	return err
}
