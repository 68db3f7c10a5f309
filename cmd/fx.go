package cmd

import (
	"context"
	"log/slog"
	"os"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"go.uber.org/fx"

	"github.com/webitel/fraktor-go/config"
	"github.com/webitel/fraktor-go/internal/actor"
	"github.com/webitel/fraktor-go/internal/dispatch"
	"github.com/webitel/fraktor-go/internal/mailbox"
	"github.com/webitel/fraktor-go/internal/scheduler"
	"github.com/webitel/fraktor-go/internal/telemetry/controlplane"
	"github.com/webitel/fraktor-go/internal/telemetry/debugserver"
	"github.com/webitel/fraktor-go/internal/telemetry/forwarder"
	"github.com/webitel/fraktor-go/internal/telemetry/otelsetup"
	"github.com/webitel/fraktor-go/internal/telemetry/slogbridge"
)

// systemConfig translates the loaded file/env configuration into the
// actor package's own Config shape.
func systemConfig(cfg *config.Config) actor.Config {
	sys := actor.DefaultSystemConfig(cfg.SystemName)
	sys.SchedulerTickPeriod = cfg.Scheduler.Resolution
	sys.SchedulerSpan = cfg.Scheduler.WheelDepth
	sys.DefaultDispatcherCfg = dispatch.Config{
		Throughput:         cfg.Dispatcher.Throughput,
		ThroughputDeadline: cfg.Dispatcher.ThroughputDeadline,
		MaxRetries:         cfg.Dispatcher.MaxRetries,
	}
	sys.DefaultMailboxCfg = mailbox.DefaultConfig()
	sys.DefaultMailboxCfg.Throughput = cfg.Dispatcher.Throughput
	return sys
}

// startTickDriver wires an AutoDriver to the system's feed and starts the
// scheduler's drive loop when cfg.TickDriver is auto. Any other setting
// (manual or hardware) is left undriven here: nothing in this function
// creates a driver for it or calls Tick/Drive.
func startTickDriver(lc fx.Lifecycle, cfg *config.Config, sys *actor.System, logger *slog.Logger) {
	if cfg.TickDriver != config.TickDriverAuto {
		return
	}
	driver := scheduler.NewAutoDriver(sys.TickFeed(), cfg.Scheduler.Resolution)
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			driver.Enable()
			go sys.Scheduler().RunLoop(cfg.Scheduler.Resolution)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			driver.Disable()
			sys.Scheduler().Stop()
			return nil
		},
	})
}

// ProvideLogger builds the process-wide *slog.Logger, threaded into every
// constructor below the way the teacher threads one into every handler.
// Its records fan out two ways: to stdout as JSON, and into the OTel SDK
// log pipeline installed by ProvideOtel, via a slog.Handler that multiplexes
// to both.
func ProvideLogger(cfg *config.Config, otelLogger *slog.Logger) *slog.Logger {
	level := slog.LevelInfo
	_ = level.UnmarshalText([]byte(cfg.LogLevel))
	stdout := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(fanoutHandler{stdout: stdout, otel: otelLogger.Handler()})
}

// ProvideOtel installs the OTel SDK tracer/logger providers and returns the
// otelslog-bridged logger ProvideLogger multiplexes into, registering a
// shutdown hook that flushes both providers.
func ProvideOtel(lc fx.Lifecycle) (*slog.Logger, error) {
	logger, providers, err := otelsetup.Install(ServiceName)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return providers.Shutdown(ctx)
		},
	})
	return logger, nil
}

// ProvideWatermillLogger adapts the shared slog logger to watermill's
// LoggerAdapter, mirroring the teacher's ProvideWatermillLogger.
func ProvideWatermillLogger(logger *slog.Logger) watermill.LoggerAdapter {
	return watermill.NewSlogLogger(logger)
}

// ProvidePubSub builds the in-process gochannel pubsub the forwarder
// extension publishes onto. A real deployment swaps this provider for a
// networked watermill binding without touching the forwarder itself.
func ProvidePubSub(logger watermill.LoggerAdapter) *gochannel.GoChannel {
	return gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 256}, logger)
}

// ProvideSystem boots the actor system from the loaded configuration.
func ProvideSystem(cfg *config.Config) (*actor.System, error) {
	return actor.New(systemConfig(cfg))
}

// bootstrapStandalone builds a system and its AutoDriver without the
// fx.App wiring, for foreground single-process commands (the terminal
// dashboard) that have no need for DI or lifecycle hooks.
func bootstrapStandalone(cfg *config.Config) (*actor.System, *scheduler.AutoDriver, error) {
	sys, err := actor.New(systemConfig(cfg))
	if err != nil {
		return nil, nil, err
	}
	driver := scheduler.NewAutoDriver(sys.TickFeed(), cfg.Scheduler.Resolution)
	return sys, driver, nil
}

// NewApp assembles the runtime as an fx.App: system, ambient logging,
// the in-process event forwarder, and the diagnostic surfaces (debug HTTP,
// control-plane gRPC), mirroring the teacher's NewApp(cfg) shape.
func NewApp(cfg *config.Config) *fx.App {
	return fx.New(
		fx.Provide(
			func() *config.Config { return cfg },
			fx.Annotate(ProvideOtel, fx.ResultTags(`name:"otelLogger"`)),
			fx.Annotate(ProvideLogger, fx.ParamTags("", `name:"otelLogger"`)),
			ProvideWatermillLogger,
			ProvidePubSub,
			ProvideSystem,
		),
		fx.Invoke(registerExtensions),
		fx.Invoke(startExtensions),
		fx.Invoke(startTickDriver),
	)
}

// registerExtensions wires every ambient add-on into the system's
// extension registry, following the teacher's infra/client/di/module.go
// fx.Invoke(lc.Append(fx.Hook{...})) pattern.
func registerExtensions(lc fx.Lifecycle, cfg *config.Config, sys *actor.System, logger *slog.Logger, ps *gochannel.GoChannel) error {
	registry := sys.Extensions()

	if err := registry.Register(forwarder.New(sys.EventStream(), ps)); err != nil {
		return err
	}
	if err := registry.Register(slogbridge.New(sys.EventStream(), logger)); err != nil {
		return err
	}
	if err := registry.Register(debugserver.New(cfg.DebugServerAddr, sys, logger)); err != nil {
		return err
	}
	if err := registry.Register(controlplane.New(cfg.ControlPlaneAddr, sys, logger)); err != nil {
		return err
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			sys.Shutdown()
			return registry.StopAll()
		},
	})
	return nil
}

// fanoutHandler duplicates every slog record to both the stdout JSON
// handler and the OTel SDK log pipeline, so call sites log once and get
// both a human-readable stream and an exportable OTel log record.
type fanoutHandler struct {
	stdout slog.Handler
	otel   slog.Handler
}

func (h fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.stdout.Enabled(ctx, level) || h.otel.Enabled(ctx, level)
}

func (h fanoutHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.stdout.Enabled(ctx, r.Level) {
		if err := h.stdout.Handle(ctx, r.Clone()); err != nil {
			return err
		}
	}
	if h.otel.Enabled(ctx, r.Level) {
		return h.otel.Handle(ctx, r.Clone())
	}
	return nil
}

func (h fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return fanoutHandler{stdout: h.stdout.WithAttrs(attrs), otel: h.otel.WithAttrs(attrs)}
}

func (h fanoutHandler) WithGroup(name string) slog.Handler {
	return fanoutHandler{stdout: h.stdout.WithGroup(name), otel: h.otel.WithGroup(name)}
}

func startExtensions(lc fx.Lifecycle, sys *actor.System) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return sys.Extensions().StartAll()
		},
	})
}
