// Package slogbridge fans every eventstream.KindLog event back out through
// a real *slog.Logger, the way every teacher constructor threads a
// *slog.Logger field through rather than inventing its own logging
// facade.
package slogbridge

import (
	"log/slog"

	"github.com/webitel/fraktor-go/internal/eventstream"
)

const extensionID = "telemetry.slogbridge"

// Bridge subscribes to KindLog events and re-emits them through logger at
// the matching slog level.
type Bridge struct {
	stream       *eventstream.Stream
	logger       *slog.Logger
	subscription eventstream.SubscriptionID
}

func New(stream *eventstream.Stream, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{stream: stream, logger: logger}
}

func (b *Bridge) ID() string { return extensionID }

func (b *Bridge) Start() error {
	b.subscription = b.stream.Subscribe(eventstream.Filtered(
		eventstream.SubscriberFunc(b.onLog),
		func(e eventstream.Event) bool { return e.Kind == eventstream.KindLog },
	))
	return nil
}

func (b *Bridge) Stop() error {
	b.stream.Unsubscribe(b.subscription)
	return nil
}

func (b *Bridge) onLog(ev eventstream.Event) {
	attrs := []any{"path", ev.Path}
	if ev.Err != nil {
		attrs = append(attrs, "error", ev.Err)
	}
	switch ev.Level {
	case eventstream.LevelDebug:
		b.logger.Debug(ev.Message, attrs...)
	case eventstream.LevelWarn:
		b.logger.Warn(ev.Message, attrs...)
	case eventstream.LevelError:
		b.logger.Error(ev.Message, attrs...)
	default:
		b.logger.Info(ev.Message, attrs...)
	}
}
