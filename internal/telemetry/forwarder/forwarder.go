// Package forwarder re-publishes every event-stream event onto a watermill
// message.Publisher, the runtime's out-of-process fan-out point for
// whatever external system wants a durable or networked copy of the
// in-process event bus.
package forwarder

import (
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/webitel/fraktor-go/internal/eventstream"
)

const extensionID = "telemetry.forwarder"

// wireEvent is the JSON shape published for every forwarded event. Kept
// separate from eventstream.Event so the wire format doesn't silently
// change shape if internal Event fields are added.
type wireEvent struct {
	Kind      string `json:"kind"`
	Timestamp int64  `json:"timestamp_unix_nano"`
	Message   string `json:"message,omitempty"`
	Path      string `json:"path,omitempty"`
	Reason    string `json:"reason,omitempty"`
	Err       string `json:"error,omitempty"`
}

// routingKey mirrors the teacher's ev.GetRoutingKey() dispatch: every Kind
// gets a stable topic string rather than one broad firehose topic.
func routingKey(ev eventstream.Event) string {
	return "fraktor.events." + ev.Kind.String()
}

// Forwarder subscribes to an eventstream.Stream and republishes each event
// onto a watermill publisher, generalizing the teacher's
// eventDispatcher.Publish (watermill.NewUUID + json.Marshal + topic
// string).
type Forwarder struct {
	stream       *eventstream.Stream
	publisher    message.Publisher
	subscription eventstream.SubscriptionID
}

// New wires a Forwarder against stream and pub. It does not subscribe
// until Start is called, so it can be registered with the extension
// registry before the system begins publishing.
func New(stream *eventstream.Stream, pub message.Publisher) *Forwarder {
	return &Forwarder{stream: stream, publisher: pub}
}

func (f *Forwarder) ID() string { return extensionID }

func (f *Forwarder) Start() error {
	f.subscription = f.stream.Subscribe(eventstream.SubscriberFunc(f.onEvent))
	return nil
}

func (f *Forwarder) Stop() error {
	f.stream.Unsubscribe(f.subscription)
	return nil
}

func (f *Forwarder) onEvent(ev eventstream.Event) {
	_ = f.publish(ev)
}

func (f *Forwarder) publish(ev eventstream.Event) error {
	wire := wireEvent{
		Kind:      ev.Kind.String(),
		Timestamp: ev.Timestamp.UnixNano(),
		Message:   ev.Message,
		Path:      ev.Path,
		Reason:    ev.Reason,
	}
	if ev.Err != nil {
		wire.Err = ev.Err.Error()
	}

	payload, err := json.Marshal(wire)
	if err != nil {
		return fmt.Errorf("forwarder: marshal failure: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := f.publisher.Publish(routingKey(ev), msg); err != nil {
		return fmt.Errorf("forwarder: publish to topic %s: %w", routingKey(ev), err)
	}
	return nil
}
