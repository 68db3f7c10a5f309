package eventstream

// SubscriptionID identifies a registered subscriber for later
// Unsubscribe.
type SubscriptionID uint64

// Subscriber receives events published after it subscribes, plus a
// replay of whatever was buffered at subscribe time. OnEvent must not
// block for long: it runs synchronously on the publisher's goroutine,
// after the stream's lock has already been released.
type Subscriber interface {
	OnEvent(event Event)
}

// SubscriberFunc adapts a bare function to Subscriber.
type SubscriberFunc func(Event)

func (f SubscriberFunc) OnEvent(event Event) { f(event) }

// Filtered wraps a Subscriber so only events matching predicate reach
// it, letting a caller subscribe to e.g. only KindDeadLetter without
// implementing its own switch.
func Filtered(sub Subscriber, predicate func(Event) bool) Subscriber {
	return SubscriberFunc(func(e Event) {
		if predicate(e) {
			sub.OnEvent(e)
		}
	})
}
