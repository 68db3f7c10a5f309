package scheduler

// Command is what a wheel slot fires: a bound runnable with no return
// value. Build one with RunRunnable or SendMessage rather than
// constructing the closure by hand, so instrumentation has a stable
// shape to log against.
type Command func()

// Submitter dispatches a Runnable onto an execution substrate (a
// dispatcher's executor) rather than running it inline. Scheduler itself
// has no dependency on the dispatch package's concrete types to avoid a
// cycle; callers supply whichever Submitter fits.
type Submitter func(Runnable)

// Runnable is a bare unit of work a RunRunnable command executes.
type Runnable func()

// RunRunnable builds a Command that invokes fn, either inline (submit is
// nil) or via submit if one is supplied.
func RunRunnable(fn Runnable, submit Submitter) Command {
	return func() {
		if submit != nil {
			submit(fn)
			return
		}
		fn()
	}
}

// MessageSink is the minimal capability SendMessage needs from a
// receiver: deliver message as if it were sent by sender. actor.Ref
// satisfies this via its TellAny method.
type MessageSink interface {
	TellAny(message any, sender any)
}

// SendMessage builds a Command that enqueues message on receiver's
// mailbox, attributed to sender.
func SendMessage(receiver MessageSink, message any, sender any) Command {
	return func() {
		receiver.TellAny(message, sender)
	}
}
