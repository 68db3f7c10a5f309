package dispatch

import "context"

// InlineExecutor runs every task synchronously on the submitting
// goroutine. Used for single-threaded/embedded profiles and for tests
// that want deterministic drive ordering.
type InlineExecutor struct{}

func NewInlineExecutor() *InlineExecutor { return &InlineExecutor{} }

func (e *InlineExecutor) Execute(ctx context.Context, task Task) error {
	task(ctx)
	return nil
}

func (e *InlineExecutor) Shutdown(context.Context) error { return nil }
