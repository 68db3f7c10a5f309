package actor

import "time"

// actorContext is the Context implementation handed to every Actor hook
// invocation. It is cheap to construct (no allocation beyond itself) so
// a fresh one is built per InvokeUser/InvokeSystem call rather than
// reused, avoiding any risk of a stale envelope leaking into a later
// call.
type actorContext struct {
	cell *cell
	env  Envelope
}

func (c *cell) contextFor(env Envelope) *actorContext {
	return &actorContext{cell: c, env: env}
}

func (ctx *actorContext) Self() Ref {
	return ctx.cell.selfRef()
}

func (ctx *actorContext) Sender() Ref {
	return ctx.env.Sender
}

func (ctx *actorContext) Parent() Ref {
	if ctx.cell.parent == nil {
		return Nobody()
	}
	return ctx.cell.parent.selfRef()
}

func (ctx *actorContext) Children() []Ref {
	return ctx.cell.childRefs()
}

func (ctx *actorContext) Spawn(props Props, name string) (Ref, error) {
	return ctx.cell.system.spawnChild(ctx.cell, props, name)
}

func (ctx *actorContext) Stop(child Ref) {
	_ = child.tellSystem(Terminate{})
}

func (ctx *actorContext) Watch(target Ref) {
	_ = target.tellSystem(Watch{Watcher: ctx.Self()})
}

func (ctx *actorContext) Unwatch(target Ref) {
	_ = target.tellSystem(Unwatch{Watcher: ctx.Self()})
}

func (ctx *actorContext) Forward(target Ref) {
	target.Tell(ctx.env.Payload, ctx.env.Sender)
}

// Reply completes the ask future bound to the current envelope's ReplyTo,
// if any. A no-op when the envelope was sent via Tell rather than Ask.
func (ctx *actorContext) Reply(answer any) {
	if ctx.env.ReplyTo.IsNobody() {
		return
	}
	ctx.env.ReplyTo.Tell(answer, ctx.Self())
}

func (ctx *actorContext) StartTimer(key string, d time.Duration, msg any) string {
	return ctx.cell.system.startTimer(ctx.cell, key, d, msg)
}

func (ctx *actorContext) CancelTimer(key string) {
	ctx.cell.system.cancelActorTimer(ctx.cell.pid, key)
}

func (ctx *actorContext) Become(fn func(Context, Envelope) error) {
	ctx.cell.mu.Lock()
	ctx.cell.behavior = fn
	ctx.cell.mu.Unlock()
}

func (ctx *actorContext) Unbecome() {
	ctx.cell.mu.Lock()
	ctx.cell.behavior = nil
	ctx.cell.mu.Unlock()
}
