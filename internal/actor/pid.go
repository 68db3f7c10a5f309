package actor

import (
	"fmt"
	"sync/atomic"
)

// Pid identifies an actor instance for the lifetime of its incarnation.
// Value is monotonically allocated by a SystemState and never reused.
// Incarnation is carried alongside it, but the system allocates every Pid
// with incarnation 0 and a restart keeps the cell's Pid unchanged, so a
// Ref taken before a restart is not distinguishable from one taken after.
type Pid struct {
	Value       uint64
	Incarnation uint32
}

// Nil is the zero Pid. It never identifies a live actor.
var Nil = Pid{}

// IsNil reports whether p is the zero value.
func (p Pid) IsNil() bool { return p.Value == 0 && p.Incarnation == 0 }

func (p Pid) String() string {
	return fmt.Sprintf("pid(%d#%d)", p.Value, p.Incarnation)
}

// pidAllocator hands out monotonically increasing Pid values. One
// allocator is owned per SystemState; next takes the incarnation from its
// caller, and every caller in this package passes 0.
type pidAllocator struct {
	counter atomic.Uint64
}

func (a *pidAllocator) next(incarnation uint32) Pid {
	return Pid{Value: a.counter.Add(1), Incarnation: incarnation}
}
