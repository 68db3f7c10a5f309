package scheduler

import (
	"testing"
	"time"
)

func newTestScheduler(tickPeriod time.Duration) (*Scheduler, *ManualDriver) {
	feed := NewTickFeed(1024, tickPeriod)
	wheel := NewWheel(64, tickPeriod)
	sched := New(feed, wheel)
	driver := NewManualDriver(feed)
	return sched, driver
}

func TestScheduleOnceFiresAfterDelay(t *testing.T) {
	sched, driver := newTestScheduler(10 * time.Millisecond)

	fired := false
	_, err := sched.ScheduleOnce(30*time.Millisecond, func() { fired = true })
	if err != nil {
		t.Fatal(err)
	}

	now := time.Now()
	for i := 0; i < 2; i++ {
		now = now.Add(10 * time.Millisecond)
		driver.Tick(now)
		sched.Drive()
	}
	if fired {
		t.Fatal("fired too early")
	}

	now = now.Add(10 * time.Millisecond)
	driver.Tick(now)
	sched.Drive()
	if !fired {
		t.Fatal("expected command to fire on third tick")
	}
}

func TestCancelPreventsFire(t *testing.T) {
	sched, driver := newTestScheduler(10 * time.Millisecond)

	fired := false
	handle, err := sched.ScheduleOnce(10*time.Millisecond, func() { fired = true })
	if err != nil {
		t.Fatal(err)
	}
	sched.Cancel(handle)

	driver.Tick(time.Now().Add(10 * time.Millisecond))
	sched.Drive()

	if fired {
		t.Fatal("cancelled command must not fire")
	}
	if !handle.Completed() {
		t.Fatal("cancelled handle should be marked completed once its slot is visited")
	}
}

func TestFixedRateReschedulesAfterFire(t *testing.T) {
	sched, driver := newTestScheduler(10 * time.Millisecond)

	count := 0
	_, err := sched.ScheduleAtFixedRate(10*time.Millisecond, 10*time.Millisecond, func() { count++ })
	if err != nil {
		t.Fatal(err)
	}

	now := time.Now()
	for i := 0; i < 3; i++ {
		now = now.Add(10 * time.Millisecond)
		driver.Tick(now)
		sched.Drive()
	}

	if count != 3 {
		t.Fatalf("expected 3 fires, got %d", count)
	}
}

func TestOrderingWithinSameTickIsEnqueueOrder(t *testing.T) {
	sched, driver := newTestScheduler(10 * time.Millisecond)

	var order []int
	for i := 0; i < 5; i++ {
		i := i
		if _, err := sched.ScheduleOnce(10*time.Millisecond, func() { order = append(order, i) }); err != nil {
			t.Fatal(err)
		}
	}

	driver.Tick(time.Now().Add(10 * time.Millisecond))
	sched.Drive()

	for i, v := range order {
		if v != i {
			t.Fatalf("expected enqueue order 0..4, got %v", order)
		}
	}
}
