package concurrency

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestSchedulerRunsAfterDelay(t *testing.T) {
	s := NewScheduler()
	defer s.Close()

	var ran int32
	if _, err := s.Schedule(10*time.Millisecond, func() { atomic.StoreInt32(&ran, 1) }); err != nil {
		t.Fatal(err)
	}

	time.Sleep(40 * time.Millisecond)
	if atomic.LoadInt32(&ran) != 1 {
		t.Error("scheduled task did not run")
	}
}

func TestSchedulerCancelPreventsRun(t *testing.T) {
	s := NewScheduler()
	defer s.Close()

	task, err := s.Schedule(30*time.Millisecond, func() { t.Error("cancelled task ran") })
	if err != nil {
		t.Fatal(err)
	}
	if !task.Cancel() {
		t.Error("Cancel on a pending task should report true")
	}
	if task.Cancel() {
		t.Error("second Cancel should report false")
	}

	time.Sleep(50 * time.Millisecond)
}

func TestSchedulerOrdersByDeadline(t *testing.T) {
	s := NewScheduler()
	defer s.Close()

	var order []int32
	done := make(chan struct{})
	record := func(n int32) func() {
		return func() {
			order = append(order, n)
			if len(order) == 3 {
				close(done)
			}
		}
	}

	s.Schedule(30*time.Millisecond, record(3))
	s.Schedule(10*time.Millisecond, record(1))
	s.Schedule(20*time.Millisecond, record(2))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for all timers to fire")
	}
	for i, v := range order {
		if int(v) != i+1 {
			t.Errorf("fired out of order: %v", order)
			break
		}
	}
}
