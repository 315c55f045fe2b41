package concurrency

import (
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/snail-lb/go-managed-selector/api"
)

func TestExecutorRunsSubmittedTasks(t *testing.T) {
	e := NewExecutor(4)
	defer e.Close()

	var ran int32
	const n = 200
	for i := 0; i < n; i++ {
		if err := e.Submit(func() { atomic.AddInt32(&ran, 1) }); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}

	deadline := time.After(2 * time.Second)
	for atomic.LoadInt32(&ran) < n {
		select {
		case <-deadline:
			t.Fatalf("only %d/%d tasks ran", atomic.LoadInt32(&ran), n)
		default:
			runtime.Gosched()
		}
	}
}

func TestExecutorRejectsAfterClose(t *testing.T) {
	e := NewExecutor(2)
	e.Close()
	if err := e.Submit(func() {}); err != api.ErrExecutorClosed {
		t.Errorf("expected ErrExecutorClosed, got %v", err)
	}
}

func TestExecutorSurvivesPanickingTask(t *testing.T) {
	e := NewExecutor(2)
	defer e.Close()

	var after int32
	if err := e.Submit(func() { panic("boom") }); err != nil {
		t.Fatal(err)
	}
	if err := e.Submit(func() { atomic.StoreInt32(&after, 1) }); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(time.Second)
	for atomic.LoadInt32(&after) == 0 && time.Now().Before(deadline) {
		runtime.Gosched()
	}
	if atomic.LoadInt32(&after) == 0 {
		t.Error("worker did not recover from panic and keep processing")
	}
}

func TestLockFreeQueueMPMC(t *testing.T) {
	q := NewLockFreeQueue[int](1024)
	const producers, consumers, perProducer = 8, 8, 2000
	total := int64(producers * perProducer)

	var wg sync.WaitGroup
	var sentSum, receivedSum, receivedCount int64

	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(pid int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				val := pid*perProducer + i + 1
				for !q.Enqueue(val) {
					runtime.Gosched()
				}
				atomic.AddInt64(&sentSum, int64(val))
			}
		}(p)
	}

	done := make(chan struct{})
	var consumerWg sync.WaitGroup
	for c := 0; c < consumers; c++ {
		consumerWg.Add(1)
		go func() {
			defer consumerWg.Done()
			for atomic.LoadInt64(&receivedCount) < total {
				if val, ok := q.Dequeue(); ok {
					atomic.AddInt64(&receivedSum, int64(val))
					atomic.AddInt64(&receivedCount, 1)
				} else {
					runtime.Gosched()
				}
			}
		}()
	}
	go func() { consumerWg.Wait(); close(done) }()

	wg.Wait()
	select {
	case <-done:
		if sentSum != receivedSum {
			t.Errorf("checksum mismatch: sent %d, received %d", sentSum, receivedSum)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for consumers, received=%d total=%d", atomic.LoadInt64(&receivedCount), total)
	}
}
