// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// WorkerPool wraps Executor with lock-free queues underneath. It is the
// concrete api.Executor a manager.SelectorManager embeds and shares across
// every selector.Selector it owns.

package concurrency

type WorkerPool struct {
	executor *Executor
}

func NewWorkerPool(size int) *WorkerPool {
	return &WorkerPool{
		executor: NewExecutor(size),
	}
}

func (tp *WorkerPool) Submit(f func()) error {
	return tp.executor.Submit(f)
}

func (tp *WorkerPool) NumWorkers() int {
	return tp.executor.NumWorkers()
}

func (tp *WorkerPool) Stats() map[string]int64 {
	return tp.executor.Stats()
}

func (tp *WorkerPool) Close() {
	tp.executor.Close()
}
