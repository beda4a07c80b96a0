package bridge

import "sync"

// Finalizers queues finalization work reported by the garbage collector.
// Collector callbacks run on their own goroutine; the queue is drained on the
// frame loop goroutine so finalizers never race with script execution.
type Finalizers struct {
	mu      sync.Mutex
	pending []func()
}

func NewFinalizers() *Finalizers {
	return &Finalizers{}
}

func (f *Finalizers) enqueue(fn func()) {
	f.mu.Lock()
	f.pending = append(f.pending, fn)
	f.mu.Unlock()
}

// Pending returns the number of queued finalizers.
func (f *Finalizers) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pending)
}

// Drain runs every queued finalizer on the calling goroutine and returns how
// many ran. Finalizers queued while draining run in the same call.
func (f *Finalizers) Drain() int {
	n := 0
	for {
		f.mu.Lock()
		batch := f.pending
		f.pending = nil
		f.mu.Unlock()
		if len(batch) == 0 {
			return n
		}
		for _, fn := range batch {
			fn()
		}
		n += len(batch)
	}
}
