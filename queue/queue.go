// Package queue holds the single shared mutable resource in the pipeline:
// the buffer of parsed logs sitting between the intake server (producer)
// and the lifecycle driver's drain cycle (consumer).
package queue

import (
	"sync"

	woodchuck "github.com/klaatu01/woodchuck-go"
)

// LogQueue is an unbounded, append-ordered sequence of Log values shared
// between one or more intake handlers and a single drain loop. Readers and
// writers serialize through a reader/writer lock: Len takes the shared
// lock, everything that mutates the backing slice takes the exclusive
// lock. Callers must not hold the lock across a network call — Drain
// copies the contents out and releases the lock before handing the batch
// to a shipper.
type LogQueue struct {
	mu   sync.RWMutex
	logs []woodchuck.Log
}

// New returns an empty LogQueue.
func New() *LogQueue {
	return &LogQueue{}
}

// Append adds batch to the end of the queue, in order. Safe for concurrent
// use by multiple producers.
func (q *LogQueue) Append(batch []woodchuck.Log) {
	if len(batch) == 0 {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.logs = append(q.logs, batch...)
}

// Len returns an instantaneous snapshot of the queue length.
func (q *LogQueue) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.logs)
}

// DrainAll atomically moves the entire current contents out, leaving the
// queue empty, and returns them to the caller.
func (q *LogQueue) DrainAll() []woodchuck.Log {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.logs) == 0 {
		return nil
	}
	drained := q.logs
	q.logs = nil
	return drained
}

// Extend appends a batch that failed to ship back onto the queue. Order
// relative to logs that arrived during the failed send is not preserved:
// the failed batch is appended after whatever is already present.
func (q *LogQueue) Extend(batch []woodchuck.Log) {
	q.Append(batch)
}
