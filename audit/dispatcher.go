package audit

import (
	"context"
	"sync"
	"sync/atomic"
)

// DispatchConfig controls the async sink queue.
type DispatchConfig struct {
	Enabled    bool
	BufferSize int
	// DropIfFull drops records instead of blocking the caller when the queue
	// is full.
	DropIfFull bool
}

// Dispatcher forwards activity records to a Sink from a single goroutine, so
// the sink sees records in the order they were logged.
type Dispatcher struct {
	sink       Sink
	dropIfFull bool
	queue      chan ActivityRecord
	stopped    chan struct{}

	// mu orders sends against close(queue).
	mu     sync.RWMutex
	closed bool

	dropped   atomic.Uint64
	delivered atomic.Uint64
}

// NewDispatcher starts a dispatcher. It returns nil when dispatch is
// disabled; a nil Dispatcher accepts and ignores every call.
func NewDispatcher(cfg DispatchConfig, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if sink == nil {
		sink = NoOpSink{}
	}
	d := &Dispatcher{
		sink:       sink,
		dropIfFull: cfg.DropIfFull,
		queue:      make(chan ActivityRecord, max(cfg.BufferSize, 1)),
		stopped:    make(chan struct{}),
	}
	go d.drain()
	return d
}

func (d *Dispatcher) drain() {
	defer close(d.stopped)

	ctx := context.Background()
	for rec := range d.queue {
		d.sink.Emit(ctx, rec)
		d.delivered.Add(1)
	}
}

// Emit queues rec. A record that cannot be queued, because the queue is full
// under DropIfFull or ctx ends first, is counted as dropped. Records emitted
// after Close are ignored.
func (d *Dispatcher) Emit(ctx context.Context, rec ActivityRecord) {
	if d == nil {
		return
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}

	if d.dropIfFull {
		select {
		case d.queue <- rec:
		default:
			d.dropped.Add(1)
		}
		return
	}

	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case d.queue <- rec:
	case <-ctx.Done():
		d.dropped.Add(1)
	}
}

// Close delivers every queued record, then stops the worker. It is safe to
// call more than once.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()
	<-d.stopped
}

func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

// Delivered returns the number of records handed to the sink.
func (d *Dispatcher) Delivered() uint64 {
	if d == nil {
		return 0
	}
	return d.delivered.Load()
}
