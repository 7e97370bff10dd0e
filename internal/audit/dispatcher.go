package audit

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// ErrDropped is returned by Dispatcher.Append when the buffer is full and
// DropIfFull is set.
var ErrDropped = errors.New("audit: dispatcher buffer full")

// ErrClosed is returned after Close.
var ErrClosed = errors.New("audit: dispatcher closed")

// DispatcherConfig controls buffering.
type DispatcherConfig struct {
	BufferSize int
	DropIfFull bool
}

// Dispatcher is a Sink that forwards entries to another Sink from a single
// background goroutine, preserving order. Errors from the inner sink are
// passed to onError.
type Dispatcher struct {
	cfg     DispatcherConfig
	sink    Sink
	onError FailureFunc
	ch      chan Entry
	done    chan struct{}
	wg      sync.WaitGroup
	dropped atomic.Uint64

	// mu is held for reading by every in-flight Append and for writing by
	// Close, so an entry is either queued before the worker drains or
	// rejected with ErrClosed.
	mu     sync.RWMutex
	closed bool
}

func NewDispatcher(cfg DispatcherConfig, sink Sink, onError FailureFunc) *Dispatcher {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}
	if onError == nil {
		onError = func(Entry, error) {}
	}

	d := &Dispatcher{
		cfg:     cfg,
		sink:    sink,
		onError: onError,
		ch:      make(chan Entry, cfg.BufferSize),
		done:    make(chan struct{}),
	}
	d.wg.Add(1)
	go d.run()
	return d
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case entry := <-d.ch:
			d.forward(entry)
		case <-d.done:
			for {
				select {
				case entry := <-d.ch:
					d.forward(entry)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) forward(entry Entry) {
	if err := d.sink.Append(context.Background(), entry); err != nil {
		d.onError(entry, err)
	}
}

func (d *Dispatcher) Append(ctx context.Context, entry Entry) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}

	if d.cfg.DropIfFull {
		select {
		case d.ch <- entry:
			return nil
		default:
			d.dropped.Add(1)
			return ErrDropped
		}
	}

	select {
	case d.ch <- entry:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Recent delegates to the inner sink when it can list entries.
func (d *Dispatcher) Recent(ctx context.Context, identifier string, limit int) ([]Entry, error) {
	r, ok := d.sink.(Reader)
	if !ok {
		return nil, errors.New("audit: sink does not support history")
	}
	return r.Recent(ctx, identifier, limit)
}

// Close drains buffered entries and stops the worker. It waits for
// in-flight Appends and is idempotent.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.done)
	}
	d.mu.Unlock()

	d.wg.Wait()
}

func (d *Dispatcher) Dropped() uint64 {
	return d.dropped.Load()
}
