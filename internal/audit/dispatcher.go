package audit

import (
	"context"
	"sync"
	"sync/atomic"
)

// Config controls dispatcher buffering behavior.
//
// Critical lists event types that end a session. They are never dropped:
// with DropIfFull they wait for buffer space like every event does without
// it.
type Config struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
	Critical   []string
}

// Dispatcher asynchronously forwards session audit events to a sink and
// numbers them. A nil *Dispatcher is valid and discards everything.
type Dispatcher struct {
	cfg       Config
	critical  map[string]struct{}
	sink      Sink
	ch        chan Event
	done      chan struct{}
	wg        sync.WaitGroup
	seq       atomic.Uint64
	dropped   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &Dispatcher{
		cfg:      cfg,
		critical: make(map[string]struct{}, len(cfg.Critical)),
		sink:     sink,
		ch:       make(chan Event, cfg.BufferSize),
		done:     make(chan struct{}),
	}
	for _, t := range cfg.Critical {
		d.critical[t] = struct{}{}
	}

	d.wg.Add(1)
	go d.run()

	return d
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case event := <-d.ch:
			d.sink.Emit(context.Background(), event)
		case <-d.done:
			d.drain()
			return
		}
	}
}

func (d *Dispatcher) drain() {
	for {
		select {
		case event := <-d.ch:
			d.sink.Emit(context.Background(), event)
		default:
			return
		}
	}
}

// Emit numbers event and queues it. A dropped event still consumes its
// sequence number.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil || d.closed.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	event.Sequence = d.seq.Add(1)

	if d.cfg.DropIfFull && !d.Critical(event.EventType) {
		select {
		case d.ch <- event:
		case <-d.done:
		default:
			d.dropped.Add(1)
		}
		return
	}

	select {
	case d.ch <- event:
	case <-ctx.Done():
		d.dropped.Add(1)
	case <-d.done:
	}
}

// Critical reports whether eventType ends a session and is never dropped.
func (d *Dispatcher) Critical(eventType string) bool {
	if d == nil {
		return false
	}
	_, ok := d.critical[eventType]
	return ok
}

// Close stops the worker after delivering everything already queued.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
		d.wg.Wait()
	})
}

func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

// LastSequence returns the sequence number given to the latest event,
// delivered or not.
func (d *Dispatcher) LastSequence() uint64 {
	if d == nil {
		return 0
	}
	return d.seq.Load()
}
