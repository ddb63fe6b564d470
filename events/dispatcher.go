package events

import "sync"

// ReadEvent signals that the viewer's read state changed. CounterpartID is
// set when the change concerns one direct thread.
type ReadEvent struct {
	CounterpartID *uint
}

// Dispatcher is the process-wide "messages-read" signal. Construct one per
// process and inject it into every view that marks or shows read state.
type Dispatcher struct {
	mu     sync.RWMutex
	next   uint64
	subs   map[uint64]func(ReadEvent)
	closed bool
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{subs: make(map[uint64]func(ReadEvent))}
}

// Subscribe registers fn until the returned function is called. fn runs on
// the publisher's goroutine and must not block.
func (d *Dispatcher) Subscribe(fn func(ReadEvent)) (unsubscribe func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return func() {}
	}
	id := d.next
	d.next++
	d.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			d.mu.Lock()
			delete(d.subs, id)
			d.mu.Unlock()
		})
	}
}

func (d *Dispatcher) Publish(ev ReadEvent) {
	d.mu.RLock()
	fns := make([]func(ReadEvent), 0, len(d.subs))
	for _, fn := range d.subs {
		fns = append(fns, fn)
	}
	d.mu.RUnlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// MessagesRead publishes a read event for one direct counterpart.
func (d *Dispatcher) MessagesRead(counterpartID uint) {
	d.Publish(ReadEvent{CounterpartID: &counterpartID})
}

// Close drops every subscriber; later Subscribe calls are no-ops.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	d.subs = make(map[uint64]func(ReadEvent))
	d.mu.Unlock()
}

func (d *Dispatcher) Subscribers() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.subs)
}
