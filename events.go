package main

import "sync/atomic"

type keyEventKind uint8

const (
	evKeyDown keyEventKind = iota
	evKeyUp
	evNotesOff
	evPanic
)

type keyEvent struct {
	kind     keyEventKind
	pitch    uint8
	velocity uint8
}

const eventRingSize = 256 // power of two

// eventRing is a single-producer single-consumer queue. push is only called
// from the command goroutine and pop only from the render goroutine; neither
// ever waits for the other.
type eventRing struct {
	buf  [eventRingSize]keyEvent
	head atomic.Uint32 // written by the producer
	tail atomic.Uint32 // written by the consumer
}

// push reports false when the ring is full and the event was dropped.
func (r *eventRing) push(ev keyEvent) bool {
	h := r.head.Load()
	if h-r.tail.Load() == eventRingSize {
		return false
	}
	r.buf[h&(eventRingSize-1)] = ev
	r.head.Store(h + 1)
	return true
}

func (r *eventRing) pop() (keyEvent, bool) {
	t := r.tail.Load()
	if t == r.head.Load() {
		return keyEvent{}, false
	}
	ev := r.buf[t&(eventRingSize-1)]
	r.tail.Store(t + 1)
	return ev, true
}
