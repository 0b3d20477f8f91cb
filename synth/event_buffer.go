package synth

import (
	"runtime"
	"sync/atomic"
)

// eventBuffer is a lock-free spsc queue.
type eventBuffer[T any] struct {
	events      []T
	read, write atomic.Uint32
}

func newEventBuffer[T any](size int) *eventBuffer[T] {
	if size <= 0 || size&(size-1) != 0 {
		panic("event buffer size must be a power of 2")
	}
	return &eventBuffer[T]{events: make([]T, size)}
}

func (b *eventBuffer[T]) full() bool {
	return b.write.Load()-b.read.Load() == uint32(len(b.events))
}

// push waits for a free slot.
func (b *eventBuffer[T]) push(ev T) {
	for b.full() {
		runtime.Gosched()
	}
	b.store(ev)
}

// tryPush adds an event unless the queue is full.
func (b *eventBuffer[T]) tryPush(ev T) bool {
	if b.full() {
		return false
	}
	b.store(ev)
	return true
}

func (b *eventBuffer[T]) store(ev T) {
	write := b.write.Load()
	b.events[write%uint32(len(b.events))] = ev
	b.write.Store(write + 1)
}

// drain calls f for every queued event.
func (b *eventBuffer[T]) drain(f func(T)) int {
	read := b.read.Load()
	write := b.write.Load()
	n := int(write - read)
	for ; read != write; read++ {
		f(b.events[read%uint32(len(b.events))])
	}
	b.read.Store(read)
	return n
}

// drainUntil calls f for queued events until it returns false. The event
// f rejected stays queued.
func (b *eventBuffer[T]) drainUntil(f func(T) bool) int {
	read := b.read.Load()
	write := b.write.Load()
	n := 0
	for ; read != write; read++ {
		if !f(b.events[read%uint32(len(b.events))]) {
			break
		}
		n++
	}
	b.read.Store(read)
	return n
}

func (b *eventBuffer[T]) len() int {
	return int(b.write.Load() - b.read.Load())
}
