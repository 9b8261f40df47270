package ecs

import (
	"iter"
	"reflect"
)

// EventBus holds one double-buffered queue per registered event type.
// Events written during a tick stay readable for that tick and the next;
// the swap at the end of each tick discards the older buffer whether or
// not anyone read it.
type EventBus struct {
	queues map[reflect.Type]iEventQueue
}

type iEventQueue interface {
	swap()
	pending() int
}

func newEventBus() *EventBus {
	return &EventBus{queues: make(map[reflect.Type]iEventQueue)}
}

// RegisterEvent allocates the buffer pair for event type T. Idempotent.
func RegisterEvent[T any](bus *EventBus) {
	t := reflect.TypeFor[T]()
	if _, ok := bus.queues[t]; !ok {
		bus.queues[t] = &eventQueue[T]{}
	}
}

// Send appends an event to the current tick's buffer for T. This is the
// entry point for code outside systems, such as an input driver feeding
// the bus; systems should declare an EventWriter instead.
func Send[T any](bus *EventBus, event T) {
	queueFor[T](bus).send(event)
}

// Swap retires each queue's previous buffer and makes the current buffer
// the previous one. The scheduler calls this once per tick, after the
// last stage completes.
func (b *EventBus) Swap() {
	for _, q := range b.queues {
		q.swap()
	}
}

// Pending returns the number of events still buffered across every
// registered stream, both the current tick's and the previous one's.
func (b *EventBus) Pending() int {
	total := 0
	for _, q := range b.queues {
		total += q.pending()
	}
	return total
}

func queueFor[T any](bus *EventBus) *eventQueue[T] {
	RegisterEvent[T](bus)
	return bus.queues[reflect.TypeFor[T]()].(*eventQueue[T])
}

// eventQueue is the double buffer for one event type. Every event gets a
// monotonically increasing id; reader cursors are ids, so a cursor stays
// meaningful across swaps and a freshly swapped-out buffer never replays.
type eventQueue[T any] struct {
	current       []T
	previous      []T
	currentStart  uint64
	previousStart uint64
	nextID        uint64
}

func (q *eventQueue[T]) send(event T) {
	q.current = append(q.current, event)
	q.nextID++
}

func (q *eventQueue[T]) swap() {
	q.previous = q.current
	q.previousStart = q.currentStart
	q.current = nil
	q.currentStart = q.nextID
}

func (q *eventQueue[T]) pending() int {
	return len(q.previous) + len(q.current)
}

// read yields events the cursor has not seen, oldest first, advancing the
// cursor past each yielded event. Events older than the previous buffer
// are gone regardless of read status.
func (q *eventQueue[T]) read(cursor *uint64) iter.Seq[T] {
	return func(yield func(T) bool) {
		if *cursor < q.previousStart {
			*cursor = q.previousStart
		}
		for *cursor < q.previousStart+uint64(len(q.previous)) {
			event := q.previous[*cursor-q.previousStart]
			*cursor++
			if !yield(event) {
				return
			}
		}
		if *cursor < q.currentStart {
			*cursor = q.currentStart
		}
		for *cursor < q.currentStart+uint64(len(q.current)) {
			event := q.current[*cursor-q.currentStart]
			*cursor++
			if !yield(event) {
				return
			}
		}
	}
}

// EventWriter declares write access to the event stream of type T.
// Declare it as an exported field on a system struct.
type EventWriter[T any] struct {
	queue *eventQueue[T]
}

func (w *EventWriter[T]) initParam(world *World) {
	w.queue = queueFor[T](world.events)
}

func (w *EventWriter[T]) access() []accessDecl {
	return []accessDecl{{class: accessEvent, target: reflect.TypeFor[T](), write: true}}
}

// Send appends the event to the current tick's buffer.
func (w *EventWriter[T]) Send(event T) {
	w.queue.send(event)
}

// EventReader declares read access to the event stream of type T. The
// cursor is private to the system instance that declares the field, so
// independent readers of one stream never consume each other's events.
type EventReader[T any] struct {
	queue  *eventQueue[T]
	cursor uint64
}

func (r *EventReader[T]) initParam(world *World) {
	r.queue = queueFor[T](world.events)
	r.cursor = 0
}

func (r *EventReader[T]) access() []accessDecl {
	return []accessDecl{{class: accessEvent, target: reflect.TypeFor[T]()}}
}

// Read yields the events sent since this reader last read, oldest first.
// Non-consuming with respect to other readers; finite per call and
// restartable on the next tick.
func (r *EventReader[T]) Read() iter.Seq[T] {
	return r.queue.read(&r.cursor)
}
