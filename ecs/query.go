package ecs

import "iter"

// Query is the system parameter for filtered entity iteration. Declare it
// as an exported field on a system struct with a view struct type
// parameter; the scheduler builds the view at registration time.
//
// Iteration is live against the world: finite, restartable each tick, and
// ordered by ascending entity index. A query whose component types no
// entity carries yields nothing, which is not an error.
type Query[T any] struct {
	view *View[T]
}

// NewQuery builds a standalone query against a world, for use outside the
// scheduler.
func NewQuery[T any](world *World) *Query[T] {
	q := &Query[T]{}
	q.initParam(world)
	return q
}

func (q *Query[T]) initParam(w *World) {
	q.view = NewView[T](w)
}

func (q *Query[T]) access() []accessDecl {
	return q.view.accessDecls()
}

// Iter yields (Entity, view struct) for every matching entity.
func (q *Query[T]) Iter() iter.Seq2[Entity, T] {
	return q.view.Iter()
}

// Values yields just the view structs.
func (q *Query[T]) Values() iter.Seq[T] {
	return q.view.Values()
}

// Count returns the number of matching entities.
func (q *Query[T]) Count() int {
	count := 0
	for range q.view.Values() {
		count++
	}
	return count
}

// Get returns the populated view struct for one entity, or nil if it does
// not match.
func (q *Query[T]) Get(e Entity) *T {
	return q.view.Get(e)
}

// Single returns the sole matching entity's view struct. ok is false when
// the query matches zero or more than one entity.
func (q *Query[T]) Single() (T, bool) {
	var single T
	count := 0
	for value := range q.view.Values() {
		single = value
		count++
		if count > 1 {
			break
		}
	}
	var zero T
	if count != 1 {
		return zero, false
	}
	return single, true
}
