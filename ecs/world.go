package ecs

import (
	"reflect"

	"github.com/rotisserie/eris"
)

// World owns all runtime state: entity identities, one column per
// component type in use, the resource container, and the event bus.
type World struct {
	registry  *Registry
	entities  entityAllocator
	columns   map[reflect.Type]iColumn
	resources resourceContainer
	events    *EventBus
}

// NewWorld creates an empty world backed by the given component registry.
func NewWorld(registry *Registry) *World {
	return &World{
		registry:  registry,
		columns:   make(map[reflect.Type]iColumn),
		resources: newResourceContainer(),
		events:    newEventBus(),
	}
}

// Events returns the world's event bus.
func (w *World) Events() *EventBus {
	return w.events
}

// Spawn creates a new entity carrying the given component values.
// Reuses a freed index with a bumped generation when one is available.
func (w *World) Spawn(components ...any) Entity {
	e := w.entities.allocate()
	for _, component := range components {
		w.setComponent(e, component)
	}
	return e
}

// Despawn removes the entity and all of its components in one step.
// Returns ErrStaleEntity if the entity is not alive.
func (w *World) Despawn(e Entity) error {
	if err := w.entities.deallocate(e); err != nil {
		return err
	}
	for _, col := range w.columns {
		col.remove(e.index)
	}
	return nil
}

// IsAlive reports whether the entity has been spawned and not yet
// despawned.
func (w *World) IsAlive(e Entity) bool {
	return w.entities.isAlive(e)
}

// EntityCount returns the number of live entities.
func (w *World) EntityCount() int {
	return w.entities.liveCount
}

// Insert attaches a component value to a live entity, overwriting any
// existing value of the same type. Returns ErrStaleEntity if the entity
// is not alive.
func (w *World) Insert(e Entity, component any) error {
	if !w.entities.isAlive(e) {
		return eris.Wrapf(ErrStaleEntity, "insert %T on entity %d (generation %d)", component, e.index, e.generation)
	}
	w.setComponent(e, component)
	return nil
}

// Remove detaches the component of the given type from the entity,
// returning the removed value. A dead entity or a missing component
// yields (nil, false).
func (w *World) Remove(e Entity, compType reflect.Type) (any, bool) {
	if !w.entities.isAlive(e) {
		return nil, false
	}
	col := w.columns[compType]
	if col == nil {
		return nil, false
	}
	return col.remove(e.index)
}

// Get returns a pointer to the entity's component of the given type, or
// nil if the entity is dead or lacks the component.
func (w *World) Get(e Entity, compType reflect.Type) any {
	if !w.entities.isAlive(e) {
		return nil
	}
	col := w.columns[compType]
	if col == nil {
		return nil
	}
	return col.get(e.index)
}

// Has reports whether the entity carries a component of the given type.
func (w *World) Has(e Entity, compType reflect.Type) bool {
	if !w.entities.isAlive(e) {
		return false
	}
	col := w.columns[compType]
	return col != nil && col.has(e.index)
}

// InsertResource stores value as the singleton resource of its type,
// replacing any existing instance.
func (w *World) InsertResource(value any) {
	w.resources.insert(value)
}

func (w *World) setComponent(e Entity, component any) {
	t := componentType(component)
	col := w.columns[t]
	if col == nil {
		factory := w.registry.getFactory(t)
		if factory == nil {
			panic("component type " + t.String() + " not registered")
		}
		col = factory()
		w.columns[t] = col
	}
	col.set(e.index, component)
}

// GetComponent returns a typed pointer to e's component of type T, or nil
// if the entity is dead or lacks the component.
func GetComponent[T any](w *World, e Entity) *T {
	v := w.Get(e, reflect.TypeFor[T]())
	if v == nil {
		return nil
	}
	return v.(*T)
}

// RemoveComponent detaches the component of type T from e, returning the
// removed value.
func RemoveComponent[T any](w *World, e Entity) (T, bool) {
	v, ok := w.Remove(e, reflect.TypeFor[T]())
	if !ok {
		var zero T
		return zero, false
	}
	return v.(T), true
}

// GetResource returns the singleton resource of type T, or
// ErrMissingResource if it was never inserted or initialized.
func GetResource[T any](w *World) (*T, error) {
	v, err := w.resources.get(reflect.TypeFor[T]())
	if err != nil {
		return nil, err
	}
	return v.(*T), nil
}

// componentType normalizes a component value to its storage type.
// Components are value types: structs or primitives, passed directly or
// through a pointer.
func componentType(component any) reflect.Type {
	t := reflect.TypeOf(component)
	if t == nil {
		panic("cannot use nil as a component")
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Chan, reflect.Func:
		panic("components cannot be pointers, maps, channels, or functions")
	}
	return t
}
