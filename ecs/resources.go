package ecs

import (
	"reflect"

	"github.com/rotisserie/eris"
)

// resourceContainer holds at most one value per type. Values live behind
// stable pointers so Res handles can cache them for the runtime's
// lifetime.
type resourceContainer struct {
	items map[reflect.Type]any // T -> *T
}

func newResourceContainer() resourceContainer {
	return resourceContainer{items: make(map[reflect.Type]any)}
}

// insert stores value as the singleton of its type. Passing a pointer
// hands ownership of the pointee to the container; passing a value stores
// a copy. Replacing an existing resource assigns through the established
// pointer, so handles that cached it keep observing the live value.
func (c *resourceContainer) insert(value any) {
	t := reflect.TypeOf(value)
	if t == nil {
		panic("cannot use nil as a resource")
	}
	v := reflect.ValueOf(value)
	if t.Kind() == reflect.Ptr {
		if existing, ok := c.items[t.Elem()]; ok {
			reflect.ValueOf(existing).Elem().Set(v.Elem())
			return
		}
		c.items[t.Elem()] = value
		return
	}
	if existing, ok := c.items[t]; ok {
		reflect.ValueOf(existing).Elem().Set(v)
		return
	}
	ptr := reflect.New(t)
	ptr.Elem().Set(v)
	c.items[t] = ptr.Interface()
}

// init default-constructs the resource if absent; no-op otherwise.
func (c *resourceContainer) init(t reflect.Type) {
	if _, ok := c.items[t]; !ok {
		c.items[t] = reflect.New(t).Interface()
	}
}

func (c *resourceContainer) get(t reflect.Type) (any, error) {
	v, ok := c.items[t]
	if !ok {
		return nil, eris.Wrapf(ErrMissingResource, "resource %s", t.String())
	}
	return v, nil
}

func (c *resourceContainer) has(t reflect.Type) bool {
	_, ok := c.items[t]
	return ok
}

// Res declares shared read access to the resource of type T. Declare it
// as an exported field on a system struct; the scheduler initializes it
// at registration time. The pointer is cached after the first successful
// lookup; replacement through InsertResource stays visible because the
// container assigns through the same pointer.
//
// Mutate resources only through ResMut: the declared access mode is what
// lets the scheduler run systems concurrently without locks.
type Res[T any] struct {
	world *World
	ptr   *T
}

func (r *Res[T]) initParam(w *World) {
	r.world = w
	r.ptr = nil
}

func (r *Res[T]) access() []accessDecl {
	return []accessDecl{{class: accessResource, target: reflect.TypeFor[T]()}}
}

// Get returns the resource, or ErrMissingResource if it was never
// inserted or initialized.
func (r *Res[T]) Get() (*T, error) {
	if r.ptr == nil {
		ptr, err := GetResource[T](r.world)
		if err != nil {
			return nil, err
		}
		r.ptr = ptr
	}
	return r.ptr, nil
}

// Exists reports whether the resource is present.
func (r *Res[T]) Exists() bool {
	return r.ptr != nil || r.world.resources.has(reflect.TypeFor[T]())
}

// ResMut declares exclusive write access to the resource of type T. Two
// systems in the same stage may not both declare ResMut of one type;
// schedule validation rejects that before the first tick.
type ResMut[T any] struct {
	Res[T]
}

func (r *ResMut[T]) access() []accessDecl {
	return []accessDecl{{class: accessResource, target: reflect.TypeFor[T](), write: true}}
}
