package ecs

import (
	"iter"
	"reflect"
)

const columnBlockSize = 64

// iColumn is a type-erased view of one component type's storage.
// Slots are addressed by entity index.
type iColumn interface {
	set(index uint32, component any)
	get(index uint32) any
	remove(index uint32) (any, bool)
	has(index uint32) bool
	iter() iter.Seq[uint32]
	len() int
}

// Registry maps component types to column factories. Each World owns its
// own Registry, so independent worlds can register disjoint component
// sets without interference.
type Registry struct {
	factories map[reflect.Type]func() iColumn
}

// NewRegistry creates an empty component registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[reflect.Type]func() iColumn),
	}
}

// RegisterComponent registers the component type T with the registry.
// Every component type must be registered before a value of it is
// attached to an entity.
func RegisterComponent[T any](r *Registry) {
	t := reflect.TypeFor[T]()
	r.factories[t] = func() iColumn {
		return &column[T]{}
	}
}

func (r *Registry) getFactory(t reflect.Type) func() iColumn {
	return r.factories[t]
}

// column stores one component type in fixed-size blocks addressed by
// entity index. Iteration walks indices in ascending order, which is what
// gives queries their deterministic ordering.
type column[T any] struct {
	blocks [][columnBlockSize]T
	filled [][columnBlockSize]bool
	bound  uint32 // one past the highest index ever filled
	count  int
}

func (c *column[T]) set(index uint32, component any) {
	var value T
	switch v := component.(type) {
	case *T:
		value = *v
	case T:
		value = v
	default:
		panic("component value does not match column type " + reflect.TypeFor[T]().String())
	}

	blockIdx := int(index) / columnBlockSize
	slotIdx := int(index) % columnBlockSize

	for blockIdx >= len(c.blocks) {
		c.blocks = append(c.blocks, [columnBlockSize]T{})
		c.filled = append(c.filled, [columnBlockSize]bool{})
	}

	if !c.filled[blockIdx][slotIdx] {
		c.filled[blockIdx][slotIdx] = true
		c.count++
	}
	c.blocks[blockIdx][slotIdx] = value

	if index+1 > c.bound {
		c.bound = index + 1
	}
}

// get returns a *T as any, or nil if the slot is empty.
func (c *column[T]) get(index uint32) any {
	blockIdx := int(index) / columnBlockSize
	slotIdx := int(index) % columnBlockSize

	if blockIdx >= len(c.blocks) || !c.filled[blockIdx][slotIdx] {
		return nil
	}
	return &c.blocks[blockIdx][slotIdx]
}

func (c *column[T]) remove(index uint32) (any, bool) {
	blockIdx := int(index) / columnBlockSize
	slotIdx := int(index) % columnBlockSize

	if blockIdx >= len(c.blocks) || !c.filled[blockIdx][slotIdx] {
		return nil, false
	}

	value := c.blocks[blockIdx][slotIdx]
	var zero T
	c.blocks[blockIdx][slotIdx] = zero
	c.filled[blockIdx][slotIdx] = false
	c.count--
	return value, true
}

func (c *column[T]) has(index uint32) bool {
	blockIdx := int(index) / columnBlockSize
	if blockIdx >= len(c.blocks) {
		return false
	}
	return c.filled[blockIdx][int(index)%columnBlockSize]
}

// iter yields filled entity indices in ascending order.
func (c *column[T]) iter() iter.Seq[uint32] {
	return func(yield func(uint32) bool) {
		for i := uint32(0); i < c.bound; i++ {
			blockIdx := int(i) / columnBlockSize
			if blockIdx >= len(c.filled) {
				return
			}
			if c.filled[blockIdx][int(i)%columnBlockSize] {
				if !yield(i) {
					return
				}
			}
		}
	}
}

func (c *column[T]) len() int {
	return c.count
}
