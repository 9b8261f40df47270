package ecs

import (
	"reflect"
	"sync"

	"github.com/kamstrup/intmap"
)

// Commands buffers structural mutations issued from inside systems. The
// scheduler flushes the buffer at each stage boundary, so in-flight query
// iteration never observes a structural change from its own stage.
//
// Safe for concurrent use: non-conflicting systems in a stage may run in
// parallel and share one buffer.
type Commands struct {
	mu       sync.Mutex
	world    *World
	spawns   []spawnCommand
	despawns []Entity
	inserts  []insertCommand
	removes  []removeCommand
	defers   []func()
}

type spawnCommand struct {
	entity     Entity
	components []any
}

type insertCommand struct {
	entity    Entity
	component any
}

type removeCommand struct {
	entity   Entity
	compType reflect.Type
}

func newCommands(world *World) *Commands {
	return &Commands{world: world}
}

// Spawn reserves a new entity identity and queues the actual spawn for the
// next sync point. The returned Entity can be referenced by later commands
// in the same stage, but it is not alive and matches no query until its
// components land at the flush.
func (c *Commands) Spawn(components ...any) Entity {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.world.entities.reserve()
	c.spawns = append(c.spawns, spawnCommand{entity: e, components: components})
	return e
}

// Despawn queues removal of the entity and all of its components.
func (c *Commands) Despawn(e Entity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.despawns = append(c.despawns, e)
}

// Insert queues attachment of a component value to the entity.
func (c *Commands) Insert(e Entity, component any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inserts = append(c.inserts, insertCommand{entity: e, component: component})
}

// Remove queues detachment of the component of the given type.
func (c *Commands) Remove(e Entity, compType reflect.Type) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removes = append(c.removes, removeCommand{entity: e, compType: compType})
}

// Defer queues an arbitrary function to run at the sync point, after all
// queued structural mutations have been applied.
func (c *Commands) Defer(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.defers = append(c.defers, fn)
}

// flush applies all queued commands to the world and resets the buffer.
// Commands referencing entities despawned in the same flush, or entities
// that went stale since queueing, are dropped silently: the issuing
// system could not have known, and the frame boundary is the retry point.
func (c *Commands) flush(world *World) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.spawns) == 0 && len(c.despawns) == 0 && len(c.inserts) == 0 &&
		len(c.removes) == 0 && len(c.defers) == 0 {
		return
	}

	for _, cmd := range c.spawns {
		world.entities.commit(cmd.entity)
		for _, component := range cmd.components {
			world.setComponent(cmd.entity, component)
		}
	}

	despawned := intmap.New[uint64, bool](len(c.despawns) + 1)
	for _, e := range c.despawns {
		if world.Despawn(e) == nil {
			despawned.Put(e.key(), true)
		}
	}

	for _, cmd := range c.removes {
		if _, gone := despawned.Get(cmd.entity.key()); gone {
			continue
		}
		world.Remove(cmd.entity, cmd.compType)
	}

	for _, cmd := range c.inserts {
		if _, gone := despawned.Get(cmd.entity.key()); gone {
			continue
		}
		_ = world.Insert(cmd.entity, cmd.component)
	}

	for _, fn := range c.defers {
		fn()
	}

	c.spawns = c.spawns[:0]
	c.despawns = c.despawns[:0]
	c.inserts = c.inserts[:0]
	c.removes = c.removes[:0]
	c.defers = c.defers[:0]
}
