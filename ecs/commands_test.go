package ecs_test

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/plus3/stagehand/ecs"
)

type spawnSystem struct {
	spawned ecs.Entity
}

func (s *spawnSystem) Execute(frame *ecs.Frame) error {
	s.spawned = frame.Commands.Spawn(Position{X: 1, Y: 2}, Velocity{DX: 3})
	return nil
}

type despawnSystem struct {
	target ecs.Entity
}

func (s *despawnSystem) Execute(frame *ecs.Frame) error {
	frame.Commands.Despawn(s.target)
	return nil
}

type insertRemoveSystem struct {
	target ecs.Entity
}

func (s *insertRemoveSystem) Execute(frame *ecs.Frame) error {
	frame.Commands.Insert(s.target, Health{Current: 50})
	frame.Commands.Remove(s.target, reflect.TypeFor[Velocity]())
	return nil
}

type countingSystem struct {
	Entities ecs.Query[struct {
		*Position
	}]
	counts []int
}

func (s *countingSystem) Execute(frame *ecs.Frame) error {
	s.counts = append(s.counts, s.Entities.Count())
	return nil
}

func TestCommandsSpawn(t *testing.T) {
	world := newTestWorld()
	scheduler := ecs.NewScheduler(world)

	spawner := &spawnSystem{}
	during := &countingSystem{}
	after := &countingSystem{}
	scheduler.Register(ecs.Update, spawner)
	scheduler.Register(ecs.Update, during)
	scheduler.Register(ecs.PostUpdate, after)

	if err := scheduler.Step(1); err != nil {
		t.Fatalf("step failed: %v", err)
	}

	// The identity is reserved immediately, but the spawn only lands at
	// the stage boundary: the same-stage query sees nothing, the
	// next-stage query sees the entity.
	assert.True(t, world.IsAlive(spawner.spawned))
	assert.Equal(t, []int{0}, during.counts)
	assert.Equal(t, []int{1}, after.counts)
	assert.Equal(t, float32(1), ecs.GetComponent[Position](world, spawner.spawned).X)
}

func TestCommandsDespawn(t *testing.T) {
	world := newTestWorld()
	target := world.Spawn(Position{}, Velocity{})

	scheduler := ecs.NewScheduler(world)
	during := &countingSystem{}
	after := &countingSystem{}
	scheduler.Register(ecs.Update, &despawnSystem{target: target})
	scheduler.Register(ecs.Update, during)
	scheduler.Register(ecs.PostUpdate, after)

	if err := scheduler.Step(1); err != nil {
		t.Fatalf("step failed: %v", err)
	}

	assert.Equal(t, []int{1}, during.counts)
	assert.Equal(t, []int{0}, after.counts)
	assert.False(t, world.IsAlive(target))
}

func TestCommandsInsertRemove(t *testing.T) {
	world := newTestWorld()
	target := world.Spawn(Position{}, Velocity{DX: 1})

	scheduler := ecs.NewScheduler(world)
	scheduler.Register(ecs.Update, &insertRemoveSystem{target: target})

	if err := scheduler.Step(1); err != nil {
		t.Fatalf("step failed: %v", err)
	}

	assert.NotNil(t, ecs.GetComponent[Health](world, target))
	assert.Nil(t, ecs.GetComponent[Velocity](world, target))
}

type despawnAndTouchSystem struct {
	target ecs.Entity
}

func (s *despawnAndTouchSystem) Execute(frame *ecs.Frame) error {
	// Mutations against an entity despawned in the same flush are
	// dropped, not applied to the recycled index.
	frame.Commands.Despawn(s.target)
	frame.Commands.Insert(s.target, Health{Current: 1})
	frame.Commands.Remove(s.target, reflect.TypeFor[Position]())
	return nil
}

func TestCommandsDespawnWins(t *testing.T) {
	world := newTestWorld()
	target := world.Spawn(Position{})

	scheduler := ecs.NewScheduler(world)
	scheduler.Register(ecs.Update, &despawnAndTouchSystem{target: target})

	if err := scheduler.Step(1); err != nil {
		t.Fatalf("step failed: %v", err)
	}

	assert.False(t, world.IsAlive(target))
	reused := world.Spawn(Name{})
	assert.Equal(t, target.Index(), reused.Index())
	assert.Nil(t, ecs.GetComponent[Health](world, reused))
}

type deferSystem struct {
	order *[]string
}

func (s *deferSystem) Execute(frame *ecs.Frame) error {
	*s.order = append(*s.order, "execute")
	frame.Commands.Defer(func() {
		*s.order = append(*s.order, "defer")
	})
	frame.Commands.Spawn(Position{})
	return nil
}

func TestCommandsDefer(t *testing.T) {
	world := newTestWorld()
	scheduler := ecs.NewScheduler(world)

	order := make([]string, 0)
	scheduler.Register(ecs.Update, &deferSystem{order: &order})

	if err := scheduler.Step(1); err != nil {
		t.Fatalf("step failed: %v", err)
	}

	// Deferred functions run at the sync point, after the structural
	// mutations they were queued alongside.
	assert.Equal(t, []string{"execute", "defer"}, order)
	assert.Equal(t, 1, world.EntityCount())
}
