package main

import (
	"math/rand/v2"

	"github.com/plus3/stagehand/ecs"
)

type Position struct {
	X, Y, Z float64
}

type Velocity struct {
	X, Y, Z float64
}

type Health struct {
	Current, Max float64
}

type Lifetime struct {
	Remaining float64
}

type ChurnRate struct {
	PerTick int
}

type Expired struct {
	Entity ecs.Entity
}

func registerStressComponents(registry *ecs.Registry) {
	ecs.RegisterComponent[Position](registry)
	ecs.RegisterComponent[Velocity](registry)
	ecs.RegisterComponent[Health](registry)
	ecs.RegisterComponent[Lifetime](registry)
}

func registerStressSystems(scheduler *ecs.Scheduler) {
	scheduler.Register(ecs.First, &SpawnSystem{})
	scheduler.Register(ecs.Update, &MovementSystem{})
	scheduler.Register(ecs.Update, &DecaySystem{})
	scheduler.Register(ecs.PostUpdate, &ReapSystem{})
	scheduler.Register(ecs.Last, &TallySystem{})
}

func spawnRandomEntity(world *ecs.World) {
	components := []any{
		Position{X: rand.Float64() * 100, Y: rand.Float64() * 100},
		Lifetime{Remaining: rand.Float64()*9 + 1},
	}
	if rand.Float64() < 0.7 {
		components = append(components, Velocity{
			X: rand.Float64()*2 - 1,
			Y: rand.Float64()*2 - 1,
		})
	}
	if rand.Float64() < 0.4 {
		components = append(components, Health{Current: 100, Max: 100})
	}
	world.Spawn(components...)
}

// SpawnSystem keeps the churn up: a fixed batch of short-lived entities
// enters the world every tick.
type SpawnSystem struct {
	Churn ecs.Res[ChurnRate]
}

func (s *SpawnSystem) Execute(frame *ecs.Frame) error {
	churn, err := s.Churn.Get()
	if err != nil {
		return err
	}
	for i := 0; i < churn.PerTick; i++ {
		frame.Commands.Spawn(
			Position{X: rand.Float64() * 100, Y: rand.Float64() * 100},
			Velocity{X: rand.Float64()*2 - 1, Y: rand.Float64()*2 - 1},
			Lifetime{Remaining: rand.Float64()*2 + 0.5},
		)
	}
	return nil
}

type movingView struct {
	Position *Position
	Velocity *Velocity `ecs:"readonly"`
}

type MovementSystem struct {
	Bodies ecs.Query[movingView]
}

func (s *MovementSystem) Execute(frame *ecs.Frame) error {
	for _, body := range s.Bodies.Iter() {
		body.Position.X += body.Velocity.X * frame.DeltaTime
		body.Position.Y += body.Velocity.Y * frame.DeltaTime
		body.Position.Z += body.Velocity.Z * frame.DeltaTime
	}
	return nil
}

type decayView struct {
	Lifetime *Lifetime
}

type DecaySystem struct {
	Mortal ecs.Query[decayView]
}

func (s *DecaySystem) Execute(frame *ecs.Frame) error {
	for _, item := range s.Mortal.Iter() {
		item.Lifetime.Remaining -= frame.DeltaTime
	}
	return nil
}

type reapView struct {
	Entity   ecs.Entity
	Lifetime *Lifetime `ecs:"readonly"`
}

// ReapSystem despawns everything whose lifetime ran out and announces
// each death on the event bus.
type ReapSystem struct {
	Mortal  ecs.Query[reapView]
	Expired ecs.EventWriter[Expired]
}

func (s *ReapSystem) Execute(frame *ecs.Frame) error {
	for _, item := range s.Mortal.Iter() {
		if item.Lifetime.Remaining > 0 {
			continue
		}
		frame.Commands.Despawn(item.Entity)
		s.Expired.Send(Expired{Entity: item.Entity})
	}
	return nil
}

type TallySystem struct {
	Expired ecs.EventReader[Expired]
	Total   ecs.Local[int]
}

func (s *TallySystem) Execute(frame *ecs.Frame) error {
	total := s.Total.Get()
	for range s.Expired.Read() {
		*total++
	}
	return nil
}
