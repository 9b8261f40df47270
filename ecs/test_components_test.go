package ecs_test

import "github.com/plus3/stagehand/ecs"

type Position struct {
	X, Y float32
}

type Velocity struct {
	DX, DY float32
}

type Health struct {
	Current, Max float32
}

type Name struct {
	Value string
}

type Educated struct {
	Done bool
}

// Marker components.
type Ball struct{}
type Collides struct{}
type PlayerOne struct{}
type PlayerTwo struct{}

func newTestRegistry() *ecs.Registry {
	registry := ecs.NewRegistry()
	ecs.RegisterComponent[Position](registry)
	ecs.RegisterComponent[Velocity](registry)
	ecs.RegisterComponent[Health](registry)
	ecs.RegisterComponent[Name](registry)
	ecs.RegisterComponent[Educated](registry)
	ecs.RegisterComponent[Ball](registry)
	ecs.RegisterComponent[Collides](registry)
	ecs.RegisterComponent[PlayerOne](registry)
	ecs.RegisterComponent[PlayerTwo](registry)
	return registry
}

func newTestWorld() *ecs.World {
	return ecs.NewWorld(newTestRegistry())
}
