package ecs

import "github.com/rs/zerolog"

// Frame is handed to every system invocation. DeltaTime is the wall time
// covered by this tick in seconds; Commands collects deferred structural
// mutations for the next sync point; Logger carries the stage and system
// identity of the invocation.
type Frame struct {
	DeltaTime float64
	Tick      uint64
	Commands  *Commands
	World     *World
	Logger    zerolog.Logger
}

// System is a scheduled unit of game logic. Implementations are structs
// whose exported parameter fields (Query, Res, ResMut, EventReader,
// EventWriter, Local) are initialized by the scheduler at registration
// time; other fields are private state persisting between invocations.
//
// A returned error is fatal: it aborts the run, wrapped with the stage
// and system identity.
type System interface {
	Execute(frame *Frame) error
}
