package ecs

// Stage is a named slot in the startup or frame pipeline. Stages execute
// in the fixed order declared below; systems within one stage have no
// guaranteed order beyond all completing before the next stage begins.
type Stage int

const (
	// Startup and PostStartup run exactly once, before the first tick.
	Startup Stage = iota
	PostStartup

	// The frame pipeline runs every tick, in this order.
	First
	PreUpdate
	Update
	PostUpdate
	Last
)

var (
	startupStages = []Stage{Startup, PostStartup}
	frameStages   = []Stage{First, PreUpdate, Update, PostUpdate, Last}
)

// IsStartup reports whether the stage belongs to the one-shot startup
// pipeline.
func (s Stage) IsStartup() bool {
	return s == Startup || s == PostStartup
}

func (s Stage) String() string {
	switch s {
	case Startup:
		return "Startup"
	case PostStartup:
		return "PostStartup"
	case First:
		return "First"
	case PreUpdate:
		return "PreUpdate"
	case Update:
		return "Update"
	case PostUpdate:
		return "PostUpdate"
	case Last:
		return "Last"
	default:
		return "Unknown"
	}
}
