package ecs

import (
	"context"
	"reflect"
	"time"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// SchedulerStats provides statistics about scheduler execution.
type SchedulerStats struct {
	SystemCount     int
	TotalExecutions int64
	Systems         []SystemStats
}

// SystemStats provides execution statistics for a single system.
type SystemStats struct {
	Name           string
	Stage          Stage
	ExecutionCount int64
	MinDuration    time.Duration
	MaxDuration    time.Duration
	AvgDuration    time.Duration
	LastDuration   time.Duration
	TotalDuration  time.Duration
}

type systemStatsInternal struct {
	executionCount int64
	minDuration    time.Duration
	maxDuration    time.Duration
	totalDuration  time.Duration
	lastDuration   time.Duration
}

func (st *systemStatsInternal) record(d time.Duration) {
	st.executionCount++
	st.lastDuration = d
	st.totalDuration += d
	if d < st.minDuration {
		st.minDuration = d
	}
	if d > st.maxDuration {
		st.maxDuration = d
	}
}

// registeredSystem pairs a system with its discovered access set.
type registeredSystem struct {
	name   string
	system System
	access accessSet
	stats  systemStatsInternal
}

// Scheduler owns the stage pipeline. Startup stages run once before the
// first tick; frame stages run every tick in fixed order. The command
// buffer is flushed between stages and the event bus swaps after the last
// stage of each tick.
//
// Within a stage, systems whose declared access sets do not overlap run
// concurrently; overlapping systems run sequentially in registration
// order. The separation is decided entirely from the declared access
// sets, so no runtime locking guards component or resource data.
type Scheduler struct {
	world     *World
	stages    map[Stage][]*registeredSystem
	log       zerolog.Logger
	tick      uint64
	started   bool
	validated bool
}

// NewScheduler creates a scheduler for the given world. Logging is off by
// default; see SetLogger.
func NewScheduler(world *World) *Scheduler {
	return &Scheduler{
		world:  world,
		stages: make(map[Stage][]*registeredSystem),
		log:    zerolog.Nop(),
	}
}

// SetLogger sets the logger used for per-invocation stage/system scoped
// logging.
func (s *Scheduler) SetLogger(log zerolog.Logger) {
	s.log = log
}

// Register appends a system to the named stage, discovering and
// initializing its parameter fields.
func (s *Scheduler) Register(stage Stage, system System) {
	access := s.initializeParams(system)
	s.stages[stage] = append(s.stages[stage], &registeredSystem{
		name:   systemName(system),
		system: system,
		access: access,
		stats:  systemStatsInternal{minDuration: time.Duration(1<<63 - 1)},
	})
	s.validated = false
}

// initializeParams walks the system struct's exported fields, initializes
// every parameter field, and collects the declared access set.
func (s *Scheduler) initializeParams(system System) accessSet {
	systemValue := reflect.ValueOf(system)
	if systemValue.Kind() == reflect.Ptr {
		systemValue = systemValue.Elem()
	}
	if systemValue.Kind() != reflect.Struct {
		return nil
	}

	var access accessSet
	for i := 0; i < systemValue.NumField(); i++ {
		field := systemValue.Field(i)
		if !field.CanSet() || field.Kind() != reflect.Struct {
			continue
		}
		if !field.CanAddr() {
			continue
		}
		param, ok := field.Addr().Interface().(systemParam)
		if !ok {
			continue
		}
		param.initParam(s.world)
		access = append(access, param.access()...)
	}
	return access
}

func systemName(system System) string {
	t := reflect.TypeOf(system)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	// String() keeps the generic instantiation visible, so the same
	// system body registered per tag type reports a distinct name.
	return t.String()
}

// Validate checks every stage for systems that both declare exclusive
// access to the same resource type. It runs before any system executes
// and again on the next step after a late registration; it is exposed
// for tests and early failure.
func (s *Scheduler) Validate() error {
	for _, stage := range append(append([]Stage{}, startupStages...), frameStages...) {
		systems := s.stages[stage]
		for i := 0; i < len(systems); i++ {
			for j := i + 1; j < len(systems); j++ {
				if decl, ok := systems[i].access.conflictsWith(systems[j].access); ok {
					return eris.Wrapf(ErrConflict,
						"systems %s and %s in stage %s both declare exclusive access to %s %s",
						systems[i].name, systems[j].name, stage, decl.class, decl.target)
				}
			}
		}
	}
	s.validated = true
	return nil
}

// RunStartup validates the schedule and executes the startup stages
// exactly once, in declared order, flushing commands between stages.
func (s *Scheduler) RunStartup() error {
	if s.started {
		return nil
	}
	if !s.validated {
		if err := s.Validate(); err != nil {
			return err
		}
	}
	s.started = true

	frame := &Frame{
		World:    s.world,
		Commands: newCommands(s.world),
	}
	for _, stage := range startupStages {
		if err := s.runStage(stage, frame); err != nil {
			return err
		}
		frame.Commands.flush(s.world)
	}
	return nil
}

// Step runs one full tick: every frame stage in order with a command
// flush between stages, then the event swap. Startup runs first if it has
// not already.
func (s *Scheduler) Step(dt float64) error {
	if err := s.RunStartup(); err != nil {
		return err
	}
	// Registration after the first tick clears validated; re-check so a
	// conflicting late addition fails the next step instead of racing.
	if !s.validated {
		if err := s.Validate(); err != nil {
			return err
		}
	}
	s.tick++

	frame := &Frame{
		DeltaTime: dt,
		Tick:      s.tick,
		World:     s.world,
		Commands:  newCommands(s.world),
	}
	for _, stage := range frameStages {
		if err := s.runStage(stage, frame); err != nil {
			return err
		}
		frame.Commands.flush(s.world)
	}
	s.world.events.Swap()
	return nil
}

// Tick returns the number of completed ticks.
func (s *Scheduler) Tick() uint64 {
	return s.tick
}

// Run steps the frame pipeline at the given interval until the context is
// cancelled, a system fails, or maxTicks ticks have completed (0 means
// unbounded).
func (s *Scheduler) Run(ctx context.Context, interval time.Duration, maxTicks uint64) error {
	if err := s.RunStartup(); err != nil {
		return err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	lastTime := time.Now()

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Uint64("ticks", s.tick).Msg("run stopped")
			return nil
		case now := <-ticker.C:
			dt := now.Sub(lastTime).Seconds()
			lastTime = now
			if err := s.Step(dt); err != nil {
				return err
			}
			if maxTicks > 0 && s.tick >= maxTicks {
				return nil
			}
		}
	}
}

// runStage executes one stage: registration order is partitioned into
// contiguous batches of mutually non-overlapping systems; a batch of one
// runs inline, larger batches run concurrently.
func (s *Scheduler) runStage(stage Stage, frame *Frame) error {
	systems := s.stages[stage]

	for start := 0; start < len(systems); {
		end := start + 1
		for end < len(systems) && !overlapsBatch(systems[start:end], systems[end]) {
			end++
		}
		batch := systems[start:end]

		if len(batch) == 1 {
			if err := s.invoke(stage, batch[0], frame); err != nil {
				return err
			}
		} else {
			var group errgroup.Group
			for _, sys := range batch {
				group.Go(func() error {
					return s.invoke(stage, sys, frame)
				})
			}
			if err := group.Wait(); err != nil {
				return err
			}
		}
		start = end
	}
	return nil
}

func overlapsBatch(batch []*registeredSystem, candidate *registeredSystem) bool {
	for _, member := range batch {
		if member.access.overlapsWith(candidate.access) {
			return true
		}
	}
	return false
}

// invoke runs a single system, recording stats and converting panics into
// errors carrying the stage and system identity.
func (s *Scheduler) invoke(stage Stage, sys *registeredSystem, frame *Frame) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = eris.Errorf("system %s in stage %s panicked: %v", sys.name, stage, r)
		}
	}()

	invocation := *frame
	invocation.Logger = s.log.With().
		Str("stage", stage.String()).
		Str("system", sys.name).
		Logger()

	start := time.Now()
	if execErr := sys.system.Execute(&invocation); execErr != nil {
		return eris.Wrapf(execErr, "system %s in stage %s failed", sys.name, stage)
	}
	duration := time.Since(start)
	sys.stats.record(duration)
	invocation.Logger.Trace().Dur("duration", duration).Msg("system completed")
	return nil
}

// Stats returns execution statistics for every registered system, startup
// stages first, then frame stages, in registration order within a stage.
func (s *Scheduler) Stats() *SchedulerStats {
	stats := &SchedulerStats{}

	for _, stage := range append(append([]Stage{}, startupStages...), frameStages...) {
		for _, sys := range s.stages[stage] {
			avgDuration := time.Duration(0)
			if sys.stats.executionCount > 0 {
				avgDuration = sys.stats.totalDuration / time.Duration(sys.stats.executionCount)
			}
			stats.Systems = append(stats.Systems, SystemStats{
				Name:           sys.name,
				Stage:          stage,
				ExecutionCount: sys.stats.executionCount,
				MinDuration:    sys.stats.minDuration,
				MaxDuration:    sys.stats.maxDuration,
				AvgDuration:    avgDuration,
				LastDuration:   sys.stats.lastDuration,
				TotalDuration:  sys.stats.totalDuration,
			})
			stats.TotalExecutions += sys.stats.executionCount
		}
	}

	stats.SystemCount = len(stats.Systems)
	return stats
}
