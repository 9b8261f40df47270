package ecs_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plus3/stagehand/ecs"
)

type tally struct {
	N int
}

type stageRecorder struct {
	label string
	trace *[]string
}

func (s *stageRecorder) Execute(frame *ecs.Frame) error {
	*s.trace = append(*s.trace, s.label)
	return nil
}

type tallyWriter struct {
	Tally ecs.ResMut[tally]
}

func (s *tallyWriter) Execute(frame *ecs.Frame) error {
	t, err := s.Tally.Get()
	if err != nil {
		return err
	}
	t.N++
	return nil
}

type tallyReader struct {
	Tally    ecs.Res[tally]
	observed int
}

func (s *tallyReader) Execute(frame *ecs.Frame) error {
	t, err := s.Tally.Get()
	if err != nil {
		return err
	}
	s.observed = t.N
	return nil
}

type runCounter struct {
	runs int
}

func (s *runCounter) Execute(frame *ecs.Frame) error {
	s.runs++
	return nil
}

type failingSystem struct{}

var errBoom = errors.New("boom")

func (s *failingSystem) Execute(frame *ecs.Frame) error {
	return errBoom
}

type panickingSystem struct{}

func (s *panickingSystem) Execute(frame *ecs.Frame) error {
	panic("kaboom")
}

type localCounter struct {
	Count ecs.Local[int]
	last  int
}

func (s *localCounter) Execute(frame *ecs.Frame) error {
	n := s.Count.Get()
	*n++
	s.last = *n
	return nil
}

func TestSchedulerStageOrder(t *testing.T) {
	world := newTestWorld()
	scheduler := ecs.NewScheduler(world)

	var trace []string
	scheduler.Register(ecs.Startup, &stageRecorder{label: "startup", trace: &trace})
	scheduler.Register(ecs.PostStartup, &stageRecorder{label: "post_startup", trace: &trace})
	scheduler.Register(ecs.Last, &stageRecorder{label: "last", trace: &trace})
	scheduler.Register(ecs.First, &stageRecorder{label: "first", trace: &trace})
	scheduler.Register(ecs.PostUpdate, &stageRecorder{label: "post_update", trace: &trace})
	scheduler.Register(ecs.PreUpdate, &stageRecorder{label: "pre_update", trace: &trace})
	scheduler.Register(ecs.Update, &stageRecorder{label: "update", trace: &trace})

	require.NoError(t, scheduler.Step(1.0/60))

	// Registration order is irrelevant; only stage order counts.
	assert.Equal(t, []string{
		"startup", "post_startup",
		"first", "pre_update", "update", "post_update", "last",
	}, trace)

	trace = trace[:0]
	require.NoError(t, scheduler.Step(1.0 / 60))
	assert.Equal(t, []string{"first", "pre_update", "update", "post_update", "last"}, trace)
}

func TestSchedulerStartupRunsOnce(t *testing.T) {
	world := newTestWorld()
	scheduler := ecs.NewScheduler(world)

	startup := &runCounter{}
	frame := &runCounter{}
	scheduler.Register(ecs.Startup, startup)
	scheduler.Register(ecs.Update, frame)

	for i := 0; i < 5; i++ {
		require.NoError(t, scheduler.Step(1.0/60))
	}

	assert.Equal(t, 1, startup.runs)
	assert.Equal(t, 5, frame.runs)
	assert.Equal(t, uint64(5), scheduler.Tick())
}

func TestSchedulerWriterVisibleLaterSameTick(t *testing.T) {
	world := newTestWorld()
	world.InsertResource(tally{})
	scheduler := ecs.NewScheduler(world)

	reader := &tallyReader{}
	scheduler.Register(ecs.Update, &tallyWriter{})
	scheduler.Register(ecs.PostUpdate, reader)

	require.NoError(t, scheduler.Step(1.0/60))
	assert.Equal(t, 1, reader.observed)

	require.NoError(t, scheduler.Step(1.0 / 60))
	assert.Equal(t, 2, reader.observed)
}

// A writer and a reader of the same resource in one stage overlap, so
// they run sequentially in registration order rather than in parallel.
func TestSchedulerOverlapSerializedInOrder(t *testing.T) {
	world := newTestWorld()
	world.InsertResource(tally{})
	scheduler := ecs.NewScheduler(world)

	reader := &tallyReader{}
	scheduler.Register(ecs.Update, &tallyWriter{})
	scheduler.Register(ecs.Update, reader)

	require.NoError(t, scheduler.Step(1.0/60))
	assert.Equal(t, 1, reader.observed)
}

func TestSchedulerConflictDetected(t *testing.T) {
	world := newTestWorld()
	world.InsertResource(tally{})
	scheduler := ecs.NewScheduler(world)

	counter := &runCounter{}
	scheduler.Register(ecs.First, counter)
	scheduler.Register(ecs.Update, &tallyWriter{})
	scheduler.Register(ecs.Update, &tallyWriter{})

	err := scheduler.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ecs.ErrConflict))
	assert.Contains(t, err.Error(), "tallyWriter")
	assert.Contains(t, err.Error(), "Update")

	// The schedule never starts: not even systems in earlier stages run.
	err = scheduler.Step(1.0 / 60)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ecs.ErrConflict))
	assert.Equal(t, 0, counter.runs)
}

// Registering after the schedule has started re-validates on the next
// step, so a late conflicting writer still fails instead of racing.
func TestSchedulerConflictDetectedAfterStart(t *testing.T) {
	world := newTestWorld()
	world.InsertResource(tally{})
	scheduler := ecs.NewScheduler(world)

	first := &tallyWriter{}
	scheduler.Register(ecs.Update, first)
	require.NoError(t, scheduler.Step(1.0/60))

	scheduler.Register(ecs.Update, &tallyWriter{})

	err := scheduler.Step(1.0 / 60)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ecs.ErrConflict))
	assert.Contains(t, err.Error(), "tallyWriter")

	// The failed tick never ran: the original writer's single bump from
	// the first step is all the resource ever saw.
	got, err := ecs.GetResource[tally](world)
	require.NoError(t, err)
	assert.Equal(t, 1, got.N)
}

func TestSchedulerNoConflictAcrossStages(t *testing.T) {
	world := newTestWorld()
	world.InsertResource(tally{})
	scheduler := ecs.NewScheduler(world)

	scheduler.Register(ecs.Update, &tallyWriter{})
	scheduler.Register(ecs.PostUpdate, &tallyWriter{})

	require.NoError(t, scheduler.Validate())
	require.NoError(t, scheduler.Step(1.0/60))

	got, err := ecs.GetResource[tally](world)
	require.NoError(t, err)
	assert.Equal(t, 2, got.N)
}

func TestSchedulerSystemErrorIdentity(t *testing.T) {
	world := newTestWorld()
	scheduler := ecs.NewScheduler(world)
	scheduler.Register(ecs.Update, &failingSystem{})

	err := scheduler.Step(1.0 / 60)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errBoom))
	assert.Contains(t, err.Error(), "failingSystem")
	assert.Contains(t, err.Error(), "Update")
}

func TestSchedulerPanicBecomesError(t *testing.T) {
	world := newTestWorld()
	scheduler := ecs.NewScheduler(world)
	scheduler.Register(ecs.PreUpdate, &panickingSystem{})

	err := scheduler.Step(1.0 / 60)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "panicked"))
	assert.Contains(t, err.Error(), "panickingSystem")
	assert.Contains(t, err.Error(), "PreUpdate")
	assert.Contains(t, err.Error(), "kaboom")
}

// Local state belongs to the system instance: two registrations of the
// same type each keep their own counter.
func TestSchedulerLocalStatePerInstance(t *testing.T) {
	world := newTestWorld()
	scheduler := ecs.NewScheduler(world)

	a := &localCounter{}
	b := &localCounter{}
	scheduler.Register(ecs.Update, a)
	scheduler.Register(ecs.PostUpdate, b)

	require.NoError(t, scheduler.Step(1.0/60))
	require.NoError(t, scheduler.Step(1.0/60))

	assert.Equal(t, 2, a.last)
	assert.Equal(t, 2, b.last)
}

func TestSchedulerStats(t *testing.T) {
	world := newTestWorld()
	world.InsertResource(tally{})
	scheduler := ecs.NewScheduler(world)

	scheduler.Register(ecs.Startup, &runCounter{})
	scheduler.Register(ecs.Update, &tallyWriter{})

	for i := 0; i < 3; i++ {
		require.NoError(t, scheduler.Step(1.0/60))
	}

	stats := scheduler.Stats()
	require.Equal(t, 2, stats.SystemCount)
	assert.Equal(t, int64(4), stats.TotalExecutions)

	assert.Equal(t, ecs.Startup, stats.Systems[0].Stage)
	assert.Equal(t, int64(1), stats.Systems[0].ExecutionCount)
	assert.Contains(t, stats.Systems[0].Name, "runCounter")

	assert.Equal(t, ecs.Update, stats.Systems[1].Stage)
	assert.Equal(t, int64(3), stats.Systems[1].ExecutionCount)
	assert.GreaterOrEqual(t, stats.Systems[1].MaxDuration, stats.Systems[1].MinDuration)
	assert.Equal(t, stats.Systems[1].TotalDuration/3, stats.Systems[1].AvgDuration)
}
