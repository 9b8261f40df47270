package ecs

import (
	"context"
	"os"
	"reflect"
	"time"

	"github.com/rs/zerolog"
)

// App wires a registry, world, and scheduler behind a chainable builder.
// Lifecycle: construct, register components/resources/events/systems,
// then Run (or Step from an external frame driver). Schedule validation
// happens before the first system executes; there is no package-level
// registration state.
type App struct {
	registry  *Registry
	world     *World
	scheduler *Scheduler
	config    Config
	log       zerolog.Logger
}

// NewApp creates an app with the default config and a stderr logger.
func NewApp() *App {
	registry := NewRegistry()
	world := NewWorld(registry)

	a := &App{
		registry:  registry,
		world:     world,
		scheduler: NewScheduler(world),
		config:    DefaultConfig(),
	}
	a.setLogger(zerolog.New(os.Stderr).With().Timestamp().Logger())
	return a
}

func (a *App) setLogger(log zerolog.Logger) {
	level, err := zerolog.ParseLevel(a.config.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	a.log = log.Level(level)
	a.scheduler.SetLogger(a.log)
}

// WithConfig replaces the app's config.
func (a *App) WithConfig(config Config) *App {
	a.config = config
	a.setLogger(a.log)
	return a
}

// WithLogger replaces the app's logger.
func (a *App) WithLogger(log zerolog.Logger) *App {
	a.setLogger(log)
	return a
}

// World returns the app's world.
func (a *App) World() *World {
	return a.world
}

// Registry returns the app's component registry, for
// RegisterComponent[T](app.Registry()).
func (a *App) Registry() *Registry {
	return a.registry
}

// AddSystem appends a system to the default per-frame stage (Update).
func (a *App) AddSystem(system System) *App {
	return a.AddSystemToStage(Update, system)
}

// AddSystemToStage appends a system to the named frame stage.
func (a *App) AddSystemToStage(stage Stage, system System) *App {
	if stage.IsStartup() {
		panic("frame system added to startup stage " + stage.String() + "; use AddStartupSystemToStage")
	}
	a.scheduler.Register(stage, system)
	return a
}

// AddStartupSystem appends a system to the default startup stage. Startup
// systems run exactly once, before the first tick.
func (a *App) AddStartupSystem(system System) *App {
	return a.AddStartupSystemToStage(Startup, system)
}

// AddStartupSystemToStage appends a system to the named startup stage.
func (a *App) AddStartupSystemToStage(stage Stage, system System) *App {
	if !stage.IsStartup() {
		panic("startup system added to frame stage " + stage.String() + "; use AddSystemToStage")
	}
	a.scheduler.Register(stage, system)
	return a
}

// AddResource inserts value as the singleton resource of its type.
func (a *App) AddResource(value any) *App {
	a.world.InsertResource(value)
	return a
}

// InitResource default-constructs the resource of type T if absent; no-op
// otherwise.
func InitResource[T any](a *App) *App {
	a.world.resources.init(reflect.TypeFor[T]())
	return a
}

// AddEvent registers the event type T with the app's event bus.
// Idempotent.
func AddEvent[T any](a *App) *App {
	RegisterEvent[T](a.world.events)
	return a
}

// Step runs one tick. Use this when an external frame driver (a render
// loop, a test) owns the clock; startup runs on the first call.
func (a *App) Step(dt float64) error {
	return a.scheduler.Step(dt)
}

// Run validates the schedule, runs the startup stages once, then steps
// the frame pipeline at the configured tick rate until the context is
// cancelled, a system fails, or the configured tick limit is reached.
func (a *App) Run(ctx context.Context) error {
	rate := a.config.TickRate
	if rate <= 0 {
		rate = DefaultConfig().TickRate
	}
	interval := time.Duration(float64(time.Second) / rate)

	a.log.Info().
		Float64("tick_rate", rate).
		Uint64("max_ticks", a.config.MaxTicks).
		Msg("starting app")
	return a.scheduler.Run(ctx, interval, a.config.MaxTicks)
}

// Stats returns execution statistics for every registered system.
func (a *App) Stats() *SchedulerStats {
	return a.scheduler.Stats()
}
