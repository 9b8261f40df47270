package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/rs/zerolog"

	"github.com/plus3/stagehand/ecs"
)

func main() {
	duration := flag.Duration("duration", 10*time.Second, "The total duration the test should run for.")
	entityCount := flag.Int("entities", 10000, "The initial number of entities to create.")
	churn := flag.Int("churn", 100, "Entities spawned and reaped per tick.")
	gcPauseMetrics := flag.Bool("gc-pause-metrics", false, "Enable detailed GC pause metrics in the report.")
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	log.Info().Msg("starting ECS stress test")

	registry := ecs.NewRegistry()
	registerStressComponents(registry)
	world := ecs.NewWorld(registry)
	world.InsertResource(ChurnRate{PerTick: *churn})

	scheduler := ecs.NewScheduler(world)
	registerStressSystems(scheduler)
	if err := scheduler.Validate(); err != nil {
		log.Fatal().Err(err).Msg("schedule invalid")
	}

	log.Info().Int("entities", *entityCount).Msg("populating world")
	for i := 0; i < *entityCount; i++ {
		spawnRandomEntity(world)
	}

	report := &Report{
		Duration:       *duration,
		Entities:       *entityCount,
		Churn:          *churn,
		GCPauseMetrics: *gcPauseMetrics,
	}
	runtime.ReadMemStats(&report.MemStatsStart)

	log.Info().Dur("duration", *duration).Msg("running simulation")
	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	startTime := time.Now()
	lastFrameTime := time.Now()

Loop:
	for {
		select {
		case <-ctx.Done():
			break Loop
		default:
			deltaTime := time.Since(lastFrameTime).Seconds()
			lastFrameTime = time.Now()

			tickStart := time.Now()
			if err := scheduler.Step(deltaTime); err != nil {
				log.Fatal().Err(err).Msg("tick failed")
			}
			report.TickTime.Samples = append(report.TickTime.Samples, time.Since(tickStart))
		}
	}

	report.TotalTime = time.Since(startTime)
	report.TotalTicks = int64(scheduler.Tick())
	report.FinalEntities = world.EntityCount()
	report.PendingEvents = world.Events().Pending()
	report.TickTime.Finalize()
	report.Scheduler = scheduler.Stats()
	runtime.ReadMemStats(&report.MemStatsEnd)

	log.Info().Msg("simulation finished")

	fmt.Println("\n\n--- Stress Test Report ---")
	if err := report.Generate(os.Stdout); err != nil {
		log.Fatal().Err(err).Msg("failed to generate report")
	}
	fmt.Println("--- End of Report ---")
}
