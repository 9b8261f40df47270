package ecs

import (
	jlconfig "github.com/JeremyLoy/config"
	"github.com/rotisserie/eris"
)

// Config holds app runtime knobs. Fields map to environment variables via
// their tags.
type Config struct {
	// TickRate is the frame frequency in ticks per second.
	TickRate float64 `config:"TICK_RATE"`
	// MaxTicks bounds the run; 0 means run until the context is
	// cancelled.
	MaxTicks uint64 `config:"MAX_TICKS"`
	// LogLevel is a zerolog level name ("debug", "info", ...).
	LogLevel string `config:"LOG_LEVEL"`
}

// DefaultConfig returns the config used when nothing is set: 60 ticks per
// second, unbounded, info-level logging.
func DefaultConfig() Config {
	return Config{
		TickRate: 60,
		LogLevel: "info",
	}
}

// LoadConfig fills a Config from matching environment variables, keeping
// defaults for unset ones.
func LoadConfig() (Config, error) {
	c := DefaultConfig()
	if err := jlconfig.FromEnv().To(&c); err != nil {
		return DefaultConfig(), eris.Wrap(err, "loading config from environment")
	}
	return c, nil
}
