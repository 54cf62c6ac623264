// SPDX-License-Identifier: MIT

package log

import (
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Config captures options for configuring the global logger.
type Config struct {
	Level   string    // debug|info|warn|error; unknown values fall back to info
	Output  io.Writer // defaults to os.Stdout
	Service string
	Version string
	Env     string // attached as "env" when set
	Pretty  bool   // human-readable console output for local development
}

var base atomic.Pointer[zerolog.Logger]

// Configure (re)initialises the global zerolog logger. The daemon calls it once
// with safe defaults and once more after configuration has been loaded.
func Configure(cfg Config) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339Nano

	var writer io.Writer = os.Stdout
	if cfg.Output != nil {
		writer = cfg.Output
	}
	if cfg.Pretty {
		writer = zerolog.ConsoleWriter{Out: writer, TimeFormat: time.Kitchen}
	}

	service := cfg.Service
	if service == "" {
		service = "amvhub"
	}
	lc := zerolog.New(writer).With().Timestamp().Str("service", service)
	if cfg.Version != "" {
		lc = lc.Str("version", cfg.Version)
	}
	if cfg.Env != "" {
		lc = lc.Str("env", cfg.Env)
	}
	l := lc.Logger()
	base.Store(&l)
}

// Base returns the configured base logger, configuring defaults on first use.
func Base() zerolog.Logger {
	if l := base.Load(); l != nil {
		return *l
	}
	Configure(Config{})
	return *base.Load()
}

// WithComponent returns a child logger annotated with the given component name.
func WithComponent(component string) zerolog.Logger {
	return Base().With().Str(FieldComponent, component).Logger()
}
