// Package demo wires the configuration, logger and console printer shared by
// the programs under examples/.
package demo

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/vnykmshr/chanflow/internal/config"
	"github.com/vnykmshr/chanflow/pkg/common/logger"
	"github.com/vnykmshr/chanflow/pkg/scheduling/task"
	"github.com/vnykmshr/chanflow/pkg/streaming/console"
)

// Env is what every demo program starts from.
type Env struct {
	Name   string
	Config *config.Config
	Log    zerolog.Logger
	Out    *console.Printer

	ctx    context.Context
	cancel context.CancelFunc
}

// Start loads the configuration and builds the logger and printer. The
// returned context is cancelled on SIGINT or SIGTERM.
func Start(name string) (*Env, context.Context, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(cfg.Logging)
	if err != nil {
		return nil, nil, fmt.Errorf("build logger: %w", err)
	}
	log = log.With().Str("demo", name).Logger()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	out := console.NewWithConfig(os.Stdout, console.Config{
		Name:    name + "_console",
		Metrics: cfg.Metrics.Prometheus(),
		OnError: func(err error) {
			log.Error().Err(err).Msg("console write failed")
		},
	})

	return &Env{
		Name:   name,
		Config: cfg,
		Log:    log,
		Out:    out,
		ctx:    ctx,
		cancel: cancel,
	}, ctx, nil
}

// Scope creates a scope configured from the environment.
func (e *Env) Scope(name string, opts ...task.ScopeOption) *task.Scope {
	base := []task.ScopeOption{
		task.WithName(name),
		task.WithLogger(e.Log),
	}
	if e.Config.Metrics.Enabled {
		base = append(base, task.WithMetrics(e.Config.Metrics.Prometheus()))
	}
	return task.NewScope(e.ctx, append(base, opts...)...)
}

// Topic prints a section banner.
func (e *Env) Topic(title string) {
	_ = e.Out.Topic(title)
}

// Printf prints one line.
func (e *Env) Printf(format string, a ...any) {
	_ = e.Out.Printf(format, a...)
}

// StartMsg announces the task running on ctx.
func (e *Env) StartMsg(ctx context.Context) {
	e.Printf("Starting task -%s-", taskName(ctx))
}

// EndMsg announces the end of the task running on ctx.
func (e *Env) EndMsg(ctx context.Context) {
	e.Printf("Task -%s- finished", taskName(ctx))
}

// Close flushes the printer and releases the signal handler.
func (e *Env) Close() {
	_ = e.Out.Close()
	e.cancel()
}

// Fatal logs err, flushes the output and exits.
func (e *Env) Fatal(err error) {
	e.Log.Error().Err(err).Msg("demo failed")
	e.Close()
	os.Exit(1)
}

func taskName(ctx context.Context) string {
	if info, ok := task.InfoFromContext(ctx); ok {
		return info.Name
	}
	return "main"
}
