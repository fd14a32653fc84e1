package pipeline

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/vnykmshr/chanflow/pkg/common/suspend"
	"github.com/vnykmshr/chanflow/pkg/scheduling/task"
	"github.com/vnykmshr/chanflow/pkg/streaming/channel"
)

// Produce launches gen as a producer stage and returns its output. The output
// is closed when gen returns, with gen's error as cause if it failed.
func Produce[T any](s *task.Scope, gen func(ctx context.Context, emit Emitter[T]) error, opts ...Option) channel.ReceiveChannel[T] {
	st := newStage[T](s, "produce", opts)
	return st.launch(nil, func(ctx context.Context) error {
		return gen(ctx, st.emitter(ctx))
	})
}

// FromSlice emits items in order, waiting the WithInterval delay before each one.
func FromSlice[T any](s *task.Scope, items []T, opts ...Option) channel.ReceiveChannel[T] {
	st := newStage[T](s, "from_slice", opts)
	return st.launch(nil, func(ctx context.Context) error {
		for _, item := range items {
			if err := suspend.Delay(ctx, st.opts.interval); err != nil {
				return err
			}
			if err := st.emit(ctx, item); err != nil {
				return err
			}
		}
		return nil
	})
}

// Tick emits the activation time of every schedule activation until the
// stage is cancelled. Combine it with Take to bound the stream.
func Tick(s *task.Scope, schedule cron.Schedule, opts ...Option) channel.ReceiveChannel[time.Time] {
	st := newStage[time.Time](s, "tick", opts)
	return st.launch(nil, func(ctx context.Context) error {
		next := time.Now()
		for {
			next = schedule.Next(next)
			if next.IsZero() {
				// The schedule has no further activations.
				return nil
			}
			if err := suspend.Delay(ctx, time.Until(next)); err != nil {
				return err
			}
			if err := st.emit(ctx, next); err != nil {
				return err
			}
		}
	})
}

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// TickCron is Tick driven by a cron expression, with optional seconds field
// and descriptors such as "@every 1s" or "@hourly".
func TickCron(s *task.Scope, expr string, opts ...Option) (channel.ReceiveChannel[time.Time], error) {
	schedule, err := cronParser.Parse(expr)
	if err != nil {
		return nil, err
	}
	return Tick(s, schedule, opts...), nil
}

// Interval returns a schedule activating every d. Unlike cron's "@every",
// it supports sub-second periods.
func Interval(d time.Duration) cron.Schedule {
	return intervalSchedule(d)
}

type intervalSchedule time.Duration

func (i intervalSchedule) Next(t time.Time) time.Time {
	if i <= 0 {
		return time.Time{}
	}
	return t.Add(time.Duration(i))
}
