package task

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Info identifies a task to error handlers.
type Info struct {
	ID       string
	Name     string
	Scope    string
	Attempt  int
	Critical bool
}

// ErrorHandler observes a task failure and decides what happens next.
// ctx is the failing task's context. Cancellation errors never reach it.
type ErrorHandler func(ctx context.Context, info Info, err error) Decision

// RetryPolicy bounds Retry decisions with exponential backoff.
type RetryPolicy struct {
	// MaxRetries is the number of re-executions after the first attempt.
	MaxRetries int

	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
}

// DefaultRetryPolicy returns the policy scopes use unless configured otherwise.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:      3,
		InitialInterval: 50 * time.Millisecond,
		MaxInterval:     time.Second,
		Multiplier:      2,
	}
}

func (p RetryPolicy) backOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		b.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		b.MaxInterval = p.MaxInterval
	}
	if p.Multiplier > 0 {
		b.Multiplier = p.Multiplier
	}
	return b
}

type infoKey struct{}

// InfoFromContext returns the identity of the task running with ctx.
func InfoFromContext(ctx context.Context) (Info, bool) {
	info, ok := ctx.Value(infoKey{}).(Info)
	return info, ok
}

func withInfo(ctx context.Context, info Info) context.Context {
	return context.WithValue(ctx, infoKey{}, info)
}
