// (c) 2019-2020, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package tracevm

import (
	"context"
	"fmt"
	"time"
)

var (
	_ Executor = (*FixtureExecutor)(nil)
	_ Executor = ExecutorFunc(nil)
)

// Executor runs source text and returns its full trace.
type Executor interface {
	Execute(ctx context.Context, source string) (*ExecutionResult, error)
}

// ExecutorFunc adapts a function into an Executor.
type ExecutorFunc func(ctx context.Context, source string) (*ExecutionResult, error)

// Execute calls f(ctx, source).
func (f ExecutorFunc) Execute(ctx context.Context, source string) (*ExecutionResult, error) {
	return f(ctx, source)
}

// FixtureExecutor replays a recorded fixture after [Delay]. The source text
// is not interpreted.
type FixtureExecutor struct {
	Delay   time.Duration
	Fixture Fixture
}

// NewFixtureExecutor returns an executor replaying the fixture named [name].
func NewFixtureExecutor(name string, delay time.Duration) (*FixtureExecutor, error) {
	fixture, ok := LookupFixture(name)
	if !ok {
		return nil, fmt.Errorf("unknown fixture %q", name)
	}
	return &FixtureExecutor{Delay: delay, Fixture: fixture}, nil
}

func (e *FixtureExecutor) Execute(ctx context.Context, _ string) (*ExecutionResult, error) {
	if e.Delay > 0 {
		timer := time.NewTimer(e.Delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	} else if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.Fixture(), nil
}
