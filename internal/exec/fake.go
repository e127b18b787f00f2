package exec

import (
	"context"
	"sync"
)

// FakeRunner is a Runner for tests. Handler decides what each invocation
// does; every call is recorded.
type FakeRunner struct {
	mu      sync.Mutex
	Calls   []Command
	Handler func(ctx context.Context, cmd Command) (Result, error)
}

// Run records cmd and delegates to Handler. A nil Handler succeeds with
// an empty result.
func (f *FakeRunner) Run(ctx context.Context, cmd Command) (Result, error) {
	f.mu.Lock()
	f.Calls = append(f.Calls, cmd)
	handler := f.Handler
	f.mu.Unlock()

	if handler == nil {
		return Result{}, nil
	}
	return handler(ctx, cmd)
}

// CallCount returns how many times Run was called.
func (f *FakeRunner) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Calls)
}
