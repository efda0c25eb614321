package mip

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
)

// ErrUnavailable is wrapped by every error that means the engine cannot be
// used at all: unknown driver, failed start-up, or a closed environment.
var ErrUnavailable = errors.New("oracle unavailable")

// Factory starts an oracle engine. Engines that hold process resources
// (licences, native handles) should implement io.Closer.
type Factory func() (Oracle, error)

var (
	driversMu sync.RWMutex
	drivers   = make(map[string]Factory)
)

// Register makes an oracle engine available under name. It panics on a nil
// factory or a duplicate name.
func Register(name string, f Factory) {
	driversMu.Lock()
	defer driversMu.Unlock()
	if f == nil {
		panic("mip: Register factory is nil")
	}
	if _, dup := drivers[name]; dup {
		panic("mip: Register called twice for driver " + name)
	}
	drivers[name] = f
}

// Drivers returns the sorted names of registered engines.
func Drivers() []string {
	driversMu.RLock()
	defer driversMu.RUnlock()
	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Environment is the process-scoped session with one engine. Open it once,
// share it between solves, and Close it on shutdown.
type Environment struct {
	driver string

	mu     sync.RWMutex
	oracle Oracle
	closed bool
}

// Open starts the engine registered under driver.
func Open(driver string) (*Environment, error) {
	driversMu.RLock()
	f, ok := drivers[driver]
	driversMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: driver %q is not registered (have %v)", ErrUnavailable, driver, Drivers())
	}
	o, err := f()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to start driver %q: %v", ErrUnavailable, driver, err)
	}
	return &Environment{driver: driver, oracle: o}, nil
}

// Name returns the driver name.
func (e *Environment) Name() string {
	return e.driver
}

// Solve forwards to the engine. It fails with ErrUnavailable once the
// environment is closed.
func (e *Environment) Solve(ctx context.Context, m *Model, p Params) (Result, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return Result{}, fmt.Errorf("%w: environment %q is closed", ErrUnavailable, e.driver)
	}
	return e.oracle.Solve(ctx, m, p)
}

// Close releases the engine. In-flight solves finish first. Closing twice
// is a no-op.
func (e *Environment) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	if c, ok := e.oracle.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Closed reports whether Close has been called.
func (e *Environment) Closed() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.closed
}
