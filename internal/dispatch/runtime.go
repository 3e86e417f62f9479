// Package dispatch routes named operations to a claim store, either held
// in-process or hosted by a dedicated worker goroutine that owns its own
// store handle. The store is materialized lazily on first use, with
// migrations applied, and cached for the runtime's lifetime.
package dispatch

import (
	"context"
	"sync"

	"github.com/anamnesos/hivemind-sub007/internal/claims"
	"github.com/anamnesos/hivemind-sub007/internal/config"
)

// Mode selects where operations execute.
type Mode int

const (
	// ModeAuto defers to the environment switch and falls back to the
	// worker executor.
	ModeAuto Mode = iota
	// ModeInProcess executes operations directly on the caller's
	// goroutine.
	ModeInProcess
	// ModeWorker delegates operations to a dedicated goroutine owning
	// the store handle.
	ModeWorker
)

// StoreFactory builds the claim store. Supplying one forces in-process
// execution: the caller already controls the handle, so no worker may
// open another one against the same file.
type StoreFactory func() (*claims.Store, error)

// Options configures a Runtime.
type Options struct {
	Config config.Config
	// Mode overrides executor selection. Zero value is ModeAuto.
	Mode Mode
	// StoreFactory, when set, replaces the default store constructor and
	// forces in-process execution.
	StoreFactory StoreFactory
}

// Runtime dispatches operations to exactly one store instance. The
// database handle is owned by whichever executor is active, so two
// writable handles to the same file are never open at once.
type Runtime struct {
	opts Options

	mu   sync.Mutex
	exec executor
}

// NewRuntime builds a Runtime. No store is opened until the first
// operation executes.
func NewRuntime(opts Options) *Runtime {
	return &Runtime{opts: opts}
}

func (r *Runtime) mode() Mode {
	if r.opts.StoreFactory != nil {
		return ModeInProcess
	}
	if r.opts.Mode != ModeAuto {
		return r.opts.Mode
	}
	if config.ForceInProcess() {
		return ModeInProcess
	}
	return ModeWorker
}

func (r *Runtime) executor() executor {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.exec == nil {
		core := newCore(r.opts)
		if r.mode() == ModeWorker {
			r.exec = newWorkerExecutor(core)
		} else {
			r.exec = &inProcessExecutor{core: core}
		}
	}
	return r.exec
}

// Execute routes one named operation. Failures come back inside the
// Response envelope; the error return is reserved for transport-level
// problems the envelope cannot express.
func (r *Runtime) Execute(ctx context.Context, req Request) Response {
	return r.executor().execute(ctx, req)
}

// Recreate discards the cached executor and its store so the next
// operation rebuilds them. Intended for tests that reset the database
// between cases.
func (r *Runtime) Recreate() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.exec == nil {
		return nil
	}
	err := r.exec.close()
	r.exec = nil
	return err
}

// Close releases the active executor and its store.
func (r *Runtime) Close() error {
	return r.Recreate()
}
