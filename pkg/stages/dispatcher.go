// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package stages runs compiled stages in dependency order and computes the wedge hashes used
// to decide whether a stage's previous output is still valid.
//
// The compiler only orders stages. Running them (allocating the fields, dispatching the
// compute bodies, drawing the render bodies) is the job of the caller's Runner: the Dispatcher
// only guarantees that a stage starts after every stage it depends on has completed, and that
// independent stages may run in parallel.
package stages

import (
	"context"
	"sync"

	"github.com/gomlx/shadergraph/internal/workerspool"
	"github.com/gomlx/shadergraph/pkg/compiler"
	"github.com/gomlx/shadergraph/pkg/core/graph"
	"github.com/gomlx/shadergraph/pkg/support/xsync"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Runner executes one stage. It is called at most once per stage, only after every
// dependency of the stage returned without error.
type Runner func(ctx context.Context, stage *compiler.Stage) error

// DependencyError is returned (wrapped) for stages that were not run because a stage they
// depend on failed.
type DependencyError struct {
	Stage, Dependency graph.NodeID
}

func (e *DependencyError) Error() string {
	return "stage " + e.Stage.String() + " not run: dependency " + e.Dependency.String() + " failed"
}

// Dispatcher runs stages on a bounded pool of workers.
type Dispatcher struct {
	pool *workerspool.Pool
}

// NewDispatcher returns a Dispatcher running up to maxParallelism stages at the same time.
// If maxParallelism is 0, runtime.NumCPU() is used; if negative, parallelism is unlimited.
func NewDispatcher(maxParallelism int) *Dispatcher {
	return &Dispatcher{pool: workerspool.New(maxParallelism)}
}

// Run executes every stage with runner, respecting the dependencies between them. Stages
// must be given in dependency order, as in compiler.Result.Stages, and dependencies on stages
// not in the list are an error.
//
// A failed stage prevents its dependants (transitively) from running, but unrelated stages
// still run. Run waits for all started stages and returns the first error of a runner, or
// ctx.Err() if the context was cancelled before all stages were started.
func (d *Dispatcher) Run(ctx context.Context, stages []*compiler.Stage, runner Runner) error {
	done := make(map[graph.NodeID]*xsync.LatchWithValue[error], len(stages))
	for _, stage := range stages {
		for _, dep := range stage.Dependencies {
			if _, found := done[dep]; !found {
				return errors.Errorf("stages: stage %s depends on %s, which is not scheduled before it", stage.ID, dep)
			}
		}
		if _, found := done[stage.ID]; found {
			return errors.Errorf("stages: stage %s is listed twice", stage.ID)
		}
		done[stage.ID] = xsync.NewLatchWithValue[error]()
	}

	var (
		mu       sync.Mutex
		firstErr error
		wg       sync.WaitGroup
	)
	setErr := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		if firstErr == nil {
			firstErr = err
		}
	}

	for _, stage := range stages {
		latch := done[stage.ID]
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, dep := range stage.Dependencies {
				depLatch := done[dep]
				select {
				case <-depLatch.WaitChan():
				case <-ctx.Done():
					latch.Trigger(ctx.Err())
					setErr(ctx.Err())
					return
				}
				if depLatch.Wait() != nil {
					klog.V(1).Infof("stages: skipping %s, dependency %s failed", stage.ID, dep)
					latch.Trigger(errors.WithStack(&DependencyError{Stage: stage.ID, Dependency: dep}))
					return
				}
			}
			if err := ctx.Err(); err != nil {
				latch.Trigger(err)
				setErr(err)
				return
			}
			wg.Add(1)
			d.pool.WaitToStart(func() {
				defer wg.Done()
				err := runner(ctx, stage)
				if err != nil {
					err = errors.WithMessagef(err, "stage %s (%s)", stage.ID, stage.Kind)
					setErr(err)
				} else {
					klog.V(2).Infof("stages: %s completed", stage.ID)
				}
				latch.Trigger(err)
			})
		}()
	}
	wg.Wait()
	return firstErr
}
