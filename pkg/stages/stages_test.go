// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package stages

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/gomlx/shadergraph/pkg/compiler"
	"github.com/gomlx/shadergraph/pkg/compiler/codegen"
	"github.com/gomlx/shadergraph/pkg/core/dtypes"
	"github.com/gomlx/shadergraph/pkg/core/graph"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStage returns a stage with the given dependencies.
func fakeStage(name string, deps ...*compiler.Stage) *compiler.Stage {
	s := &codegen.Stage{ID: graph.DeriveNodeID(name), Kind: graph.ComputeStage}
	for _, dep := range deps {
		s.Dependencies = append(s.Dependencies, dep.ID)
	}
	return &compiler.Stage{Stage: s}
}

// recorder is a Runner that records the order in which stages completed.
type recorder struct {
	mu    sync.Mutex
	order []graph.NodeID
	fail  map[graph.NodeID]error
}

func (r *recorder) run(_ context.Context, stage *compiler.Stage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail[stage.ID]; err != nil {
		return err
	}
	r.order = append(r.order, stage.ID)
	return nil
}

func (r *recorder) position(t *testing.T, stage *compiler.Stage) int {
	for ii, id := range r.order {
		if id == stage.ID {
			return ii
		}
	}
	t.Fatalf("stage %s was not run", stage.ID)
	return -1
}

func TestDispatcherOrder(t *testing.T) {
	a, b := fakeStage("a"), fakeStage("b")
	c := fakeStage("c", a, b)
	d := fakeStage("d", c)
	rec := &recorder{}
	for range 20 {
		rec.order = nil
		require.NoError(t, NewDispatcher(-1).Run(context.Background(), []*compiler.Stage{a, b, c, d}, rec.run))
		require.Len(t, rec.order, 4)
		assert.Less(t, rec.position(t, a), rec.position(t, c))
		assert.Less(t, rec.position(t, b), rec.position(t, c))
		assert.Less(t, rec.position(t, c), rec.position(t, d))
	}
}

func TestDispatcherFailure(t *testing.T) {
	a, independent := fakeStage("a"), fakeStage("independent")
	b := fakeStage("b", a)
	c := fakeStage("c", b)
	errA := errors.New("out of memory")
	rec := &recorder{fail: map[graph.NodeID]error{a.ID: errA}}
	err := NewDispatcher(2).Run(context.Background(), []*compiler.Stage{a, independent, b, c}, rec.run)
	require.Error(t, err)
	assert.ErrorIs(t, err, errA)
	assert.Contains(t, err.Error(), a.ID.String())
	assert.Equal(t, []graph.NodeID{independent.ID}, rec.order, "dependants of a failed stage must not run")
}

func TestDispatcherParallelism(t *testing.T) {
	const maxParallelism = 2
	var stages []*compiler.Stage
	for _, name := range []string{"a", "b", "c", "d", "e", "f"} {
		stages = append(stages, fakeStage(name))
	}
	var running, peak atomic.Int32
	var calls atomic.Int32
	err := NewDispatcher(maxParallelism).Run(context.Background(), stages, func(_ context.Context, _ *compiler.Stage) error {
		calls.Add(1)
		n := running.Add(1)
		defer running.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int32(len(stages)), calls.Load())
	assert.LessOrEqual(t, peak.Load(), int32(maxParallelism))
}

func TestDispatcherCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	a := fakeStage("a")
	b := fakeStage("b", a)
	var calls atomic.Int32
	err := NewDispatcher(0).Run(ctx, []*compiler.Stage{a, b}, func(context.Context, *compiler.Stage) error {
		calls.Add(1)
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls.Load())
}

func TestDispatcherInvalidOrder(t *testing.T) {
	a := fakeStage("a")
	b := fakeStage("b", a)
	noop := func(context.Context, *compiler.Stage) error { return nil }
	err := NewDispatcher(1).Run(context.Background(), []*compiler.Stage{b, a}, noop)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not scheduled before it")
	err = NewDispatcher(1).Run(context.Background(), []*compiler.Stage{a, a}, noop)
	assert.ErrorContains(t, err, "listed twice")
}

// compileField compiles a render stage sampling a field that depends on the vertex position.
func compileField(t *testing.T) *compiler.Result {
	var root *graph.Node
	g, err := graph.BuildFn(func(b *graph.Builder) {
		field := b.NamedNode("noise", graph.OpComputeField, graph.ComputeFieldParams{Dim: 2, Resolution: 64})
		b.ConnectNodes(b.Unary(graph.OpSin, b.Node(graph.OpPosition, nil)), "out", field, "value")
		sample := b.Node(graph.OpSample, nil)
		b.ConnectNodes(field, "field", sample, "field")
		root = b.Node(graph.OpPreviewOutput, nil)
		b.ConnectNodes(sample, "out", root, "color")
	})
	require.NoError(t, err)
	result, err := compiler.Compile(g, root.ID(), nil)
	require.NoError(t, err)
	return result
}

func TestDispatcherCompiledStages(t *testing.T) {
	result := compileField(t)
	require.Len(t, result.Stages, 2)
	rec := &recorder{}
	require.NoError(t, NewDispatcher(0).Run(context.Background(), result.Stages, rec.run))
	assert.Equal(t, []graph.NodeID{result.Stages[0].ID, result.RootStage().ID}, rec.order)
}

func TestWedgeHash(t *testing.T) {
	result := compileField(t)
	stage := result.RootStage()
	require.True(t, stage.Domain.Includes(dtypes.TransformDependent))
	require.False(t, stage.Domain.Includes(dtypes.TimeVarying))

	base := Inputs{Time: 1, Model: uuid.New(), Transform: [16]float32{0: 1, 5: 1, 10: 1, 15: 1}}
	h := WedgeHash(stage, base)
	assert.NotEqual(t, stage.Hash, h)
	assert.Equal(t, h, WedgeHash(stage, base), "hash must be deterministic")

	later := base
	later.Time = 2
	assert.Equal(t, h, WedgeHash(stage, later), "time is not in the stage domain")

	otherModel := base
	otherModel.Model = uuid.New()
	assert.Equal(t, h, WedgeHash(stage, otherModel), "model is not in the stage domain")

	moved := base
	moved.Transform[12] = 3
	assert.NotEqual(t, h, WedgeHash(stage, moved))

	withArgs := base
	withArgs.Arguments = map[string]string{"seed": "1", "octaves": "4"}
	h1 := WedgeHash(stage, withArgs)
	assert.NotEqual(t, h, h1)
	withArgs.Arguments = map[string]string{"octaves": "4", "seed": "1"}
	assert.Equal(t, h1, WedgeHash(stage, withArgs))
	withArgs.Arguments = map[string]string{"seed": "14", "octaves": ""}
	assert.NotEqual(t, h1, WedgeHash(stage, withArgs))
}

func TestWedgeHashDomains(t *testing.T) {
	stage := fakeStage("timed")
	stage.Domain = dtypes.TimeVarying.Union(dtypes.ModelDependent)
	base := Inputs{Time: 1, Model: uuid.New()}
	h := WedgeHash(stage, base)

	later := base
	later.Time = 1.5
	assert.NotEqual(t, h, WedgeHash(stage, later))

	otherModel := base
	otherModel.Model = uuid.New()
	assert.NotEqual(t, h, WedgeHash(stage, otherModel))

	moved := base
	moved.Transform[0] = 2
	assert.Equal(t, h, WedgeHash(stage, moved))

	constant := fakeStage("constant")
	assert.Equal(t, WedgeHash(constant, Inputs{}), WedgeHash(constant, later))
}
