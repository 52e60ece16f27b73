// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package workerspool

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gomlx/shadergraph/pkg/support/xsync"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolLimit(t *testing.T) {
	const maxParallelism = 3
	pool := New(maxParallelism)
	assert.Equal(t, maxParallelism, pool.MaxParallelism())
	assert.False(t, pool.IsUnlimited())

	release := xsync.NewLatch()
	var running, peak atomic.Int32
	var wg sync.WaitGroup
	for range 2 * maxParallelism {
		wg.Add(1)
		go pool.WaitToStart(func() {
			defer wg.Done()
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			release.Wait()
			running.Add(-1)
		})
	}
	require.Eventually(t, func() bool { return pool.NumRunning() == maxParallelism }, time.Second, time.Millisecond)
	assert.False(t, pool.StartIfAvailable(func() {}), "pool is full")
	release.Trigger()
	wg.Wait()
	assert.Equal(t, int32(maxParallelism), peak.Load())
	require.Eventually(t, func() bool { return pool.NumRunning() == 0 }, time.Second, time.Millisecond)

	done := xsync.NewLatch()
	assert.True(t, pool.StartIfAvailable(done.Trigger))
	done.Wait()
}

func TestPoolUnlimited(t *testing.T) {
	pool := New(-1)
	assert.True(t, pool.IsUnlimited())
	release := xsync.NewLatch()
	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		pool.WaitToStart(func() {
			defer wg.Done()
			release.Wait()
		})
	}
	assert.Equal(t, 20, pool.NumRunning())
	release.Trigger()
	wg.Wait()
}
