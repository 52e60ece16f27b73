// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package xsync

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLatch(t *testing.T) {
	l := NewLatch()
	assert.False(t, l.Test())
	go l.Trigger()
	select {
	case <-l.WaitChan():
	case <-time.After(time.Second):
		t.Fatal("latch was not triggered")
	}
	l.Wait()
	assert.True(t, l.Test())
	l.Trigger() // No-op.
	assert.True(t, l.Test())
}

func TestLatchWithValue(t *testing.T) {
	l := NewLatchWithValue[error]()
	assert.False(t, l.Test())
	first := errors.New("first")
	go func() {
		l.Trigger(first)
		l.Trigger(errors.New("second"))
	}()
	<-l.WaitChan()
	require.True(t, l.Test())
	assert.Same(t, first, l.Wait())
}
