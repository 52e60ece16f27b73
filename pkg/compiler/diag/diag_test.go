// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package diag

import (
	"testing"

	"github.com/gomlx/shadergraph/pkg/core/graph"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrors(t *testing.T) {
	node := graph.DeriveNodeID("sample")
	err := NodeErrorf(UnsupportedConstruct, node, "sampling a %dD field", 1)
	wrapped := errors.WithMessage(err, "compiling stage")
	assert.True(t, IsKind(wrapped, UnsupportedConstruct))
	assert.False(t, IsKind(wrapped, StructuralError))
	got, ok := NodeOf(wrapped)
	require.True(t, ok)
	assert.Equal(t, node, got)
	assert.Contains(t, err.Error(), "unsupported construct at node ")
	assert.Contains(t, err.Error(), "sampling a 1D field")

	// Wrap keeps the original classification.
	assert.Same(t, err, Wrap(BackendCompilation, wrapped))
	plain := Wrap(StructuralError, errors.New("dangling edge"))
	assert.Equal(t, "structural error: dangling edge", plain.Error())
	_, ok = NodeOf(plain)
	assert.False(t, ok)

	_, ok = KindOf(errors.New("other"))
	assert.False(t, ok)
	assert.Equal(t, "Kind(99)", Kind(99).String())
}
