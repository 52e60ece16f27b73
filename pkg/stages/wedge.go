// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package stages

import (
	"crypto/sha256"
	"encoding/binary"
	"math"
	"slices"

	"github.com/gomlx/shadergraph/pkg/compiler"
	"github.com/gomlx/shadergraph/pkg/core/dtypes"
	"github.com/google/uuid"
	"golang.org/x/exp/maps"
)

// Inputs are the varying inputs of a stage evaluation.
type Inputs struct {
	// Time of the animation, in seconds.
	Time float32

	// Transform is the column-major model-view-projection matrix.
	Transform [16]float32

	// Model identifies the geometry being shaded.
	Model uuid.UUID

	// Arguments are caller defined inputs that always take part in the hash.
	Arguments map[string]string
}

// WedgeHash returns the hash of a stage evaluated with the given inputs. Inputs outside of the
// stage domain are ignored: the wedge hash of a Constant stage doesn't change with time, and
// the one of a time varying stage doesn't change with the model.
func WedgeHash(stage *compiler.Stage, in Inputs) [32]byte {
	h := sha256.New()
	h.Write(stage.Hash[:])
	var buf [4]byte
	putFloat := func(f float32) {
		binary.LittleEndian.PutUint32(buf[:], math.Float32bits(f))
		h.Write(buf[:])
	}
	if stage.Domain.Includes(dtypes.TimeVarying) {
		h.Write([]byte("time"))
		putFloat(in.Time)
	}
	if stage.Domain.Includes(dtypes.TransformDependent) {
		h.Write([]byte("transform"))
		for _, f := range in.Transform {
			putFloat(f)
		}
	}
	if stage.Domain.Includes(dtypes.ModelDependent) {
		h.Write([]byte("model"))
		h.Write(in.Model[:])
	}
	keys := maps.Keys(in.Arguments)
	slices.Sort(keys)
	for _, key := range keys {
		value := in.Arguments[key]
		binary.LittleEndian.PutUint32(buf[:], uint32(len(key)))
		h.Write(buf[:])
		h.Write([]byte(key))
		binary.LittleEndian.PutUint32(buf[:], uint32(len(value)))
		h.Write(buf[:])
		h.Write([]byte(value))
	}
	var sum [32]byte
	h.Sum(sum[:0])
	return sum
}
