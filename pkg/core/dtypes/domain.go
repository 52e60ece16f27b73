// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package dtypes

import "strings"

// Domain classifies how often a computed value may change. It is used by the caller's
// caching layer to decide when a stage's previously computed output must be invalidated.
//
// It is a set of flags: a value that depends on time and on the model transform is both
// TimeVarying and TransformDependent. The zero value is Constant.
type Domain uint8

const (
	// Constant values never change once computed.
	Constant Domain = 0

	// TimeVarying values change with the animation time.
	TimeVarying Domain = 1 << (iota - 1)

	// TransformDependent values change when the model/view transforms change.
	TransformDependent

	// ModelDependent values change when the rendered geometry changes.
	ModelDependent
)

// Union returns the smallest domain that includes both d and d2.
func (d Domain) Union(d2 Domain) Domain { return d | d2 }

// Includes returns whether every flag in d2 is also in d.
func (d Domain) Includes(d2 Domain) bool { return d&d2 == d2 }

// String implements fmt.Stringer.
func (d Domain) String() string {
	if d == Constant {
		return "constant"
	}
	var parts []string
	if d.Includes(TimeVarying) {
		parts = append(parts, "time-varying")
	}
	if d.Includes(TransformDependent) {
		parts = append(parts, "transform-dependent")
	}
	if d.Includes(ModelDependent) {
		parts = append(parts, "model-dependent")
	}
	return strings.Join(parts, "+")
}
