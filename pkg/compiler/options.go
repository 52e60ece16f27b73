// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package compiler

import (
	"os"
	"strconv"
	"strings"

	"github.com/gomlx/shadergraph/pkg/compiler/typeresolve"
	"github.com/pkg/errors"
)

// OptionsEnv is the environment variable with default compiler options, in the format accepted
// by Options.Parse, e.g. "fold_constants=true,max_search_nodes=50000".
const OptionsEnv = "SHADERGRAPH_OPTIONS"

// Options of the compiler. Create them with DefaultOptions and configure with the With* methods.
type Options struct {
	// FoldConstants evaluates arithmetic over constant operands at compile time.
	FoldConstants bool

	// MaxSearchNodes is the budget of the type resolution search.
	MaxSearchNodes int

	// Metrics, if not nil, records the compilations.
	Metrics *Metrics
}

// DefaultOptions returns the default options: no constant folding beyond dead branch
// elimination, and the default type resolution budget.
func DefaultOptions() *Options {
	return &Options{MaxSearchNodes: typeresolve.DefaultMaxSearchNodes}
}

// WithFoldConstants enables or disables constant folding.
func (o *Options) WithFoldConstants(fold bool) *Options {
	o.FoldConstants = fold
	return o
}

// WithMaxSearchNodes sets the budget of the type resolution search.
func (o *Options) WithMaxSearchNodes(n int) *Options {
	o.MaxSearchNodes = n
	return o
}

// WithMetrics sets the metrics recorder.
func (o *Options) WithMetrics(m *Metrics) *Options {
	o.Metrics = m
	return o
}

// Parse applies a comma-separated list of "key=value" options. Keys are "fold_constants" and
// "max_search_nodes".
func (o *Options) Parse(config string) error {
	for _, part := range strings.Split(config, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, found := strings.Cut(part, "=")
		if !found {
			return errors.Errorf("compiler option %q is not in the form key=value", part)
		}
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		switch key {
		case "fold_constants":
			fold, err := strconv.ParseBool(value)
			if err != nil {
				return errors.Wrapf(err, "compiler option %q", key)
			}
			o.FoldConstants = fold
		case "max_search_nodes":
			n, err := strconv.Atoi(value)
			if err != nil {
				return errors.Wrapf(err, "compiler option %q", key)
			}
			o.MaxSearchNodes = n
		default:
			return errors.Errorf("unknown compiler option %q", key)
		}
	}
	return nil
}

// FromEnv applies the options in the environment variable OptionsEnv, if set.
func (o *Options) FromEnv() error {
	config, found := os.LookupEnv(OptionsEnv)
	if !found {
		return nil
	}
	return errors.WithMessagef(o.Parse(config), "parsing $%s", OptionsEnv)
}
