// Copyright ©2017 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package krylov

import (
	"sync/atomic"

	"gonum.org/v1/gonum/floats"
)

// Status is the state of an iterative solve as determined by an Iterator.
type Status int

const (
	// Indeterminate means that no status check has been done yet.
	Indeterminate Status = iota
	// Continue means that the solve should continue.
	Continue
	// Converged means that the residual satisfies the tolerance.
	Converged
	// Diverged means that the residual grows or became NaN.
	Diverged
	// StoppedWithoutConvergence means that the iteration limit was
	// reached before convergence.
	StoppedWithoutConvergence
	// Cancelled means that the solve was cancelled by Iterator.Cancel.
	Cancelled
	// Failed means that the solution or the residual contains invalid
	// values.
	Failed
)

// Terminal reports whether the solve must stop.
func (s Status) Terminal() bool {
	return s >= Converged
}

func (s Status) String() string {
	switch s {
	case Indeterminate:
		return "Indeterminate"
	case Continue:
		return "Continue"
	case Converged:
		return "Converged"
	case Diverged:
		return "Diverged"
	case StoppedWithoutConvergence:
		return "StoppedWithoutConvergence"
	case Cancelled:
		return "Cancelled"
	case Failed:
		return "Failed"
	}
	return "Status(?)"
}

// Default values used by NewIterator for zero fields of Options.
const (
	DefaultMaxIterations      = 1000
	DefaultTolerance          = 1e-8
	DefaultDivergenceIncrease = 0.08
	DefaultDivergenceWindow   = 10
)

// Options holds the recognized iteration control options. Zero values mean
// default values.
type Options struct {
	// MaxIterations is the limit on the number of iterations.
	MaxIterations int

	// Tolerance is the relative residual tolerance. The solve has
	// converged when
	//  |r| <= Tolerance * |b|
	// in the 2-norm. Tolerance must be smaller than one and greater than
	// the machine epsilon.
	Tolerance float64

	// DivergenceIncrease is the relative increase of the residual norm
	// per iteration above which an iteration counts as diverging.
	DivergenceIncrease float64

	// DivergenceWindow is the number of consecutive diverging iterations
	// after which the solve is declared diverged. A negative value
	// disables the divergence test.
	DivergenceWindow int
}

func (o *Options) setDefaults() {
	if o.MaxIterations == 0 {
		o.MaxIterations = DefaultMaxIterations
	}
	if o.Tolerance == 0 {
		o.Tolerance = DefaultTolerance
	}
	if o.DivergenceIncrease == 0 {
		o.DivergenceIncrease = DefaultDivergenceIncrease
	}
	if o.DivergenceWindow == 0 {
		o.DivergenceWindow = DefaultDivergenceWindow
	}
	switch {
	case o.MaxIterations < 0:
		panic("krylov: negative iteration limit")
	case o.Tolerance < dlamchE || 1 <= o.Tolerance:
		panic("krylov: invalid tolerance")
	case o.DivergenceIncrease < 0:
		panic("krylov: negative divergence increase")
	}
}

// DefaultCriteria returns the default stop criteria configured by opts, in
// the order in which they are evaluated: failure, divergence, convergence and
// the iteration limit.
func DefaultCriteria(opts Options) []StopCriterion {
	opts.setDefaults()
	if opts.DivergenceWindow < 0 {
		opts.DivergenceWindow = 0
	}
	return []StopCriterion{
		&FailureCriterion{},
		&DivergenceCriterion{Increase: opts.DivergenceIncrease, Window: opts.DivergenceWindow},
		&ResidualCriterion{Tolerance: opts.Tolerance},
		&IterationLimit{Max: opts.MaxIterations},
	}
}

// Iterator decides at each status check whether an iterative solve should
// continue. It evaluates an ordered set of stop criteria; the first criterion
// that reports a terminal status decides the outcome.
//
// An Iterator must not be used by concurrent solves. Cancel is the only
// method that may be called concurrently with a solve.
type Iterator struct {
	criteria []StopCriterion
	status   Status
	cancel   atomic.Bool
}

// NewIterator returns an Iterator with the default stop criteria configured
// by opts.
func NewIterator(opts Options) *Iterator {
	return NewIteratorWith(DefaultCriteria(opts)...)
}

// NewIteratorWith returns an Iterator that evaluates the given criteria in
// order. At least one criterion is required.
func NewIteratorWith(criteria ...StopCriterion) *Iterator {
	if len(criteria) == 0 {
		panic("krylov: no stop criteria")
	}
	return &Iterator{criteria: criteria}
}

// Status returns the status determined by the last status check.
func (it *Iterator) Status() Status {
	return it.status
}

// Reset clears the status and the history of all criteria. A pending
// cancellation request is kept.
func (it *Iterator) Reset() {
	it.status = Indeterminate
	for _, c := range it.criteria {
		c.Reset()
	}
}

// Cancel requests that the solve using it stops. The next status check
// returns Cancelled, also when Cancel is called before the solve starts.
// Cancel is safe to call from another goroutine.
func (it *Iterator) Cancel() {
	it.cancel.Store(true)
}

// DetermineStatus evaluates the stop criteria for the current approximate
// solution x of the system with right-hand side b and residual r, after iter
// completed iterations.
func (it *Iterator) DetermineStatus(iter int, x, b, r []float64) Status {
	if len(b) != len(x) || len(r) != len(x) {
		panic("krylov: mismatched vector lengths")
	}
	return it.determine(iter, x, floats.Norm(r, 2), floats.Norm(b, 2))
}

func (it *Iterator) determine(iter int, x []float64, rnorm, bnorm float64) Status {
	if iter < 0 {
		panic("krylov: negative iteration number")
	}
	if it.status == Cancelled {
		return it.status
	}
	if it.cancel.Swap(false) {
		it.status = Cancelled
		return it.status
	}
	check := Check{
		Iteration:    iter,
		X:            x,
		ResidualNorm: rnorm,
		RHSNorm:      bnorm,
	}
	for _, c := range it.criteria {
		s := c.Status(check)
		if s.Terminal() {
			it.status = s
			return s
		}
	}
	it.status = Continue
	return it.status
}
