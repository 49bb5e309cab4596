// Copyright ©2017 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package krylov

import "math"

// Check holds the data available to a stop criterion at a status check.
type Check struct {
	// Iteration is the number of completed iterations.
	Iteration int
	// X is the current approximate solution.
	X []float64
	// ResidualNorm is the 2-norm of the current residual or, for some
	// methods, an estimate of it.
	ResidualNorm float64
	// RHSNorm is the 2-norm of the right-hand side.
	RHSNorm float64
}

// StopCriterion is an independent test that decides whether an iterative
// solve should stop.
type StopCriterion interface {
	// Status returns Continue or a terminal status.
	Status(Check) Status
	// Reset clears any history kept by the criterion.
	Reset()
}

// FailureCriterion stops the solve with Failed when the residual norm is not
// finite or the solution contains NaN.
type FailureCriterion struct{}

// Status implements the StopCriterion interface.
func (FailureCriterion) Status(c Check) Status {
	if math.IsNaN(c.ResidualNorm) || math.IsInf(c.ResidualNorm, 0) {
		return Failed
	}
	for _, v := range c.X {
		if math.IsNaN(v) {
			return Failed
		}
	}
	return Continue
}

// Reset implements the StopCriterion interface.
func (FailureCriterion) Reset() {}

// DivergenceCriterion stops the solve with Diverged when the residual norm
// grew by more than Increase (relative) in each of the last Window
// iterations. A zero Window disables the criterion except for a NaN residual
// norm.
//
// The criterion records at most one residual norm per iteration number.
type DivergenceCriterion struct {
	Increase float64
	Window   int

	history []float64
	count   int
	last    int
	status  Status
	valid   bool
}

// Status implements the StopCriterion interface.
func (d *DivergenceCriterion) Status(c Check) Status {
	if d.valid && c.Iteration <= d.last {
		return d.status
	}
	if math.IsNaN(c.ResidualNorm) {
		d.status = Diverged
		return d.status
	}
	n := d.Window + 1
	if len(d.history) != n {
		d.history = make([]float64, n)
	}
	copy(d.history, d.history[1:])
	d.history[n-1] = c.ResidualNorm
	d.count++
	d.last = c.Iteration
	d.valid = true

	d.status = Continue
	if d.diverging() {
		d.status = Diverged
	}
	return d.status
}

func (d *DivergenceCriterion) diverging() bool {
	if d.Window == 0 || d.count < len(d.history) {
		return false
	}
	for i := 1; i < len(d.history); i++ {
		prev, cur := d.history[i-1], d.history[i]
		if cur <= prev*(1+d.Increase) {
			return false
		}
	}
	return true
}

// Reset implements the StopCriterion interface.
func (d *DivergenceCriterion) Reset() {
	for i := range d.history {
		d.history[i] = 0
	}
	d.count = 0
	d.last = 0
	d.status = Indeterminate
	d.valid = false
}

// ResidualCriterion stops the solve with Converged when
//  |r| <= Tolerance * |b|.
// If |b| is zero, the absolute residual norm is compared with Tolerance.
type ResidualCriterion struct {
	Tolerance float64
}

// Status implements the StopCriterion interface.
func (r *ResidualCriterion) Status(c Check) Status {
	bnorm := c.RHSNorm
	if bnorm == 0 {
		bnorm = 1
	}
	if c.ResidualNorm <= r.Tolerance*bnorm {
		return Converged
	}
	return Continue
}

// Reset implements the StopCriterion interface.
func (r *ResidualCriterion) Reset() {}

// IterationLimit stops the solve with StoppedWithoutConvergence after Max
// iterations.
type IterationLimit struct {
	Max int
}

// Status implements the StopCriterion interface.
func (l *IterationLimit) Status(c Check) Status {
	if c.Iteration >= l.Max {
		return StoppedWithoutConvergence
	}
	return Continue
}

// Reset implements the StopCriterion interface.
func (l *IterationLimit) Reset() {}

// History records the residual norm of every iteration. It never stops a
// solve and should be placed first so that it sees every check.
//
// The first check with a given iteration number is the one at the end of
// that iteration (or the initial check for iteration 0); the checks made
// inside the following iteration carry the same number and are ignored.
type History struct {
	// Norms holds the residual norm at the end of each iteration,
	// starting with the initial residual. Iterations without a check
	// are NaN.
	Norms []float64
}

// Status implements the StopCriterion interface.
func (h *History) Status(c Check) Status {
	if c.Iteration < len(h.Norms) {
		return Continue
	}
	for len(h.Norms) < c.Iteration {
		h.Norms = append(h.Norms, math.NaN())
	}
	h.Norms = append(h.Norms, c.ResidualNorm)
	return Continue
}

// Reset implements the StopCriterion interface.
func (h *History) Reset() {
	h.Norms = h.Norms[:0]
}
