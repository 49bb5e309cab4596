// Copyright ©2017 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package krylov

import (
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"gonum.org/v1/gonum/mat"
)

// Step is a pair of an iterative method and a preconditioner used by
// Composite. A nil Preconditioner means Identity.
type Step struct {
	Method         Method
	Preconditioner Preconditioner
}

// Composite solves a linear system by trying a sequence of steps. When the
// method or the preconditioner of a step breaks down, or when the step
// diverges or fails, the next step is tried from the initial guess. When a
// step stops without convergence, the next step continues from its
// approximate solution.
//
// Cancel may be called concurrently with Solve.
type Composite struct {
	Steps []Step

	// Logger, if not nil, receives a line for every
	// step that is skipped.
	Logger *log.Logger

	active    atomic.Pointer[Iterator]
	cancelled atomic.Bool
}

// Solve solves the linear system
//  A*x = b
// with the steps of c in order. settings.Iterator, or the default Iterator
// configured by settings, is shared by all steps. settings.Preconditioner is
// ignored.
//
// Solve returns as soon as a step converges or is cancelled. A step that
// diverged or failed is followed by the next step from the initial guess.
// If no step converged, the result of the last step that did not break down
// is returned. If every step broke down, the returned error wraps
// ErrAllStepsFailed and the last breakdown. Errors that are not breakdowns
// are returned immediately. Result.Stats accumulates the work of all steps.
func (c *Composite) Solve(a mat.Matrix, b []float64, settings Settings) (Result, error) {
	if len(c.Steps) == 0 {
		panic("krylov: composite solver without steps")
	}
	if settings.X0 != nil && len(settings.X0) != len(b) {
		panic("krylov: mismatched length of initial guess")
	}
	start := time.Now()

	x0 := make([]float64, len(b))
	if settings.X0 != nil {
		copy(x0, settings.X0)
	}
	if settings.Iterator == nil {
		settings.Iterator = NewIterator(Options{
			Tolerance:     settings.Tolerance,
			MaxIterations: settings.MaxIterations,
		})
	}
	it := settings.Iterator
	c.active.Store(it)
	defer c.active.Store(nil)
	if c.cancelled.Swap(false) {
		it.Cancel()
	}

	var (
		res     Result
		stats   Stats
		solved  bool // Some step ended without an error.
		lastErr error
	)
	x := x0
	for i, step := range c.Steps {
		if step.Method == nil {
			panic("krylov: nil method in composite step")
		}
		s := settings
		s.X0 = x
		s.Preconditioner = step.Preconditioner

		r, err := LinearSolve(a, b, step.Method, s)
		stats.Iterations += r.Stats.Iterations
		stats.MatVec += r.Stats.MatVec
		stats.PSolve += r.Stats.PSolve
		if err != nil {
			if !errors.Is(err, ErrBreakdown) {
				r.Stats = c.finish(stats, r.Stats.ResidualNorm, start)
				return r, err
			}
			c.logf("krylov: composite step %d (%T) broke down: %v", i, step.Method, err)
			lastErr = err
			x = x0
			continue
		}
		res = r
		solved = true

		switch res.Status {
		case Converged:
			res.Stats = c.finish(stats, res.Stats.ResidualNorm, start)
			return res, nil
		case Cancelled:
			c.cancelled.Store(false)
			res.Stats = c.finish(stats, res.Stats.ResidualNorm, start)
			return res, nil
		case StoppedWithoutConvergence:
			c.logf("krylov: composite step %d (%T) stopped without convergence", i, step.Method)
			x = res.X
		default:
			c.logf("krylov: composite step %d (%T) ended with status %v", i, step.Method, res.Status)
			x = x0
		}
		if c.cancelled.Swap(false) {
			res.Status = Cancelled
			res.Stats = c.finish(stats, res.Stats.ResidualNorm, start)
			return res, nil
		}
	}

	if !solved {
		res = Result{X: x0, Status: Failed}
		res.Stats = c.finish(stats, 0, start)
		return res, fmt.Errorf("%w: %w", ErrAllStepsFailed, lastErr)
	}
	res.Stats = c.finish(stats, res.Stats.ResidualNorm, start)
	return res, nil
}

// Cancel requests that the running or the next solve stops. It is safe to call
// from another goroutine.
func (c *Composite) Cancel() {
	c.cancelled.Store(true)
	if it := c.active.Load(); it != nil {
		it.Cancel()
	}
}

func (c *Composite) finish(stats Stats, rnorm float64, start time.Time) Stats {
	stats.ResidualNorm = rnorm
	stats.StartTime = start
	stats.Runtime = time.Since(start)
	return stats
}

func (c *Composite) logf(format string, args ...any) {
	if c.Logger != nil {
		c.Logger.Printf(format, args...)
	}
}
