// Copyright ©2017 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package krylov

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Settings holds various settings for
// solving a linear system.
type Settings struct {
	// X0 is an initial guess.
	// If it is nil, the zero vector will
	// be used.
	// If it is not nil, the length of X0
	// must be equal to the dimension of
	// the system.
	X0 []float64

	// Tolerance and MaxIterations
	// configure the default Iterator
	// when Iterator is nil. See Options.
	Tolerance     float64
	MaxIterations int

	// Iterator decides when the solve
	// stops. If it is nil, an Iterator
	// with the default stop criteria
	// will be used.
	Iterator *Iterator

	// Preconditioner is initialized
	// with the matrix at the start of
	// the solve and used for the PSolve
	// and PSolveTrans operations.
	// If it is nil, no preconditioning
	// will be used (M is the
	// identity).
	Preconditioner Preconditioner
}

func defaultSettings(s *Settings) {
	if s.Iterator == nil {
		s.Iterator = NewIterator(Options{
			Tolerance:     s.Tolerance,
			MaxIterations: s.MaxIterations,
		})
	}
	if s.Preconditioner == nil {
		s.Preconditioner = &Identity{}
	}
}

// Result holds the result of an iterative solve.
type Result struct {
	// X is the approximate solution.
	X []float64
	// Status is the final status of the
	// solve. It is Failed if the solve
	// ended with an error.
	Status Status
	// Stats holds the statistics of the
	// solve.
	Stats Stats
}

// Stats holds statistics about an iterative solve.
type Stats struct {
	// Iterations is the number of
	// iteration done by Method.
	Iterations int
	// MatVec is the number of MatVec,
	// MatTransVec and ComputeResidual
	// operations.
	MatVec int
	// PSolve is the number of PSolve and
	// PSolveTrans operations commanded
	// by a Method.
	PSolve int
	// ResidualNorm is the final norm of
	// the residual.
	ResidualNorm float64
	// StartTime is an approximate time
	// when the solve was started.
	StartTime time.Time
	// Runtime is an approximate duration
	// of the solve.
	Runtime time.Duration
}

// LinearSolve solves the system of n linear equations
//  A*x = b,
// where A is a square n×n matrix. The dimension of the problem n is
// determined by the length of b.
//
// method is an iterative method used for finding an approximate solution of the
// linear system. It must not be nil.
//
// settings provide means for adjusting the iterative process. Zero values of
// the fields mean default values.
//
// Reaching the iteration limit, divergence, failure and cancellation are not
// errors; they are reported by Result.Status. An error is returned when the
// preconditioner cannot be initialized or applied and when the method breaks
// down (see ErrBreakdown). The partial result is returned together with the
// error.
//
// LinearSolve panics if A is not square or the lengths of b and
// settings.X0 do not match its dimension.
func LinearSolve(a mat.Matrix, b []float64, method Method, settings Settings) (Result, error) {
	stats := Stats{StartTime: time.Now()}

	if a == nil {
		panic("krylov: nil matrix")
	}
	if method == nil {
		panic("krylov: nil method")
	}
	dim := len(b)
	r, c := a.Dims()
	switch {
	case r != c:
		panic("krylov: matrix not square")
	case r != dim:
		panic("krylov: mismatched length of right-hand side")
	case settings.X0 != nil && len(settings.X0) != dim:
		panic("krylov: mismatched length of initial guess")
	}

	if dim == 0 {
		return Result{Status: Converged, Stats: stats}, nil
	}

	defaultSettings(&settings)
	it := settings.Iterator
	it.Reset()

	ctx := &Context{
		X:        make([]float64, dim),
		Residual: make([]float64, dim),
	}
	if settings.X0 != nil {
		copy(ctx.X, settings.X0)
	}

	if err := settings.Preconditioner.Initialize(a); err != nil {
		stats.Runtime = time.Since(stats.StartTime)
		return Result{X: ctx.X, Status: Failed, Stats: stats}, fmt.Errorf("krylov: preconditioner: %w", err)
	}

	op := newOperator(a)
	if settings.X0 != nil {
		op.mulVec(ctx.Residual, ctx.X, false)
		stats.MatVec++
		floats.AddScaledTo(ctx.Residual, b, -1, ctx.Residual) // r = b - Ax
	} else {
		copy(ctx.Residual, b) // r = b
	}

	bnorm := floats.Norm(b, 2)
	ctx.ResidualNorm = floats.Norm(ctx.Residual, 2)
	ctx.Status = it.determine(0, ctx.X, ctx.ResidualNorm, bnorm)
	var err error
	if !ctx.Status.Terminal() {
		err = iterate(op, b, bnorm, ctx, settings, method, &stats)
	}

	status := ctx.Status
	if err != nil {
		status = Failed
	}
	stats.ResidualNorm = ctx.ResidualNorm
	stats.Runtime = time.Since(stats.StartTime)
	return Result{
		X:      ctx.X,
		Status: status,
		Stats:  stats,
	}, err
}

func iterate(a *operator, b []float64, bnorm float64, ctx *Context, settings Settings, method Method, stats *Stats) error {
	dim := len(ctx.X)
	it := settings.Iterator
	pc := settings.Preconditioner

	method.Init(dim)

	for {
		op, err := method.Iterate(ctx)
		if err != nil {
			return err
		}

		switch op {
		case NoOperation:

		case ComputeResidual:
			a.mulVec(ctx.Residual, ctx.X, false)
			stats.MatVec++
			floats.AddScaledTo(ctx.Residual, b, -1, ctx.Residual)

		case MatVec, MatTransVec:
			a.mulVec(ctx.Dst, ctx.Src, op == MatTransVec)
			stats.MatVec++

		case PSolve, PSolveTrans:
			if op == PSolve {
				err = pc.Approximate(ctx.Dst, ctx.Src)
			} else {
				tpc, ok := pc.(TransposeApproximator)
				if !ok {
					return ErrNoTranspose
				}
				err = tpc.ApproximateTrans(ctx.Dst, ctx.Src)
			}
			if err != nil {
				return fmt.Errorf("krylov: preconditioner: %w", err)
			}
			stats.PSolve++

		case CheckStatus:
			ctx.Status = it.determine(stats.Iterations, ctx.X, ctx.ResidualNorm, bnorm)

		case EndIteration:
			stats.Iterations++
			ctx.ResidualNorm = floats.Norm(ctx.Residual, 2)
			ctx.Status = it.determine(stats.Iterations, ctx.X, ctx.ResidualNorm, bnorm)
			if ctx.Status.Terminal() {
				return nil
			}

		default:
			panic("krylov: invalid operation")
		}
	}
}

// mulVecToer is implemented by matrices with their own matrix-vector
// product, like sparse.CSR.
type mulVecToer interface {
	MulVecTo(dst []float64, trans bool, x []float64)
}

// operator computes matrix-vector products with A without allocating.
type operator struct {
	a, at  mat.Matrix
	fast   mulVecToer
	xv, dv mat.VecDense
}

func newOperator(a mat.Matrix) *operator {
	op := &operator{a: a, at: a.T()}
	op.fast, _ = a.(mulVecToer)
	return op
}

func (op *operator) mulVec(dst, x []float64, trans bool) {
	if op.fast != nil {
		op.fast.MulVecTo(dst, trans, x)
		return
	}
	op.xv.SetRawVector(blas64.Vector{N: len(x), Inc: 1, Data: x})
	op.dv.SetRawVector(blas64.Vector{N: len(dst), Inc: 1, Data: dst})
	if trans {
		op.dv.MulVec(op.at, &op.xv)
	} else {
		op.dv.MulVec(op.a, &op.xv)
	}
}

func reuse(v []float64, n int) []float64 {
	if cap(v) < n {
		return make([]float64, n)
	}
	return v[:n]
}

const dlamchE = 1.0 / (1 << 53)
