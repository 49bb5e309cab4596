// Copyright ©2017 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package krylov

import (
	"gonum.org/v1/gonum/floats"
)

// BiCGStab implements the BiConjugate Gradient STABilized iterative method with
// preconditioning for solving the system of linear equations
//  Ax = b,
// where A is a non-symmetric matrix. For symmetric positive definite systems
// use CG.
//
// BiCGStab needs MatVec and PSolve matrix operations. It returns a
// *BreakdownError when rho, the alpha denominator or omega vanish.
type BiCGStab struct {
	first  bool
	resume int

	rho, rhoPrev float64
	alpha        float64
	omega        float64

	rt   []float64
	p    []float64
	v    []float64
	t    []float64
	phat []float64
	s    []float64
	shat []float64
}

// Init implements the Method interface.
func (b *BiCGStab) Init(dim int) {
	if dim <= 0 {
		panic("krylov: dimension not positive")
	}

	b.rt = reuse(b.rt, dim)
	b.p = reuse(b.p, dim)
	b.v = reuse(b.v, dim)
	b.t = reuse(b.t, dim)
	b.phat = reuse(b.phat, dim)
	b.s = reuse(b.s, dim)
	b.shat = reuse(b.shat, dim)
	b.first = true
	b.resume = 1
}

func (b *BiCGStab) breakdown(quantity string) (Operation, error) {
	b.resume = 0 // Calling Iterate again without Init will panic.
	return NoOperation, &BreakdownError{Method: "BiCGStab", Quantity: quantity}
}

// Iterate implements the Method interface.
func (b *BiCGStab) Iterate(ctx *Context) (Operation, error) {
	switch b.resume {
	case 1:
		if b.first {
			copy(b.rt, ctx.Residual)
		}
		b.rho = floats.Dot(b.rt, ctx.Residual)
		if almostZero(b.rho) {
			return b.breakdown("rho")
		}
		if b.first {
			copy(b.p, ctx.Residual)
		} else {
			beta := (b.rho / b.rhoPrev) * (b.alpha / b.omega)
			floats.AddScaled(b.p, -b.omega, b.v) // p_i -= ω * v_i
			floats.Scale(beta, b.p)              // p_i *= β
			floats.Add(b.p, ctx.Residual)        // p_i += r_i
		}
		ctx.Src = b.p
		ctx.Dst = b.phat
		b.resume = 2
		return PSolve, nil
		// Solve M p^_i = p_i.
	case 2:
		ctx.Src = b.phat
		ctx.Dst = b.v
		b.resume = 3
		return MatVec, nil
		// Compute Ap^_i -> v_i.
	case 3:
		d := floats.Dot(b.rt, b.v)
		if almostZero(d) {
			return b.breakdown("alpha")
		}
		b.alpha = b.rho / d
		// Early check for tolerance.
		floats.AddScaled(ctx.Residual, -b.alpha, b.v)
		copy(b.s, ctx.Residual)
		ctx.Src = nil
		ctx.Dst = nil
		ctx.ResidualNorm = floats.Norm(ctx.Residual, 2)
		b.resume = 4
		return CheckStatus, nil
	case 4:
		if ctx.Status.Terminal() {
			floats.AddScaled(ctx.X, b.alpha, b.phat)
			b.resume = 8
			return ComputeResidual, nil
		}
		ctx.Src = ctx.Residual
		ctx.Dst = b.shat
		b.resume = 5
		return PSolve, nil
		// Solve M s^_i = r_i.
	case 5:
		ctx.Src = b.shat
		ctx.Dst = b.t
		b.resume = 6
		return MatVec, nil
		// Compute As^_i -> t_i.
	case 6:
		tt := floats.Dot(b.t, b.t)
		if almostZero(tt) {
			return b.breakdown("omega")
		}
		b.omega = floats.Dot(b.t, b.s) / tt
		floats.AddScaled(ctx.X, b.alpha, b.phat)
		floats.AddScaled(ctx.X, b.omega, b.shat)
		floats.AddScaled(ctx.Residual, -b.omega, b.t)
		ctx.Src = nil
		ctx.Dst = nil
		ctx.ResidualNorm = floats.Norm(ctx.Residual, 2)
		b.resume = 7
		return CheckStatus, nil
	case 7:
		if ctx.Status.Terminal() {
			b.resume = 8
			return ComputeResidual, nil
		}
		if almostZero(b.omega) {
			return b.breakdown("omega")
		}
		b.rhoPrev = b.rho
		b.first = false
		b.resume = 1
		return EndIteration, nil
	case 8:
		// The residual is the true residual. If the iteration continues,
		// the recurrence restarts from it.
		b.first = true
		b.resume = 1
		return EndIteration, nil

	default:
		panic("krylov: BiCGStab.Init not called")
	}
}
