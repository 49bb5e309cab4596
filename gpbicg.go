// Copyright ©2017 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package krylov

import "gonum.org/v1/gonum/floats"

// Default step counts of GPBiCG.
const (
	DefaultBiCGStabSteps = 1
	DefaultGPBiCGSteps   = 4
)

// GPBiCG implements the Generalized Product type Bi-Conjugate Gradient method
// with right preconditioning for solving the system of linear equations
//  Ax = b,
// where A is a non-symmetric matrix.
//
// GPBiCG alternates BiCGStab-type steps, whose stabilizing polynomial has
// degree one, with GPBiCG-type steps that use a two-term stabilizing
// polynomial. It keeps the solution in the form
//  x = x0 + M^{-1} y
// and updates y.
//
// GPBiCG needs MatVec and PSolve matrix operations.
//
// Reference:
//  Zhang, S.-L. (1997). GPBi-CG: Generalized product-type methods based on
//  Bi-CG for solving nonsymmetric linear systems. SIAM Journal on Scientific
//  Computing, 18(2), 537-551.
type GPBiCG struct {
	// BiCGStabSteps and GPBiCGSteps are the
	// lengths of the runs of BiCGStab-type
	// and GPBiCG-type steps. They must not
	// be negative. If both are zero,
	// DefaultBiCGStabSteps and
	// DefaultGPBiCGSteps are used.
	BiCGStabSteps int
	GPBiCGSteps   int

	nb, ng int
	first  bool
	resume int
	k      int

	alpha, beta float64

	rdash []float64
	t, t0 []float64
	w     []float64
	c     []float64
	p     []float64
	s     []float64
	u     []float64
	y     []float64
	z     []float64
	xtemp []float64
	x0    []float64
	temp  []float64
}

// Init implements the Method interface.
func (g *GPBiCG) Init(dim int) {
	if dim <= 0 {
		panic("krylov: dimension not positive")
	}
	if g.BiCGStabSteps < 0 || g.GPBiCGSteps < 0 {
		panic("krylov: negative GPBiCG step count")
	}
	g.nb, g.ng = g.BiCGStabSteps, g.GPBiCGSteps
	if g.nb == 0 && g.ng == 0 {
		g.nb, g.ng = DefaultBiCGStabSteps, DefaultGPBiCGSteps
	}

	g.rdash = reuse(g.rdash, dim)
	g.t = reuse(g.t, dim)
	g.t0 = reuse(g.t0, dim)
	g.w = reuse(g.w, dim)
	g.c = reuse(g.c, dim)
	g.p = reuse(g.p, dim)
	g.s = reuse(g.s, dim)
	g.u = reuse(g.u, dim)
	g.y = reuse(g.y, dim)
	g.z = reuse(g.z, dim)
	g.xtemp = reuse(g.xtemp, dim)
	g.x0 = reuse(g.x0, dim)
	g.temp = reuse(g.temp, dim)

	g.k = 0
	g.first = true
	g.resume = 1
}

// bicgstabStep reports whether the current iteration is a BiCGStab-type step.
func (g *GPBiCG) bicgstabStep() bool {
	if g.nb == 0 && g.k == 0 {
		return true
	}
	return g.k%(g.nb+g.ng) < g.nb
}

func (g *GPBiCG) breakdown(quantity string) (Operation, error) {
	g.resume = 0
	return NoOperation, &BreakdownError{Method: "GPBiCG", Quantity: quantity}
}

// Iterate implements the Method interface.
func (g *GPBiCG) Iterate(ctx *Context) (Operation, error) {
	r := ctx.Residual
	switch g.resume {
	case 1:
		if g.first {
			copy(g.rdash, r)
			copy(g.x0, ctx.X)
			zero(g.t)
			zero(g.w)
			zero(g.u)
			zero(g.z)
			zero(g.p)
			zero(g.xtemp)
			g.beta = 0
		}
		// p_k = r_k + β_{k-1} (p_{k-1} - u_{k-1})
		floats.Sub(g.p, g.u)
		floats.Scale(g.beta, g.p)
		floats.Add(g.p, r)
		ctx.Src = g.p
		ctx.Dst = g.temp
		g.resume = 2
		return PSolve, nil
	case 2:
		ctx.Src = g.temp
		ctx.Dst = g.s
		g.resume = 3
		return MatVec, nil
		// s_k = A M^{-1} p_k
	case 3:
		rs := floats.Dot(g.rdash, g.s)
		if almostZero(rs) {
			return g.breakdown("alpha")
		}
		g.alpha = floats.Dot(g.rdash, r) / rs

		// y_k = t_{k-1} - r_k - α_k w_{k-1} + α_k s_k
		copy(g.y, g.t)
		floats.Sub(g.y, r)
		floats.AddScaled(g.y, -g.alpha, g.w)
		floats.AddScaled(g.y, g.alpha, g.s)

		// t_k = r_k - α_k s_k
		copy(g.t0, g.t)
		floats.AddScaledTo(g.t, r, -g.alpha, g.s)

		ctx.Src = g.t
		ctx.Dst = g.temp
		g.resume = 4
		return PSolve, nil
	case 4:
		ctx.Src = g.temp
		ctx.Dst = g.c
		g.resume = 5
		return MatVec, nil
		// c_k = A M^{-1} t_k
	case 5:
		cdot := floats.Dot(g.c, g.c)
		if almostZero(cdot) {
			cdot = 1
		}
		ctdot := floats.Dot(g.c, g.t)

		var sigma, eta float64
		if g.bicgstabStep() {
			sigma = ctdot / cdot
		} else {
			ydot := floats.Dot(g.y, g.y)
			if almostZero(ydot) {
				ydot = 1
			}
			ytdot := floats.Dot(g.y, g.t)
			cydot := floats.Dot(g.c, g.y)
			denom := cdot*ydot - cydot*cydot
			if almostZero(denom) {
				// c and y are parallel, use the one-term polynomial.
				sigma = ctdot / cdot
			} else {
				sigma = (ydot*ctdot - ytdot*cydot) / denom
				eta = (cdot*ytdot - cydot*ctdot) / denom
			}
		}

		// u_k = σ_k s_k + η_k (t_{k-1} - r_k + β_{k-1} u_{k-1})
		floats.Scale(g.beta, g.u)
		floats.Add(g.u, g.t0)
		floats.Sub(g.u, r)
		floats.Scale(eta, g.u)
		floats.AddScaled(g.u, sigma, g.s)

		// z_k = σ_k r_k + η_k z_{k-1} - α_k u_k
		floats.Scale(eta, g.z)
		floats.AddScaled(g.z, sigma, r)
		floats.AddScaled(g.z, -g.alpha, g.u)

		// y_{k+1} = y_k + α_k p_k + z_k
		floats.AddScaled(g.xtemp, g.alpha, g.p)
		floats.Add(g.xtemp, g.z)

		// r_{k+1} = t_k - η_k y_k - σ_k c_k
		copy(g.t0, r)
		copy(r, g.t)
		floats.AddScaled(r, -eta, g.y)
		floats.AddScaled(r, -sigma, g.c)

		// β_k = α_k / σ_k (r~ · r_{k+1}) / (r~ · r_k)
		if almostZero(sigma) {
			g.beta = 0
		} else {
			rho := floats.Dot(g.rdash, g.t0)
			if almostZero(rho) {
				return g.breakdown("rho")
			}
			g.beta = g.alpha / sigma * floats.Dot(g.rdash, r) / rho
		}

		// w_k = c_k + β_k s_k
		floats.AddScaledTo(g.w, g.c, g.beta, g.s)

		ctx.Src = g.xtemp
		ctx.Dst = g.temp
		g.resume = 6
		return PSolve, nil
	case 6:
		// x = x_0 + M^{-1} y
		floats.AddTo(ctx.X, g.x0, g.temp)
		ctx.Src = nil
		ctx.Dst = nil
		ctx.ResidualNorm = floats.Norm(r, 2)
		g.resume = 7
		return CheckStatus, nil
	case 7:
		g.k++
		if ctx.Status.Terminal() {
			g.resume = 8
			return ComputeResidual, nil
		}
		g.first = false
		g.resume = 1
		return EndIteration, nil
	case 8:
		g.first = true
		g.resume = 1
		return EndIteration, nil

	default:
		panic("krylov: GPBiCG.Init not called")
	}
}

func zero(v []float64) {
	for i := range v {
		v[i] = 0
	}
}
