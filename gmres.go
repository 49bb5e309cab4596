// Copyright ©2017 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package krylov

import (
	"math"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/floats"
)

// DefaultGMRESRestart is the restart parameter used by GMRES when
// GMRES.Restart is zero and the dimension is larger.
const DefaultGMRESRestart = 30

// GMRES implements the Generalized Minimum RESidual method with restarts and
// left preconditioning for solving the system of linear equations
//  Ax = b,
// where A is a non-symmetric matrix.
//
// One iteration of GMRES is one restart cycle. The residual norm used by the
// status checks inside a cycle is the estimate of the norm of the
// preconditioned residual; the true residual is computed at the end of every
// cycle.
//
// GMRES needs MatVec and PSolve matrix operations.
type GMRES struct {
	// Restart is the restart parameter.
	// It must be non-negative. If it is 0,
	// min(dim, DefaultGMRESRestart) will be
	// used. Values larger than dim are
	// reduced to dim.
	Restart int

	restart int
	resume  int
	i       int  // Counter for inner iterations.
	happy   bool // Krylov subspace is invariant.

	s  []float64
	w  []float64
	y  []float64
	av []float64

	v    []float64
	ldv  int
	h    []float64
	ldh  int
	givs []givens
}

type givens struct {
	c, s float64
}

// Init implements the Method interface.
func (g *GMRES) Init(dim int) {
	if dim <= 0 {
		panic("krylov: dimension not positive")
	}
	if g.Restart < 0 {
		panic("krylov: negative GMRES.Restart")
	}

	k := g.Restart
	if k == 0 {
		k = min(dim, DefaultGMRESRestart)
	}
	k = min(k, dim)
	g.restart = k

	g.s = reuse(g.s, k+1)
	g.w = reuse(g.w, dim)
	g.y = reuse(g.y, k)
	g.av = reuse(g.av, dim)

	g.ldv = dim
	g.v = reuse(g.v, g.ldv*(k+1))
	g.ldh = k + 1
	g.h = reuse(g.h, g.ldh*k)
	if cap(g.givs) < k {
		g.givs = make([]givens, k)
	} else {
		g.givs = g.givs[:k]
	}

	g.resume = 1
}

// Iterate implements the Method interface.
func (g *GMRES) Iterate(ctx *Context) (Operation, error) {
	n := len(ctx.X)
	ldv := g.ldv
	switch g.resume {
	case 1:
		// Construct the first column of V.
		ctx.Src = ctx.Residual
		ctx.Dst = g.v[:n]
		g.resume = 2
		return PSolve, nil
		// Solve M V[:,0] = r.
	case 2:
		// Normalize V[:,0].
		rnorm := floats.Norm(g.v[:n], 2)
		if rnorm == 0 {
			// Nothing to improve, let the caller check the true
			// residual.
			ctx.Src = nil
			ctx.Dst = nil
			g.resume = 7
			return ComputeResidual, nil
		}
		floats.Scale(1/rnorm, g.v[:n])
		// Initialize s to the elementary vector e_1 scaled by rnorm.
		for i := range g.s {
			g.s[i] = 0
		}
		g.s[0] = rnorm
		for i := range g.h {
			g.h[i] = 0
		}
		g.happy = false

		// for i := 0; i < restart; i++ {
		g.i = 0
		fallthrough
	case 3:
		i := g.i
		ctx.Src = g.v[i*ldv : i*ldv+n]
		ctx.Dst = g.av
		g.resume = 4
		// Compute A V[:,i].
		return MatVec, nil
	case 4:
		ctx.Src = g.av
		ctx.Dst = g.w
		g.resume = 5
		// Solve M w = A V[:,i].
		return PSolve, nil
	case 5:
		i := g.i
		ldh := g.ldh
		hi := g.h[i*ldh : i*ldh+i+2]

		// Construct i-th column of the upper Hessenberg matrix using
		// the modified Gram-Schmidt process on V and W so that it is
		// orthonormal to the previous i-1 columns.
		for k := 0; k <= i; k++ {
			vk := g.v[k*ldv : k*ldv+n]
			hki := floats.Dot(vk, g.w)
			hi[k] = hki
			floats.AddScaled(g.w, -hki, vk)
		}
		wnorm := floats.Norm(g.w, 2)
		hi[i+1] = wnorm // H[i+1,i] = |w|
		if wnorm == 0 {
			g.happy = true
		} else {
			vip1 := g.v[(i+1)*ldv : (i+1)*ldv+n]
			copy(vip1, g.w)
			floats.Scale(1/wnorm, vip1)
		}

		// Apply (i-1) Givens rotation matrices to the i-th
		// column of H.
		for j := 0; j < i; j++ {
			hi[j], hi[j+1] = rotvec(hi[j], hi[j+1], g.givs[j])
		}
		// Compute the (i+1)st Givens rotation that zeroes H[i+1,i].
		g.givs[i] = drotg(hi[i], hi[i+1])
		// Apply the (i+1)st Givens rotation.
		hi[i], hi[i+1] = rotvec(hi[i], hi[i+1], g.givs[i])

		// Apply the (i+1)st Givens rotation to (s[i], s[i+1]).
		g.s[i], g.s[i+1] = rotvec(g.s[i], g.s[i+1], g.givs[i])
		// Approximate the residual norm and check for convergence.
		ctx.ResidualNorm = math.Abs(g.s[i+1])
		ctx.Src = nil
		ctx.Dst = nil
		g.resume = 6
		return CheckStatus, nil
	case 6:
		if ctx.Status.Terminal() || g.happy || g.i+1 == g.restart {
			// Compute the approximate solution x and the true
			// residual.
			if almostZero(g.h[g.i*g.ldh+g.i]) {
				g.resume = 0
				return NoOperation, &BreakdownError{Method: "GMRES", Quantity: "Hessenberg diagonal"}
			}
			g.update(ctx.X, g.i+1)
			g.resume = 7
			return ComputeResidual, nil
		}
		g.i++
		g.resume = 3
		return NoOperation, nil
		// end for loop
	case 7:
		g.resume = 1
		return EndIteration, nil

	default:
		panic("krylov: GMRES.Init not called")
	}
}

// update adds to x the combination of the first k columns of V that minimizes
// the residual.
func (g *GMRES) update(x []float64, k int) {
	y := g.y[:k]
	copy(y, g.s[:k])
	// Solve H*y = s for upper triangular H.
	// H is upper triangular but stored in column-major order while Dtrsv
	// expects row-major.
	bi := blas64.Implementation()
	bi.Dtrsv(blas.Lower, blas.Trans, blas.NonUnit, k, g.h, g.ldh, y, 1)
	// Compute current solution vector x.
	n := len(x)
	ldv := g.ldv
	for j := 0; j < k; j++ {
		vj := g.v[j*ldv : j*ldv+n]
		floats.AddScaled(x, y[j], vj)
	}
}

func drotg(a, b float64) givens {
	if b == 0 {
		return givens{c: 1, s: 0}
	}
	if math.Abs(b) > math.Abs(a) {
		tmp := -a / b
		s := 1 / math.Sqrt(1+tmp*tmp)
		return givens{c: tmp * s, s: s}
	}
	tmp := -b / a
	c := 1 / math.Sqrt(1+tmp*tmp)
	return givens{c: c, s: tmp * c}
}

func rotvec(x, y float64, g givens) (rx, ry float64) {
	rx = g.c*x - g.s*y
	ry = g.s*x + g.c*y
	return
}
