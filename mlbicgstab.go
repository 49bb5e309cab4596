// Copyright ©2017 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package krylov

import (
	"reflect"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
)

// DefaultNumStartingVectors is the number of starting vectors used by
// MLBiCGStab when MLBiCGStab.NumStartingVectors is zero.
const DefaultNumStartingVectors = 50

// MLBiCGStab implements the ML(k)-BiCGStab method with right preconditioning
// for solving the system of linear equations
//  Ax = b,
// where A is a non-symmetric matrix. ML(k)-BiCGStab is a BiCGStab variant
// based on a block Lanczos process with k left starting vectors. With k = 1
// it is equivalent to BiCGStab.
//
// The number of starting vectors is
//  k = max(1, min(NumStartingVectors, dim-1)).
//
// MLBiCGStab needs MatVec and PSolve matrix operations.
//
// Reference:
//  Yeung, M.-C., & Chan, T. F. (1999). ML(k)BiCGSTAB: A BiCGSTAB variant
//  based on multiple Lanczos starting vectors. SIAM Journal on Scientific
//  Computing, 21(4), 1263-1290.
type MLBiCGStab struct {
	// NumStartingVectors is the number of
	// starting vectors. It must not be
	// negative. If it is zero,
	// DefaultNumStartingVectors is used.
	NumStartingVectors int

	// StartingVectors, if not nil, are the
	// starting vectors. They are used if
	// their number is between 1 and k and
	// their length equals the dimension of
	// the system. Otherwise random
	// orthonormal vectors are generated.
	StartingVectors [][]float64

	// Source is the source of random
	// numbers for generating starting
	// vectors. If it is nil, a source
	// seeded with 1 is used. Generated
	// vectors are reused by later solves
	// until k, the dimension or Source
	// change.
	Source rand.Source

	q         [][]float64 // Starting vectors in use.
	cached    [][]float64 // Last generated starting vectors.
	cachedSrc rand.Source // Source of cached.

	first  bool
	resume int
	i, j   int

	alpha, rho float64

	c       []float64
	d, g, w [][]float64

	u, utemp   []float64
	gtemp      []float64
	temp       []float64
	zd, zg, zw []float64
}

// Init implements the Method interface.
func (m *MLBiCGStab) Init(dim int) {
	if dim <= 0 {
		panic("krylov: dimension not positive")
	}
	if m.NumStartingVectors < 0 {
		panic("krylov: negative number of starting vectors")
	}

	m.q = m.startingVectors(dim)
	k := len(m.q)

	m.c = reuse(m.c, k)
	m.d = reuseVecs(m.d, k, dim)
	m.g = reuseVecs(m.g, k, dim)
	m.w = reuseVecs(m.w, k, dim)

	m.u = reuse(m.u, dim)
	m.utemp = reuse(m.utemp, dim)
	m.gtemp = reuse(m.gtemp, dim)
	m.temp = reuse(m.temp, dim)
	m.zd = reuse(m.zd, dim)
	m.zg = reuse(m.zg, dim)
	m.zw = reuse(m.zw, dim)

	m.first = true
	m.resume = 1
}

// startingVectors returns the starting vectors for a system of dimension n.
func (m *MLBiCGStab) startingVectors(n int) [][]float64 {
	k := m.NumStartingVectors
	if k == 0 {
		k = DefaultNumStartingVectors
	}
	k = max(1, min(k, n-1))

	if sv := m.StartingVectors; 1 <= len(sv) && len(sv) <= k && len(sv[0]) == n {
		return sv
	}
	if len(m.cached) == k && len(m.cached[0]) == n && sameSource(m.cachedSrc, m.Source) {
		return m.cached
	}
	m.cached = StartingVectors(k, n, m.Source)
	m.cachedSrc = m.Source
	return m.cached
}

// sameSource reports whether a and b are the same source. Sources of a type
// that is not comparable are never the same.
func sameSource(a, b rand.Source) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta := reflect.TypeOf(a)
	return ta == reflect.TypeOf(b) && ta.Comparable() && a == b
}

func reuseVecs(v [][]float64, k, n int) [][]float64 {
	if cap(v) < k {
		v = make([][]float64, k)
	}
	v = v[:k]
	for i := range v {
		v[i] = reuse(v[i], n)
	}
	return v
}

func (m *MLBiCGStab) breakdown(quantity string) (Operation, error) {
	m.resume = 0
	return NoOperation, &BreakdownError{Method: "MLBiCGStab", Quantity: quantity}
}

// Iterate implements the Method interface.
func (m *MLBiCGStab) Iterate(ctx *Context) (Operation, error) {
	k := len(m.q)
	q0 := m.q[0]
	r := ctx.Residual
	for {
		switch m.resume {
		case 1:
			if m.first {
				// g_0 = r_0
				copy(m.g[k-1], r)
				m.j = 0
			}
			ctx.Src = m.g[k-1]
			ctx.Dst = m.gtemp
			m.resume = 2
			return PSolve, nil
		case 2:
			ctx.Src = m.gtemp
			ctx.Dst = m.w[k-1]
			m.resume = 3
			return MatVec, nil
			// w_{jk} = A M^{-1} g_{jk}
		case 3:
			// c_{jk} = q_1 · w_{jk}
			m.c[k-1] = floats.Dot(q0, m.w[k-1])
			if almostZero(m.c[k-1]) {
				return m.breakdown("c")
			}
			m.alpha = floats.Dot(q0, r) / m.c[k-1]
			// u_{jk+1} = r_{jk} - α_{jk+1} w_{jk}
			floats.AddScaledTo(m.u, r, -m.alpha, m.w[k-1])
			ctx.Src = m.u
			ctx.Dst = m.utemp
			m.resume = 4
			return PSolve, nil
		case 4:
			ctx.Src = m.utemp
			ctx.Dst = m.temp
			m.resume = 5
			return MatVec, nil
			// temp = A M^{-1} u_{jk+1}
		case 5:
			// ρ_{j+1} = -u·(Au~) / |Au~|^2
			m.rho = floats.Dot(m.temp, m.temp)
			if almostZero(m.rho) {
				// Au~ is zero and so will be the correction.
				m.rho = 1
			}
			m.rho = -floats.Dot(m.u, m.temp) / m.rho

			// r_{jk+1} = u_{jk+1} + ρ_{j+1} Au~
			floats.AddScaledTo(r, m.u, m.rho, m.temp)
			// x_{jk+1} = x_{jk} - ρ_{j+1} u~ + α_{jk+1} g~_{jk}
			floats.AddScaled(ctx.X, -m.rho, m.utemp)
			floats.AddScaled(ctx.X, m.alpha, m.gtemp)

			ctx.Src = nil
			ctx.Dst = nil
			ctx.ResidualNorm = floats.Norm(r, 2)
			m.resume = 6
			return CheckStatus, nil
		case 6:
			if ctx.Status.Terminal() {
				m.resume = 11
				return ComputeResidual, nil
			}
			m.i = 0
			m.resume = 7
		case 7:
			i := m.i
			// Compute d_{jk+i}, g_{jk+i} so that d_{jk+i} is orthogonal
			// to the starting vectors.
			copy(m.zd, m.u)
			copy(m.zg, r)
			zero(m.zw)
			if m.j >= 1 {
				for s := i; s < k-1; s++ {
					beta := -floats.Dot(m.q[s+1], m.zd) / m.c[s]
					floats.AddScaled(m.zd, beta, m.d[s])
					floats.AddScaled(m.zg, beta, m.g[s])
					floats.AddScaled(m.zw, beta, m.w[s])
				}
			}
			den := m.rho * m.c[k-1]
			if almostZero(den) {
				return m.breakdown("beta")
			}
			floats.AddScaledTo(m.temp, r, m.rho, m.zw)
			beta := -floats.Dot(q0, m.temp) / den
			floats.AddScaled(m.zg, beta, m.g[k-1])
			floats.AddScaled(m.zw, beta, m.w[k-1])
			floats.Scale(m.rho, m.zw)
			floats.AddTo(m.zd, r, m.zw)
			for s := 0; s < i; s++ {
				beta := -floats.Dot(m.q[s+1], m.zd) / m.c[s]
				floats.AddScaled(m.zd, beta, m.d[s])
				floats.AddScaled(m.zg, beta, m.g[s])
			}
			floats.SubTo(m.d[i], m.zd, m.u)
			floats.AddTo(m.g[i], m.zg, m.zw)

			if i == k-1 {
				m.j++
				m.first = false
				m.resume = 1
				return EndIteration, nil
			}

			m.c[i] = floats.Dot(m.q[i+1], m.d[i])
			if almostZero(m.c[i]) {
				return m.breakdown("c")
			}
			m.alpha = floats.Dot(m.q[i+1], m.u) / m.c[i]
			floats.AddScaled(m.u, -m.alpha, m.d[i])
			ctx.Src = m.g[i]
			ctx.Dst = m.gtemp
			m.resume = 8
			return PSolve, nil
		case 8:
			// x_{jk+i+1} = x_{jk+i} + ρ_{j+1} α_{jk+i+1} g~_{jk+i}
			floats.AddScaled(ctx.X, m.rho*m.alpha, m.gtemp)
			ctx.Src = m.gtemp
			ctx.Dst = m.w[m.i]
			m.resume = 9
			return MatVec, nil
		case 9:
			// r_{jk+i+1} = r_{jk+i} - ρ_{j+1} α_{jk+i+1} w_{jk+i}
			floats.AddScaled(r, -m.rho*m.alpha, m.w[m.i])
			ctx.Src = nil
			ctx.Dst = nil
			ctx.ResidualNorm = floats.Norm(r, 2)
			m.resume = 10
			return CheckStatus, nil
		case 10:
			if ctx.Status.Terminal() {
				m.resume = 11
				return ComputeResidual, nil
			}
			m.i++
			m.resume = 7
		case 11:
			m.first = true
			m.resume = 1
			return EndIteration, nil

		default:
			panic("krylov: MLBiCGStab.Init not called")
		}
	}
}
