// Copyright ©2017 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package krylov_test

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/vladimir-ch/krylov"
	"github.com/vladimir-ch/krylov/sparse"
)

type testCase struct {
	name  string
	a     mat.Matrix
	n     int
	iters int     // Iteration limit.
	tol   float64 // Tolerance for the distance from the solution.
}

// randomSPD returns a random symmetric positive definite n×n matrix with a
// dominant diagonal.
func randomSPD(n int, rnd *rand.Rand) testCase {
	a := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			a.SetSym(i, j, rnd.Float64())
		}
		a.SetSym(i, i, a.At(i, i)+float64(n))
	}
	return testCase{
		name:  fmt.Sprintf("randomSPD-%d", n),
		a:     a,
		n:     n,
		iters: 10 * n,
		tol:   1e-8,
	}
}

// randomNonsymmetric returns a random non-symmetric n×n matrix with a
// dominant diagonal.
func randomNonsymmetric(n int, rnd *rand.Rand) testCase {
	a := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			a.Set(i, j, rnd.Float64()-0.5)
		}
		a.Set(i, i, a.At(i, i)+float64(n))
	}
	return testCase{
		name:  fmt.Sprintf("randomNonsymmetric-%d", n),
		a:     a,
		n:     n,
		iters: 10 * n,
		tol:   1e-8,
	}
}

// convectionDiffusion returns the sparse matrix of a 2D convection-diffusion
// problem on an m×m grid.
func convectionDiffusion(m int, px, py float64) testCase {
	return testCase{
		name:  fmt.Sprintf("convectionDiffusion-%d-%v-%v", m, px, py),
		a:     sparse.ConvectionDiffusion(m, px, py),
		n:     m * m,
		iters: 10 * m * m,
		tol:   1e-6,
	}
}

func spdCases(rnd *rand.Rand) []testCase {
	var cases []testCase
	for _, n := range []int{1, 2, 3, 4, 5, 10, 20, 50, 100} {
		cases = append(cases, randomSPD(n, rnd))
	}
	return append(cases,
		convectionDiffusion(5, 0, 0),
		convectionDiffusion(12, 0, 0),
	)
}

func nonsymmetricCases(rnd *rand.Rand) []testCase {
	cases := spdCases(rnd)
	for _, n := range []int{1, 2, 3, 5, 10, 50, 100} {
		cases = append(cases, randomNonsymmetric(n, rnd))
	}
	return append(cases,
		convectionDiffusion(5, 10, 0),
		convectionDiffusion(10, 20, -10),
		convectionDiffusion(15, 5, 30),
	)
}

// ones returns a vector of n ones and the right-hand side A*ones.
func ones(a mat.Matrix, n int) (want, b []float64) {
	want = make([]float64, n)
	for i := range want {
		want[i] = 1
	}
	b = make([]float64, n)
	bv := mat.NewVecDense(n, b)
	bv.MulVec(a, mat.NewVecDense(n, want))
	return want, b
}

// residualNorm returns |b - A*x| / |b|.
func residualNorm(a mat.Matrix, x, b []float64) float64 {
	n := len(b)
	ax := mat.NewVecDense(n, nil)
	ax.MulVec(a, mat.NewVecDense(n, x))
	r := floats.SubTo(make([]float64, n), b, ax.RawVector().Data)
	return floats.Norm(r, 2) / floats.Norm(b, 2)
}

// testMethod solves each test case with the solution vector of ones and
// checks the solution.
func testMethod(t *testing.T, newMethod func() krylov.Method, cases []testCase) {
	t.Helper()
	for _, tc := range cases {
		n := tc.n
		A := tc.a
		// Compute the right-hand side b so that the vector [1,1,...,1]
		// is the solution.
		want, b := ones(A, n)

		r, err := krylov.LinearSolve(A, b, newMethod(), krylov.Settings{
			MaxIterations: tc.iters,
			Tolerance:     1e-12,
		})
		if err != nil {
			t.Errorf("Case %v (n=%v): unexpected error %v", tc.name, n, err)
			continue
		}
		if r.Status != krylov.Converged {
			t.Errorf("Case %v (n=%v): unexpected status %v after %v iterations", tc.name, n, r.Status, r.Stats.Iterations)
			continue
		}
		if rnorm := residualNorm(A, r.X, b); rnorm > 1e-10 {
			t.Errorf("Case %v (n=%v): unexpected relative residual %v", tc.name, n, rnorm)
		}
		dist := floats.Distance(r.X, want, math.Inf(1))
		if dist > tc.tol {
			t.Errorf("Case %v (n=%v): unexpected solution, |want-got|=%v", tc.name, n, dist)
		}
	}
}
