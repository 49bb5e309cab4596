// Copyright ©2017 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package krylov_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/vladimir-ch/krylov"
	"github.com/vladimir-ch/krylov/precond"
	"github.com/vladimir-ch/krylov/sparse"
)

func TestLinearSolvePanics(t *testing.T) {
	a := mat.NewDense(3, 3, []float64{4, 1, 0, 1, 4, 1, 0, 1, 4})
	b := []float64{1, 2, 3}
	m := &krylov.BiCGStab{}

	require.Panics(t, func() { krylov.LinearSolve(nil, b, m, krylov.Settings{}) })
	require.Panics(t, func() { krylov.LinearSolve(a, b, nil, krylov.Settings{}) })
	require.Panics(t, func() { krylov.LinearSolve(mat.NewDense(3, 2, nil), b, m, krylov.Settings{}) })
	require.Panics(t, func() { krylov.LinearSolve(a, b[:2], m, krylov.Settings{}) })
	require.Panics(t, func() { krylov.LinearSolve(a, b, m, krylov.Settings{X0: []float64{0}}) })
	require.Panics(t, func() { krylov.LinearSolve(a, b, m, krylov.Settings{Tolerance: 2}) })
	require.Panics(t, func() { krylov.LinearSolve(a, b, m, krylov.Settings{MaxIterations: -1}) })
}

func TestLinearSolveEmpty(t *testing.T) {
	a := sparse.NewCOO(0, 0).ToCSR()
	res, err := krylov.LinearSolve(a, nil, &krylov.CG{}, krylov.Settings{})
	require.NoError(t, err)
	require.Equal(t, krylov.Converged, res.Status)
	require.Zero(t, res.Stats.Iterations)
}

func TestLinearSolveIdentityPreconditioner(t *testing.T) {
	tc := convectionDiffusion(8, 10, 3)
	_, b := ones(tc.a, tc.n)
	for _, newMethod := range []func() krylov.Method{
		func() krylov.Method { return &krylov.BiCGStab{} },
		func() krylov.Method { return &krylov.GPBiCG{} },
		func() krylov.Method { return &krylov.MLBiCGStab{} },
		func() krylov.Method { return &krylov.GMRES{} },
	} {
		m := newMethod()
		none, err := krylov.LinearSolve(tc.a, b, m, krylov.Settings{})
		require.NoError(t, err)
		id, err := krylov.LinearSolve(tc.a, b, newMethod(), krylov.Settings{Preconditioner: &krylov.Identity{}})
		require.NoError(t, err)
		require.Equal(t, none.Status, id.Status, "%T", m)
		require.Equal(t, none.Stats.Iterations, id.Stats.Iterations, "%T", m)
		require.Equal(t, none.X, id.X, "%T", m)
	}
}

func TestLinearSolveIterationLimit(t *testing.T) {
	tc := convectionDiffusion(10, 5, 5)
	_, b := ones(tc.a, tc.n)
	for _, test := range []struct {
		m      krylov.Method
		matVec int
		pSolve int
	}{
		{m: &krylov.BiCGStab{}, matVec: 2, pSolve: 2},
		{m: &krylov.GPBiCG{}, matVec: 2, pSolve: 3},
		{m: &krylov.GPBiCG{BiCGStabSteps: 0, GPBiCGSteps: 1}, matVec: 2, pSolve: 3},
		{m: &krylov.MLBiCGStab{NumStartingVectors: 1}, matVec: 2, pSolve: 2},
		{m: &krylov.MLBiCGStab{NumStartingVectors: 4}, matVec: 5, pSolve: 5},
		{m: &krylov.CG{}, matVec: 1, pSolve: 1},
		{m: &krylov.BiCG{}, matVec: 2, pSolve: 2},
		{m: &krylov.GMRES{Restart: 5}, matVec: 6, pSolve: 6},
	} {
		res, err := krylov.LinearSolve(tc.a, b, test.m, krylov.Settings{MaxIterations: 1})
		require.NoError(t, err, "%T", test.m)
		require.Equal(t, krylov.StoppedWithoutConvergence, res.Status, "%T", test.m)
		require.Equal(t, 1, res.Stats.Iterations, "%T", test.m)
		require.Equal(t, test.matVec, res.Stats.MatVec, "%T", test.m)
		require.Equal(t, test.pSolve, res.Stats.PSolve, "%T", test.m)
		require.Greater(t, res.Stats.ResidualNorm, 0.0, "%T", test.m)
	}
}

func TestLinearSolveInitialGuess(t *testing.T) {
	tc := convectionDiffusion(10, 5, 5)
	want, b := ones(tc.a, tc.n)

	// The initial guess is the solution.
	res, err := krylov.LinearSolve(tc.a, b, &krylov.BiCGStab{}, krylov.Settings{X0: want})
	require.NoError(t, err)
	require.Equal(t, krylov.Converged, res.Status)
	require.Zero(t, res.Stats.Iterations)
	require.Equal(t, 1, res.Stats.MatVec)
	require.Equal(t, want, res.X)

	// X0 is not modified.
	x0 := make([]float64, tc.n)
	x0[0] = 3
	res, err = krylov.LinearSolve(tc.a, b, &krylov.BiCGStab{}, krylov.Settings{X0: x0, Tolerance: 1e-10})
	require.NoError(t, err)
	require.Equal(t, krylov.Converged, res.Status)
	require.Equal(t, 3.0, x0[0])
	require.InDeltaSlice(t, want, res.X, 1e-6)
}

func TestLinearSolvePreconditionerError(t *testing.T) {
	// MILU0 needs a CSR matrix.
	a := mat.NewDense(2, 2, []float64{2, 1, 1, 2})
	res, err := krylov.LinearSolve(a, []float64{1, 1}, &krylov.BiCGStab{}, krylov.Settings{
		Preconditioner: precond.NewMILU0(),
	})
	require.ErrorIs(t, err, precond.ErrNotCSR)
	require.Equal(t, krylov.Failed, res.Status)
	require.Zero(t, res.Stats.Iterations)

	// Zero diagonal.
	a = mat.NewDense(2, 2, []float64{0, 1, 1, 0})
	_, err = krylov.LinearSolve(a, []float64{1, 1}, &krylov.BiCGStab{}, krylov.Settings{
		Preconditioner: &precond.Diagonal{},
	})
	require.ErrorIs(t, err, krylov.ErrBreakdown)
	var zp *precond.ZeroPivotError
	require.ErrorAs(t, err, &zp)
	require.Equal(t, 0, zp.Row)
}

func TestLinearSolveCancelBefore(t *testing.T) {
	tc := convectionDiffusion(10, 5, 5)
	_, b := ones(tc.a, tc.n)

	it := krylov.NewIterator(krylov.Options{})
	it.Cancel()
	res, err := krylov.LinearSolve(tc.a, b, &krylov.BiCGStab{}, krylov.Settings{Iterator: it})
	require.NoError(t, err)
	require.Equal(t, krylov.Cancelled, res.Status)
	require.Zero(t, res.Stats.Iterations)
	require.Equal(t, krylov.Cancelled, it.Status())

	// The request is consumed.
	res, err = krylov.LinearSolve(tc.a, b, &krylov.BiCGStab{}, krylov.Settings{Iterator: it})
	require.NoError(t, err)
	require.Equal(t, krylov.Converged, res.Status)
}

// cancelAt cancels the solve when it sees iteration n.
type cancelAt struct {
	n  int
	it *krylov.Iterator
}

func (c *cancelAt) Status(check krylov.Check) krylov.Status {
	if check.Iteration == c.n {
		c.it.Cancel()
	}
	return krylov.Continue
}

func (c *cancelAt) Reset() {}

func TestLinearSolveCancelDuring(t *testing.T) {
	tc := convectionDiffusion(10, 5, 5)
	_, b := ones(tc.a, tc.n)

	for _, m := range []krylov.Method{
		&krylov.CG{},
		&krylov.BiCGStab{},
		&krylov.GPBiCG{},
		// With many starting vectors one iteration does many steps and
		// the solve converges before the cancellation.
		&krylov.MLBiCGStab{NumStartingVectors: 2},
		&krylov.GMRES{Restart: 5},
	} {
		c := &cancelAt{n: 2}
		crit := append([]krylov.StopCriterion{c}, krylov.DefaultCriteria(krylov.Options{Tolerance: 1e-14})...)
		it := krylov.NewIteratorWith(crit...)
		c.it = it

		res, err := krylov.LinearSolve(tc.a, b, m, krylov.Settings{Iterator: it})
		require.NoError(t, err, "%T", m)
		require.Equal(t, krylov.Cancelled, res.Status, "%T", m)
		require.GreaterOrEqual(t, res.Stats.Iterations, 2, "%T", m)
		require.LessOrEqual(t, res.Stats.Iterations, 3, "%T", m)
		// The residual is the true residual of X.
		require.InDelta(t, residualNorm(tc.a, res.X, b)*floats.Norm(b, 2), res.Stats.ResidualNorm, 1e-10, "%T", m)
	}
}

// blockAt waits in the status check of iteration n until release is closed.
type blockAt struct {
	n       int
	reached chan struct{}
	release chan struct{}
}

func (c *blockAt) Status(check krylov.Check) krylov.Status {
	if check.Iteration == c.n && c.reached != nil {
		close(c.reached)
		c.reached = nil
		<-c.release
	}
	return krylov.Continue
}

func (c *blockAt) Reset() {}

func TestLinearSolveCancelConcurrent(t *testing.T) {
	tc := convectionDiffusion(12, 5, 5)
	_, b := ones(tc.a, tc.n)

	c := &blockAt{n: 1, reached: make(chan struct{}), release: make(chan struct{})}
	reached := c.reached
	crit := append([]krylov.StopCriterion{c}, krylov.DefaultCriteria(krylov.Options{Tolerance: 1e-14})...)
	it := krylov.NewIteratorWith(crit...)

	go func() {
		<-reached
		it.Cancel()
		close(c.release)
	}()

	res, err := krylov.LinearSolve(tc.a, b, &krylov.BiCGStab{}, krylov.Settings{Iterator: it})
	require.NoError(t, err)
	require.Equal(t, krylov.Cancelled, res.Status)
	require.LessOrEqual(t, res.Stats.Iterations, 2)
}
