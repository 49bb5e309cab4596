// Copyright ©2017 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package krylov_test

import (
	"bytes"
	"errors"
	"log"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vladimir-ch/krylov"
	"github.com/vladimir-ch/krylov/precond"
)

// breaking is a Method that breaks down in its first iteration.
type breaking struct{}

func (breaking) Init(int) {}

func (breaking) Iterate(*krylov.Context) (krylov.Operation, error) {
	return krylov.NoOperation, &krylov.BreakdownError{Method: "breaking", Quantity: "everything"}
}

// recorder is a Method that records its starting point and ends every
// iteration without changing the solution.
type recorder struct {
	start []float64
	err   error
}

func (r *recorder) Init(int) { r.start = nil }

func (r *recorder) Iterate(ctx *krylov.Context) (krylov.Operation, error) {
	if r.err != nil {
		return krylov.NoOperation, r.err
	}
	if r.start == nil {
		r.start = append([]float64(nil), ctx.X...)
	}
	return krylov.EndIteration, nil
}

func TestCompositeFallback(t *testing.T) {
	tc := convectionDiffusion(8, 10, -5)
	want, b := ones(tc.a, tc.n)

	var buf bytes.Buffer
	c := &krylov.Composite{
		Steps: []krylov.Step{
			{Method: breaking{}},
			{Method: &krylov.BiCGStab{}, Preconditioner: precond.NewILUTP()},
		},
		Logger: log.New(&buf, "", 0),
	}
	res, err := c.Solve(tc.a, b, krylov.Settings{Tolerance: 1e-10})
	require.NoError(t, err)
	require.Equal(t, krylov.Converged, res.Status)
	require.InDeltaSlice(t, want, res.X, 1e-6)
	require.Contains(t, buf.String(), "step 0")
	require.Contains(t, buf.String(), "broke down")
	require.Equal(t, 1, strings.Count(buf.String(), "\n"))
}

func TestCompositeBreakdownRecovery(t *testing.T) {
	a, b := breakdownSystem()
	exact := &precond.ILUTP{FillLevel: 10}
	c := &krylov.Composite{
		Steps: []krylov.Step{
			{Method: &krylov.BiCGStab{}},
			{Method: &krylov.BiCGStab{}, Preconditioner: exact},
		},
	}
	res, err := c.Solve(a, b, krylov.Settings{})
	require.NoError(t, err)
	require.Equal(t, krylov.Converged, res.Status)
	require.Equal(t, 2, res.Stats.Iterations)
	require.InDeltaSlice(t, []float64{1, -1, 1}, res.X, 1e-14)
}

func TestCompositeAllFail(t *testing.T) {
	a, b := breakdownSystem()
	c := &krylov.Composite{
		Steps: []krylov.Step{
			{Method: &krylov.BiCGStab{}},
			{Method: &krylov.GPBiCG{}},
			{Method: breaking{}},
		},
	}
	res, err := c.Solve(a, b, krylov.Settings{})
	require.ErrorIs(t, err, krylov.ErrAllStepsFailed)
	require.ErrorIs(t, err, krylov.ErrBreakdown)
	var be *krylov.BreakdownError
	require.ErrorAs(t, err, &be)
	require.Equal(t, "breaking", be.Method)
	require.Equal(t, krylov.Failed, res.Status)
	require.Equal(t, []float64{0, 0, 0}, res.X)
	require.Equal(t, 2, res.Stats.Iterations)
}

func TestCompositeError(t *testing.T) {
	a, b := breakdownSystem()
	errBoom := errors.New("boom")
	next := &recorder{}
	c := &krylov.Composite{
		Steps: []krylov.Step{
			{Method: &recorder{err: errBoom}},
			{Method: next},
		},
	}
	res, err := c.Solve(a, b, krylov.Settings{})
	require.ErrorIs(t, err, errBoom)
	require.Equal(t, krylov.Failed, res.Status)
	require.Nil(t, next.start)
}

func TestCompositeContinuation(t *testing.T) {
	tc := convectionDiffusion(8, 10, -5)
	_, b := ones(tc.a, tc.n)
	x0 := make([]float64, tc.n)
	for i := range x0 {
		x0[i] = 0.5
	}

	// A step that stops without convergence hands over its solution.
	first := &krylov.BiCGStab{}
	next := &recorder{}
	c := &krylov.Composite{
		Steps: []krylov.Step{
			{Method: first},
			{Method: next},
		},
	}
	res, err := c.Solve(tc.a, b, krylov.Settings{X0: x0, MaxIterations: 2})
	require.NoError(t, err)
	require.Equal(t, krylov.StoppedWithoutConvergence, res.Status)
	require.NotEqual(t, x0, next.start)
	require.Equal(t, res.X, next.start)
	require.Equal(t, 4, res.Stats.Iterations)

	// A step that diverges is followed by the next one from the initial
	// guess.
	diverging := krylov.NewIteratorWith(
		&krylov.DivergenceCriterion{Increase: -1, Window: 1},
		&krylov.IterationLimit{Max: 5},
	)
	next = &recorder{}
	c = &krylov.Composite{
		Steps: []krylov.Step{
			{Method: &krylov.BiCGStab{}},
			{Method: next},
		},
	}
	res, err = c.Solve(tc.a, b, krylov.Settings{X0: x0, Iterator: diverging})
	require.NoError(t, err)
	require.Equal(t, x0, next.start)
	require.Equal(t, krylov.Diverged, res.Status)
}

func TestCompositeCancel(t *testing.T) {
	tc := convectionDiffusion(8, 10, -5)
	_, b := ones(tc.a, tc.n)
	next := &recorder{}
	c := &krylov.Composite{
		Steps: []krylov.Step{
			{Method: &krylov.BiCGStab{}},
			{Method: next},
		},
	}

	c.Cancel()
	res, err := c.Solve(tc.a, b, krylov.Settings{})
	require.NoError(t, err)
	require.Equal(t, krylov.Cancelled, res.Status)
	require.Zero(t, res.Stats.Iterations)
	require.Nil(t, next.start)

	// The request is consumed.
	c.Steps[1].Method = &krylov.BiCGStab{}
	res, err = c.Solve(tc.a, b, krylov.Settings{})
	require.NoError(t, err)
	require.Equal(t, krylov.Converged, res.Status)
}
