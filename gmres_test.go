// Copyright ©2017 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package krylov_test

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vladimir-ch/krylov"
)

func TestGMRES(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	cases := nonsymmetricCases(rnd)
	for _, restart := range []int{0, 5, 20, 1000} {
		t.Run(fmt.Sprintf("Restart=%d", restart), func(t *testing.T) {
			testMethod(t, func() krylov.Method { return &krylov.GMRES{Restart: restart} }, cases)
		})
	}
}

func TestGMRESFullRestart(t *testing.T) {
	// Without restarts GMRES finds the solution of an n×n system in at
	// most one cycle of n steps.
	tc := convectionDiffusion(6, 10, 10)
	_, b := ones(tc.a, tc.n)
	res, err := krylov.LinearSolve(tc.a, b, &krylov.GMRES{Restart: tc.n}, krylov.Settings{Tolerance: 1e-10})
	require.NoError(t, err)
	require.Equal(t, krylov.Converged, res.Status)
	require.Equal(t, 1, res.Stats.Iterations)
	require.LessOrEqual(t, res.Stats.MatVec, tc.n+1)
	require.Less(t, residualNorm(tc.a, res.X, b), 1e-9)
}

func TestGMRESNegativeRestart(t *testing.T) {
	require.Panics(t, func() { (&krylov.GMRES{Restart: -1}).Init(5) })
}
