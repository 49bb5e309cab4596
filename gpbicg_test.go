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

func TestGPBiCG(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	cases := nonsymmetricCases(rnd)
	for _, steps := range [][2]int{{0, 0}, {1, 4}, {0, 1}, {1, 0}, {2, 3}} {
		t.Run(fmt.Sprintf("Steps=%v", steps), func(t *testing.T) {
			testMethod(t, func() krylov.Method {
				return &krylov.GPBiCG{BiCGStabSteps: steps[0], GPBiCGSteps: steps[1]}
			}, cases)
		})
	}
}

func TestGPBiCGBreakdown(t *testing.T) {
	a, b := breakdownSystem()
	res, err := krylov.LinearSolve(a, b, &krylov.GPBiCG{}, krylov.Settings{})
	var be *krylov.BreakdownError
	require.ErrorAs(t, err, &be)
	require.Equal(t, "GPBiCG", be.Method)
	require.Equal(t, "alpha", be.Quantity)
	require.Equal(t, krylov.Failed, res.Status)
	require.Equal(t, 1, res.Stats.Iterations)
	require.InDeltaSlice(t, []float64{1, -0.5, 0}, res.X, 1e-15)
}

func TestGPBiCGNegativeSteps(t *testing.T) {
	require.Panics(t, func() { (&krylov.GPBiCG{BiCGStabSteps: -1}).Init(3) })
	require.Panics(t, func() { (&krylov.GPBiCG{GPBiCGSteps: -1}).Init(3) })
}
