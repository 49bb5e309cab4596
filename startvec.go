// Copyright ©2017 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package krylov

import (
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
)

// StartingVectors returns k orthonormal vectors of length n with random
// Gaussian directions, drawn from src. If src is nil, a source seeded with 1
// is used. StartingVectors panics if k > n.
func StartingVectors(k, n int, src rand.Source) [][]float64 {
	if k < 0 || n < 0 {
		panic("krylov: negative dimension")
	}
	if k > n {
		panic("krylov: more starting vectors than dimension")
	}
	if src == nil {
		src = rand.NewSource(1)
	}
	rnd := rand.New(src)
	for {
		vecs := make([][]float64, k)
		for i := range vecs {
			v := make([]float64, n)
			for j := range v {
				v[j] = rnd.NormFloat64()
			}
			vecs[i] = v
		}
		if orthonormalize(vecs) {
			return vecs
		}
		// Linearly dependent samples have probability zero, draw
		// again.
	}
}

// orthonormalize orthonormalizes vecs in place using the modified Gram-Schmidt
// process. It reports false if the vectors are linearly dependent.
func orthonormalize(vecs [][]float64) bool {
	for i, v := range vecs {
		for j := 0; j < i; j++ {
			floats.AddScaled(v, -floats.Dot(vecs[j], v), vecs[j])
		}
		norm := floats.Norm(v, 2)
		if norm <= dlamchE {
			return false
		}
		floats.Scale(1/norm, v)
	}
	return true
}
