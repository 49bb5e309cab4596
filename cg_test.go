// Copyright ©2016 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package krylov_test

import (
	"math/rand"
	"testing"

	"github.com/vladimir-ch/krylov"
)

func TestCG(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	testMethod(t, func() krylov.Method { return &krylov.CG{} }, spdCases(rnd))
}
