// Copyright ©2017 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package precond provides preconditioners for the iterative methods in
// package krylov.
package precond

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/vladimir-ch/krylov"
)

// ErrNotCSR is returned by MILU0 when it is initialized with a matrix that is
// not a *sparse.CSR.
var ErrNotCSR = errors.New("precond: matrix not in CSR format")

// ZeroPivotError is returned by Initialize when the factorization meets a zero
// pivot. It matches krylov.ErrBreakdown.
type ZeroPivotError struct {
	Row int
}

func (e *ZeroPivotError) Error() string {
	return fmt.Sprintf("precond: zero pivot in row %d", e.Row)
}

// Is reports whether target is krylov.ErrBreakdown.
func (e *ZeroPivotError) Is(target error) bool {
	return target == krylov.ErrBreakdown
}

// Diagonal is the Jacobi preconditioner M = diag(A).
type Diagonal struct {
	diag []float64
	ok   bool
}

var _ krylov.TransposeApproximator = (*Diagonal)(nil)

// Initialize implements the krylov.Preconditioner interface. It returns a
// *ZeroPivotError if the diagonal of a has a zero element.
func (p *Diagonal) Initialize(a mat.Matrix) error {
	p.ok = false
	r, c := a.Dims()
	if r != c {
		return krylov.ErrNotSquare
	}
	if cap(p.diag) < r {
		p.diag = make([]float64, r)
	}
	p.diag = p.diag[:r]
	for i := range p.diag {
		d := a.At(i, i)
		if d == 0 {
			return &ZeroPivotError{Row: i}
		}
		p.diag[i] = d
	}
	p.ok = true
	return nil
}

// Approximate implements the krylov.Preconditioner interface. It stores
// rhs[i]/A[i,i] into dst[i].
func (p *Diagonal) Approximate(dst, rhs []float64) error {
	if !p.ok {
		return krylov.ErrNotInitialized
	}
	if len(dst) != len(p.diag) || len(rhs) != len(p.diag) {
		return krylov.ErrLength
	}
	for i, d := range p.diag {
		dst[i] = rhs[i] / d
	}
	return nil
}

// ApproximateTrans implements the krylov.TransposeApproximator interface.
func (p *Diagonal) ApproximateTrans(dst, rhs []float64) error {
	return p.Approximate(dst, rhs)
}
