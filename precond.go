// Copyright ©2017 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package krylov

import "gonum.org/v1/gonum/mat"

// Preconditioner is an operator M that approximates the matrix A of a linear
// system and whose inverse can be applied cheaply.
//
// Initialize computes the state of M from A. It replaces any previous state;
// if it fails, the preconditioner is left uninitialized. Approximate stores
// into dst the solution z of
//  M z = rhs.
// Approximate must not be called concurrently with Initialize.
type Preconditioner interface {
	Initialize(a mat.Matrix) error
	Approximate(dst, rhs []float64) error
}

// TransposeApproximator is a Preconditioner that can also solve
//  M^T z = rhs.
// It is needed by methods that command PSolveTrans, like BiCG.
type TransposeApproximator interface {
	Preconditioner
	ApproximateTrans(dst, rhs []float64) error
}

// Identity is the preconditioner M = I. It is used when no preconditioner is
// given.
type Identity struct {
	n  int
	ok bool
}

var _ TransposeApproximator = (*Identity)(nil)

// Initialize implements the Preconditioner interface.
func (p *Identity) Initialize(a mat.Matrix) error {
	r, c := a.Dims()
	if r != c {
		p.n, p.ok = 0, false
		return ErrNotSquare
	}
	p.n, p.ok = r, true
	return nil
}

// Approximate implements the Preconditioner interface.
func (p *Identity) Approximate(dst, rhs []float64) error {
	if !p.ok {
		return ErrNotInitialized
	}
	if len(dst) != p.n || len(rhs) != p.n {
		return ErrLength
	}
	copy(dst, rhs)
	return nil
}

// ApproximateTrans implements the TransposeApproximator interface.
func (p *Identity) ApproximateTrans(dst, rhs []float64) error {
	return p.Approximate(dst, rhs)
}
