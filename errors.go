// Copyright ©2017 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package krylov

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrBreakdown is matched by every numerical breakdown error. Use
	// errors.Is(err, ErrBreakdown) to recognize a failure that another
	// method or preconditioner may be able to avoid.
	ErrBreakdown = errors.New("krylov: numerical breakdown")

	// ErrNotSquare is returned by preconditioners initialized with a
	// non-square matrix.
	ErrNotSquare = errors.New("krylov: matrix not square")

	// ErrNotInitialized is returned by a preconditioner that is used
	// before it has been successfully initialized.
	ErrNotInitialized = errors.New("krylov: preconditioner matrix does not exist")

	// ErrLength is returned when vector lengths do not match the
	// dimension of the matrix.
	ErrLength = errors.New("krylov: vector length mismatch")

	// ErrNoTranspose is returned when a method needs the transposed
	// preconditioner solve and the preconditioner does not provide it.
	ErrNoTranspose = errors.New("krylov: preconditioner has no transposed solve")

	// ErrAllStepsFailed is returned by Composite when every step broke
	// down.
	ErrAllStepsFailed = errors.New("krylov: all composite steps broke down")
)

// BreakdownError reports that a denominator of a Krylov recurrence became
// numerically zero. The solve cannot continue with the same method.
type BreakdownError struct {
	// Method is the name of the method that broke down.
	Method string
	// Quantity is the name of the vanishing quantity.
	Quantity string
}

func (e *BreakdownError) Error() string {
	return fmt.Sprintf("krylov: %s: %s breakdown", e.Method, e.Quantity)
}

// Is reports whether target is ErrBreakdown.
func (e *BreakdownError) Is(target error) bool {
	return target == ErrBreakdown
}

// almostZero reports whether x is at most one unit in the last place away
// from zero.
func almostZero(x float64) bool {
	return math.Abs(x) <= math.SmallestNonzeroFloat64
}
