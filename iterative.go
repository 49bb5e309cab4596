// Copyright ©2016 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package krylov provides preconditioned Krylov subspace methods for solving
// systems of linear equations
//  A x = b
// with a square non-singular matrix A.
//
// The methods (BiCGStab, GPBiCG, MLBiCGStab, and also CG, BiCG and GMRES)
// are driven by LinearSolve through a reverse-communication interface, the
// stopping decisions are made by an Iterator, and preconditioning is provided
// by a Preconditioner. Composite chains several method and preconditioner
// pairs and falls back to the next pair when one breaks down.
package krylov

// Operation specifies the type of operation.
type Operation uint64

// Operations commanded by Method.Iterate.
const (
	NoOperation Operation = 0

	// Multiply A*x where x is stored
	// in Context.Src and the result will
	// be stored in Context.Dst.
	MatVec Operation = 1 << (iota - 1)

	// Multiply A^T*x where x is stored
	// in Context.Src and the result will
	// be stored in Context.Dst.
	MatTransVec

	// Do the preconditioner solve
	//  M z = r,
	// where r is stored in Context.Src,
	// and store the solution z in
	// Context.Dst.
	PSolve

	// Do the preconditioner solve
	//  M^T z = r,
	// where r is stored in Context.Src,
	// and store the solution z in
	// Context.Dst.
	PSolveTrans

	// Compute b - A*x where x is stored
	// in Context.X and store the result
	// into Context.Residual.
	ComputeResidual

	// Evaluate the stop criteria using
	// the current approximation in
	// Context.X and the residual norm in
	// Context.ResidualNorm, and store the
	// outcome in Context.Status.
	CheckStatus

	// EndIteration indicates that Method
	// has finished what it considers to
	// be one iteration. The caller
	// increments the iteration counter
	// and evaluates the stop criteria
	// using Context.X and the norm of
	// Context.Residual. If the status is
	// terminal, the iterative process
	// ends, and Method.Init must be
	// called before calling
	// Method.Iterate again.
	EndIteration
)

func (op Operation) String() string {
	switch op {
	case NoOperation:
		return "NoOperation"
	case MatVec:
		return "MatVec"
	case MatTransVec:
		return "MatTransVec"
	case PSolve:
		return "PSolve"
	case PSolveTrans:
		return "PSolveTrans"
	case ComputeResidual:
		return "ComputeResidual"
	case CheckStatus:
		return "CheckStatus"
	case EndIteration:
		return "EndIteration"
	}
	return "Operation(?)"
}

// Method is an iterative method that produces a sequence of vectors converging
// to the vector x satisfying a system of linear equations
//  A x = b,
// where A is non-singular dim×dim matrix, and x and b are vectors of dimension
// dim.
//
// Method uses a reverse-communication interface between the iterative algorithm
// and the caller. Method acts as a client that commands the caller to perform
// needed operations via Operation returned from Iterate methods. This provides
// independence of Method on representation of the matrix A and of the
// preconditioner, and enables automation of common operations like checking
// for convergence and maintaining statistics.
//
// When a CheckStatus reports a terminal status, a Method commands
// ComputeResidual followed by EndIteration so that the stop criteria are
// evaluated once more on the true residual. If the solve then continues, the
// Method restarts its recurrence from the true residual.
type Method interface {
	// Init initializes the method for solving a dim×dim linear system.
	// Scratch vectors are allocated here and reused by Iterate.
	Init(dim int)

	// Iterate retrieves data from Context, updates it, and returns the next
	// operation. The caller must perform the Operation using data in
	// Context, and depending on the state call Iterate again.
	Iterate(*Context) (Operation, error)
}

// Context mediates the communication between a Method and the caller. It must
// not be modified or accessed apart from the commanded Operations.
type Context struct {
	// X is the current approximate solution. On the first call to
	// Method.Iterate, X must contain the initial estimate. Method must
	// update X with the current estimate when it commands ComputeResidual
	// and EndIteration.
	X []float64
	// Residual is the current residual b-A*x. On the first call to
	// Method.Iterate, Residual must contain the initial residual. Method
	// must update Residual when it commands EndIteration.
	Residual []float64
	// ResidualNorm is (an estimate of) the norm of the current residual.
	// Method must update it when it commands CheckStatus. It does not have
	// to be equal to the norm of Residual, some methods (e.g., GMRES) can
	// estimate the residual norm without forming the residual itself.
	ResidualNorm float64
	// Status is the outcome of the last status check.
	Status Status

	// Src and Dst are the source and destination vectors for various
	// Operations.
	Src, Dst []float64
}
