// Copyright ©2017 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package precond

import (
	"gonum.org/v1/gonum/mat"

	"github.com/vladimir-ch/krylov"
	"github.com/vladimir-ch/krylov/sparse"
)

// MILU0 is the incomplete LU factorization with no fill-in. If Modified is
// true, the fill-in that is dropped from a row is subtracted from its
// diagonal element (modified ILU), so that M and A have equal row sums.
//
// MILU0 needs the matrix in *sparse.CSR format.
type MILU0 struct {
	Modified bool

	// The factors in modified sparse row format. alu[:n] holds the
	// inverses of the diagonal of U, jlu[:n+1] the row pointers into
	// alu and jlu, and the rest of alu and jlu the off-diagonal elements
	// of L and U and their column indices. ju[i] points to the first
	// element of U in row i.
	alu []float64
	jlu []int
	ju  []int
	n   int
	ok  bool
}

// NewMILU0 returns a new modified ILU(0) preconditioner.
func NewMILU0() *MILU0 {
	return &MILU0{Modified: true}
}

var _ krylov.Preconditioner = (*MILU0)(nil)

// Initialize implements the krylov.Preconditioner interface. It returns
// ErrNotCSR if a is not a *sparse.CSR and a *ZeroPivotError if a diagonal
// element is missing or a pivot becomes zero.
func (p *MILU0) Initialize(a mat.Matrix) error {
	p.ok = false
	r, c := a.Dims()
	if r != c {
		return krylov.ErrNotSquare
	}
	csr, isCSR := a.(*sparse.CSR)
	if !isCSR {
		return ErrNotCSR
	}
	n := r
	ia, ja, val := csr.RawCSR()
	nnz := ia[n]

	p.n = n
	p.alu = make([]float64, n+1+nnz)
	p.jlu = make([]int, n+1+nnz)
	p.ju = make([]int, n)
	iw := make([]int, n)
	for i := range iw {
		iw[i] = -1
	}

	alu, jlu, ju := p.alu, p.jlu, p.ju
	ju0 := n + 1
	jlu[0] = ju0
	for ii := 0; ii < n; ii++ {
		js := ju0
		diag := false
		// Generate row ii of L and U.
		for j := ia[ii]; j < ia[ii+1]; j++ {
			jcol := ja[j]
			if jcol == ii {
				alu[ii] = val[j]
				iw[jcol] = ii
				ju[ii] = ju0
				diag = true
				continue
			}
			alu[ju0] = val[j]
			jlu[ju0] = jcol
			iw[jcol] = ju0
			ju0++
		}
		if !diag {
			return &ZeroPivotError{Row: ii}
		}
		jlu[ii+1] = ju0
		jf := ju0 - 1
		jm := ju[ii] - 1

		var s float64
		for j := js; j <= jm; j++ {
			jrow := jlu[j]
			tl := alu[j] * alu[jrow]
			alu[j] = tl
			// Perform the linear combination.
			for jj := ju[jrow]; jj < jlu[jrow+1]; jj++ {
				jw := iw[jlu[jj]]
				if jw != -1 {
					alu[jw] -= tl * alu[jj]
				} else if p.Modified {
					s += tl * alu[jj]
				}
			}
		}
		if p.Modified {
			alu[ii] -= s
		}
		if alu[ii] == 0 {
			return &ZeroPivotError{Row: ii}
		}
		alu[ii] = 1 / alu[ii]

		// Reset the pointers.
		iw[ii] = -1
		for i := js; i <= jf; i++ {
			iw[jlu[i]] = -1
		}
	}
	p.ok = true
	return nil
}

// Approximate implements the krylov.Preconditioner interface.
func (p *MILU0) Approximate(dst, rhs []float64) error {
	if !p.ok {
		return krylov.ErrNotInitialized
	}
	if len(dst) != p.n || len(rhs) != p.n {
		return krylov.ErrLength
	}
	alu, jlu, ju := p.alu, p.jlu, p.ju
	// Solve L y = rhs.
	for i := 0; i < p.n; i++ {
		v := rhs[i]
		for k := jlu[i]; k < ju[i]; k++ {
			v -= alu[k] * dst[jlu[k]]
		}
		dst[i] = v
	}
	// Solve U x = y.
	for i := p.n - 1; i >= 0; i-- {
		v := dst[i]
		for k := ju[i]; k < jlu[i+1]; k++ {
			v -= alu[k] * dst[jlu[k]]
		}
		dst[i] = v * alu[i]
	}
	return nil
}
