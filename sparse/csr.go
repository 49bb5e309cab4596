// Copyright ©2017 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sparse provides sparse matrix storage for the iterative solvers in
// package krylov.
//
// CSR is the storage used by the solvers and preconditioners. COO and DOK are
// builders that are converted to CSR once assembly is finished.
package sparse

import (
	"sort"

	"gonum.org/v1/gonum/mat"
)

// CSR is a matrix in compressed sparse row format. Column indices within each
// row are sorted in increasing order and unique.
//
// CSR implements mat.Matrix, mat.NonZeroDoer and mat.RowNonZeroDoer so it can
// be used wherever gonum expects a matrix.
type CSR struct {
	r, c   int
	indptr []int
	ind    []int
	data   []float64
}

var (
	_ mat.Matrix         = (*CSR)(nil)
	_ mat.NonZeroDoer    = (*CSR)(nil)
	_ mat.RowNonZeroDoer = (*CSR)(nil)
)

// NewCSR returns a new r×c CSR matrix that uses the given slices as backing
// storage. indptr must have length r+1, and ind and data must have length
// indptr[r]. The column indices of each row must be sorted and unique.
// NewCSR panics if the input is inconsistent.
func NewCSR(r, c int, indptr, ind []int, data []float64) *CSR {
	if r < 0 || c < 0 {
		panic("sparse: negative dimension")
	}
	if len(indptr) != r+1 {
		panic("sparse: bad length of row pointers")
	}
	if indptr[0] != 0 || len(ind) != indptr[r] || len(data) != indptr[r] {
		panic("sparse: inconsistent storage")
	}
	for i := 0; i < r; i++ {
		if indptr[i+1] < indptr[i] {
			panic("sparse: decreasing row pointers")
		}
		for k := indptr[i]; k < indptr[i+1]; k++ {
			j := ind[k]
			if j < 0 || c <= j {
				panic("sparse: column index out of range")
			}
			if k > indptr[i] && j <= ind[k-1] {
				panic("sparse: column indices not sorted")
			}
		}
	}
	return &CSR{
		r:      r,
		c:      c,
		indptr: indptr,
		ind:    ind,
		data:   data,
	}
}

// Dims returns the dimensions of the matrix.
func (m *CSR) Dims() (r, c int) {
	return m.r, m.c
}

// At returns the element at row i and column j.
func (m *CSR) At(i, j int) float64 {
	if i < 0 || m.r <= i {
		panic(mat.ErrRowAccess)
	}
	if j < 0 || m.c <= j {
		panic(mat.ErrColAccess)
	}
	ind := m.ind[m.indptr[i]:m.indptr[i+1]]
	k := sort.SearchInts(ind, j)
	if k < len(ind) && ind[k] == j {
		return m.data[m.indptr[i]+k]
	}
	return 0
}

// T returns the transpose of the matrix without copying.
func (m *CSR) T() mat.Matrix {
	return mat.Transpose{Matrix: m}
}

// NNZ returns the number of stored elements.
func (m *CSR) NNZ() int {
	return m.indptr[m.r]
}

// RowView returns the column indices and values of the stored elements in
// row i. The returned slices share storage with m.
func (m *CSR) RowView(i int) (ind []int, data []float64) {
	if i < 0 || m.r <= i {
		panic(mat.ErrRowAccess)
	}
	start, end := m.indptr[i], m.indptr[i+1]
	return m.ind[start:end], m.data[start:end]
}

// RawCSR returns the row pointers, column indices and values of m. The
// returned slices share storage with m.
func (m *CSR) RawCSR() (indptr, ind []int, data []float64) {
	return m.indptr, m.ind, m.data
}

// DoNonZero calls fn for each stored element of m.
func (m *CSR) DoNonZero(fn func(i, j int, v float64)) {
	for i := 0; i < m.r; i++ {
		m.DoRowNonZero(i, fn)
	}
}

// DoRowNonZero calls fn for each stored element in row i of m.
func (m *CSR) DoRowNonZero(i int, fn func(i, j int, v float64)) {
	if i < 0 || m.r <= i {
		panic(mat.ErrRowAccess)
	}
	for k := m.indptr[i]; k < m.indptr[i+1]; k++ {
		fn(i, m.ind[k], m.data[k])
	}
}

// MulVecTo computes A*x or A^T*x, depending on trans, and stores the result
// into dst.
func (m *CSR) MulVecTo(dst []float64, trans bool, x []float64) {
	if trans {
		if m.r != len(x) || m.c != len(dst) {
			panic(mat.ErrShape)
		}
		for i := range dst {
			dst[i] = 0
		}
		for i, xi := range x {
			for k := m.indptr[i]; k < m.indptr[i+1]; k++ {
				dst[m.ind[k]] += m.data[k] * xi
			}
		}
		return
	}
	if m.c != len(x) || m.r != len(dst) {
		panic(mat.ErrShape)
	}
	for i := range dst {
		var sum float64
		for k := m.indptr[i]; k < m.indptr[i+1]; k++ {
			sum += m.data[k] * x[m.ind[k]]
		}
		dst[i] = sum
	}
}
