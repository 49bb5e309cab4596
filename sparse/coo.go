// Copyright ©2017 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sparse

import "sort"

type triplet struct {
	i, j int
	v    float64
}

// COO is a matrix in coordinate (triplet) format. It is meant for assembly:
// elements are appended in any order and duplicates are summed when the
// matrix is converted to CSR.
type COO struct {
	r, c int
	data []triplet
}

// NewCOO returns a new empty r×c COO matrix.
func NewCOO(r, c int) *COO {
	if r < 0 || c < 0 {
		panic("sparse: negative dimension")
	}
	return &COO{
		r: r,
		c: c,
	}
}

// Dims returns the dimensions of the matrix.
func (m *COO) Dims() (r, c int) {
	return m.r, m.c
}

// Len returns the number of appended triplets.
func (m *COO) Len() int {
	return len(m.data)
}

// Append adds v to the element at row i and column j.
func (m *COO) Append(i, j int, v float64) {
	if i < 0 || m.r <= i {
		panic("sparse: row index out of range")
	}
	if j < 0 || m.c <= j {
		panic("sparse: column index out of range")
	}
	m.data = append(m.data, triplet{i, j, v})
}

// MulVec computes A*x and stores the result into dst.
func (m *COO) MulVec(dst, x []float64) {
	if m.c != len(x) {
		panic("sparse: dimension mismatch")
	}
	if m.r != len(dst) {
		panic("sparse: dimension mismatch")
	}
	for i := range dst {
		dst[i] = 0
	}
	for _, aij := range m.data {
		dst[aij.i] += aij.v * x[aij.j]
	}
}

// ToCSR returns the matrix in CSR format. Duplicate elements are summed.
// Explicit zeros are kept.
func (m *COO) ToCSR() *CSR {
	t := make([]triplet, len(m.data))
	copy(t, m.data)
	sort.Slice(t, func(a, b int) bool {
		if t[a].i != t[b].i {
			return t[a].i < t[b].i
		}
		return t[a].j < t[b].j
	})

	indptr := make([]int, m.r+1)
	ind := make([]int, 0, len(t))
	data := make([]float64, 0, len(t))
	for k, aij := range t {
		if k > 0 && aij.i == t[k-1].i && aij.j == t[k-1].j {
			data[len(data)-1] += aij.v
			continue
		}
		ind = append(ind, aij.j)
		data = append(data, aij.v)
		indptr[aij.i+1]++
	}
	for i := 0; i < m.r; i++ {
		indptr[i+1] += indptr[i]
	}
	return NewCSR(m.r, m.c, indptr, ind, data)
}
