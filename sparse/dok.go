// Copyright ©2017 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sparse

import (
	"sort"

	"gonum.org/v1/gonum/mat"
)

// DOK is a dictionary-of-keys matrix. It supports random access and is used
// for assembling matrices whose elements are set more than once.
type DOK struct {
	r, c int

	data map[index]float64
}

type index struct {
	row, col int
}

// NewDOK returns a new empty r×c DOK matrix.
func NewDOK(r, c int) *DOK {
	if r < 0 || c < 0 {
		panic("sparse: negative dimension")
	}
	return &DOK{
		r:    r,
		c:    c,
		data: make(map[index]float64),
	}
}

// Dims returns the dimensions of the matrix.
func (m *DOK) Dims() (r, c int) {
	return m.r, m.c
}

// At returns the element at row i and column j.
func (m *DOK) At(i, j int) float64 {
	if i < 0 || m.r <= i {
		panic(mat.ErrRowAccess)
	}
	if j < 0 || m.c <= j {
		panic(mat.ErrColAccess)
	}
	return m.data[index{i, j}]
}

// T returns the transpose of the matrix without copying.
func (m *DOK) T() mat.Matrix {
	return mat.Transpose{Matrix: m}
}

// Set sets the element at row i and column j to v. Setting an element to zero
// removes it from the matrix.
func (m *DOK) Set(i, j int, v float64) {
	if i < 0 || m.r <= i {
		panic(mat.ErrRowAccess)
	}
	if j < 0 || m.c <= j {
		panic(mat.ErrColAccess)
	}
	if v == 0 {
		delete(m.data, index{i, j})
		return
	}
	m.data[index{i, j}] = v
}

// Add adds v to the element at row i and column j.
func (m *DOK) Add(i, j int, v float64) {
	m.Set(i, j, m.At(i, j)+v)
}

// ToCSR returns the matrix in CSR format.
func (m *DOK) ToCSR() *CSR {
	keys := make([]index, 0, len(m.data))
	for ij := range m.data {
		keys = append(keys, ij)
	}
	sort.Slice(keys, func(a, b int) bool {
		if keys[a].row != keys[b].row {
			return keys[a].row < keys[b].row
		}
		return keys[a].col < keys[b].col
	})

	indptr := make([]int, m.r+1)
	ind := make([]int, len(keys))
	data := make([]float64, len(keys))
	for k, ij := range keys {
		ind[k] = ij.col
		data[k] = m.data[ij]
		indptr[ij.row+1]++
	}
	for i := 0; i < m.r; i++ {
		indptr[i+1] += indptr[i]
	}
	return NewCSR(m.r, m.c, indptr, ind, data)
}

// CSROf returns the elements of a in CSR format. Zero elements of a are not
// stored, except on the diagonal of a square matrix.
func CSROf(a mat.Matrix) *CSR {
	if s, ok := a.(*CSR); ok {
		return s
	}
	r, c := a.Dims()
	indptr := make([]int, r+1)
	var (
		ind  []int
		data []float64
	)
	add := func(_, j int, v float64) {
		ind = append(ind, j)
		data = append(data, v)
	}
	for i := 0; i < r; i++ {
		if rnz, ok := a.(mat.RowNonZeroDoer); ok {
			start := len(ind)
			rnz.DoRowNonZero(i, add)
			sortRow(ind[start:], data[start:])
		} else {
			for j := 0; j < c; j++ {
				if v := a.At(i, j); v != 0 || (i == j && r == c) {
					add(i, j, v)
				}
			}
		}
		indptr[i+1] = len(ind)
	}
	return NewCSR(r, c, indptr, ind, data)
}

type rowSorter struct {
	ind  []int
	data []float64
}

func (s rowSorter) Len() int           { return len(s.ind) }
func (s rowSorter) Less(a, b int) bool { return s.ind[a] < s.ind[b] }
func (s rowSorter) Swap(a, b int) {
	s.ind[a], s.ind[b] = s.ind[b], s.ind[a]
	s.data[a], s.data[b] = s.data[b], s.data[a]
}

func sortRow(ind []int, data []float64) {
	sort.Sort(rowSorter{ind, data})
}
