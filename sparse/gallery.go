// Copyright ©2017 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sparse

// ConvectionDiffusion returns the m²×m² matrix of the 5-point central
// difference discretization of
//  -Δu + px u_x + py u_y
// on the unit square with an m×m grid of interior points and homogeneous
// Dirichlet boundary conditions, scaled by h². The matrix is non-symmetric
// unless px and py are zero. Every stencil element is stored, also when its
// coefficient cancels to zero, so the sparsity pattern depends only on m.
func ConvectionDiffusion(m int, px, py float64) *CSR {
	if m <= 0 {
		panic("sparse: grid size not positive")
	}
	n := m * m
	h := 1 / float64(m+1)
	cx := px * h / 2
	cy := py * h / 2
	a := NewCOO(n, n)
	for iy := 0; iy < m; iy++ {
		for ix := 0; ix < m; ix++ {
			i := iy*m + ix
			a.Append(i, i, 4)
			if ix > 0 {
				a.Append(i, i-1, -1-cx)
			}
			if ix < m-1 {
				a.Append(i, i+1, -1+cx)
			}
			if iy > 0 {
				a.Append(i, i-m, -1-cy)
			}
			if iy < m-1 {
				a.Append(i, i+m, -1+cy)
			}
		}
	}
	return a.ToCSR()
}

// Tridiagonal returns the n×n tridiagonal matrix with sub on the
// subdiagonal, diag on the diagonal and super on the superdiagonal.
func Tridiagonal(n int, sub, diag, super float64) *CSR {
	if n <= 0 {
		panic("sparse: dimension not positive")
	}
	a := NewCOO(n, n)
	for i := 0; i < n; i++ {
		if i > 0 {
			a.Append(i, i-1, sub)
		}
		a.Append(i, i, diag)
		if i < n-1 {
			a.Append(i, i+1, super)
		}
	}
	return a.ToCSR()
}
