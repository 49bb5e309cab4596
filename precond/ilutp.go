// Copyright ©2017 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package precond

import (
	"container/heap"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/vladimir-ch/krylov"
	"github.com/vladimir-ch/krylov/sparse"
)

// Default parameters of ILUTP.
const (
	DefaultFillLevel      = 200
	DefaultDropTolerance  = 1e-4
	DefaultPivotTolerance = 0
)

// ILUTP is the incomplete LU factorization with threshold dropping and column
// pivoting. It computes the factors of
//  A Q ≈ L U,
// where L is unit lower triangular, U is upper triangular and Q is a column
// permutation.
//
// Elements of a row of L and U whose magnitude is below DropTolerance times
// the infinity norm of the row of A are dropped. The factors can keep at most
// FillLevel times the number of nonzeros of A elements in total; the budget
// is apportioned among the remaining rows as the factorization proceeds and
// split evenly between L and U, keeping the largest elements. The diagonal is
// never dropped.
//
// When the diagonal element of a row of U is smaller in magnitude than
// PivotTolerance times the largest element of the row, the columns of the two
// elements are swapped. If PivotTolerance is zero, no pivoting is done.
//
// Changes of the parameters take effect on the next call to Initialize.
type ILUTP struct {
	FillLevel      float64
	DropTolerance  float64
	PivotTolerance float64

	n  int
	ok bool

	// L without its unit diagonal, one row per position.
	lptr []int
	lind []int
	lval []float64

	// U without its diagonal. Column indices are columns of A.
	uptr []int
	uind []int
	uval []float64
	udia []float64

	perm    []int // perm[j] is the column of A at position j.
	invperm []int

	work []float64
}

// NewILUTP returns a new ILUTP preconditioner with the default parameters.
func NewILUTP() *ILUTP {
	return &ILUTP{
		FillLevel:      DefaultFillLevel,
		DropTolerance:  DefaultDropTolerance,
		PivotTolerance: DefaultPivotTolerance,
	}
}

var _ krylov.Preconditioner = (*ILUTP)(nil)

// Initialize implements the krylov.Preconditioner interface. It returns a
// *ZeroPivotError if a row of U has a zero diagonal. Initialize panics if a
// parameter is negative.
func (p *ILUTP) Initialize(a mat.Matrix) error {
	if p.FillLevel < 0 || math.IsNaN(p.FillLevel) {
		panic("precond: invalid fill level")
	}
	if p.DropTolerance < 0 || math.IsNaN(p.DropTolerance) {
		panic("precond: invalid drop tolerance")
	}
	if p.PivotTolerance < 0 || math.IsNaN(p.PivotTolerance) {
		panic("precond: invalid pivot tolerance")
	}

	p.ok = false
	r, c := a.Dims()
	if r != c {
		return krylov.ErrNotSquare
	}
	n := r
	csr := sparse.CSROf(a)
	p.n = n

	p.lptr = append(p.lptr[:0], 0)
	p.lind = p.lind[:0]
	p.lval = p.lval[:0]
	p.uptr = append(p.uptr[:0], 0)
	p.uind = p.uind[:0]
	p.uval = p.uval[:0]
	p.udia = reuseFloats(p.udia, n)
	p.perm = reuseInts(p.perm, n)
	p.invperm = reuseInts(p.invperm, n)
	p.work = reuseFloats(p.work, n)
	for j := range p.perm {
		p.perm[j] = j
		p.invperm[j] = j
	}

	f := newFactorizer(n)
	spaceLeft := int(math.Min(p.FillLevel*float64(csr.NNZ()), math.MaxInt32))
	for i := 0; i < n; i++ {
		spaceRow := spaceLeft / (n - i + 1)
		used, err := p.factorRow(f, csr, i, spaceRow)
		if err != nil {
			return err
		}
		spaceLeft = max(0, spaceLeft-used)
	}
	p.ok = true
	return nil
}

// factorizer holds the dense work row of the factorization and its pattern.
type factorizer struct {
	w       []float64
	mark    []bool
	pattern []int
	order   intHeap
	sel     magnitudeHeap
}

func newFactorizer(n int) *factorizer {
	return &factorizer{
		w:    make([]float64, n),
		mark: make([]bool, n),
	}
}

func (f *factorizer) add(pos int) {
	if !f.mark[pos] {
		f.mark[pos] = true
		f.pattern = append(f.pattern, pos)
	}
}

func (f *factorizer) clear() {
	for _, pos := range f.pattern {
		f.w[pos] = 0
		f.mark[pos] = false
	}
	f.pattern = f.pattern[:0]
}

// factorRow computes row i of L and U keeping at most space off-diagonal
// elements. It returns the number of stored elements.
func (p *ILUTP) factorRow(f *factorizer, a *sparse.CSR, i, space int) (int, error) {
	defer f.clear()

	// Gather the row of A in permuted column order.
	ind, val := a.RowView(i)
	var norm float64
	for k, col := range ind {
		pos := p.invperm[col]
		f.add(pos)
		f.w[pos] = val[k]
		norm = math.Max(norm, math.Abs(val[k]))
	}
	if norm == 0 {
		return 0, &ZeroPivotError{Row: i}
	}
	tol := p.DropTolerance * norm

	// Eliminate the positions left of the diagonal in increasing order.
	f.order = f.order[:0]
	for _, pos := range f.pattern {
		if pos < i {
			f.order = append(f.order, pos)
		}
	}
	heap.Init(&f.order)
	for f.order.Len() > 0 {
		k := heap.Pop(&f.order).(int)
		lik := f.w[k] / p.udia[k]
		if lik == 0 || math.Abs(lik) < tol {
			f.w[k] = 0
			continue
		}
		f.w[k] = lik
		for jj := p.uptr[k]; jj < p.uptr[k+1]; jj++ {
			pos := p.invperm[p.uind[jj]]
			if !f.mark[pos] {
				f.add(pos)
				if pos < i {
					heap.Push(&f.order, pos)
				}
			}
			f.w[pos] -= lik * p.uval[jj]
		}
	}
	f.add(i)

	// Pivot.
	if p.PivotTolerance > 0 {
		m := i
		var wmax float64
		for _, pos := range f.pattern {
			if pos > i && math.Abs(f.w[pos]) > wmax {
				m, wmax = pos, math.Abs(f.w[pos])
			}
		}
		if m != i && math.Abs(f.w[i]) < p.PivotTolerance*wmax {
			p.swapColumns(f, i, m)
		}
	}
	d := f.w[i]
	if d == 0 {
		return 0, &ZeroPivotError{Row: i}
	}

	// Store the largest elements of L.
	lspace := space / 2
	nl := f.selectLargest(lspace, func(pos int) bool { return pos < i && f.w[pos] != 0 })
	for _, pos := range f.sel.pos[:nl] {
		p.lind = append(p.lind, pos)
		p.lval = append(p.lval, f.w[pos])
	}
	p.lptr = append(p.lptr, len(p.lind))

	// Store the diagonal and the largest elements of U.
	p.udia[i] = d
	nu := f.selectLargest(space-nl, func(pos int) bool {
		v := f.w[pos]
		return pos > i && v != 0 && math.Abs(v) >= tol
	})
	for _, pos := range f.sel.pos[:nu] {
		p.uind = append(p.uind, p.perm[pos])
		p.uval = append(p.uval, f.w[pos])
	}
	p.uptr = append(p.uptr, len(p.uind))

	return nl + nu + 1, nil
}

// swapColumns exchanges the positions i and m.
func (p *ILUTP) swapColumns(f *factorizer, i, m int) {
	f.w[i], f.w[m] = f.w[m], f.w[i]
	f.mark[i], f.mark[m] = f.mark[m], f.mark[i]
	for k, pos := range f.pattern {
		switch pos {
		case i:
			f.pattern[k] = m
		case m:
			f.pattern[k] = i
		}
	}
	p.perm[i], p.perm[m] = p.perm[m], p.perm[i]
	p.invperm[p.perm[i]] = i
	p.invperm[p.perm[m]] = m
}

// selectLargest collects into f.sel.pos at most k positions of the pattern
// that satisfy keep and have the largest magnitude. It returns their number.
func (f *factorizer) selectLargest(k int, keep func(pos int) bool) int {
	f.sel.pos = f.sel.pos[:0]
	f.sel.w = f.w
	if k <= 0 {
		return 0
	}
	for _, pos := range f.pattern {
		if !keep(pos) {
			continue
		}
		if f.sel.Len() < k {
			heap.Push(&f.sel, pos)
			continue
		}
		if math.Abs(f.w[pos]) > math.Abs(f.w[f.sel.pos[0]]) {
			f.sel.pos[0] = pos
			heap.Fix(&f.sel, 0)
		}
	}
	return f.sel.Len()
}

// Approximate implements the krylov.Preconditioner interface.
func (p *ILUTP) Approximate(dst, rhs []float64) error {
	if !p.ok {
		return krylov.ErrNotInitialized
	}
	if len(dst) != p.n || len(rhs) != p.n {
		return krylov.ErrLength
	}
	// Solve L y = rhs.
	y := p.work
	for i := 0; i < p.n; i++ {
		v := rhs[i]
		for k := p.lptr[i]; k < p.lptr[i+1]; k++ {
			v -= p.lval[k] * y[p.lind[k]]
		}
		y[i] = v
	}
	// Solve U z = y and store x = Q z.
	for i := p.n - 1; i >= 0; i-- {
		v := y[i]
		for k := p.uptr[i]; k < p.uptr[i+1]; k++ {
			v -= p.uval[k] * dst[p.uind[k]]
		}
		dst[p.perm[i]] = v / p.udia[i]
	}
	return nil
}

// intHeap is a min-heap of positions.
type intHeap []int

func (h intHeap) Len() int           { return len(h) }
func (h intHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h intHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *intHeap) Push(x any)        { *h = append(*h, x.(int)) }
func (h *intHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// magnitudeHeap is a min-heap of positions ordered by the magnitude of w.
type magnitudeHeap struct {
	pos []int
	w   []float64
}

func (h magnitudeHeap) Len() int { return len(h.pos) }
func (h magnitudeHeap) Less(i, j int) bool {
	return math.Abs(h.w[h.pos[i]]) < math.Abs(h.w[h.pos[j]])
}
func (h magnitudeHeap) Swap(i, j int) { h.pos[i], h.pos[j] = h.pos[j], h.pos[i] }
func (h *magnitudeHeap) Push(x any)   { h.pos = append(h.pos, x.(int)) }
func (h *magnitudeHeap) Pop() any {
	n := len(h.pos)
	x := h.pos[n-1]
	h.pos = h.pos[:n-1]
	return x
}

func reuseFloats(v []float64, n int) []float64 {
	if cap(v) < n {
		return make([]float64, n)
	}
	return v[:n]
}

func reuseInts(v []int, n int) []int {
	if cap(v) < n {
		return make([]int, n)
	}
	return v[:n]
}
