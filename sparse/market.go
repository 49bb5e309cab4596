// Copyright ©2017 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sparse

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrFormat is returned by ReadMatrixMarket for input that is not a supported
// Matrix Market file.
var ErrFormat = errors.New("sparse: unsupported matrix market format")

// ReadMatrixMarket reads a sparse matrix in Matrix Market coordinate format.
// Supported fields are real and integer, supported symmetry types are
// general, symmetric and skew-symmetric. Symmetric storage is expanded so the
// returned matrix holds both triangles.
func ReadMatrixMarket(r io.Reader) (*COO, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: empty input", ErrFormat)
	}
	header := strings.Fields(strings.ToLower(sc.Text()))
	if len(header) != 5 || header[0] != "%%matrixmarket" || header[1] != "matrix" {
		return nil, fmt.Errorf("%w: bad header %q", ErrFormat, sc.Text())
	}
	if header[2] != "coordinate" {
		return nil, fmt.Errorf("%w: %s storage", ErrFormat, header[2])
	}
	if header[3] != "real" && header[3] != "integer" {
		return nil, fmt.Errorf("%w: %s field", ErrFormat, header[3])
	}
	var sign float64
	switch header[4] {
	case "general":
	case "symmetric":
		sign = 1
	case "skew-symmetric":
		sign = -1
	default:
		return nil, fmt.Errorf("%w: %s symmetry", ErrFormat, header[4])
	}

	var (
		m    *COO
		nnz  int
		line = 1
	)
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || text[0] == '%' {
			continue
		}
		fields := strings.Fields(text)
		if m == nil {
			if len(fields) != 3 {
				return nil, fmt.Errorf("sparse: line %d: bad size line", line)
			}
			var dims [3]int
			for k, f := range fields {
				v, err := strconv.Atoi(f)
				if err != nil || v < 0 {
					return nil, fmt.Errorf("sparse: line %d: bad size %q", line, f)
				}
				dims[k] = v
			}
			if !fitsEntries(dims[0], dims[1], dims[2]) {
				return nil, fmt.Errorf("%w: line %d: %d entries in a %d×%d matrix", ErrFormat, line, dims[2], dims[0], dims[1])
			}
			m = NewCOO(dims[0], dims[1])
			nnz = dims[2]
			m.data = make([]triplet, 0, min(nnz, maxPrealloc))
			continue
		}
		if len(fields) != 3 {
			return nil, fmt.Errorf("sparse: line %d: bad entry", line)
		}
		i, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("sparse: line %d: %w", line, err)
		}
		j, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("sparse: line %d: %w", line, err)
		}
		v, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return nil, fmt.Errorf("sparse: line %d: %w", line, err)
		}
		i--
		j--
		if i < 0 || m.r <= i || j < 0 || m.c <= j {
			return nil, fmt.Errorf("sparse: line %d: index (%d,%d) out of range", line, i+1, j+1)
		}
		m.Append(i, j, v)
		if sign != 0 && i != j {
			m.Append(j, i, sign*v)
		}
		nnz--
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("%w: missing size line", ErrFormat)
	}
	if nnz != 0 {
		return nil, fmt.Errorf("sparse: entry count mismatch, %d missing", nnz)
	}
	return m, nil
}

// maxPrealloc limits the storage reserved from the entry count of the size
// line. Larger inputs grow as entries are read.
const maxPrealloc = 1 << 20

// fitsEntries reports whether an r×c matrix can hold nnz distinct entries.
func fitsEntries(r, c, nnz int) bool {
	if r == 0 || c == 0 {
		return nnz == 0
	}
	return nnz/c < r || (nnz/c == r && nnz%c == 0)
}
