package erasure

import "errors"

// ErrSingularMatrix is returned when a selected set of rows does not form
// an invertible K x K matrix. For the Cauchy-based generator used here this
// cannot happen for any K distinct row indices (every square submatrix of
// a Cauchy matrix, and of the identity rows mixed with it, is invertible);
// it is retained as a sanity check per spec §7's "node-level invariant
// violation is fatal" rule.
var ErrSingularMatrix = errors.New("erasure: singular generator submatrix")

// matrix is a dense row-major matrix of GF(2^16) elements.
type matrix struct {
	rows, cols int
	data       []uint16
}

func newMatrix(rows, cols int) *matrix {
	return &matrix{rows: rows, cols: cols, data: make([]uint16, rows*cols)}
}

func (m *matrix) at(r, c int) uint16     { return m.data[r*m.cols+c] }
func (m *matrix) set(r, c int, v uint16) { m.data[r*m.cols+c] = v }

// identityRow returns the K-length unit row vector e_j.
func identityRow(k, j int) []uint16 {
	row := make([]uint16, k)
	row[j] = 1
	return row
}

// cauchyRow returns row i of the (N-K) x K Cauchy parity matrix: entry j is
// 1/(x_i + y_j) for the fixed point sets used by this package (see
// NewCodec).
func cauchyRow(x uint16, ys []uint16) []uint16 {
	row := make([]uint16, len(ys))
	for j, y := range ys {
		row[j] = gfInv(gfAdd(x, y))
	}
	return row
}

// invert computes m^-1 via Gauss-Jordan elimination with partial pivoting
// over GF(2^16). m must be square. Returns ErrSingularMatrix if no pivot is
// found in some column (should not occur for rows drawn from this
// package's generator, see ErrSingularMatrix).
func invert(m *matrix) (*matrix, error) {
	n := m.rows
	aug := newMatrix(n, 2*n)
	for r := 0; r < n; r++ {
		copy(aug.data[r*aug.cols:r*aug.cols+n], m.data[r*m.cols:r*m.cols+n])
		aug.set(r, n+r, 1)
	}

	for col := 0; col < n; col++ {
		pivot := -1
		for r := col; r < n; r++ {
			if aug.at(r, col) != 0 {
				pivot = r
				break
			}
		}
		if pivot == -1 {
			return nil, ErrSingularMatrix
		}
		if pivot != col {
			swapRows(aug, pivot, col)
		}
		inv := gfInv(aug.at(col, col))
		scaleRow(aug, col, inv)
		for r := 0; r < n; r++ {
			if r == col {
				continue
			}
			factor := aug.at(r, col)
			if factor == 0 {
				continue
			}
			addScaledRow(aug, r, col, factor)
		}
	}

	out := newMatrix(n, n)
	for r := 0; r < n; r++ {
		copy(out.data[r*n:r*n+n], aug.data[r*aug.cols+n:r*aug.cols+2*n])
	}
	return out, nil
}

func swapRows(m *matrix, a, b int) {
	ra := m.data[a*m.cols : a*m.cols+m.cols]
	rb := m.data[b*m.cols : b*m.cols+m.cols]
	for i := range ra {
		ra[i], rb[i] = rb[i], ra[i]
	}
}

func scaleRow(m *matrix, r int, factor uint16) {
	row := m.data[r*m.cols : r*m.cols+m.cols]
	for i := range row {
		row[i] = gfMul(row[i], factor)
	}
}

// addScaledRow performs row[r] ^= factor * row[src] (in GF(2^16), "add" is
// XOR, so this is the usual elimination step row[r] -= factor*row[src]).
func addScaledRow(m *matrix, r, src int, factor uint16) {
	dst := m.data[r*m.cols : r*m.cols+m.cols]
	source := m.data[src*m.cols : src*m.cols+m.cols]
	for i := range dst {
		dst[i] = gfAdd(dst[i], gfMul(factor, source[i]))
	}
}

// mulVec computes m * v for a dense matrix and a column vector of matching
// length, over GF(2^16).
func mulVec(m *matrix, v []uint16) []uint16 {
	out := make([]uint16, m.rows)
	for r := 0; r < m.rows; r++ {
		var acc uint16
		base := r * m.cols
		for c := 0; c < m.cols; c++ {
			acc = gfAdd(acc, gfMul(m.data[base+c], v[c]))
		}
		out[r] = acc
	}
	return out
}
