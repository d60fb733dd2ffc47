package geom

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrInvalidMatrix         = errors.New("invalid matrix")
	ErrInvalidMultiplication = errors.New("invalid multiplication")
	ErrInvalidAddition       = errors.New("invalid addition")
	ErrSingularMatrix        = errors.New("singular matrix")
	ErrNotRenderable         = errors.New("matrix not renderable")
)

// singularEps is the pivot magnitude below which a matrix counts as singular.
const singularEps = 1e-12

// Matrix is a general rows×cols numeric matrix. Operations never mutate the
// receiver; every transform-changing call returns a fresh Matrix.
type Matrix struct {
	rows, cols int
	m          [][]float64
}

// NewMatrix validates and copies rows into a Matrix. All rows must have the
// same, non-zero length.
func NewMatrix(rows [][]float64) (*Matrix, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no rows", ErrInvalidMatrix)
	}
	cols := len(rows[0])
	if cols == 0 {
		return nil, fmt.Errorf("%w: no columns", ErrInvalidMatrix)
	}

	m := make([][]float64, len(rows))
	for i, r := range rows {
		if len(r) != cols {
			return nil, fmt.Errorf("%w: row %d has %d columns, want %d", ErrInvalidMatrix, i, len(r), cols)
		}
		m[i] = append([]float64(nil), r...)
	}
	return &Matrix{rows: len(rows), cols: cols, m: m}, nil
}

// MustMatrix is like NewMatrix but panics on malformed input.
func MustMatrix(rows [][]float64) *Matrix {
	m, err := NewMatrix(rows)
	if err != nil {
		panic(err)
	}
	return m
}

// Identity returns the n×n identity matrix.
func Identity(n int) *Matrix {
	m := make([][]float64, n)
	for i := range m {
		m[i] = make([]float64, n)
		m[i][i] = 1
	}
	return &Matrix{rows: n, cols: n, m: m}
}

func zeros(rows, cols int) *Matrix {
	m := make([][]float64, rows)
	for i := range m {
		m[i] = make([]float64, cols)
	}
	return &Matrix{rows: rows, cols: cols, m: m}
}

// Dim returns the number of rows and columns.
func (a *Matrix) Dim() (rows, cols int) {
	return a.rows, a.cols
}

// At returns the entry at row r, column c.
func (a *Matrix) At(r, c int) float64 {
	return a.m[r][c]
}

// Rows returns a copy of the entries.
func (a *Matrix) Rows() [][]float64 {
	out := make([][]float64, a.rows)
	for i, r := range a.m {
		out[i] = append([]float64(nil), r...)
	}
	return out
}

func (a *Matrix) clone() *Matrix {
	return &Matrix{rows: a.rows, cols: a.cols, m: a.Rows()}
}

// Mul returns the product a×b.
func (a *Matrix) Mul(b *Matrix) (*Matrix, error) {
	if a.cols != b.rows {
		return nil, fmt.Errorf("%w: cannot multiply a %dx%d matrix with a %dx%d matrix",
			ErrInvalidMultiplication, a.rows, a.cols, b.rows, b.cols)
	}

	res := zeros(a.rows, b.cols)
	for i := 0; i < a.rows; i++ {
		for k := 0; k < a.cols; k++ {
			v := a.m[i][k]
			if v == 0 {
				continue
			}
			for j := 0; j < b.cols; j++ {
				res.m[i][j] += v * b.m[k][j]
			}
		}
	}
	return res, nil
}

// Add returns the element-wise sum a+b.
func (a *Matrix) Add(b *Matrix) (*Matrix, error) {
	if a.rows != b.rows || a.cols != b.cols {
		return nil, fmt.Errorf("%w: cannot add a %dx%d matrix with a %dx%d matrix",
			ErrInvalidAddition, a.rows, a.cols, b.rows, b.cols)
	}

	res := zeros(a.rows, a.cols)
	for i := range res.m {
		for j := range res.m[i] {
			res.m[i][j] = a.m[i][j] + b.m[i][j]
		}
	}
	return res, nil
}

// Inverse computes the inverse by Gauss-Jordan elimination with partial
// pivoting.
func (a *Matrix) Inverse() (*Matrix, error) {
	if a.rows != a.cols {
		return nil, fmt.Errorf("%w: a %dx%d matrix has no inverse", ErrInvalidMatrix, a.rows, a.cols)
	}

	n := a.rows
	work := a.Rows()
	inv := Identity(n).m

	for col := 0; col < n; col++ {
		pivot := col
		for r := col + 1; r < n; r++ {
			if math.Abs(work[r][col]) > math.Abs(work[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(work[pivot][col]) < singularEps {
			return nil, fmt.Errorf("%w: %dx%d", ErrSingularMatrix, n, n)
		}
		work[col], work[pivot] = work[pivot], work[col]
		inv[col], inv[pivot] = inv[pivot], inv[col]

		div := work[col][col]
		for j := 0; j < n; j++ {
			work[col][j] /= div
			inv[col][j] /= div
		}

		for r := 0; r < n; r++ {
			if r == col {
				continue
			}
			f := work[r][col]
			if f == 0 {
				continue
			}
			for j := 0; j < n; j++ {
				work[r][j] -= f * work[col][j]
				inv[r][j] -= f * inv[col][j]
			}
		}
	}

	return &Matrix{rows: n, cols: n, m: inv}, nil
}

// Scale multiplies the horizontal [0][0] entry by h and the vertical [1][1]
// entry by v. Non-positive factors leave that axis unchanged.
func (a *Matrix) Scale(v, h float64) *Matrix {
	res := a.clone()
	if h > 0 && a.cols > 0 {
		res.m[0][0] *= h
	}
	if v > 0 && a.rows > 1 && a.cols > 1 {
		res.m[1][1] *= v
	}
	return res
}

// Rotate composes a rotation by degrees onto the top-left 2×2 block, so a
// scale already present is applied before the rotation.
func (a *Matrix) Rotate(degrees float64) *Matrix {
	res := a.clone()
	if a.rows < 2 || a.cols < 2 {
		return res
	}

	rad := degrees * math.Pi / 180.0
	cos, sin := math.Cos(rad), math.Sin(rad)

	b00, b01 := a.m[0][0], a.m[0][1]
	b10, b11 := a.m[1][0], a.m[1][1]
	res.m[0][0] = cos*b00 - sin*b10
	res.m[0][1] = cos*b01 - sin*b11
	res.m[1][0] = sin*b00 + cos*b10
	res.m[1][1] = sin*b01 + cos*b11
	return res
}

// ToCtxInterp extracts the (a, b, c, d, e, f) affine form consumed by a 2D
// rendering context. Only 2x3 and 3x3 matrices qualify.
func (a *Matrix) ToCtxInterp() (Affine, error) {
	if (a.rows != 2 && a.rows != 3) || a.cols != 3 {
		return Affine{}, fmt.Errorf("%w: a %dx%d matrix cannot be converted, a 2x3 or 3x3 matrix is required",
			ErrNotRenderable, a.rows, a.cols)
	}
	r0, r1 := a.m[0], a.m[1]
	return Affine{r0[0], r1[0], r0[1], r1[1], r0[2], r1[2]}, nil
}

// Equal reports whether a and b have the same shape and all entries lie
// within tol of each other.
func (a *Matrix) Equal(b *Matrix, tol float64) bool {
	if a.rows != b.rows || a.cols != b.cols {
		return false
	}
	for i := range a.m {
		for j := range a.m[i] {
			if math.Abs(a.m[i][j]-b.m[i][j]) > tol {
				return false
			}
		}
	}
	return true
}

func (a *Matrix) String() string {
	return fmt.Sprintf("%v", a.m)
}
