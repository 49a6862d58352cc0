package autodiff

import (
	"fmt"
	"math"
	"math/rand"
)

// Matrix represents a 2D matrix of float64 values
type Matrix struct {
	Rows int
	Cols int
	Data [][]float64
}

// NewMatrix creates a new matrix with the specified dimensions
func NewMatrix(rows, cols int) (*Matrix, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("invalid matrix dimensions: rows=%d, cols=%d (must be positive)", rows, cols)
	}

	data := make([][]float64, rows)
	for i := range data {
		data[i] = make([]float64, cols)
	}

	return &Matrix{
		Rows: rows,
		Cols: cols,
		Data: data,
	}, nil
}

// MustNewMatrix creates a new matrix with the specified dimensions
// Panics if dimensions are invalid (use in non-production code only)
func MustNewMatrix(rows, cols int) *Matrix {
	m, err := NewMatrix(rows, cols)
	if err != nil {
		panic(err)
	}
	return m
}

// NewMatrixFromRows creates a matrix backed by a copy of the given rows.
// Every row must have the same length.
func NewMatrixFromRows(rows [][]float64) (*Matrix, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("cannot build matrix from empty rows")
	}

	m, err := NewMatrix(len(rows), len(rows[0]))
	if err != nil {
		return nil, err
	}

	for i, row := range rows {
		if len(row) != m.Cols {
			return nil, fmt.Errorf("row %d has length %d, want %d", i, len(row), m.Cols)
		}
		copy(m.Data[i], row)
	}

	return m, nil
}

// NewRandomMatrix creates a new matrix with random values drawn from the
// given source. Values are kept small for training stability.
func NewRandomMatrix(rows, cols int, rng *rand.Rand) (*Matrix, error) {
	if rng == nil {
		return nil, fmt.Errorf("random source cannot be nil")
	}

	m, err := NewMatrix(rows, cols)
	if err != nil {
		return nil, err
	}

	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			m.Data[i][j] = rng.Float64()*0.2 - 0.1
		}
	}

	return m, nil
}

// Clone creates a deep copy of the matrix
func (m *Matrix) Clone() *Matrix {
	clone := MustNewMatrix(m.Rows, m.Cols)
	for i := 0; i < m.Rows; i++ {
		copy(clone.Data[i], m.Data[i])
	}
	return clone
}

// Zero sets every element of the matrix to zero
func (m *Matrix) Zero() {
	for i := 0; i < m.Rows; i++ {
		for j := 0; j < m.Cols; j++ {
			m.Data[i][j] = 0
		}
	}
}

// Equal checks if two matrices are equal (same dimensions and values)
func Equal(a, b *Matrix, epsilon float64) bool {
	if a == nil || b == nil || a.Rows != b.Rows || a.Cols != b.Cols {
		return false
	}

	for i := 0; i < a.Rows; i++ {
		for j := 0; j < a.Cols; j++ {
			if math.Abs(a.Data[i][j]-b.Data[i][j]) > epsilon {
				return false
			}
		}
	}

	return true
}

// String returns a string representation of the matrix
func (m *Matrix) String() string {
	if m == nil {
		return "nil"
	}

	result := fmt.Sprintf("Matrix(%dx%d):\n", m.Rows, m.Cols)
	for i := 0; i < m.Rows; i++ {
		result += "["
		for j := 0; j < m.Cols; j++ {
			if j > 0 {
				result += ", "
			}
			result += fmt.Sprintf("%.4f", m.Data[i][j])
		}
		result += "]\n"
	}

	return result
}
