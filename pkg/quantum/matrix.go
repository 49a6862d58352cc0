package quantum

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"
)

// Matrix represents a dense complex matrix. Density matrices, partial
// transposes and Kronecker factors are all carried in this type.
type Matrix struct {
	Rows int
	Cols int
	Data [][]complex128
}

// NewMatrix creates a zero matrix with the specified dimensions
func NewMatrix(rows, cols int) (*Matrix, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("invalid matrix dimensions: rows=%d, cols=%d (must be positive)", rows, cols)
	}

	data := make([][]complex128, rows)
	for i := range data {
		data[i] = make([]complex128, cols)
	}

	return &Matrix{
		Rows: rows,
		Cols: cols,
		Data: data,
	}, nil
}

// MustNewMatrix creates a zero matrix with the specified dimensions
// Panics if dimensions are invalid (use in non-production code only)
func MustNewMatrix(rows, cols int) *Matrix {
	m, err := NewMatrix(rows, cols)
	if err != nil {
		panic(err)
	}
	return m
}

// Identity returns the n x n identity matrix
func Identity(n int) *Matrix {
	m := MustNewMatrix(n, n)
	for i := 0; i < n; i++ {
		m.Data[i][i] = 1
	}
	return m
}

// Clone creates a deep copy of the matrix
func (m *Matrix) Clone() *Matrix {
	clone := MustNewMatrix(m.Rows, m.Cols)
	for i := 0; i < m.Rows; i++ {
		copy(clone.Data[i], m.Data[i])
	}
	return clone
}

// Mul performs matrix multiplication
func Mul(a, b *Matrix) (*Matrix, error) {
	if a == nil || b == nil {
		return nil, fmt.Errorf("cannot multiply nil matrices")
	}

	if a.Cols != b.Rows {
		return nil, fmt.Errorf("matrix dimensions don't match for multiplication: a(%dx%d), b(%dx%d)",
			a.Rows, a.Cols, b.Rows, b.Cols)
	}

	result, err := NewMatrix(a.Rows, b.Cols)
	if err != nil {
		return nil, err
	}

	for i := 0; i < a.Rows; i++ {
		for j := 0; j < b.Cols; j++ {
			var sum complex128
			for k := 0; k < a.Cols; k++ {
				sum += a.Data[i][k] * b.Data[k][j]
			}
			result.Data[i][j] = sum
		}
	}

	return result, nil
}

// MustMul performs matrix multiplication
// Panics if an error occurs (use in non-production code only)
func MustMul(a, b *Matrix) *Matrix {
	result, err := Mul(a, b)
	if err != nil {
		panic(err)
	}
	return result
}

// Add adds two matrices element-wise
func Add(a, b *Matrix) (*Matrix, error) {
	if a == nil || b == nil {
		return nil, fmt.Errorf("cannot add nil matrices")
	}

	if a.Rows != b.Rows || a.Cols != b.Cols {
		return nil, fmt.Errorf("matrix dimensions don't match for addition: a(%dx%d), b(%dx%d)",
			a.Rows, a.Cols, b.Rows, b.Cols)
	}

	result, err := NewMatrix(a.Rows, a.Cols)
	if err != nil {
		return nil, err
	}

	for i := 0; i < a.Rows; i++ {
		for j := 0; j < a.Cols; j++ {
			result.Data[i][j] = a.Data[i][j] + b.Data[i][j]
		}
	}

	return result, nil
}

// Scale multiplies all elements of the matrix by a scalar value
func (m *Matrix) Scale(scalar complex128) *Matrix {
	result := MustNewMatrix(m.Rows, m.Cols)
	for i := 0; i < m.Rows; i++ {
		for j := 0; j < m.Cols; j++ {
			result.Data[i][j] = m.Data[i][j] * scalar
		}
	}
	return result
}

// Transpose returns the plain (non-conjugate) transpose of the matrix
func (m *Matrix) Transpose() *Matrix {
	result := MustNewMatrix(m.Cols, m.Rows)
	for i := 0; i < m.Rows; i++ {
		for j := 0; j < m.Cols; j++ {
			result.Data[j][i] = m.Data[i][j]
		}
	}
	return result
}

// ConjTranspose returns the conjugate transpose (dagger) of the matrix
func (m *Matrix) ConjTranspose() *Matrix {
	result := MustNewMatrix(m.Cols, m.Rows)
	for i := 0; i < m.Rows; i++ {
		for j := 0; j < m.Cols; j++ {
			result.Data[j][i] = cmplx.Conj(m.Data[i][j])
		}
	}
	return result
}

// Trace returns the sum of the diagonal elements
func (m *Matrix) Trace() (complex128, error) {
	if m.Rows != m.Cols {
		return 0, fmt.Errorf("trace requires a square matrix, got %dx%d", m.Rows, m.Cols)
	}

	var tr complex128
	for i := 0; i < m.Rows; i++ {
		tr += m.Data[i][i]
	}

	return tr, nil
}

// Kron computes the Kronecker (tensor) product of two matrices
func Kron(a, b *Matrix) (*Matrix, error) {
	if a == nil || b == nil {
		return nil, fmt.Errorf("cannot compute Kronecker product of nil matrices")
	}

	result, err := NewMatrix(a.Rows*b.Rows, a.Cols*b.Cols)
	if err != nil {
		return nil, err
	}

	for i := 0; i < a.Rows; i++ {
		for j := 0; j < a.Cols; j++ {
			for k := 0; k < b.Rows; k++ {
				for l := 0; l < b.Cols; l++ {
					result.Data[i*b.Rows+k][j*b.Cols+l] = a.Data[i][j] * b.Data[k][l]
				}
			}
		}
	}

	return result, nil
}

// MustKron computes the Kronecker product
// Panics if an error occurs (use in non-production code only)
func MustKron(a, b *Matrix) *Matrix {
	result, err := Kron(a, b)
	if err != nil {
		panic(err)
	}
	return result
}

// IsHermitian reports whether the matrix equals its conjugate transpose
// within the given tolerance
func (m *Matrix) IsHermitian(tol float64) bool {
	if m.Rows != m.Cols {
		return false
	}

	for i := 0; i < m.Rows; i++ {
		for j := 0; j < m.Cols; j++ {
			if cmplx.Abs(m.Data[i][j]-cmplx.Conj(m.Data[j][i])) > tol {
				return false
			}
		}
	}

	return true
}

// Equal checks if two matrices are equal (same dimensions and values)
func Equal(a, b *Matrix, epsilon float64) bool {
	if a == nil || b == nil || a.Rows != b.Rows || a.Cols != b.Cols {
		return false
	}

	for i := 0; i < a.Rows; i++ {
		for j := 0; j < a.Cols; j++ {
			if cmplx.Abs(a.Data[i][j]-b.Data[i][j]) > epsilon {
				return false
			}
		}
	}

	return true
}

// MinEigRealPart returns the smallest real part among the eigenvalues of the
// matrix. The matrix is embedded as the real 2n x 2n block matrix
// [[Re, -Im], [Im, Re]], whose spectrum is eig(M) together with its complex
// conjugates, so the set of real parts is unchanged.
func (m *Matrix) MinEigRealPart() (float64, error) {
	if m.Rows != m.Cols {
		return 0, fmt.Errorf("eigenvalues require a square matrix, got %dx%d", m.Rows, m.Cols)
	}

	n := m.Rows
	embedding := mat.NewDense(2*n, 2*n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			re := real(m.Data[i][j])
			im := imag(m.Data[i][j])
			embedding.Set(i, j, re)
			embedding.Set(i, j+n, -im)
			embedding.Set(i+n, j, im)
			embedding.Set(i+n, j+n, re)
		}
	}

	var eig mat.Eigen
	if ok := eig.Factorize(embedding, mat.EigenNone); !ok {
		return 0, fmt.Errorf("eigenvalue factorization failed for %dx%d matrix", m.Rows, m.Cols)
	}

	minRe := math.Inf(1)
	for _, v := range eig.Values(nil) {
		if real(v) < minRe {
			minRe = real(v)
		}
	}

	return minRe, nil
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
			result += fmt.Sprintf("%.4f%+.4fi", real(m.Data[i][j]), imag(m.Data[i][j]))
		}
		result += "]\n"
	}

	return result
}
