package quantum

import (
	"fmt"
)

// Encode flattens a complex matrix into a real feature vector: the row-major
// flattened real part followed by the row-major flattened imaginary part.
// The result has length 2 * rows * cols.
func Encode(m *Matrix) []float64 {
	features := make([]float64, 2*m.Rows*m.Cols)
	half := m.Rows * m.Cols
	for i := 0; i < m.Rows; i++ {
		for j := 0; j < m.Cols; j++ {
			features[i*m.Cols+j] = real(m.Data[i][j])
			features[half+i*m.Cols+j] = imag(m.Data[i][j])
		}
	}
	return features
}

// Decode is the exact inverse of Encode: the first half of the vector is the
// real part, the second half the imaginary part, each reshaped row-major into
// rows x cols. Decode(Encode(m)) reproduces m bit for bit.
func Decode(features []float64, rows, cols int) (*Matrix, error) {
	if len(features) != 2*rows*cols {
		return nil, fmt.Errorf("feature vector length %d doesn't match shape %dx%d (want %d)",
			len(features), rows, cols, 2*rows*cols)
	}

	m, err := NewMatrix(rows, cols)
	if err != nil {
		return nil, err
	}

	half := rows * cols
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			m.Data[i][j] = complex(features[i*cols+j], features[half+i*cols+j])
		}
	}

	return m, nil
}
