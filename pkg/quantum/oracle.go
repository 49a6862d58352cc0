package quantum

import (
	"fmt"
)

// DefaultEigTolerance is the default negativity tolerance for the partial
// transpose eigenvalue test. Eigenvalues computed in floating point can pick
// up a negligible negative real part from rounding, so the test requires an
// eigenvalue real part below -tolerance before calling a state entangled.
const DefaultEigTolerance = 1e-9

// PartialTransposeB transposes the second-qubit subsystem of a 4x4 two-qubit
// operator: each 2x2 block rho[2i:2i+2, 2j:2j+2] is transposed in place.
func PartialTransposeB(rho *Matrix) (*Matrix, error) {
	if rho == nil {
		return nil, fmt.Errorf("cannot partially transpose nil matrix")
	}

	if rho.Rows != 4 || rho.Cols != 4 {
		return nil, fmt.Errorf("partial transpose requires a 4x4 matrix, got %dx%d", rho.Rows, rho.Cols)
	}

	result := MustNewMatrix(4, 4)
	for bi := 0; bi < 2; bi++ {
		for bj := 0; bj < 2; bj++ {
			for k := 0; k < 2; k++ {
				for l := 0; l < 2; l++ {
					result.Data[2*bi+k][2*bj+l] = rho.Data[2*bi+l][2*bj+k]
				}
			}
		}
	}

	return result, nil
}

// IsEntangled applies the Peres-Horodecki (PPT) criterion to a 4x4 two-qubit
// operator: the state is entangled iff its partial transpose has an
// eigenvalue whose real part is below -tol. For 2x2 subsystems the criterion
// is both necessary and sufficient.
//
// The input is not required to be Hermitian or trace-normalized; the raw
// candidate matrices from the entangled-state sampler are fed in directly,
// which is why the test reads eigenvalue real parts rather than assuming a
// real spectrum.
func IsEntangled(rho *Matrix, tol float64) (bool, error) {
	if rho == nil {
		return false, fmt.Errorf("cannot test nil matrix for entanglement")
	}

	if rho.Rows != 4 || rho.Cols != 4 {
		return false, fmt.Errorf("entanglement test requires a 4x4 matrix, got %dx%d", rho.Rows, rho.Cols)
	}

	partial, err := PartialTransposeB(rho)
	if err != nil {
		return false, fmt.Errorf("partial transpose failed: %w", err)
	}

	minRe, err := partial.MinEigRealPart()
	if err != nil {
		return false, fmt.Errorf("eigenvalue check failed: %w", err)
	}

	return minRe < -tol, nil
}
