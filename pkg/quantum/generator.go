package quantum

import (
	"fmt"
	"math/rand"
)

// DefaultMaxAttempts bounds the rejection sampler for entangled states.
const DefaultMaxAttempts = 10000

// Generator produces random separable and entangled two-qubit states. It
// consumes an injected random source; seeding policy belongs to the caller.
type Generator struct {
	MaxAttempts int
	rng         *rand.Rand
}

// NewGenerator creates a generator backed by the given random source
func NewGenerator(rng *rand.Rand) (*Generator, error) {
	if rng == nil {
		return nil, fmt.Errorf("random source cannot be nil")
	}

	return &Generator{
		MaxAttempts: DefaultMaxAttempts,
		rng:         rng,
	}, nil
}

// HermitianProductState builds a random size x size density matrix
// M = A * A^dagger with uniform random real and imaginary entries in [0,1),
// normalized by its trace. The result is Hermitian, positive-semidefinite
// and has trace 1.
func (g *Generator) HermitianProductState(size int) (*Matrix, error) {
	a, err := NewMatrix(size, size)
	if err != nil {
		return nil, fmt.Errorf("product state construction failed: %w", err)
	}

	for i := 0; i < size; i++ {
		for j := 0; j < size; j++ {
			a.Data[i][j] = complex(g.rng.Float64(), g.rng.Float64())
		}
	}

	state, err := Mul(a, a.ConjTranspose())
	if err != nil {
		return nil, fmt.Errorf("product state construction failed: %w", err)
	}

	tr, err := state.Trace()
	if err != nil {
		return nil, fmt.Errorf("product state construction failed: %w", err)
	}

	return state.Scale(1 / tr), nil
}

// Coefficients draws n non-negative mixing coefficients that sum to 1
func (g *Generator) Coefficients(n int) ([]float64, error) {
	if n <= 0 {
		return nil, fmt.Errorf("coefficient count must be positive, got %d", n)
	}

	coeffs := make([]float64, n)
	sum := 0.0
	for i := range coeffs {
		coeffs[i] = g.rng.Float64()
		sum += coeffs[i]
	}
	for i := range coeffs {
		coeffs[i] /= sum
	}

	return coeffs, nil
}

// SeparableState returns a random separable 4x4 two-qubit state: a convex
// combination of nMatrices Kronecker products of single-qubit product states,
// sum_i c_i * (rhoA_i (x) rhoB_i).
func (g *Generator) SeparableState(nMatrices int) (*Matrix, error) {
	if nMatrices <= 0 {
		return nil, fmt.Errorf("mixing matrix count must be positive, got %d", nMatrices)
	}

	coeffs, err := g.Coefficients(nMatrices)
	if err != nil {
		return nil, err
	}

	state := MustNewMatrix(4, 4)
	for i := 0; i < nMatrices; i++ {
		rhoA, err := g.HermitianProductState(2)
		if err != nil {
			return nil, fmt.Errorf("separable state subsystem A: %w", err)
		}
		rhoB, err := g.HermitianProductState(2)
		if err != nil {
			return nil, fmt.Errorf("separable state subsystem B: %w", err)
		}

		product, err := Kron(rhoA, rhoB)
		if err != nil {
			return nil, fmt.Errorf("separable state tensor product: %w", err)
		}

		state, err = Add(state, product.Scale(complex(coeffs[i], 0)))
		if err != nil {
			return nil, fmt.Errorf("separable state mixture: %w", err)
		}
	}

	return state, nil
}

// EntangledState rejection-samples a 4x4 matrix the entanglement test
// accepts. Candidates are raw uniform random real matrices with entries in
// [0,1); they are not Hermitized or trace-normalized before the test. The
// sampler gives up after MaxAttempts draws.
func (g *Generator) EntangledState(tol float64) (*Matrix, error) {
	maxAttempts := g.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		candidate := MustNewMatrix(4, 4)
		for i := 0; i < 4; i++ {
			for j := 0; j < 4; j++ {
				candidate.Data[i][j] = complex(g.rng.Float64(), 0)
			}
		}

		entangled, err := IsEntangled(candidate, tol)
		if err != nil {
			return nil, fmt.Errorf("entangled state sampling: %w", err)
		}
		if entangled {
			return candidate, nil
		}
	}

	return nil, fmt.Errorf("no entangled state found after %d attempts", maxAttempts)
}
