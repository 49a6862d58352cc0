package quantum

import (
	"math/cmplx"
	"math/rand"
	"testing"
)

func newTestGenerator(t *testing.T, seed int64) *Generator {
	t.Helper()
	gen, err := NewGenerator(rand.New(rand.NewSource(seed)))
	if err != nil {
		t.Fatalf("NewGenerator failed: %v", err)
	}
	return gen
}

func TestNewGeneratorRequiresRandomSource(t *testing.T) {
	if _, err := NewGenerator(nil); err == nil {
		t.Errorf("Expected error for nil random source, got nil")
	}
}

func TestHermitianProductStateInvariants(t *testing.T) {
	gen := newTestGenerator(t, 1)

	for i := 0; i < 50; i++ {
		state, err := gen.HermitianProductState(2)
		if err != nil {
			t.Fatalf("HermitianProductState failed: %v", err)
		}

		tr, err := state.Trace()
		if err != nil {
			t.Fatalf("Trace failed: %v", err)
		}
		if cmplx.Abs(tr-1) > 1e-9 {
			t.Errorf("State %d: trace = %v, want 1", i, tr)
		}

		if !state.IsHermitian(1e-9) {
			t.Errorf("State %d is not Hermitian", i)
		}
	}
}

func TestSeparableStateInvariants(t *testing.T) {
	gen := newTestGenerator(t, 2)

	for i := 0; i < 30; i++ {
		state, err := gen.SeparableState(10)
		if err != nil {
			t.Fatalf("SeparableState failed: %v", err)
		}

		if state.Rows != 4 || state.Cols != 4 {
			t.Fatalf("State %d: expected 4x4, got %dx%d", i, state.Rows, state.Cols)
		}

		tr, err := state.Trace()
		if err != nil {
			t.Fatalf("Trace failed: %v", err)
		}
		if cmplx.Abs(tr-1) > 1e-9 {
			t.Errorf("State %d: trace = %v, want 1", i, tr)
		}

		// A convex combination of product states must pass the PPT test.
		entangled, err := IsEntangled(state, DefaultEigTolerance)
		if err != nil {
			t.Fatalf("IsEntangled failed: %v", err)
		}
		if entangled {
			t.Errorf("State %d: separable construction classified entangled (generator defect)", i)
		}
	}
}

func TestCoefficientsSumToOne(t *testing.T) {
	gen := newTestGenerator(t, 3)

	coeffs, err := gen.Coefficients(10)
	if err != nil {
		t.Fatalf("Coefficients failed: %v", err)
	}

	sum := 0.0
	for _, c := range coeffs {
		if c < 0 {
			t.Errorf("Negative mixing coefficient %v", c)
		}
		sum += c
	}
	if sum < 1-1e-9 || sum > 1+1e-9 {
		t.Errorf("Coefficients sum to %v, want 1", sum)
	}

	if _, err := gen.Coefficients(0); err == nil {
		t.Errorf("Expected error for zero coefficients, got nil")
	}
}

func TestEntangledStateAlwaysPassesOracle(t *testing.T) {
	gen := newTestGenerator(t, 4)

	// The oracle is the acceptance filter, so this must hold for every
	// sampled state, not just statistically.
	for i := 0; i < 30; i++ {
		state, err := gen.EntangledState(DefaultEigTolerance)
		if err != nil {
			t.Fatalf("EntangledState failed: %v", err)
		}

		entangled, err := IsEntangled(state, DefaultEigTolerance)
		if err != nil {
			t.Fatalf("IsEntangled failed: %v", err)
		}
		if !entangled {
			t.Errorf("State %d: accepted candidate fails the entanglement test", i)
		}
	}
}

func TestEntangledStateCandidatesAreRawRealMatrices(t *testing.T) {
	gen := newTestGenerator(t, 5)

	state, err := gen.EntangledState(DefaultEigTolerance)
	if err != nil {
		t.Fatalf("EntangledState failed: %v", err)
	}

	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			v := state.Data[i][j]
			if imag(v) != 0 {
				t.Fatalf("Candidate entry (%d,%d) has imaginary part %v", i, j, imag(v))
			}
			if real(v) < 0 || real(v) >= 1 {
				t.Fatalf("Candidate entry (%d,%d) = %v outside [0,1)", i, j, real(v))
			}
		}
	}
}

func TestEntangledStateRespectsMaxAttempts(t *testing.T) {
	gen := newTestGenerator(t, 6)
	gen.MaxAttempts = 3

	// An impossibly strict tolerance makes every candidate fail, so the
	// sampler must give up instead of looping forever.
	if _, err := gen.EntangledState(1e12); err == nil {
		t.Errorf("Expected exhaustion error with unreachable tolerance, got nil")
	}
}
