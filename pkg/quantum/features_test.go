package quantum

import (
	"math/rand"
	"testing"
)

func TestEncodeLayout(t *testing.T) {
	m := MustNewMatrix(2, 2)
	m.Data[0][0] = complex(1, 5)
	m.Data[0][1] = complex(2, 6)
	m.Data[1][0] = complex(3, 7)
	m.Data[1][1] = complex(4, 8)

	features := Encode(m)
	if len(features) != 8 {
		t.Fatalf("Expected 8 features for a 2x2 matrix, got %d", len(features))
	}

	// Row-major real parts first, then row-major imaginary parts.
	want := []float64{1, 2, 3, 4, 5, 6, 7, 8}
	for i, w := range want {
		if features[i] != w {
			t.Errorf("features[%d] = %v, want %v", i, features[i], w)
		}
	}
}

func TestEncodeDecodeRoundTripIsExact(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for trial := 0; trial < 100; trial++ {
		m := MustNewMatrix(4, 4)
		for i := 0; i < 4; i++ {
			for j := 0; j < 4; j++ {
				m.Data[i][j] = complex(rng.NormFloat64(), rng.NormFloat64())
			}
		}

		back, err := Decode(Encode(m), 4, 4)
		if err != nil {
			t.Fatalf("Decode failed: %v", err)
		}

		// The round trip must be bit-exact, no epsilon.
		for i := 0; i < 4; i++ {
			for j := 0; j < 4; j++ {
				if back.Data[i][j] != m.Data[i][j] {
					t.Fatalf("Trial %d: round trip changed entry (%d,%d): %v != %v",
						trial, i, j, back.Data[i][j], m.Data[i][j])
				}
			}
		}
	}
}

func TestDecodeRejectsWrongLength(t *testing.T) {
	if _, err := Decode(make([]float64, 31), 4, 4); err == nil {
		t.Errorf("Expected error for 31 features with 4x4 shape, got nil")
	}
	if _, err := Decode(nil, 4, 4); err == nil {
		t.Errorf("Expected error for nil features, got nil")
	}
}
