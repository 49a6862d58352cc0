package dataset

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ExplainedVarianceRatios runs a principal component analysis over the set
// and returns the per-component explained-variance ratios in descending
// order. The ratios sum to 1.
func ExplainedVarianceRatios(s *Set) ([]float64, error) {
	if s == nil || s.Len() < 2 {
		return nil, fmt.Errorf("PCA requires at least 2 samples")
	}

	dense, err := s.Dense()
	if err != nil {
		return nil, fmt.Errorf("PCA export failed: %w", err)
	}

	var pc stat.PC
	if ok := pc.PrincipalComponents(dense, nil); !ok {
		return nil, fmt.Errorf("principal component decomposition failed")
	}

	vars := pc.VarsTo(nil)
	total := floats.Sum(vars)
	if total <= 0 {
		return nil, fmt.Errorf("dataset has zero total variance")
	}

	ratios := make([]float64, len(vars))
	for i, v := range vars {
		ratios[i] = v / total
	}

	return ratios, nil
}

// LatentDim counts how many explained-variance ratios exceed the threshold.
// That count is used as the latent dimensionality of the autoencoders. The
// result is at least 1 so a degenerate spectrum never produces an empty
// latent space.
func LatentDim(ratios []float64, threshold float64) int {
	count := 0
	for _, r := range ratios {
		if r > threshold {
			count++
		}
	}
	if count < 1 {
		count = 1
	}
	return count
}
