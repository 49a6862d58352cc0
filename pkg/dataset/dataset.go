package dataset

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/entanglement_classifier/pkg/quantum"
)

// Class labels for feature vectors.
const (
	LabelSeparable = 0
	LabelEntangled = 1
)

// Set is an ordered collection of feature vectors with parallel labels.
type Set struct {
	Vectors [][]float64
	Labels  []int
}

// NewSet creates an empty dataset
func NewSet() *Set {
	return &Set{}
}

// Add appends a labeled feature vector to the set
func (s *Set) Add(vector []float64, label int) {
	s.Vectors = append(s.Vectors, vector)
	s.Labels = append(s.Labels, label)
}

// Len returns the number of feature vectors in the set
func (s *Set) Len() int {
	return len(s.Vectors)
}

// Shuffle permutes vectors and labels in lockstep using the given source
func (s *Set) Shuffle(rng *rand.Rand) {
	rng.Shuffle(s.Len(), func(i, j int) {
		s.Vectors[i], s.Vectors[j] = s.Vectors[j], s.Vectors[i]
		s.Labels[i], s.Labels[j] = s.Labels[j], s.Labels[i]
	})
}

// Batches partitions the vectors into consecutive mini-batches. The final
// batch may be smaller than batchSize. Shuffle first for stochastic training.
func (s *Set) Batches(batchSize int) ([][][]float64, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", batchSize)
	}

	var batches [][][]float64
	for i := 0; i < s.Len(); i += batchSize {
		end := i + batchSize
		if end > s.Len() {
			end = s.Len()
		}
		batches = append(batches, s.Vectors[i:end])
	}

	return batches, nil
}

// Split moves the last n vectors of each class into a held-out set and
// returns (train, heldOut). The receiver is not modified.
func (s *Set) Split(nPerClass int) (*Set, *Set, error) {
	counts := make(map[int]int)
	for _, label := range s.Labels {
		counts[label]++
	}
	for label, count := range counts {
		if nPerClass > count {
			return nil, nil, fmt.Errorf("cannot hold out %d vectors of class %d, only %d available",
				nPerClass, label, count)
		}
	}

	train := NewSet()
	heldOut := NewSet()
	remaining := make(map[int]int)
	for i := s.Len() - 1; i >= 0; i-- {
		label := s.Labels[i]
		if remaining[label] < nPerClass {
			remaining[label]++
			heldOut.Add(s.Vectors[i], label)
		} else {
			train.Add(s.Vectors[i], label)
		}
	}

	return train, heldOut, nil
}

// Filter returns the subset of vectors carrying the given label
func (s *Set) Filter(label int) *Set {
	out := NewSet()
	for i, vec := range s.Vectors {
		if s.Labels[i] == label {
			out.Add(vec, label)
		}
	}
	return out
}

// Dense exports the set as an n x d gonum matrix for analysis
func (s *Set) Dense() (*mat.Dense, error) {
	if s.Len() == 0 {
		return nil, fmt.Errorf("cannot export an empty dataset")
	}

	d := len(s.Vectors[0])
	dense := mat.NewDense(s.Len(), d, nil)
	for i, vec := range s.Vectors {
		if len(vec) != d {
			return nil, fmt.Errorf("vector %d has width %d, want %d", i, len(vec), d)
		}
		dense.SetRow(i, vec)
	}

	return dense, nil
}

// Generate draws n separable and n entangled two-qubit states from the
// generator and returns them as an encoded, labeled set. Separable states
// are mixtures of nMatrices product-state pairs; entangled states come from
// the generator's bounded rejection sampler with the given oracle tolerance.
func Generate(gen *quantum.Generator, n, nMatrices int, tol float64) (*Set, error) {
	if gen == nil {
		return nil, fmt.Errorf("generator cannot be nil")
	}
	if n <= 0 {
		return nil, fmt.Errorf("state count must be positive, got %d", n)
	}

	set := NewSet()
	for i := 0; i < n; i++ {
		state, err := gen.SeparableState(nMatrices)
		if err != nil {
			return nil, fmt.Errorf("separable state %d: %w", i, err)
		}
		set.Add(quantum.Encode(state), LabelSeparable)
	}
	for i := 0; i < n; i++ {
		state, err := gen.EntangledState(tol)
		if err != nil {
			return nil, fmt.Errorf("entangled state %d: %w", i, err)
		}
		set.Add(quantum.Encode(state), LabelEntangled)
	}

	return set, nil
}
