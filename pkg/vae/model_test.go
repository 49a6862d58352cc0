package vae

import (
	"math"
	"math/rand"
	"testing"

	"github.com/entanglement_classifier/pkg/autodiff"
)

func newTestModel(t *testing.T, seed int64) *Model {
	t.Helper()
	model, err := NewModel(8, 6, 4, 2, rand.New(rand.NewSource(seed)))
	if err != nil {
		t.Fatalf("NewModel failed: %v", err)
	}
	return model
}

func batchTensor(t *testing.T, rows [][]float64) *autodiff.Tensor {
	t.Helper()
	data, err := autodiff.NewMatrixFromRows(rows)
	if err != nil {
		t.Fatalf("NewMatrixFromRows failed: %v", err)
	}
	x, err := autodiff.NewConstant(data, "test_batch")
	if err != nil {
		t.Fatalf("NewConstant failed: %v", err)
	}
	return x
}

func randomBatch(rng *rand.Rand, n, d int) [][]float64 {
	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = make([]float64, d)
		for j := range rows[i] {
			rows[i][j] = rng.Float64()
		}
	}
	return rows
}

func TestNewModelValidation(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	if _, err := NewModel(0, 6, 4, 2, rng); err == nil {
		t.Errorf("Expected error for zero input size, got nil")
	}
	if _, err := NewModel(8, 6, 4, 0, rng); err == nil {
		t.Errorf("Expected error for zero latent dim, got nil")
	}
	if _, err := NewModel(8, 6, 4, 2, nil); err == nil {
		t.Errorf("Expected error for nil random source, got nil")
	}
}

func TestNamedParametersCoverAllSevenLayers(t *testing.T) {
	model := newTestModel(t, 1)

	params := model.NamedParameters()
	if len(params) != 14 {
		t.Fatalf("Expected 14 parameter tensors (7 layers), got %d", len(params))
	}
	for name, p := range params {
		if !p.RequiresGrad {
			t.Errorf("Parameter %s does not track gradients", name)
		}
	}
}

func TestForwardPreservesBatchDimension(t *testing.T) {
	model := newTestModel(t, 2)
	rng := rand.New(rand.NewSource(3))
	x := batchTensor(t, randomBatch(rng, 5, 8))

	recon, z, mean, logvar, err := model.Forward(x, false)
	if err != nil {
		t.Fatalf("Forward failed: %v", err)
	}

	if recon.Data.Rows != 5 || recon.Data.Cols != 8 {
		t.Errorf("Reconstruction shape = %dx%d, want 5x8", recon.Data.Rows, recon.Data.Cols)
	}
	if z.Data.Rows != 5 || z.Data.Cols != 2 {
		t.Errorf("Latent shape = %dx%d, want 5x2", z.Data.Rows, z.Data.Cols)
	}
	if mean.Data.Rows != 5 || mean.Data.Cols != 2 {
		t.Errorf("Mean shape = %dx%d, want 5x2", mean.Data.Rows, mean.Data.Cols)
	}
	if logvar.Data.Rows != 5 || logvar.Data.Cols != 2 {
		t.Errorf("Log-variance shape = %dx%d, want 5x2", logvar.Data.Rows, logvar.Data.Cols)
	}
}

func TestForwardRejectsWrongWidth(t *testing.T) {
	model := newTestModel(t, 4)
	x := batchTensor(t, [][]float64{{1, 2, 3}})
	if _, _, _, _, err := model.Forward(x, false); err == nil {
		t.Errorf("Expected input width error, got nil")
	}
}

func TestReconstructionsAreNonNegative(t *testing.T) {
	// The final decoder layer is followed by ReLU, so reconstructed
	// features never go below zero even though inputs can.
	model := newTestModel(t, 5)
	rng := rand.New(rand.NewSource(6))

	rows := randomBatch(rng, 4, 8)
	for i := range rows {
		rows[i][0] = -rows[i][0]
	}

	recon, _, _, _, err := model.Forward(batchTensor(t, rows), false)
	if err != nil {
		t.Fatalf("Forward failed: %v", err)
	}

	for i := 0; i < recon.Data.Rows; i++ {
		for j := 0; j < recon.Data.Cols; j++ {
			if recon.Data.Data[i][j] < 0 {
				t.Fatalf("Reconstruction (%d,%d) = %v is negative", i, j, recon.Data.Data[i][j])
			}
		}
	}
}

func TestStochasticForwardResamplesNoise(t *testing.T) {
	model := newTestModel(t, 7)
	rng := rand.New(rand.NewSource(8))
	rows := randomBatch(rng, 1, 8)

	z1, _, _, _, err := model.Forward(batchTensor(t, rows), false)
	if err != nil {
		t.Fatalf("Forward failed: %v", err)
	}
	z2, _, _, _, err := model.Forward(batchTensor(t, rows), false)
	if err != nil {
		t.Fatalf("Forward failed: %v", err)
	}

	if autodiff.Equal(z1.Data, z2.Data, 0) {
		t.Errorf("Two stochastic forward passes produced identical reconstructions")
	}
}

func TestDeterministicScoringIsReproducible(t *testing.T) {
	model := newTestModel(t, 9)
	rng := rand.New(rand.NewSource(10))
	features := randomBatch(rng, 1, 8)[0]

	first, err := model.ReconstructionLoss(features, true)
	if err != nil {
		t.Fatalf("ReconstructionLoss failed: %v", err)
	}
	second, err := model.ReconstructionLoss(features, true)
	if err != nil {
		t.Fatalf("ReconstructionLoss failed: %v", err)
	}

	if first != second {
		t.Errorf("Deterministic scores differ: %v vs %v", first, second)
	}
}

func TestScoringDoesNotMutateParameters(t *testing.T) {
	model := newTestModel(t, 11)
	rng := rand.New(rand.NewSource(12))
	features := randomBatch(rng, 1, 8)[0]

	before := model.EncW0.Data.Clone()
	if _, err := model.ReconstructionLoss(features, false); err != nil {
		t.Fatalf("ReconstructionLoss failed: %v", err)
	}

	if !autodiff.Equal(before, model.EncW0.Data, 0) {
		t.Errorf("Scoring modified model parameters")
	}
}

func TestLossIsFiniteAndNonNegative(t *testing.T) {
	model := newTestModel(t, 13)
	rng := rand.New(rand.NewSource(14))
	x := batchTensor(t, randomBatch(rng, 6, 8))

	recon, _, mean, logvar, err := model.Forward(x, false)
	if err != nil {
		t.Fatalf("Forward failed: %v", err)
	}

	loss, err := model.Loss(recon, x, mean, logvar)
	if err != nil {
		t.Fatalf("Loss failed: %v", err)
	}

	value, err := loss.Item()
	if err != nil {
		t.Fatalf("Item failed: %v", err)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		t.Fatalf("Loss is not finite: %v", value)
	}
	// SSE >= 0 and KL to a standard normal >= 0, so the total is too.
	if value < 0 {
		t.Errorf("Loss = %v, want >= 0", value)
	}
}
