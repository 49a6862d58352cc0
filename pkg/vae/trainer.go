package vae

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/entanglement_classifier/pkg/autodiff"
	"github.com/entanglement_classifier/pkg/core"
	"github.com/entanglement_classifier/pkg/dataset"
)

// Trainer runs fixed-epoch mini-batch optimization of a single model. There
// is no early stopping, validation split or checkpointing; the model is
// trained for the configured epoch count and then frozen by the caller.
type Trainer struct {
	Model     *Model
	Config    *core.Config
	Optimizer Optimizer

	// ClipNorm rescales gradients whose global L2 norm exceeds it.
	// Zero disables clipping.
	ClipNorm float64

	rng *rand.Rand
}

// NewTrainer creates a trainer for the given model. The random source drives
// batch shuffling.
func NewTrainer(model *Model, config *core.Config, rng *rand.Rand) (*Trainer, error) {
	if model == nil {
		return nil, fmt.Errorf("model cannot be nil")
	}
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if rng == nil {
		return nil, fmt.Errorf("random source cannot be nil")
	}

	optimizer, err := NewOptimizer(config.Optimizer, config.LearningRate)
	if err != nil {
		return nil, err
	}

	return &Trainer{
		Model:     model,
		Config:    config,
		Optimizer: optimizer,
		ClipNorm:  5.0,
		rng:       rng,
	}, nil
}

// Train optimizes the model over the set for the configured number of epochs
// and returns the per-epoch loss history, each entry normalized by the
// dataset size. The set is shuffled in place between epochs.
func (t *Trainer) Train(set *dataset.Set) ([]float64, error) {
	if set == nil || set.Len() == 0 {
		return nil, fmt.Errorf("training set cannot be empty")
	}

	params := t.Model.NamedParameters()
	history := make([]float64, 0, t.Config.NumEpochs)

	for epoch := 0; epoch < t.Config.NumEpochs; epoch++ {
		set.Shuffle(t.rng)
		batches, err := set.Batches(t.Config.BatchSize)
		if err != nil {
			return nil, err
		}

		epochLoss := 0.0
		for i, batch := range batches {
			batchLoss, err := t.trainStep(batch, params)
			if err != nil {
				return nil, fmt.Errorf("epoch %d batch %d: %w", epoch, i, err)
			}
			epochLoss += batchLoss
		}

		normalized := epochLoss / float64(set.Len())
		if math.IsNaN(normalized) || math.IsInf(normalized, 0) {
			return history, fmt.Errorf("epoch %d produced a non-finite loss", epoch)
		}
		history = append(history, normalized)
	}

	return history, nil
}

// trainStep runs one mini-batch update and returns the batch loss (sum
// reduction, not yet normalized).
func (t *Trainer) trainStep(batch [][]float64, params map[string]*autodiff.Tensor) (float64, error) {
	data, err := autodiff.NewMatrixFromRows(batch)
	if err != nil {
		return 0, err
	}
	x, err := autodiff.NewConstant(data, "batch_input")
	if err != nil {
		return 0, err
	}

	t.Model.ZeroGrad()

	recon, _, mean, logvar, err := t.Model.Forward(x, false)
	if err != nil {
		return 0, fmt.Errorf("forward pass: %w", err)
	}

	loss, err := t.Model.Loss(recon, x, mean, logvar)
	if err != nil {
		return 0, err
	}

	if err := loss.Backward(); err != nil {
		return 0, fmt.Errorf("backward pass: %w", err)
	}

	t.clipGradients(params)
	t.Optimizer.Step(params)

	return loss.Item()
}

// clipGradients rescales all gradients when their global L2 norm exceeds
// ClipNorm.
func (t *Trainer) clipGradients(params map[string]*autodiff.Tensor) {
	if t.ClipNorm <= 0 {
		return
	}

	totalNormSq := 0.0
	for _, param := range params {
		if param.Grad == nil || !param.RequiresGrad {
			continue
		}
		for i := 0; i < param.Grad.Rows; i++ {
			for j := 0; j < param.Grad.Cols; j++ {
				totalNormSq += param.Grad.Data[i][j] * param.Grad.Data[i][j]
			}
		}
	}

	totalNorm := math.Sqrt(totalNormSq)
	if totalNorm <= t.ClipNorm {
		return
	}

	clipFactor := t.ClipNorm / (totalNorm + 1e-6)
	for _, param := range params {
		if param.Grad == nil || !param.RequiresGrad {
			continue
		}
		for i := 0; i < param.Grad.Rows; i++ {
			for j := 0; j < param.Grad.Cols; j++ {
				param.Grad.Data[i][j] *= clipFactor
			}
		}
	}
}
