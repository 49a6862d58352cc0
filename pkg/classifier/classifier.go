package classifier

import (
	"fmt"
	"math/rand"

	"github.com/entanglement_classifier/pkg/core"
	"github.com/entanglement_classifier/pkg/dataset"
	"github.com/entanglement_classifier/pkg/vae"
)

// TrainedPair holds the two class-specific models and their training loss
// histories. It is produced once by TrainPair and then used read-only; the
// classifier never mutates the models.
type TrainedPair struct {
	Separable        *vae.Model
	Entangled        *vae.Model
	SeparableHistory []float64
	EntangledHistory []float64
}

// TrainPair trains one model per class on the labeled set: the separable
// model sees only label-0 vectors, the entangled model only label-1 vectors.
// Both models share the architecture from the config with the given latent
// dimensionality.
func TrainPair(set *dataset.Set, latentDim int, config *core.Config, rng *rand.Rand) (*TrainedPair, error) {
	if set == nil || set.Len() == 0 {
		return nil, fmt.Errorf("training set cannot be empty")
	}
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	pair := &TrainedPair{}
	classes := []struct {
		label   int
		subset  *dataset.Set
		model   **vae.Model
		history *[]float64
		name    string
	}{
		{dataset.LabelSeparable, nil, &pair.Separable, &pair.SeparableHistory, "separable"},
		{dataset.LabelEntangled, nil, &pair.Entangled, &pair.EntangledHistory, "entangled"},
	}

	for i := range classes {
		classes[i].subset = set.Filter(classes[i].label)
		if classes[i].subset.Len() == 0 {
			return nil, fmt.Errorf("training set has no %s states", classes[i].name)
		}
	}

	for _, class := range classes {
		model, err := vae.NewModel(config.InputSize, config.Hidden0, config.Hidden1, latentDim, rng)
		if err != nil {
			return nil, fmt.Errorf("%s model: %w", class.name, err)
		}

		trainer, err := vae.NewTrainer(model, config, rng)
		if err != nil {
			return nil, fmt.Errorf("%s trainer: %w", class.name, err)
		}

		history, err := trainer.Train(class.subset)
		if err != nil {
			return nil, fmt.Errorf("%s training: %w", class.name, err)
		}

		*class.model = model
		*class.history = history
	}

	return pair, nil
}

// Classifier labels feature vectors by comparing reconstruction losses under
// the two class models. With Deterministic set, scoring uses the encoder
// mean instead of a latent sample and is reproducible; otherwise each call
// resamples reparameterization noise and the decision is inherently noisy.
type Classifier struct {
	Pair          *TrainedPair
	Deterministic bool
}

// NewClassifier wraps a trained model pair
func NewClassifier(pair *TrainedPair, deterministic bool) (*Classifier, error) {
	if pair == nil || pair.Separable == nil || pair.Entangled == nil {
		return nil, fmt.Errorf("classifier requires both trained models")
	}
	if pair.Separable.InputSize != pair.Entangled.InputSize {
		return nil, fmt.Errorf("model input sizes differ: %d vs %d",
			pair.Separable.InputSize, pair.Entangled.InputSize)
	}

	return &Classifier{
		Pair:          pair,
		Deterministic: deterministic,
	}, nil
}

// Scores returns the reconstruction loss of the vector under the
// separable-trained and entangled-trained model respectively.
func (c *Classifier) Scores(features []float64) (sepLoss, entLoss float64, err error) {
	sepLoss, err = c.Pair.Separable.ReconstructionLoss(features, c.Deterministic)
	if err != nil {
		return 0, 0, fmt.Errorf("separable model score: %w", err)
	}
	entLoss, err = c.Pair.Entangled.ReconstructionLoss(features, c.Deterministic)
	if err != nil {
		return 0, 0, fmt.Errorf("entangled model score: %w", err)
	}
	return sepLoss, entLoss, nil
}

// Predict labels a feature vector: separable iff the separable model's
// reconstruction loss is strictly lower. Ties fall to the entangled branch.
func (c *Classifier) Predict(features []float64) (int, error) {
	sepLoss, entLoss, err := c.Scores(features)
	if err != nil {
		return 0, err
	}

	if sepLoss < entLoss {
		return dataset.LabelSeparable, nil
	}
	return dataset.LabelEntangled, nil
}

// Evaluate returns the classification accuracy over a labeled set
func (c *Classifier) Evaluate(set *dataset.Set) (float64, error) {
	if set == nil || set.Len() == 0 {
		return 0, fmt.Errorf("evaluation set cannot be empty")
	}

	correct := 0
	for i, vec := range set.Vectors {
		predicted, err := c.Predict(vec)
		if err != nil {
			return 0, fmt.Errorf("vector %d: %w", i, err)
		}
		if predicted == set.Labels[i] {
			correct++
		}
	}

	return float64(correct) / float64(set.Len()), nil
}
