package core

import (
	"encoding/json"
	"fmt"
	"os"
)

// Config represents the full configuration surface of the entanglement
// classification pipeline: dataset generation, dimensionality analysis,
// model architecture and training.
type Config struct {
	// Dataset generation
	StatesPerClass int   `json:"states_per_class"`
	MixingMatrices int   `json:"mixing_matrices"`
	MaxAttempts    int   `json:"max_attempts"`
	Seed           int64 `json:"seed"`

	// Oracle
	EigTolerance float64 `json:"eig_tolerance"`

	// Dimensionality analysis. LatentDim 0 means "choose from the PCA
	// explained-variance ratios using PCAVarianceThreshold".
	PCAVarianceThreshold float64 `json:"pca_variance_threshold"`
	LatentDim            int     `json:"latent_dim"`

	// Model architecture
	InputSize int `json:"input_size"`
	Hidden0   int `json:"hidden0"`
	Hidden1   int `json:"hidden1"`

	// Training
	BatchSize    int     `json:"batch_size"`
	LearningRate float64 `json:"learning_rate"`
	NumEpochs    int     `json:"num_epochs"`
	Optimizer    string  `json:"optimizer"`

	// Evaluation
	HeldOutPerClass      int  `json:"held_out_per_class"`
	DeterministicScoring bool `json:"deterministic_scoring"`
}

// NewDefaultConfig creates a new configuration with default values
func NewDefaultConfig() *Config {
	return &Config{
		StatesPerClass:       200,
		MixingMatrices:       10,
		MaxAttempts:          10000,
		Seed:                 42,
		EigTolerance:         1e-9,
		PCAVarianceThreshold: 0.01,
		LatentDim:            0, // choose via PCA
		InputSize:            32,
		Hidden0:              24,
		Hidden1:              16,
		BatchSize:            32,
		LearningRate:         1e-3,
		NumEpochs:            50,
		Optimizer:            "adam",
		HeldOutPerClass:      10,
		DeterministicScoring: true,
	}
}

// Validate checks the configuration before any generation or training
// starts. A configuration error is fatal and reported immediately.
func (c *Config) Validate() error {
	if c.StatesPerClass <= 0 {
		return fmt.Errorf("states_per_class must be positive, got %d", c.StatesPerClass)
	}
	if c.MixingMatrices <= 0 {
		return fmt.Errorf("mixing_matrices must be positive, got %d", c.MixingMatrices)
	}
	if c.MaxAttempts <= 0 {
		return fmt.Errorf("max_attempts must be positive, got %d", c.MaxAttempts)
	}
	if c.EigTolerance < 0 {
		return fmt.Errorf("eig_tolerance must be non-negative, got %v", c.EigTolerance)
	}
	if c.PCAVarianceThreshold <= 0 || c.PCAVarianceThreshold >= 1 {
		return fmt.Errorf("pca_variance_threshold must be in (0,1), got %v", c.PCAVarianceThreshold)
	}
	if c.LatentDim < 0 {
		return fmt.Errorf("latent_dim must be non-negative, got %d", c.LatentDim)
	}
	if c.InputSize <= 0 || c.Hidden0 <= 0 || c.Hidden1 <= 0 {
		return fmt.Errorf("layer sizes must be positive: input=%d, hidden0=%d, hidden1=%d",
			c.InputSize, c.Hidden0, c.Hidden1)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be positive, got %d", c.BatchSize)
	}
	if c.LearningRate <= 0 {
		return fmt.Errorf("learning_rate must be positive, got %v", c.LearningRate)
	}
	if c.NumEpochs <= 0 {
		return fmt.Errorf("num_epochs must be positive, got %d", c.NumEpochs)
	}
	switch c.Optimizer {
	case "adam", "sgd":
	default:
		return fmt.Errorf("unknown optimizer %q (want \"adam\" or \"sgd\")", c.Optimizer)
	}
	if c.HeldOutPerClass < 0 || c.HeldOutPerClass >= c.StatesPerClass {
		return fmt.Errorf("held_out_per_class must be in [0, states_per_class), got %d", c.HeldOutPerClass)
	}
	return nil
}

// LoadConfig reads a configuration from a JSON file and validates it
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	config := NewDefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return config, nil
}

// Save writes the configuration to a JSON file
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}

	return nil
}
