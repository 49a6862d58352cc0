package main

import (
	"fmt"
	"math/rand"
	"os"

	"github.com/entanglement_classifier/pkg/classifier"
	"github.com/entanglement_classifier/pkg/core"
	"github.com/entanglement_classifier/pkg/dataset"
	"github.com/entanglement_classifier/pkg/quantum"
)

// Entry point for the entanglement classification pipeline
func main() {
	fmt.Println("Two-Qubit Entanglement Classifier")
	fmt.Println("=================================")

	mode := "run"
	if len(os.Args) > 1 {
		mode = os.Args[1]
	}

	switch mode {
	case "run":
		config, err := loadConfig()
		if err != nil {
			fmt.Printf("Configuration error: %v\n", err)
			os.Exit(1)
		}
		if err := runPipeline(config); err != nil {
			fmt.Printf("Pipeline error: %v\n", err)
			os.Exit(1)
		}
	case "config":
		if err := writeDefaultConfig(); err != nil {
			fmt.Printf("Error writing config: %v\n", err)
			os.Exit(1)
		}
	case "help":
		printHelp()
	default:
		fmt.Printf("Unknown mode: %s\n", mode)
		printHelp()
		os.Exit(1)
	}
}

// loadConfig uses the optional second argument as a JSON config path and
// falls back to the built-in defaults
func loadConfig() (*core.Config, error) {
	if len(os.Args) > 2 {
		return core.LoadConfig(os.Args[2])
	}
	return core.NewDefaultConfig(), nil
}

// runPipeline generates labeled states, picks the latent width, trains one
// model per class and reports held-out accuracy.
func runPipeline(config *core.Config) error {
	rng := rand.New(rand.NewSource(config.Seed))

	fmt.Println("\nGenerating dataset:")
	fmt.Printf("- States per class: %d\n", config.StatesPerClass)
	fmt.Printf("- Mixing matrices per separable state: %d\n", config.MixingMatrices)
	fmt.Printf("- Oracle eigenvalue tolerance: %g\n", config.EigTolerance)

	gen, err := quantum.NewGenerator(rng)
	if err != nil {
		return err
	}
	gen.MaxAttempts = config.MaxAttempts

	set, err := dataset.Generate(gen, config.StatesPerClass, config.MixingMatrices, config.EigTolerance)
	if err != nil {
		return fmt.Errorf("dataset generation: %w", err)
	}
	width, err := encodedWidth(set, config.InputSize)
	if err != nil {
		return err
	}
	fmt.Printf("Generated %d encoded states of width %d.\n", set.Len(), width)

	train, heldOut, err := set.Split(config.HeldOutPerClass)
	if err != nil {
		return fmt.Errorf("held-out split: %w", err)
	}
	train.Shuffle(rng)
	fmt.Printf("Training on %d states, holding out %d.\n", train.Len(), heldOut.Len())

	latentDim := config.LatentDim
	if latentDim == 0 {
		ratios, err := dataset.ExplainedVarianceRatios(train)
		if err != nil {
			return fmt.Errorf("variance analysis: %w", err)
		}
		latentDim = dataset.LatentDim(ratios, config.PCAVarianceThreshold)
		fmt.Printf("\nPCA picked latent dimension %d (components with ratio > %g).\n",
			latentDim, config.PCAVarianceThreshold)
	} else {
		fmt.Printf("\nUsing configured latent dimension %d.\n", latentDim)
	}

	fmt.Println("\nTraining class models:")
	fmt.Printf("- Architecture: %d -> %d -> %d -> %d\n",
		config.InputSize, config.Hidden0, config.Hidden1, latentDim)
	fmt.Printf("- Optimizer: %s, learning rate %g, %d epochs, batch size %d\n",
		config.Optimizer, config.LearningRate, config.NumEpochs, config.BatchSize)

	pair, err := classifier.TrainPair(train, latentDim, config, rng)
	if err != nil {
		return err
	}
	printHistory("separable", pair.SeparableHistory)
	printHistory("entangled", pair.EntangledHistory)

	c, err := classifier.NewClassifier(pair, config.DeterministicScoring)
	if err != nil {
		return err
	}

	accuracy, err := c.Evaluate(heldOut)
	if err != nil {
		return fmt.Errorf("evaluation: %w", err)
	}
	fmt.Printf("\nHeld-out accuracy: %.2f%% (%d states, deterministic scoring: %v)\n",
		100*accuracy, heldOut.Len(), config.DeterministicScoring)

	return nil
}

// encodedWidth returns the width of the generated feature vectors after
// checking it against the configured model input size, so a mismatched
// input_size fails here instead of at the first forward pass.
func encodedWidth(set *dataset.Set, inputSize int) (int, error) {
	if set.Len() == 0 {
		return 0, fmt.Errorf("generated dataset is empty")
	}
	width := len(set.Vectors[0])
	if width != inputSize {
		return 0, fmt.Errorf("encoded state width %d doesn't match configured input_size %d", width, inputSize)
	}
	return width, nil
}

// printHistory reports the first, middle and final epoch losses
func printHistory(name string, history []float64) {
	if len(history) == 0 {
		return
	}
	fmt.Printf("%s model: epoch 1 loss %.4f", name, history[0])
	if len(history) > 2 {
		mid := len(history) / 2
		fmt.Printf(", epoch %d loss %.4f", mid+1, history[mid])
	}
	fmt.Printf(", epoch %d loss %.4f\n", len(history), history[len(history)-1])
}

// writeDefaultConfig saves the default configuration next to the binary so
// it can be edited and passed back in with "run"
func writeDefaultConfig() error {
	path := "config.json"
	if len(os.Args) > 2 {
		path = os.Args[2]
	}
	if err := core.NewDefaultConfig().Save(path); err != nil {
		return err
	}
	fmt.Printf("Wrote default configuration to %s\n", path)
	return nil
}

// printHelp displays usage information
func printHelp() {
	fmt.Println("\nUsage: entanglement [mode] [config path]")
	fmt.Println("\nAvailable modes:")
	fmt.Println("  run     - Generate states, train both models and evaluate (default)")
	fmt.Println("  config  - Write the default configuration to a JSON file")
	fmt.Println("  help    - Display this help message")
}
