package vae

import (
	"fmt"
	"math/rand"

	"github.com/entanglement_classifier/pkg/autodiff"
)

// Model is a fully-connected variational autoencoder over fixed-width
// feature vectors. The encoder maps input -> hidden0 -> hidden1 and two
// linear heads produce the latent mean and log-variance; the decoder maps
// latent -> hidden1 -> hidden0 -> input. ReLU follows every hidden layer and
// every decoder layer, including the final reconstruction layer, so negative
// feature values are clipped in the output. The loss is compared between two
// such models, which makes the clipping symmetric across classes.
type Model struct {
	InputSize int
	Hidden0   int
	Hidden1   int
	LatentDim int

	EncW0, EncB0     *autodiff.Tensor
	EncW1, EncB1     *autodiff.Tensor
	MeanW, MeanB     *autodiff.Tensor
	LogVarW, LogVarB *autodiff.Tensor
	DecW0, DecB0     *autodiff.Tensor
	DecW1, DecB1     *autodiff.Tensor
	OutW, OutB       *autodiff.Tensor

	rng *rand.Rand
}

// NewModel creates a VAE with randomly initialized parameters. The random
// source drives both initialization and reparameterization sampling; seeding
// policy belongs to the caller.
func NewModel(inputSize, hidden0, hidden1, latentDim int, rng *rand.Rand) (*Model, error) {
	if inputSize <= 0 || hidden0 <= 0 || hidden1 <= 0 || latentDim <= 0 {
		return nil, fmt.Errorf("layer sizes must be positive: input=%d, hidden0=%d, hidden1=%d, latent=%d",
			inputSize, hidden0, hidden1, latentDim)
	}
	if rng == nil {
		return nil, fmt.Errorf("random source cannot be nil")
	}

	m := &Model{
		InputSize: inputSize,
		Hidden0:   hidden0,
		Hidden1:   hidden1,
		LatentDim: latentDim,
		rng:       rng,
	}

	var err error
	layers := []struct {
		w, b       **autodiff.Tensor
		inDim, out int
		name       string
	}{
		{&m.EncW0, &m.EncB0, inputSize, hidden0, "enc0"},
		{&m.EncW1, &m.EncB1, hidden0, hidden1, "enc1"},
		{&m.MeanW, &m.MeanB, hidden1, latentDim, "mean"},
		{&m.LogVarW, &m.LogVarB, hidden1, latentDim, "logvar"},
		{&m.DecW0, &m.DecB0, latentDim, hidden1, "dec0"},
		{&m.DecW1, &m.DecB1, hidden1, hidden0, "dec1"},
		{&m.OutW, &m.OutB, hidden0, inputSize, "out"},
	}
	for _, layer := range layers {
		*layer.w, err = newParameter(layer.inDim, layer.out, layer.name+"_weight", rng)
		if err != nil {
			return nil, err
		}
		*layer.b, err = newParameter(1, layer.out, layer.name+"_bias", rng)
		if err != nil {
			return nil, err
		}
	}

	return m, nil
}

func newParameter(rows, cols int, name string, rng *rand.Rand) (*autodiff.Tensor, error) {
	data, err := autodiff.NewRandomMatrix(rows, cols, rng)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s: %w", name, err)
	}
	return autodiff.NewTensor(data, &autodiff.TensorConfig{RequiresGrad: true, Name: name})
}

// NamedParameters returns the learnable parameters keyed by name, for the
// optimizer and for gradient bookkeeping.
func (m *Model) NamedParameters() map[string]*autodiff.Tensor {
	return map[string]*autodiff.Tensor{
		"enc0_weight":   m.EncW0,
		"enc0_bias":     m.EncB0,
		"enc1_weight":   m.EncW1,
		"enc1_bias":     m.EncB1,
		"mean_weight":   m.MeanW,
		"mean_bias":     m.MeanB,
		"logvar_weight": m.LogVarW,
		"logvar_bias":   m.LogVarB,
		"dec0_weight":   m.DecW0,
		"dec0_bias":     m.DecB0,
		"dec1_weight":   m.DecW1,
		"dec1_bias":     m.DecB1,
		"out_weight":    m.OutW,
		"out_bias":      m.OutB,
	}
}

// ZeroGrad zeros every parameter gradient
func (m *Model) ZeroGrad() {
	for _, p := range m.NamedParameters() {
		p.ZeroGrad()
	}
}

func (m *Model) linear(x, w, b *autodiff.Tensor) (*autodiff.Tensor, error) {
	out, err := autodiff.MatMul(x, w)
	if err != nil {
		return nil, err
	}
	return autodiff.AddRowVector(out, b)
}

func (m *Model) linearReLU(x, w, b *autodiff.Tensor) (*autodiff.Tensor, error) {
	out, err := m.linear(x, w, b)
	if err != nil {
		return nil, err
	}
	return autodiff.ReLU(out)
}

// Forward runs a batch of feature vectors through the autoencoder and
// returns (reconstruction, latent sample, mean, log-variance), all with the
// batch dimension preserved.
//
// When deterministic is false the latent sample is mean + exp(0.5*logvar)*eps
// with eps drawn fresh from a standard normal on every call, so repeated
// calls reconstruct differently for the same input. When deterministic is
// true the sample is the mean itself, which makes scoring reproducible.
func (m *Model) Forward(x *autodiff.Tensor, deterministic bool) (recon, z, mean, logvar *autodiff.Tensor, err error) {
	if x == nil {
		return nil, nil, nil, nil, fmt.Errorf("input tensor cannot be nil")
	}
	if x.Data.Cols != m.InputSize {
		return nil, nil, nil, nil, fmt.Errorf("input width %d doesn't match model input size %d",
			x.Data.Cols, m.InputSize)
	}

	h0, err := m.linearReLU(x, m.EncW0, m.EncB0)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("encoder layer 0: %w", err)
	}
	h1, err := m.linearReLU(h0, m.EncW1, m.EncB1)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("encoder layer 1: %w", err)
	}

	mean, err = m.linear(h1, m.MeanW, m.MeanB)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("mean head: %w", err)
	}
	logvar, err = m.linear(h1, m.LogVarW, m.LogVarB)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("log-variance head: %w", err)
	}

	if deterministic {
		z = mean
	} else {
		z, err = m.reparameterize(mean, logvar)
		if err != nil {
			return nil, nil, nil, nil, err
		}
	}

	d0, err := m.linearReLU(z, m.DecW0, m.DecB0)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("decoder layer 0: %w", err)
	}
	d1, err := m.linearReLU(d0, m.DecW1, m.DecB1)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("decoder layer 1: %w", err)
	}
	recon, err = m.linearReLU(d1, m.OutW, m.OutB)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("decoder output layer: %w", err)
	}

	return recon, z, mean, logvar, nil
}

// reparameterize samples z = mean + exp(0.5*logvar) * eps with gradients
// flowing through mean and logvar but not through the noise.
func (m *Model) reparameterize(mean, logvar *autodiff.Tensor) (*autodiff.Tensor, error) {
	half, err := autodiff.ScalarMultiply(logvar, 0.5)
	if err != nil {
		return nil, fmt.Errorf("reparameterization: %w", err)
	}
	std, err := autodiff.Exp(half)
	if err != nil {
		return nil, fmt.Errorf("reparameterization: %w", err)
	}

	epsData := autodiff.MustNewMatrix(mean.Data.Rows, mean.Data.Cols)
	for i := 0; i < epsData.Rows; i++ {
		for j := 0; j < epsData.Cols; j++ {
			epsData.Data[i][j] = m.rng.NormFloat64()
		}
	}
	eps, err := autodiff.NewConstant(epsData, "eps")
	if err != nil {
		return nil, fmt.Errorf("reparameterization: %w", err)
	}

	noise, err := autodiff.Multiply(std, eps)
	if err != nil {
		return nil, fmt.Errorf("reparameterization: %w", err)
	}
	return autodiff.Add(mean, noise)
}

// Loss computes reconstruction_loss + 0.5 * KL as a scalar tensor, where the
// reconstruction loss is the sum of squared errors and
// KL = -0.5 * sum(1 + logvar - mean^2 - exp(logvar)). Both terms use sum
// reduction over the batch and feature dimensions; divide by the dataset
// size outside when reporting per-sample losses.
func (m *Model) Loss(recon, x, mean, logvar *autodiff.Tensor) (*autodiff.Tensor, error) {
	diff, err := autodiff.Subtract(recon, x)
	if err != nil {
		return nil, fmt.Errorf("reconstruction loss: %w", err)
	}
	squared, err := autodiff.Multiply(diff, diff)
	if err != nil {
		return nil, fmt.Errorf("reconstruction loss: %w", err)
	}
	sse, err := autodiff.Sum(squared)
	if err != nil {
		return nil, fmt.Errorf("reconstruction loss: %w", err)
	}

	kl, err := m.klDivergence(mean, logvar)
	if err != nil {
		return nil, err
	}
	halfKL, err := autodiff.ScalarMultiply(kl, 0.5)
	if err != nil {
		return nil, fmt.Errorf("loss combination: %w", err)
	}

	return autodiff.Add(sse, halfKL)
}

func (m *Model) klDivergence(mean, logvar *autodiff.Tensor) (*autodiff.Tensor, error) {
	term, err := autodiff.ScalarAdd(logvar, 1)
	if err != nil {
		return nil, fmt.Errorf("KL divergence: %w", err)
	}
	meanSq, err := autodiff.Multiply(mean, mean)
	if err != nil {
		return nil, fmt.Errorf("KL divergence: %w", err)
	}
	term, err = autodiff.Subtract(term, meanSq)
	if err != nil {
		return nil, fmt.Errorf("KL divergence: %w", err)
	}
	variance, err := autodiff.Exp(logvar)
	if err != nil {
		return nil, fmt.Errorf("KL divergence: %w", err)
	}
	term, err = autodiff.Subtract(term, variance)
	if err != nil {
		return nil, fmt.Errorf("KL divergence: %w", err)
	}
	total, err := autodiff.Sum(term)
	if err != nil {
		return nil, fmt.Errorf("KL divergence: %w", err)
	}
	return autodiff.ScalarMultiply(total, -0.5)
}

// ReconstructionLoss scores a single feature vector: the sum of squared
// errors between the vector and its reconstruction. With deterministic set,
// the latent sample is the encoder mean and repeated calls return the same
// score; otherwise the score is stochastic by construction.
func (m *Model) ReconstructionLoss(features []float64, deterministic bool) (float64, error) {
	if len(features) != m.InputSize {
		return 0, fmt.Errorf("feature width %d doesn't match model input size %d", len(features), m.InputSize)
	}

	data, err := autodiff.NewMatrixFromRows([][]float64{features})
	if err != nil {
		return 0, err
	}
	x, err := autodiff.NewConstant(data, "score_input")
	if err != nil {
		return 0, err
	}

	recon, _, _, _, err := m.Forward(x, deterministic)
	if err != nil {
		return 0, fmt.Errorf("scoring forward pass: %w", err)
	}

	sse := 0.0
	for j := 0; j < m.InputSize; j++ {
		d := recon.Data.Data[0][j] - features[j]
		sse += d * d
	}

	return sse, nil
}
