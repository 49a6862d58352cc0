package vae

import (
	"fmt"
	"math"

	"github.com/entanglement_classifier/pkg/autodiff"
)

// Optimizer updates named parameters from their accumulated gradients.
type Optimizer interface {
	Step(params map[string]*autodiff.Tensor)
}

// NewOptimizer builds an optimizer by name
func NewOptimizer(name string, learningRate float64) (Optimizer, error) {
	switch name {
	case "adam":
		return NewAdamOptimizer(learningRate), nil
	case "sgd":
		return NewSGDOptimizer(learningRate), nil
	default:
		return nil, fmt.Errorf("unknown optimizer %q (want \"adam\" or \"sgd\")", name)
	}
}

// AdamOptimizer implements the Adam optimization algorithm
type AdamOptimizer struct {
	LearningRate float64
	Beta1        float64
	Beta2        float64
	Epsilon      float64

	m map[string]*autodiff.Matrix
	v map[string]*autodiff.Matrix
	t int
}

// NewAdamOptimizer creates a new Adam optimizer with standard moment decay
func NewAdamOptimizer(learningRate float64) *AdamOptimizer {
	return &AdamOptimizer{
		LearningRate: learningRate,
		Beta1:        0.9,
		Beta2:        0.999,
		Epsilon:      1e-8,
		m:            make(map[string]*autodiff.Matrix),
		v:            make(map[string]*autodiff.Matrix),
	}
}

// Step performs one optimization step over the accumulated gradients
func (opt *AdamOptimizer) Step(params map[string]*autodiff.Tensor) {
	opt.t++
	bc1 := 1.0 - math.Pow(opt.Beta1, float64(opt.t))
	bc2 := 1.0 - math.Pow(opt.Beta2, float64(opt.t))

	for name, param := range params {
		if param.Grad == nil || !param.RequiresGrad {
			continue
		}
		if _, exists := opt.m[name]; !exists {
			opt.m[name] = autodiff.MustNewMatrix(param.Data.Rows, param.Data.Cols)
			opt.v[name] = autodiff.MustNewMatrix(param.Data.Rows, param.Data.Cols)
		}

		for i := 0; i < param.Data.Rows; i++ {
			for j := 0; j < param.Data.Cols; j++ {
				grad := param.Grad.Data[i][j]
				opt.m[name].Data[i][j] = opt.Beta1*opt.m[name].Data[i][j] + (1.0-opt.Beta1)*grad
				opt.v[name].Data[i][j] = opt.Beta2*opt.v[name].Data[i][j] + (1.0-opt.Beta2)*grad*grad
				mHat := opt.m[name].Data[i][j] / bc1
				vHat := opt.v[name].Data[i][j] / bc2
				param.Data.Data[i][j] -= opt.LearningRate * mHat / (math.Sqrt(vHat) + opt.Epsilon)
			}
		}
	}
}

// SGDOptimizer implements stochastic gradient descent with optional momentum.
// The default momentum of 0 gives plain mini-batch gradient descent.
type SGDOptimizer struct {
	LearningRate float64
	Momentum     float64

	velocity map[string]*autodiff.Matrix
}

// NewSGDOptimizer creates a new gradient descent optimizer
func NewSGDOptimizer(learningRate float64) *SGDOptimizer {
	return &SGDOptimizer{
		LearningRate: learningRate,
		velocity:     make(map[string]*autodiff.Matrix),
	}
}

// Step performs one optimization step over the accumulated gradients
func (opt *SGDOptimizer) Step(params map[string]*autodiff.Tensor) {
	for name, param := range params {
		if param.Grad == nil || !param.RequiresGrad {
			continue
		}
		if _, exists := opt.velocity[name]; !exists {
			opt.velocity[name] = autodiff.MustNewMatrix(param.Data.Rows, param.Data.Cols)
		}

		for i := 0; i < param.Data.Rows; i++ {
			for j := 0; j < param.Data.Cols; j++ {
				opt.velocity[name].Data[i][j] = opt.Momentum*opt.velocity[name].Data[i][j] -
					opt.LearningRate*param.Grad.Data[i][j]
				param.Data.Data[i][j] += opt.velocity[name].Data[i][j]
			}
		}
	}
}
