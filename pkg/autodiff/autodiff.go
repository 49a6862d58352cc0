package autodiff

import (
	"fmt"
	"math"
)

// Tensor represents a matrix with gradient tracking capabilities. Operations
// on tensors record a backward closure and the operand tensors, so that
// Backward can replay the computation graph in reverse topological order.
type Tensor struct {
	Data         *Matrix
	Grad         *Matrix
	RequiresGrad bool
	BackwardFn   func()
	Children     []*Tensor
	Name         string // Optional name for debugging
}

// TensorConfig holds configuration options for creating a tensor
type TensorConfig struct {
	RequiresGrad bool
	Name         string
}

// NewTensor creates a new tensor from a matrix with the specified configuration
func NewTensor(data *Matrix, config *TensorConfig) (*Tensor, error) {
	if data == nil {
		return nil, fmt.Errorf("data matrix cannot be nil")
	}

	if config == nil {
		config = &TensorConfig{}
	}

	var grad *Matrix
	var err error

	if config.RequiresGrad {
		grad, err = NewMatrix(data.Rows, data.Cols)
		if err != nil {
			return nil, fmt.Errorf("failed to create gradient matrix: %v", err)
		}
	}

	return &Tensor{
		Data:         data,
		Grad:         grad,
		RequiresGrad: config.RequiresGrad,
		Name:         config.Name,
	}, nil
}

// NewZerosTensor creates a new tensor filled with zeros
func NewZerosTensor(rows, cols int, config *TensorConfig) (*Tensor, error) {
	data, err := NewMatrix(rows, cols)
	if err != nil {
		return nil, err
	}
	return NewTensor(data, config)
}

// NewConstant creates a non-differentiable tensor wrapping the given matrix
func NewConstant(data *Matrix, name string) (*Tensor, error) {
	return NewTensor(data, &TensorConfig{RequiresGrad: false, Name: name})
}

// ZeroGrad zeros out the gradient
func (t *Tensor) ZeroGrad() {
	if t.Grad != nil {
		t.Grad.Zero()
	}
}

// Item returns the value of a 1x1 tensor
func (t *Tensor) Item() (float64, error) {
	if t.Data == nil || t.Data.Rows != 1 || t.Data.Cols != 1 {
		return 0, fmt.Errorf("Item requires a 1x1 tensor")
	}
	return t.Data.Data[0][0], nil
}

// Backward computes gradients for every tensor that contributed to t.
// t must be a scalar (1x1); its gradient is seeded with 1.0. Each recorded
// backward closure owns the accumulation into its operands' gradients.
func (t *Tensor) Backward() error {
	if t.Data.Rows != 1 || t.Data.Cols != 1 {
		return fmt.Errorf("backward pass requires a scalar tensor, got %dx%d", t.Data.Rows, t.Data.Cols)
	}
	if t.Grad == nil {
		return fmt.Errorf("backward pass requires a tensor with gradient tracking")
	}
	t.Grad.Data[0][0] = 1.0

	// Topological sort of the computation graph rooted at t
	visited := make(map[*Tensor]bool)
	topo := make([]*Tensor, 0)

	var buildTopo func(node *Tensor)
	buildTopo = func(node *Tensor) {
		if node == nil || visited[node] {
			return
		}
		visited[node] = true
		for _, child := range node.Children {
			buildTopo(child)
		}
		topo = append(topo, node)
	}
	buildTopo(t)

	for i := len(topo) - 1; i >= 0; i-- {
		if topo[i].BackwardFn != nil {
			topo[i].BackwardFn()
		}
	}

	return nil
}

func resultConfig(name string, operands ...*Tensor) *TensorConfig {
	requires := false
	for _, op := range operands {
		if op.RequiresGrad {
			requires = true
			break
		}
	}
	return &TensorConfig{RequiresGrad: requires, Name: name}
}

// MatMul performs matrix multiplication with gradient tracking
func MatMul(a, b *Tensor) (*Tensor, error) {
	if a == nil || b == nil {
		return nil, fmt.Errorf("input tensors cannot be nil")
	}

	if a.Data.Cols != b.Data.Rows {
		return nil, fmt.Errorf("matrix dimensions don't match for multiplication: a(%dx%d), b(%dx%d)",
			a.Data.Rows, a.Data.Cols, b.Data.Rows, b.Data.Cols)
	}

	result, err := NewZerosTensor(a.Data.Rows, b.Data.Cols, resultConfig("matmul", a, b))
	if err != nil {
		return nil, err
	}

	for i := 0; i < a.Data.Rows; i++ {
		for j := 0; j < b.Data.Cols; j++ {
			sum := 0.0
			for k := 0; k < a.Data.Cols; k++ {
				sum += a.Data.Data[i][k] * b.Data.Data[k][j]
			}
			result.Data.Data[i][j] = sum
		}
	}

	if result.RequiresGrad {
		result.Children = []*Tensor{a, b}
		result.BackwardFn = func() {
			if a.RequiresGrad {
				// dL/dA = dL/dC * B^T
				for i := 0; i < a.Data.Rows; i++ {
					for k := 0; k < a.Data.Cols; k++ {
						sum := 0.0
						for j := 0; j < b.Data.Cols; j++ {
							sum += result.Grad.Data[i][j] * b.Data.Data[k][j]
						}
						a.Grad.Data[i][k] += sum
					}
				}
			}
			if b.RequiresGrad {
				// dL/dB = A^T * dL/dC
				for k := 0; k < b.Data.Rows; k++ {
					for j := 0; j < b.Data.Cols; j++ {
						sum := 0.0
						for i := 0; i < a.Data.Rows; i++ {
							sum += a.Data.Data[i][k] * result.Grad.Data[i][j]
						}
						b.Grad.Data[k][j] += sum
					}
				}
			}
		}
	}

	return result, nil
}

// Add performs element-wise addition with gradient tracking
func Add(a, b *Tensor) (*Tensor, error) {
	if a == nil || b == nil {
		return nil, fmt.Errorf("input tensors cannot be nil")
	}

	if a.Data.Rows != b.Data.Rows || a.Data.Cols != b.Data.Cols {
		return nil, fmt.Errorf("matrix dimensions don't match for addition: a(%dx%d), b(%dx%d)",
			a.Data.Rows, a.Data.Cols, b.Data.Rows, b.Data.Cols)
	}

	result, err := NewZerosTensor(a.Data.Rows, a.Data.Cols, resultConfig("add", a, b))
	if err != nil {
		return nil, err
	}

	for i := 0; i < a.Data.Rows; i++ {
		for j := 0; j < a.Data.Cols; j++ {
			result.Data.Data[i][j] = a.Data.Data[i][j] + b.Data.Data[i][j]
		}
	}

	if result.RequiresGrad {
		result.Children = []*Tensor{a, b}
		result.BackwardFn = func() {
			for i := 0; i < a.Data.Rows; i++ {
				for j := 0; j < a.Data.Cols; j++ {
					if a.RequiresGrad {
						a.Grad.Data[i][j] += result.Grad.Data[i][j]
					}
					if b.RequiresGrad {
						b.Grad.Data[i][j] += result.Grad.Data[i][j]
					}
				}
			}
		}
	}

	return result, nil
}

// AddRowVector adds a 1xN row vector to every row of an MxN tensor. The
// gradient of the row vector is the column-wise sum of the output gradient.
func AddRowVector(a, row *Tensor) (*Tensor, error) {
	if a == nil || row == nil {
		return nil, fmt.Errorf("input tensors cannot be nil")
	}

	if row.Data.Rows != 1 || row.Data.Cols != a.Data.Cols {
		return nil, fmt.Errorf("row vector shape (%dx%d) doesn't broadcast over a(%dx%d)",
			row.Data.Rows, row.Data.Cols, a.Data.Rows, a.Data.Cols)
	}

	result, err := NewZerosTensor(a.Data.Rows, a.Data.Cols, resultConfig("add_row_vector", a, row))
	if err != nil {
		return nil, err
	}

	for i := 0; i < a.Data.Rows; i++ {
		for j := 0; j < a.Data.Cols; j++ {
			result.Data.Data[i][j] = a.Data.Data[i][j] + row.Data.Data[0][j]
		}
	}

	if result.RequiresGrad {
		result.Children = []*Tensor{a, row}
		result.BackwardFn = func() {
			for i := 0; i < a.Data.Rows; i++ {
				for j := 0; j < a.Data.Cols; j++ {
					if a.RequiresGrad {
						a.Grad.Data[i][j] += result.Grad.Data[i][j]
					}
					if row.RequiresGrad {
						row.Grad.Data[0][j] += result.Grad.Data[i][j]
					}
				}
			}
		}
	}

	return result, nil
}

// Subtract performs element-wise subtraction with gradient tracking
func Subtract(a, b *Tensor) (*Tensor, error) {
	if a == nil || b == nil {
		return nil, fmt.Errorf("input tensors cannot be nil")
	}

	if a.Data.Rows != b.Data.Rows || a.Data.Cols != b.Data.Cols {
		return nil, fmt.Errorf("matrix dimensions don't match for subtraction: a(%dx%d), b(%dx%d)",
			a.Data.Rows, a.Data.Cols, b.Data.Rows, b.Data.Cols)
	}

	result, err := NewZerosTensor(a.Data.Rows, a.Data.Cols, resultConfig("subtract", a, b))
	if err != nil {
		return nil, err
	}

	for i := 0; i < a.Data.Rows; i++ {
		for j := 0; j < a.Data.Cols; j++ {
			result.Data.Data[i][j] = a.Data.Data[i][j] - b.Data.Data[i][j]
		}
	}

	if result.RequiresGrad {
		result.Children = []*Tensor{a, b}
		result.BackwardFn = func() {
			for i := 0; i < a.Data.Rows; i++ {
				for j := 0; j < a.Data.Cols; j++ {
					if a.RequiresGrad {
						a.Grad.Data[i][j] += result.Grad.Data[i][j]
					}
					if b.RequiresGrad {
						b.Grad.Data[i][j] -= result.Grad.Data[i][j]
					}
				}
			}
		}
	}

	return result, nil
}

// Multiply performs element-wise multiplication (Hadamard product) with
// gradient tracking
func Multiply(a, b *Tensor) (*Tensor, error) {
	if a == nil || b == nil {
		return nil, fmt.Errorf("input tensors cannot be nil")
	}

	if a.Data.Rows != b.Data.Rows || a.Data.Cols != b.Data.Cols {
		return nil, fmt.Errorf("matrix dimensions don't match for element-wise multiplication: a(%dx%d), b(%dx%d)",
			a.Data.Rows, a.Data.Cols, b.Data.Rows, b.Data.Cols)
	}

	result, err := NewZerosTensor(a.Data.Rows, a.Data.Cols, resultConfig("multiply", a, b))
	if err != nil {
		return nil, err
	}

	for i := 0; i < a.Data.Rows; i++ {
		for j := 0; j < a.Data.Cols; j++ {
			result.Data.Data[i][j] = a.Data.Data[i][j] * b.Data.Data[i][j]
		}
	}

	if result.RequiresGrad {
		result.Children = []*Tensor{a, b}
		result.BackwardFn = func() {
			for i := 0; i < a.Data.Rows; i++ {
				for j := 0; j < a.Data.Cols; j++ {
					if a.RequiresGrad {
						a.Grad.Data[i][j] += result.Grad.Data[i][j] * b.Data.Data[i][j]
					}
					if b.RequiresGrad {
						b.Grad.Data[i][j] += result.Grad.Data[i][j] * a.Data.Data[i][j]
					}
				}
			}
		}
	}

	return result, nil
}

// ScalarMultiply multiplies a tensor by a scalar value with gradient tracking
func ScalarMultiply(a *Tensor, scalar float64) (*Tensor, error) {
	if a == nil {
		return nil, fmt.Errorf("input tensor cannot be nil")
	}

	result, err := NewZerosTensor(a.Data.Rows, a.Data.Cols, resultConfig("scalar_multiply", a))
	if err != nil {
		return nil, err
	}

	for i := 0; i < a.Data.Rows; i++ {
		for j := 0; j < a.Data.Cols; j++ {
			result.Data.Data[i][j] = a.Data.Data[i][j] * scalar
		}
	}

	if result.RequiresGrad {
		result.Children = []*Tensor{a}
		result.BackwardFn = func() {
			for i := 0; i < a.Data.Rows; i++ {
				for j := 0; j < a.Data.Cols; j++ {
					a.Grad.Data[i][j] += result.Grad.Data[i][j] * scalar
				}
			}
		}
	}

	return result, nil
}

// ScalarAdd adds a scalar value to every element with gradient tracking
func ScalarAdd(a *Tensor, scalar float64) (*Tensor, error) {
	if a == nil {
		return nil, fmt.Errorf("input tensor cannot be nil")
	}

	result, err := NewZerosTensor(a.Data.Rows, a.Data.Cols, resultConfig("scalar_add", a))
	if err != nil {
		return nil, err
	}

	for i := 0; i < a.Data.Rows; i++ {
		for j := 0; j < a.Data.Cols; j++ {
			result.Data.Data[i][j] = a.Data.Data[i][j] + scalar
		}
	}

	if result.RequiresGrad {
		result.Children = []*Tensor{a}
		result.BackwardFn = func() {
			for i := 0; i < a.Data.Rows; i++ {
				for j := 0; j < a.Data.Cols; j++ {
					a.Grad.Data[i][j] += result.Grad.Data[i][j]
				}
			}
		}
	}

	return result, nil
}

// Exp applies the exponential function element-wise with gradient tracking
func Exp(a *Tensor) (*Tensor, error) {
	if a == nil {
		return nil, fmt.Errorf("input tensor cannot be nil")
	}

	result, err := NewZerosTensor(a.Data.Rows, a.Data.Cols, resultConfig("exp", a))
	if err != nil {
		return nil, err
	}

	for i := 0; i < a.Data.Rows; i++ {
		for j := 0; j < a.Data.Cols; j++ {
			result.Data.Data[i][j] = math.Exp(a.Data.Data[i][j])
		}
	}

	if result.RequiresGrad {
		result.Children = []*Tensor{a}
		result.BackwardFn = func() {
			for i := 0; i < a.Data.Rows; i++ {
				for j := 0; j < a.Data.Cols; j++ {
					a.Grad.Data[i][j] += result.Grad.Data[i][j] * result.Data.Data[i][j]
				}
			}
		}
	}

	return result, nil
}

// ReLU applies the ReLU activation function with gradient tracking
func ReLU(a *Tensor) (*Tensor, error) {
	if a == nil {
		return nil, fmt.Errorf("input tensor cannot be nil")
	}

	result, err := NewZerosTensor(a.Data.Rows, a.Data.Cols, resultConfig("relu", a))
	if err != nil {
		return nil, err
	}

	for i := 0; i < a.Data.Rows; i++ {
		for j := 0; j < a.Data.Cols; j++ {
			if a.Data.Data[i][j] > 0 {
				result.Data.Data[i][j] = a.Data.Data[i][j]
			}
		}
	}

	if result.RequiresGrad {
		result.Children = []*Tensor{a}
		result.BackwardFn = func() {
			for i := 0; i < a.Data.Rows; i++ {
				for j := 0; j < a.Data.Cols; j++ {
					if a.Data.Data[i][j] > 0 {
						a.Grad.Data[i][j] += result.Grad.Data[i][j]
					}
				}
			}
		}
	}

	return result, nil
}

// Sum returns the sum of all elements as a 1x1 tensor with gradient tracking
func Sum(a *Tensor) (*Tensor, error) {
	if a == nil {
		return nil, fmt.Errorf("input tensor cannot be nil")
	}

	result, err := NewZerosTensor(1, 1, resultConfig("sum", a))
	if err != nil {
		return nil, err
	}

	sum := 0.0
	for i := 0; i < a.Data.Rows; i++ {
		for j := 0; j < a.Data.Cols; j++ {
			sum += a.Data.Data[i][j]
		}
	}
	result.Data.Data[0][0] = sum

	if result.RequiresGrad {
		result.Children = []*Tensor{a}
		result.BackwardFn = func() {
			for i := 0; i < a.Data.Rows; i++ {
				for j := 0; j < a.Data.Cols; j++ {
					a.Grad.Data[i][j] += result.Grad.Data[0][0]
				}
			}
		}
	}

	return result, nil
}
