package pangpt

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrShapeMismatch is returned by LoadStateDict when a persisted state does
// not match the current model's shape.
var ErrShapeMismatch = errors.New("checkpoint and current model do not match in size")

// Model is an interface for the encoder-decoder sequence model.
// Implementations can be backed by native Go math, ONNX sessions, or
// bindings to external runtimes.
type Model interface {
	// Forward runs the model on a batch and returns logits with shape
	// [batch][seq][vocab]
	Forward(encoderInput, encoderMask, decoderInput, decoderMask [][]int) ([][][]float64, error)

	// Backward accumulates gradients from the loss gradient w.r.t. logits
	Backward(dLogits [][][]float64) error

	// SetTraining toggles training mode (dropout, gradient tracking)
	SetTraining(training bool)

	// EnableGradientCheckpointing trades recomputation for reduced
	// activation storage
	EnableGradientCheckpointing()

	// StateDict serializes the trainable parameters
	StateDict() ([]byte, error)

	// LoadStateDict restores trainable parameters, returning
	// ErrShapeMismatch if the persisted shape is incompatible
	LoadStateDict(data []byte) error
}

// Optimizer is an interface for gradient-step optimizers
type Optimizer interface {
	// Step applies accumulated gradients to the model parameters
	Step() error

	// ZeroGrad clears accumulated gradients
	ZeroGrad()

	// LR returns the current learning rate
	LR() float64

	// SetLR overrides the current learning rate
	SetLR(lr float64)

	// StateDict serializes the optimizer state
	StateDict() ([]byte, error)

	// LoadStateDict restores the optimizer state
	LoadStateDict(data []byte) error
}

// ModelFactory builds the per-worker model and optimizer pair. Each worker
// owns an independent instance; parameter averaging is out of scope here,
// so factories should seed identically for equivalent replicas.
type ModelFactory func(rank int) (Model, Optimizer, error)

// MockModel is a minimal trainable model for tests and CPU smoke runs.
// It predicts a single learned bias over the vocabulary at every position,
// which is enough to exercise the full training loop: loss goes down as the
// bias matches the label distribution.
type MockModel struct {
	vocabSize int
	weights   []float64
	grads     []float64
	training  bool
}

type mockModelState struct {
	VocabSize int       `json:"vocab_size"`
	Weights   []float64 `json:"weights"`
}

// NewMockModel creates a mock model over the given vocabulary
func NewMockModel(vocabSize int) *MockModel {
	return &MockModel{
		vocabSize: vocabSize,
		weights:   make([]float64, vocabSize),
		grads:     make([]float64, vocabSize),
	}
}

// Forward produces position-independent bias logits
func (m *MockModel) Forward(encoderInput, encoderMask, decoderInput, decoderMask [][]int) ([][][]float64, error) {
	if len(decoderInput) == 0 {
		return nil, fmt.Errorf("empty batch")
	}
	logits := make([][][]float64, len(decoderInput))
	for b := range decoderInput {
		logits[b] = make([][]float64, len(decoderInput[b]))
		for t := range decoderInput[b] {
			row := make([]float64, m.vocabSize)
			copy(row, m.weights)
			logits[b][t] = row
		}
	}
	return logits, nil
}

// Backward accumulates the logit gradient into the bias gradient
func (m *MockModel) Backward(dLogits [][][]float64) error {
	for _, seq := range dLogits {
		for _, row := range seq {
			if len(row) != m.vocabSize {
				return fmt.Errorf("gradient width %d does not match vocab size %d", len(row), m.vocabSize)
			}
			for v, g := range row {
				m.grads[v] += g
			}
		}
	}
	return nil
}

// SetTraining toggles training mode
func (m *MockModel) SetTraining(training bool) {
	m.training = training
}

// EnableGradientCheckpointing is a no-op for the mock model
func (m *MockModel) EnableGradientCheckpointing() {}

// StateDict serializes the bias parameters
func (m *MockModel) StateDict() ([]byte, error) {
	return json.Marshal(mockModelState{VocabSize: m.vocabSize, Weights: m.weights})
}

// LoadStateDict restores the bias parameters
func (m *MockModel) LoadStateDict(data []byte) error {
	var state mockModelState
	if err := json.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("failed to decode model state: %w", err)
	}
	if state.VocabSize != m.vocabSize || len(state.Weights) != m.vocabSize {
		return fmt.Errorf("%w: stored vocab %d, current vocab %d", ErrShapeMismatch, state.VocabSize, m.vocabSize)
	}
	copy(m.weights, state.Weights)
	return nil
}

// SGDOptimizer is a plain gradient-descent optimizer with weight decay,
// paired with MockModel for tests and smoke runs.
type SGDOptimizer struct {
	model       *MockModel
	lr          float64
	weightDecay float64
}

type sgdState struct {
	LR          float64 `json:"lr"`
	WeightDecay float64 `json:"weight_decay"`
}

// NewSGDOptimizer creates an optimizer bound to a mock model
func NewSGDOptimizer(model *MockModel, lr, weightDecay float64) *SGDOptimizer {
	return &SGDOptimizer{model: model, lr: lr, weightDecay: weightDecay}
}

// Step applies one gradient-descent update
func (o *SGDOptimizer) Step() error {
	for v := range o.model.weights {
		o.model.weights[v] -= o.lr * (o.model.grads[v] + o.weightDecay*o.model.weights[v])
	}
	return nil
}

// ZeroGrad clears accumulated gradients
func (o *SGDOptimizer) ZeroGrad() {
	for v := range o.model.grads {
		o.model.grads[v] = 0
	}
}

// LR returns the current learning rate
func (o *SGDOptimizer) LR() float64 { return o.lr }

// SetLR overrides the current learning rate
func (o *SGDOptimizer) SetLR(lr float64) { o.lr = lr }

// StateDict serializes the optimizer state
func (o *SGDOptimizer) StateDict() ([]byte, error) {
	return json.Marshal(sgdState{LR: o.lr, WeightDecay: o.weightDecay})
}

// LoadStateDict restores the optimizer state
func (o *SGDOptimizer) LoadStateDict(data []byte) error {
	var state sgdState
	if err := json.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("failed to decode optimizer state: %w", err)
	}
	o.lr = state.LR
	o.weightDecay = state.WeightDecay
	return nil
}
