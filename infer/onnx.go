// Package infer provides inference-only backends and the prompt
// completion loop used by the pangpt-prompt tool.
package infer

import (
	"fmt"

	ort "github.com/yalue/onnxruntime_go"

	"pangpt-go/pangpt"
)

// ONNXModel runs a trained encoder-decoder model exported to ONNX. It is
// inference-only: Backward and state loading report errors, so it cannot
// be used as a training replica.
type ONNXModel struct {
	modelPath   string
	vocabSize   int
	initialized bool
}

// NewONNXModel prepares an ONNX-backed model. The runtime environment is
// initialized once per process; sessions are created per request.
func NewONNXModel(modelPath string, vocabSize int) (*ONNXModel, error) {
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("failed to initialize ONNX runtime: %w", err)
		}
	}
	return &ONNXModel{
		modelPath:   modelPath,
		vocabSize:   vocabSize,
		initialized: true,
	}, nil
}

func toInt64Row(ids []int) []int64 {
	out := make([]int64, len(ids))
	for i, id := range ids {
		out[i] = int64(id)
	}
	return out
}

// Forward runs the exported model row by row and returns logits with
// shape [batch][seq][vocab].
func (m *ONNXModel) Forward(encoderInput, encoderMask, decoderInput, decoderMask [][]int) ([][][]float64, error) {
	if !m.initialized {
		return nil, fmt.Errorf("model not initialized")
	}
	if len(encoderInput) == 0 {
		return nil, fmt.Errorf("no sequences to process")
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	defer options.Destroy()

	if err := options.SetIntraOpNumThreads(4); err != nil {
		return nil, fmt.Errorf("failed to set threads: %w", err)
	}

	logits := make([][][]float64, len(encoderInput))
	for b := range encoderInput {
		encLen := int64(len(encoderInput[b]))
		decLen := int64(len(decoderInput[b]))

		inputs := make([]ort.Value, 0, 4)
		for _, in := range []struct {
			shape ort.Shape
			data  []int64
		}{
			{ort.NewShape(1, encLen), toInt64Row(encoderInput[b])},
			{ort.NewShape(1, encLen), toInt64Row(encoderMask[b])},
			{ort.NewShape(1, decLen), toInt64Row(decoderInput[b])},
			{ort.NewShape(1, decLen), toInt64Row(decoderMask[b])},
		} {
			tensor, err := ort.NewTensor(in.shape, in.data)
			if err != nil {
				for _, t := range inputs {
					t.Destroy()
				}
				return nil, fmt.Errorf("failed to create input tensor: %w", err)
			}
			inputs = append(inputs, tensor)
		}

		outputShape := ort.NewShape(1, decLen, int64(m.vocabSize))
		outputData := make([]float32, int(decLen)*m.vocabSize)
		outputTensor, err := ort.NewTensor(outputShape, outputData)
		if err != nil {
			for _, t := range inputs {
				t.Destroy()
			}
			return nil, fmt.Errorf("failed to create output tensor: %w", err)
		}

		session, err := ort.NewAdvancedSession(
			m.modelPath,
			[]string{"input_ids", "attention_mask", "decoder_input_ids", "decoder_attention_mask"},
			[]string{"logits"},
			inputs,
			[]ort.Value{outputTensor},
			options,
		)
		if err == nil {
			err = session.Run()
			session.Destroy()
		}
		for _, t := range inputs {
			t.Destroy()
		}
		if err != nil {
			outputTensor.Destroy()
			return nil, fmt.Errorf("inference failed: %w", err)
		}

		data := outputTensor.GetData()
		rows := make([][]float64, decLen)
		for t := 0; t < int(decLen); t++ {
			row := make([]float64, m.vocabSize)
			for v := 0; v < m.vocabSize; v++ {
				row[v] = float64(data[t*m.vocabSize+v])
			}
			rows[t] = row
		}
		outputTensor.Destroy()
		logits[b] = rows
	}

	return logits, nil
}

// Backward reports that the ONNX backend cannot train
func (m *ONNXModel) Backward(dLogits [][][]float64) error {
	return fmt.Errorf("ONNX model is inference-only")
}

// SetTraining is a no-op: the ONNX backend always runs in eval mode
func (m *ONNXModel) SetTraining(training bool) {}

// EnableGradientCheckpointing is a no-op for the ONNX backend
func (m *ONNXModel) EnableGradientCheckpointing() {}

// StateDict reports that the ONNX backend does not expose parameters
func (m *ONNXModel) StateDict() ([]byte, error) {
	return nil, fmt.Errorf("ONNX model does not expose trainable state")
}

// LoadStateDict reports that the ONNX backend does not accept parameters
func (m *ONNXModel) LoadStateDict(data []byte) error {
	return fmt.Errorf("ONNX model does not accept trainable state")
}

// Close marks the model unusable
func (m *ONNXModel) Close() error {
	m.initialized = false
	return nil
}

var _ pangpt.Model = (*ONNXModel)(nil)
