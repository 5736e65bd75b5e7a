package infer

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"

	"pangpt-go/pangpt"
)

// Generator produces completions from a prompt by feeding the (possibly
// masked) prompt to the encoder and sampling decoder tokens one at a time.
type Generator struct {
	Model       pangpt.Model
	Tokenizer   pangpt.Tokenizer
	Temperature float64
	MaxTokens   int

	rng *rand.Rand
}

// NewGenerator creates a generator with the given sampling seed
func NewGenerator(model pangpt.Model, tokenizer pangpt.Tokenizer, temperature float64, maxTokens int, seed uint64) *Generator {
	return &Generator{
		Model:       model,
		Tokenizer:   tokenizer,
		Temperature: temperature,
		MaxTokens:   maxTokens,
		rng:         rand.New(rand.NewSource(seed)),
	}
}

// Complete encodes the prompt, collapses any mask runs, and samples up to
// MaxTokens decoder tokens, stopping early at the end marker.
func (g *Generator) Complete(prompt string) (string, error) {
	encoderIDs, err := g.Tokenizer.Encode(prompt)
	if err != nil {
		return "", fmt.Errorf("failed to encode prompt: %w", err)
	}
	encoderIDs = pangpt.CollapseMaskRuns(encoderIDs, g.Tokenizer.MaskTokenID())
	if len(encoderIDs) == 0 {
		return "", fmt.Errorf("prompt encodes to no tokens")
	}

	start := g.Tokenizer.BosTokenID()
	if start < 0 {
		start = g.Tokenizer.PadTokenID()
	}
	eos := g.Tokenizer.EosTokenID()

	encMask := onesMask(len(encoderIDs))
	decoderIDs := []int{start}

	for len(decoderIDs) < g.MaxTokens+1 {
		logits, err := g.Model.Forward(
			[][]int{encoderIDs},
			[][]int{encMask},
			[][]int{decoderIDs},
			[][]int{onesMask(len(decoderIDs))},
		)
		if err != nil {
			return "", err
		}

		last := logits[0][len(decoderIDs)-1]
		next := g.sampleToken(last)
		if eos >= 0 && next == eos {
			break
		}
		decoderIDs = append(decoderIDs, next)
	}

	return g.Tokenizer.Decode(decoderIDs[1:], true)
}

// sampleToken samples from logits with temperature scaling
func (g *Generator) sampleToken(logits []float64) int {
	if g.Temperature <= 0 {
		return pangpt.Argmax(logits)
	}

	max := logits[0]
	for _, l := range logits {
		if l > max {
			max = l
		}
	}

	probs := make([]float64, len(logits))
	sum := 0.0
	for i, l := range logits {
		probs[i] = math.Exp((l - max) / g.Temperature)
		sum += probs[i]
	}

	r := g.rng.Float64() * sum
	cum := 0.0
	for i, p := range probs {
		cum += p
		if r <= cum {
			return i
		}
	}
	return len(probs) - 1
}

func onesMask(n int) []int {
	mask := make([]int, n)
	for i := range mask {
		mask[i] = 1
	}
	return mask
}
