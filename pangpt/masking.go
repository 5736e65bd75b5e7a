package pangpt

import (
	"math"
	"strings"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Masker stochastically corrupts window text with the mask sentinel.
// The number of masked positions is Poisson-distributed with mean
// round(tokenCount * PropMasked) and is clamped at the token count, since
// index sampling is without replacement.
type Masker struct {
	PropMasked float64
	rng        *rand.Rand
}

// NewMasker creates a masker driven by the given random source
func NewMasker(propMasked float64, rng *rand.Rand) *Masker {
	return &Masker{PropMasked: propMasked, rng: rng}
}

// Mask replaces a random subset of whitespace-separated tokens with the
// mask sentinel and rejoins them with single spaces. A PropMasked of zero
// or less returns the input unchanged.
func (m *Masker) Mask(text string) string {
	if m.PropMasked <= 0 {
		return text
	}

	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return text
	}

	target := math.Round(float64(len(tokens)) * m.PropMasked)
	if target == 0 {
		// Poisson with mean zero never masks anything
		return text
	}
	numToMask := int(distuv.Poisson{Lambda: target, Src: m.rng}.Rand())
	if numToMask > len(tokens) {
		numToMask = len(tokens)
	}

	for _, idx := range m.rng.Perm(len(tokens))[:numToMask] {
		tokens[idx] = MaskToken
	}

	return strings.Join(tokens, " ")
}

// CollapseMaskRuns replaces every maximal run of consecutive mask-sentinel
// IDs with a single mask ID. The scan is a single linear pass, so the
// operation is idempotent and insensitive to run placement.
func CollapseMaskRuns(ids []int, maskID int) []int {
	out := make([]int, 0, len(ids))
	for i, id := range ids {
		if id == maskID && i > 0 && ids[i-1] == maskID {
			continue
		}
		out = append(out, id)
	}
	return out
}
