package pangpt

// TrainingExample is the unit consumed by the model. All sequence fields
// have length exactly maxLength. Labels are padded with IgnoreIndex,
// inputs with the pad token, and the attention masks are 1 on real tokens
// and 0 on padding.
type TrainingExample struct {
	DecoderInput         []int
	EncoderInput         []int
	Labels               []int
	DecoderAttentionMask []int
	EncoderAttentionMask []int
	SequenceStart        int
}

// rotateRight shifts a sequence right by one position with wraparound:
// the last token becomes the first. This is the teacher-forcing shift fed
// to the decoder.
func rotateRight(ids []int) []int {
	if len(ids) == 0 {
		return nil
	}
	out := make([]int, 0, len(ids))
	out = append(out, ids[len(ids)-1])
	out = append(out, ids[:len(ids)-1]...)
	return out
}

// padTokens extends ids to maxLength with the given fill value
func padTokens(ids []int, maxLength, fill int) []int {
	for len(ids) < maxLength {
		ids = append(ids, fill)
	}
	return ids
}

// attentionMask builds a 0/1 mask of length maxLength with ones over the
// first realLen positions
func attentionMask(realLen, maxLength int) []int {
	mask := make([]int, maxLength)
	for i := 0; i < realLen && i < maxLength; i++ {
		mask[i] = 1
	}
	return mask
}

// AssembleExample combines window labels and the masked encoder IDs into a
// padded, aligned training example. Consecutive mask sentinels in the
// encoder input are collapsed before padding.
func AssembleExample(labels, encoderIDs []int, maxLength, padID, maskID int, sequenceStart bool) *TrainingExample {
	decoderInput := rotateRight(labels)
	lenDecoder := len(decoderInput)

	encoderInput := CollapseMaskRuns(encoderIDs, maskID)
	if len(encoderInput) > maxLength {
		encoderInput = encoderInput[:maxLength]
	}
	lenEncoder := len(encoderInput)

	labelsOut := make([]int, len(labels))
	copy(labelsOut, labels)

	start := 0
	if sequenceStart {
		start = 1
	}

	return &TrainingExample{
		DecoderInput:         padTokens(decoderInput, maxLength, padID),
		EncoderInput:         padTokens(encoderInput, maxLength, padID),
		Labels:               padTokens(labelsOut, maxLength, IgnoreIndex),
		DecoderAttentionMask: attentionMask(lenDecoder, maxLength),
		EncoderAttentionMask: attentionMask(lenEncoder, maxLength),
		SequenceStart:        start,
	}
}
