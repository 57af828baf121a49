package audio

// Accumulator collects the sample chunks of one utterance. It is a plain
// append buffer; the pipeline sequences all access around it.
type Accumulator struct {
	samples []float32
}

func NewAccumulator() *Accumulator {
	return &Accumulator{samples: make([]float32, 0, 16000*3)}
}

func (a *Accumulator) AddSamples(chunk []float32) {
	a.samples = append(a.samples, chunk...)
}

func (a *Accumulator) Samples() []float32 {
	out := make([]float32, len(a.samples))
	copy(out, a.samples)
	return out
}

func (a *Accumulator) Len() int { return len(a.samples) }

func (a *Accumulator) Clear() {
	a.samples = a.samples[:0]
}
