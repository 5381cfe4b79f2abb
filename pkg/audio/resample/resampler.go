// ABOUTME: Simple linear resampler for converting audio sample rates
// ABOUTME: Interpolates interleaved float32 frames across chunk boundaries
package resample

// Resampler performs linear interpolation to convert between sample rates
type Resampler struct {
	inputRate  int
	outputRate int
	channels   int
	ratio      float64
	position   float64   // next output position in input frames, relative to prev
	prev       []float32 // last input frame of the previous chunk
	primed     bool
}

// New creates a new resampler
func New(inputRate, outputRate, channels int) *Resampler {
	if channels < 1 {
		channels = 1
	}
	return &Resampler{
		inputRate:  inputRate,
		outputRate: outputRate,
		channels:   channels,
		ratio:      float64(inputRate) / float64(outputRate),
		prev:       make([]float32, channels),
	}
}

// InputRate returns the source sample rate
func (r *Resampler) InputRate() int { return r.inputRate }

// OutputRate returns the target sample rate
func (r *Resampler) OutputRate() int { return r.outputRate }

// Passthrough reports whether the rates match
func (r *Resampler) Passthrough() bool { return r.inputRate == r.outputRate }

// sample returns sample ch of frame i of the chunk with prev prepended when primed
func (r *Resampler) sample(input []float32, i, ch int) float32 {
	if r.primed {
		if i == 0 {
			return r.prev[ch]
		}
		i--
	}
	return input[i*r.channels+ch]
}

// Process appends the resampled form of input (interleaved) to dst and returns it.
// Trailing samples that do not form a whole frame are ignored.
func (r *Resampler) Process(dst, input []float32) []float32 {
	inputFrames := len(input) / r.channels
	if inputFrames == 0 {
		return dst
	}
	if r.Passthrough() {
		return append(dst, input[:inputFrames*r.channels]...)
	}

	frames := inputFrames
	if r.primed {
		frames++
	}

	for {
		idx := int(r.position)
		// Need idx and idx+1 in this chunk
		if idx >= frames-1 {
			break
		}

		frac := float32(r.position - float64(idx))
		for ch := 0; ch < r.channels; ch++ {
			s1 := r.sample(input, idx, ch)
			s2 := r.sample(input, idx+1, ch)
			dst = append(dst, s1*(1-frac)+s2*frac)
		}
		r.position += r.ratio
	}

	// The last frame becomes index 0 of the next chunk
	last := (inputFrames - 1) * r.channels
	copy(r.prev, input[last:last+r.channels])
	r.position -= float64(frames - 1)
	r.primed = true

	return dst
}

// Reset forgets the carried frame and position
func (r *Resampler) Reset() {
	r.position = 0
	r.primed = false
	for i := range r.prev {
		r.prev[i] = 0
	}
}

// OutputSamplesNeeded estimates how many output samples input samples produce
func (r *Resampler) OutputSamplesNeeded(inputSamples int) int {
	inputFrames := inputSamples / r.channels
	outputFrames := int(float64(inputFrames)/r.ratio) + 1
	return outputFrames * r.channels
}

// InputSamplesNeeded estimates how many input samples produce outputSamples
func (r *Resampler) InputSamplesNeeded(outputSamples int) int {
	outputFrames := outputSamples / r.channels
	inputFrames := int(float64(outputFrames)*r.ratio) + 1
	return inputFrames * r.channels
}
