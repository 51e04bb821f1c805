package drm

// Resample converts samples at inRate to the fixed internal SampleRate
// using naive linear interpolation. A no-op copy is returned when the
// rates already match.
func Resample(samples []float64, inRate int) []float64 {
	if inRate == SampleRate || len(samples) == 0 {
		out := make([]float64, len(samples))
		copy(out, samples)
		return out
	}

	ratio := float64(inRate) / float64(SampleRate)
	outLen := int(float64(len(samples)) / ratio)
	out := make([]float64, outLen)
	for i := range out {
		srcPos := float64(i) * ratio
		i0 := int(srcPos)
		frac := srcPos - float64(i0)
		if i0+1 < len(samples) {
			out[i] = samples[i0]*(1-frac) + samples[i0+1]*frac
		} else {
			out[i] = samples[len(samples)-1]
		}
	}
	return out
}
