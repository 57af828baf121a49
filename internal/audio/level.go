package audio

import "math"

const (
	levelSmoothPrev = 0.22
	levelSmoothNew  = 0.78
	loudThreshold   = 0.02
)

// chunkLoudness estimates perceived loudness of one chunk in [0,1],
// combining RMS, peak and the fraction of samples above a floor.
func chunkLoudness(chunk []float32) float64 {
	if len(chunk) == 0 {
		return 0
	}
	var sum, peak float64
	var above int
	for _, s := range chunk {
		v := math.Abs(float64(s))
		sum += v * v
		if v > peak {
			peak = v
		}
		if v > loudThreshold {
			above++
		}
	}
	rms := math.Sqrt(sum / float64(len(chunk)))
	frac := float64(above) / float64(len(chunk))

	loud := 0.6*math.Min(rms*8, 1) + 0.25*math.Min(peak, 1) + 0.15*frac
	return clampUnit(loud)
}

// smoothLevel applies exponential smoothing, weighted toward the new value
// so the meter reacts quickly but does not flicker.
func smoothLevel(prev, next float64) float64 {
	return clampUnit(levelSmoothPrev*prev + levelSmoothNew*next)
}

func clampUnit(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
