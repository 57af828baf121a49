package audio

import (
	"math"
	"testing"
)

func TestAccumulatorAppendAndClear(t *testing.T) {
	acc := NewAccumulator()
	acc.AddSamples([]float32{1, 2})
	acc.AddSamples([]float32{3})

	got := acc.Samples()
	if len(got) != 3 {
		t.Fatalf("expected 3 samples, got %d", len(got))
	}
	if got[0] != 1 || got[2] != 3 {
		t.Errorf("samples out of order: %v", got)
	}

	acc.Clear()
	if acc.Len() != 0 {
		t.Errorf("expected empty after Clear, got %d", acc.Len())
	}
}

func TestAccumulatorSamplesReturnsCopy(t *testing.T) {
	acc := NewAccumulator()
	acc.AddSamples([]float32{1})
	got := acc.Samples()
	got[0] = 99
	if acc.Samples()[0] != 1 {
		t.Error("Samples must not alias the internal buffer")
	}
}

func TestSelectInputDeviceExactMatch(t *testing.T) {
	names := []string{"Built-in Audio", "USB Mic", "Hands-Free AG Audio"}
	if idx := selectInputDevice(names, 0, "USB Mic"); idx != 1 {
		t.Errorf("expected index 1, got %d", idx)
	}
}

func TestSelectInputDeviceAvoidsHandsFreeDefault(t *testing.T) {
	names := []string{"Hands-Free AG Audio", "Built-in Audio"}
	if idx := selectInputDevice(names, 0, ""); idx != 1 {
		t.Errorf("expected non-hands-free device at index 1, got %d", idx)
	}
}

func TestSelectInputDeviceKeepsHandsFreeWhenRequested(t *testing.T) {
	names := []string{"Hands-Free AG Audio", "Built-in Audio"}
	if idx := selectInputDevice(names, 1, "Hands-Free AG Audio"); idx != 0 {
		t.Errorf("explicit preference must win, got %d", idx)
	}
}

func TestSelectInputDeviceAllHandsFree(t *testing.T) {
	names := []string{"Hands-Free AG Audio", "Headset HSP"}
	if idx := selectInputDevice(names, 0, ""); idx != 0 {
		t.Errorf("with only hands-free inputs the default stays, got %d", idx)
	}
}

func TestSelectInputDeviceBadDefault(t *testing.T) {
	if idx := selectInputDevice([]string{"a"}, 5, ""); idx != -1 {
		t.Errorf("expected -1 for out-of-range default, got %d", idx)
	}
}

func TestChunkLoudnessSilenceIsZero(t *testing.T) {
	if l := chunkLoudness(make([]float32, 320)); l != 0 {
		t.Errorf("silence should be 0, got %f", l)
	}
	if l := chunkLoudness(nil); l != 0 {
		t.Errorf("empty chunk should be 0, got %f", l)
	}
}

func TestChunkLoudnessFullScaleNearOne(t *testing.T) {
	chunk := make([]float32, 320)
	for i := range chunk {
		chunk[i] = float32(math.Sin(2 * math.Pi * float64(i) / 32))
	}
	l := chunkLoudness(chunk)
	if l < 0.8 || l > 1 {
		t.Errorf("full-scale tone should be near 1, got %f", l)
	}
}

func TestSmoothLevelWeightsNewValue(t *testing.T) {
	got := smoothLevel(0, 1)
	if math.Abs(got-0.78) > 1e-9 {
		t.Errorf("expected 0.78, got %f", got)
	}
	if smoothLevel(2, 2) != 1 {
		t.Error("smoothed level must clamp to 1")
	}
}
