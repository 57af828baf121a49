package stt

import "testing"

func TestMeanConfidence(t *testing.T) {
	cases := []struct {
		probSum float64
		tokens  int
		want    float64
	}{
		{0, 0, 0},
		{0.9, 1, 0.9},
		{1.5, 2, 0.75},
	}
	for _, c := range cases {
		if got := meanConfidence(c.probSum, c.tokens); got != c.want {
			t.Errorf("meanConfidence(%v, %d) = %v, want %v", c.probSum, c.tokens, got, c.want)
		}
	}
}
