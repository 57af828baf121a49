package correction

import (
	"testing"
	"time"
)

func TestIsLikelyCorrectionFixtures(t *testing.T) {
	cases := []struct {
		original  string
		corrected string
		want      bool
	}{
		{"teh", "the", true},
		{"hello", "hello", false}, // identical, ratio 1.0 excluded
		{"cat", "elephant", false}, // length difference too large
		{"ab", "abc", false},       // below minimum word length
		{"recieve", "receive", true},
	}
	for _, c := range cases {
		if got := IsLikelyCorrection(c.original, c.corrected); got != c.want {
			t.Errorf("IsLikelyCorrection(%q, %q) = %v, want %v", c.original, c.corrected, got, c.want)
		}
	}
}

func TestDetectCorrectionsFindsPairs(t *testing.T) {
	tr := NewTracker()
	tr.RecordTyped("send teh file", "send teh file")

	pairs := tr.DetectCorrections("send the file")
	found := false
	for _, p := range pairs {
		if p.Original == "teh" && p.Corrected == "the" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected teh->the pair, got %v", pairs)
	}
}

func TestDetectCorrectionsUsesTranscribedSide(t *testing.T) {
	tr := NewTracker()
	// the recognizer heard "teh", the user typed something else entirely;
	// a later typed "the" still corrects the transcription
	tr.RecordTyped("teh cat", "never mind")

	pairs := tr.DetectCorrections("the cat")
	found := false
	for _, p := range pairs {
		if p.Original == "teh" && p.Corrected == "the" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected teh->the from the transcribed text, got %v", pairs)
	}

	// words only present in the typed text must not produce pairs
	tr2 := NewTracker()
	tr2.RecordTyped("fine words", "recieve")
	if pairs := tr2.DetectCorrections("receive"); len(pairs) != 0 {
		t.Errorf("typed-only words must be ignored, got %v", pairs)
	}
}

func TestDetectCorrectionsNoDedup(t *testing.T) {
	tr := NewTracker()
	tr.RecordTyped("teh teh", "teh teh")

	pairs := tr.DetectCorrections("the")
	if len(pairs) != 2 {
		t.Errorf("full cross-product is reported without dedup, got %d pairs", len(pairs))
	}
}

func TestDetectCorrectionsRespectsTimeWindow(t *testing.T) {
	tr := NewTracker()
	base := time.Now()
	tr.now = func() time.Time { return base.Add(-10 * time.Minute) }
	tr.RecordTyped("teh", "x")

	tr.now = func() time.Time { return base }
	if pairs := tr.DetectCorrections("the"); len(pairs) != 0 {
		t.Errorf("records outside the window must be ignored, got %v", pairs)
	}
}

func TestRecordTypedBoundsQueue(t *testing.T) {
	tr := NewTracker()
	for i := 0; i < DefaultMaxRecords+20; i++ {
		tr.RecordTyped("a", "b")
	}
	if len(tr.records) != DefaultMaxRecords {
		t.Errorf("queue must stay bounded at %d, got %d", DefaultMaxRecords, len(tr.records))
	}
}
