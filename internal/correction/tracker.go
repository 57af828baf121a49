package correction

import (
	"strings"
	"sync"
	"time"
)

const (
	DefaultMaxRecords = 50
	DefaultWindow     = 5 * time.Minute

	minWordLen  = 3
	maxLenDiff  = 2
	minRatio    = 0.5
	exactRatio  = 1.0
)

// Record pairs what the recognizer produced with what actually got typed.
type Record struct {
	Transcribed string
	Typed       string
	At          time.Time
}

// Pair is one inferred correction. No deduplication happens here; callers
// filter before persisting to the dictionary.
type Pair struct {
	Original  string
	Corrected string
}

// Tracker observes typed output over a bounded time window and infers
// dictionary corrections by word similarity.
type Tracker struct {
	mu         sync.Mutex
	records    []Record
	maxRecords int
	window     time.Duration
	now        func() time.Time
}

func NewTracker() *Tracker {
	return &Tracker{
		maxRecords: DefaultMaxRecords,
		window:     DefaultWindow,
		now:        time.Now,
	}
}

// RecordTyped remembers one transcribed-vs-typed observation.
func (t *Tracker) RecordTyped(transcribed, typed string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.records = append(t.records, Record{
		Transcribed: transcribed,
		Typed:       typed,
		At:          t.now(),
	})
	if len(t.records) > t.maxRecords {
		t.records = t.records[len(t.records)-t.maxRecords:]
	}
}

// DetectCorrections compares every transcribed word of the recent records
// against every word of newText and reports all likely corrections: the
// recognizer produced the original, the user later typed the fix.
func (t *Tracker) DetectCorrections(newText string) []Pair {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := t.now().Add(-t.window)
	newWords := strings.Fields(newText)

	var out []Pair
	for _, rec := range t.records {
		if rec.At.Before(cutoff) {
			continue
		}
		for _, old := range strings.Fields(rec.Transcribed) {
			for _, candidate := range newWords {
				if IsLikelyCorrection(old, candidate) {
					out = append(out, Pair{Original: old, Corrected: candidate})
				}
			}
		}
	}
	return out
}

// IsLikelyCorrection reports whether corrected looks like a fixed-up
// version of original: both words at least 3 chars, length difference at
// most 2, and an in-order character match ratio in [0.5, 1.0). Identical
// words are not corrections.
func IsLikelyCorrection(original, corrected string) bool {
	original = strings.ToLower(original)
	corrected = strings.ToLower(corrected)

	if len(original) < minWordLen || len(corrected) < minWordLen {
		return false
	}
	diff := len(original) - len(corrected)
	if diff < -maxLenDiff || diff > maxLenDiff {
		return false
	}

	ratio := inOrderMatchRatio(original, corrected)
	return ratio >= minRatio && ratio < exactRatio
}

// inOrderMatchRatio counts characters of the candidate that appear in
// order within the original, over the shorter word's length.
func inOrderMatchRatio(original, candidate string) float64 {
	matched := 0
	pos := 0
	for _, c := range candidate {
		idx := strings.IndexRune(original[pos:], c)
		if idx < 0 {
			continue
		}
		pos += idx + 1
		matched++
	}

	short := len(original)
	if len(candidate) < short {
		short = len(candidate)
	}
	if short == 0 {
		return 0
	}
	return float64(matched) / float64(short)
}
