package stt

import (
	"context"
	"time"
)

// Result is one finished transcription. Empty Text means no speech was
// detected, which is a distinct outcome from a transport error.
type Result struct {
	Text       string
	Confidence float64
	Duration   time.Duration
	IsFinal    bool
}

// Transcriber turns a mono 16-bit PCM WAV buffer into text.
type Transcriber interface {
	Transcribe(ctx context.Context, wavData []byte) (Result, error)
}
