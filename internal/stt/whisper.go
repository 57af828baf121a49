package stt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"
	"time"

	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"murmur/pkg/audioconv"
)

// Whisper runs whisper.cpp locally, for offline mode and murmur-stt.
type Whisper struct {
	model    whisper.Model
	language string
	threads  int
}

func NewWhisper(modelPath, language string) (*Whisper, error) {
	if modelPath == "" {
		return nil, errors.New("empty model path")
	}
	m, err := whisper.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	if language == "" {
		language = "auto"
	}
	return &Whisper{model: m, language: language}, nil
}

func (w *Whisper) Close() error {
	if w.model == nil {
		return nil
	}
	return w.model.Close()
}

func (w *Whisper) Transcribe(ctx context.Context, wavData []byte) (Result, error) {
	pcm, sr, err := audioconv.DecodeWAV(wavData)
	if err != nil {
		return Result{}, fmt.Errorf("decode wav: %w", err)
	}
	if sr != audioconv.DefaultSampleRate {
		return Result{}, fmt.Errorf("whisper expects %d Hz input, got %d", audioconv.DefaultSampleRate, sr)
	}
	return w.TranscribePCM(ctx, pcm)
}

// TranscribePCM runs the model over mono float32 samples at 16 kHz.
func (w *Whisper) TranscribePCM(ctx context.Context, pcm []float32) (Result, error) {
	if w.model == nil {
		return Result{}, errors.New("nil model")
	}
	if len(pcm) == 0 {
		return Result{}, errors.New("no audio samples provided")
	}

	wctx, err := w.model.NewContext()
	if err != nil {
		return Result{}, fmt.Errorf("new context: %w", err)
	}
	if err := wctx.SetLanguage(w.language); err != nil {
		return Result{}, fmt.Errorf("set language: %w", err)
	}
	threads := w.threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	wctx.SetThreads(uint(threads))

	start := time.Now()
	if err := wctx.Process(pcm, nil, nil, nil); err != nil {
		return Result{}, fmt.Errorf("process: %w", err)
	}

	var parts []string
	var probSum float64
	var tokenCount int
	for {
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		default:
		}

		s, err := wctx.NextSegment()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Result{}, fmt.Errorf("next segment: %w", err)
		}
		parts = append(parts, strings.TrimSpace(s.Text))
		for _, tok := range s.Tokens {
			probSum += float64(tok.P)
			tokenCount++
		}
	}

	return Result{
		Text:       strings.Join(parts, " "),
		Confidence: meanConfidence(probSum, tokenCount),
		Duration:   time.Since(start),
		IsFinal:    true,
	}, nil
}

// meanConfidence averages token probabilities into one [0,1] score.
func meanConfidence(probSum float64, tokens int) float64 {
	if tokens == 0 {
		return 0
	}
	return probSum / float64(tokens)
}
