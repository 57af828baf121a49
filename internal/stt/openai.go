package stt

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/openai/openai-go/v3"
)

// OpenAI transcribes through the OpenAI audio transcriptions endpoint.
type OpenAI struct {
	client openai.Client
	model  openai.AudioModel
}

func NewOpenAI(client openai.Client, model string) *OpenAI {
	m := openai.AudioModel(model)
	if model == "" {
		m = openai.AudioModelWhisper1
	}
	return &OpenAI{client: client, model: m}
}

func (o *OpenAI) Transcribe(ctx context.Context, wavData []byte) (Result, error) {
	start := time.Now()
	resp, err := o.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		File:  openai.File(bytes.NewReader(wavData), "audio.wav", "audio/wav"),
		Model: o.model,
	})
	if err != nil {
		return Result{}, fmt.Errorf("transcription request: %w", err)
	}

	return Result{
		Text:     strings.TrimSpace(resp.Text),
		Duration: time.Since(start),
		IsFinal:  true,
	}, nil
}
