// murmur-stt transcribes an audio file offline with whisper.cpp. It
// accepts wav, mp3, ogg-vorbis and opus input and resamples everything to
// the 16 kHz mono float the model expects.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	cli "github.com/spf13/pflag"

	"github.com/lmittmann/tint"
	log "log/slog"

	"murmur/internal/stt"
	"murmur/pkg/audioconv"
)

func main() {
	model := cli.StringP("model", "m", "models/ggml-base.bin", "Whisper model path")
	language := cli.StringP("language", "L", "auto", "Transcription language")
	logLevel := cli.StringP("log", "l", "warn", "Log level")
	timeout := cli.DurationP("timeout", "t", 5*time.Minute, "Transcription timeout")
	cli.Parse()

	levels := map[string]log.Level{
		"debug": log.LevelDebug,
		"info":  log.LevelInfo,
		"warn":  log.LevelWarn,
		"error": log.LevelError,
	}
	log.SetDefault(log.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level: levels[*logLevel],
	})))

	args := cli.Args()
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: murmur-stt [flags] <audio file>")
		os.Exit(2)
	}

	pcm, err := audioconv.DecodeFileToPCM16k(args[0], audioconv.Options{})
	if err != nil {
		log.Error("Failed to decode audio", "file", args[0], "err", err)
		os.Exit(1)
	}
	log.Info("Decoded", "file", args[0], "samples", len(pcm))

	whisper, err := stt.NewWhisper(*model, *language)
	if err != nil {
		log.Error("Failed to load model", "model", *model, "err", err)
		os.Exit(1)
	}
	defer whisper.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	res, err := whisper.TranscribePCM(ctx, pcm)
	if err != nil {
		log.Error("Failed to transcribe", "err", err)
		os.Exit(1)
	}

	log.Info("Transcribed", "took", res.Duration)
	fmt.Println(res.Text)
}
