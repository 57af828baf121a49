package notify

import (
	log "log/slog"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/generators"
	"github.com/faiface/beep/speaker"
)

const (
	cueSampleRate = beep.SampleRate(44100)
	cueDuration   = 120 * time.Millisecond

	startPitch = 880.0
	stopPitch  = 440.0
)

var initOnce sync.Once

func initSpeaker() {
	initOnce.Do(func() {
		if err := speaker.Init(cueSampleRate, cueSampleRate.N(time.Second/10)); err != nil {
			log.Warn("speaker init failed, cues disabled", "err", err)
		}
	})
}

// ListenStart plays the rising cue when capture begins.
func ListenStart() { playTone(startPitch) }

// ListenStop plays the falling cue when capture ends.
func ListenStop() { playTone(stopPitch) }

func playTone(pitch float64) {
	initSpeaker()

	tone, err := generators.SinTone(cueSampleRate, int(pitch))
	if err != nil {
		log.Warn("tone generation failed", "pitch", pitch, "err", err)
		return
	}

	done := make(chan struct{})
	speaker.Play(beep.Seq(
		beep.Take(cueSampleRate.N(cueDuration), tone),
		beep.Callback(func() { close(done) }),
	))
	<-done
}
