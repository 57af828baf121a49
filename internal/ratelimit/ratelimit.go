package ratelimit

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// Class partitions cloud traffic by endpoint type.
type Class string

const (
	ClassSpeech Class = "speech"
	ClassLLM    Class = "llm"
	ClassAPI    Class = "api"
)

// Config holds per-minute budgets. Zero means a sensible default.
type Config struct {
	SpeechPerMinute int `yaml:"speech_per_minute"`
	LLMPerMinute    int `yaml:"llm_per_minute"`
	APIPerMinute    int `yaml:"api_per_minute"`
}

// Limiter is an advisory, process-wide rate limiter per endpoint class.
// It is injected explicitly; callers that skip it are simply unthrottled.
type Limiter struct {
	limiters map[Class]*rate.Limiter
}

func New(cfg Config) *Limiter {
	return &Limiter{limiters: map[Class]*rate.Limiter{
		ClassSpeech: perMinute(cfg.SpeechPerMinute, 20),
		ClassLLM:    perMinute(cfg.LLMPerMinute, 20),
		ClassAPI:    perMinute(cfg.APIPerMinute, 60),
	}}
}

func perMinute(n, def int) *rate.Limiter {
	if n <= 0 {
		n = def
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(n)), n)
}

func (l *Limiter) Allow(class Class) bool {
	lim, ok := l.limiters[class]
	if !ok {
		return true
	}
	return lim.Allow()
}

func (l *Limiter) Wait(ctx context.Context, class Class) error {
	lim, ok := l.limiters[class]
	if !ok {
		return nil
	}
	if err := lim.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit %s: %w", class, err)
	}
	return nil
}
