package pipeline

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"runtime"
	"strings"
	"sync"
	"time"

	"murmur/internal/audio"
	"murmur/internal/clipboard"
	"murmur/internal/correction"
	"murmur/internal/dispatch"
	"murmur/internal/intent"
	"murmur/internal/memory"
	"murmur/internal/ratelimit"
	"murmur/internal/stt"
	"murmur/pkg/audioconv"
)

var (
	ErrAlreadyListening = errors.New("already listening")
	ErrNotListening     = errors.New("not listening")
	ErrTooShort         = errors.New("recording too short")
	ErrNoSpeech         = errors.New("no speech detected")
)

const (
	// MinSamples is 100ms at 16 kHz; anything shorter never reaches the
	// transcriber.
	MinSamples = 1600

	// settleDelay lets trailing capture chunks drain after Stop.
	settleDelay = 150 * time.Millisecond

	// levelInterval paces the live loudness events on the bus.
	levelInterval = 100 * time.Millisecond
)

// Streamer is the capture side of the pipeline.
type Streamer interface {
	Start(preferredDevice string) error
	Stop()
	Chunks() <-chan []float32
	Level() float64
}

// Dispatcher executes one resolved action.
type Dispatcher interface {
	Dispatch(ctx context.Context, action intent.Action) (dispatch.CommandResult, error)
}

// Resolver maps a transcript plus context to an action.
type Resolver interface {
	Resolve(ctx context.Context, transcript string, vc intent.VoiceContext, cc intent.ConversationContext) intent.Action
}

// IntegrationLister reports which integrations are usable right now.
type IntegrationLister interface {
	ActiveNames() []string
}

// ClipboardReader feeds the clipboard preview into the LLM context.
type ClipboardReader interface {
	ReadClipboard() (string, error)
}

// Events receives pipeline lifecycle notifications. May be nil.
type Events interface {
	Publish(kind string, payload map[string]any)
}

// SessionResult is the outcome of one push-to-talk cycle.
type SessionResult struct {
	Transcript string
	Action     intent.Action
	Result     dispatch.CommandResult
	Duration   time.Duration
}

// Options tunes per-deployment pipeline behavior.
type Options struct {
	PreferredDevice string
	MinSamples      int
	SettleDelay     time.Duration
	LevelInterval   time.Duration
	Platform        string
	ShortTermCap    int
	FactCap         int
}

// Pipeline drives the full voice cycle: capture, transcription, intent
// resolution against conversation memory, then dispatch. One utterance is
// in flight at a time.
type Pipeline struct {
	streamer     Streamer
	transcriber  stt.Transcriber
	resolver     Resolver
	dispatcher   Dispatcher
	integrations IntegrationLister
	clip         ClipboardReader
	store        memory.Store
	limiter      *ratelimit.Limiter
	corrections  *correction.Tracker
	events       Events
	opts         Options

	mu           sync.Mutex
	listening    bool
	acc          *audio.Accumulator
	consumerDone chan struct{}

	convMu sync.Mutex
	conv   *memory.Conversation
}

func New(
	streamer Streamer,
	transcriber stt.Transcriber,
	resolver Resolver,
	dispatcher Dispatcher,
	integrations IntegrationLister,
	clip ClipboardReader,
	store memory.Store,
	limiter *ratelimit.Limiter,
	corrections *correction.Tracker,
	events Events,
	opts Options,
) (*Pipeline, error) {
	if opts.MinSamples <= 0 {
		opts.MinSamples = MinSamples
	}
	if opts.SettleDelay < 0 {
		opts.SettleDelay = 0
	} else if opts.SettleDelay == 0 {
		opts.SettleDelay = settleDelay
	}
	if opts.LevelInterval <= 0 {
		opts.LevelInterval = levelInterval
	}
	if opts.Platform == "" {
		opts.Platform = runtime.GOOS
	}

	p := &Pipeline{
		streamer:     streamer,
		transcriber:  transcriber,
		resolver:     resolver,
		dispatcher:   dispatcher,
		integrations: integrations,
		clip:         clip,
		store:        store,
		limiter:      limiter,
		corrections:  corrections,
		events:       events,
		opts:         opts,
		acc:          audio.NewAccumulator(),
	}
	if err := p.NewSession(); err != nil {
		return nil, err
	}
	return p, nil
}

// NewSession starts a fresh session and conversation. Facts do not carry
// over; they belong to the session that learned them.
func (p *Pipeline) NewSession() error {
	id, err := p.store.CreateSession()
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	p.convMu.Lock()
	p.conv = memory.NewConversation(id, p.opts.ShortTermCap, p.opts.FactCap)
	p.convMu.Unlock()

	p.publish("session_started", map[string]any{"session_id": id})
	return nil
}

// ClearConversation wipes the message window but keeps learned facts.
func (p *Pipeline) ClearConversation() {
	p.convMu.Lock()
	p.conv.Clear()
	id := p.conv.SessionID()
	p.convMu.Unlock()

	p.publish("conversation_cleared", map[string]any{"session_id": id})
}

func (p *Pipeline) SessionID() string {
	p.convMu.Lock()
	defer p.convMu.Unlock()
	return p.conv.SessionID()
}

func (p *Pipeline) Listening() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.listening
}

// Level reports the live input loudness while listening.
func (p *Pipeline) Level() float64 {
	return p.streamer.Level()
}

// StartListening opens the capture stream and begins accumulating audio.
func (p *Pipeline) StartListening() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.listening {
		return ErrAlreadyListening
	}

	p.acc.Clear()
	if err := p.streamer.Start(p.opts.PreferredDevice); err != nil {
		if errors.Is(err, audio.ErrAlreadyRecording) {
			return ErrAlreadyListening
		}
		return fmt.Errorf("start capture: %w", err)
	}

	done := make(chan struct{})
	p.consumerDone = done
	go func() {
		defer close(done)
		for chunk := range p.streamer.Chunks() {
			p.acc.AddSamples(chunk)
		}
	}()

	// live loudness for overlay UIs, paced by the ticker, gone when the
	// consumer drains out
	go func() {
		ticker := time.NewTicker(p.opts.LevelInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				p.publish("level", map[string]any{"level": p.streamer.Level()})
			}
		}
	}()

	p.listening = true
	p.publish("listening_started", nil)
	return nil
}

// StopListening ends capture and runs the captured audio through the full
// cycle. The context bounds the cloud calls, not the capture teardown.
func (p *Pipeline) StopListening(ctx context.Context) (SessionResult, error) {
	p.mu.Lock()
	if !p.listening {
		p.mu.Unlock()
		return SessionResult{}, ErrNotListening
	}
	p.listening = false
	done := p.consumerDone
	p.mu.Unlock()

	p.streamer.Stop()
	if p.opts.SettleDelay > 0 {
		time.Sleep(p.opts.SettleDelay)
	}
	<-done
	p.publish("listening_stopped", nil)

	samples := p.acc.Samples()
	if len(samples) < p.opts.MinSamples {
		return SessionResult{}, ErrTooShort
	}
	return p.process(ctx, samples)
}

// Toggle flips the listening state, processing on the falling edge.
func (p *Pipeline) Toggle(ctx context.Context) (SessionResult, bool, error) {
	if p.Listening() {
		res, err := p.StopListening(ctx)
		return res, false, err
	}
	return SessionResult{}, true, p.StartListening()
}

func (p *Pipeline) process(ctx context.Context, samples []float32) (SessionResult, error) {
	start := time.Now()

	wavData, err := audioconv.EncodeWAV(samples, audio.SampleRate)
	if err != nil {
		return SessionResult{}, fmt.Errorf("encode wav: %w", err)
	}

	if err := p.wait(ctx, ratelimit.ClassSpeech); err != nil {
		return SessionResult{}, err
	}
	sttRes, err := p.transcriber.Transcribe(ctx, wavData)
	if err != nil {
		return SessionResult{}, fmt.Errorf("transcribe: %w", err)
	}
	transcript := strings.TrimSpace(sttRes.Text)
	if transcript == "" {
		return SessionResult{}, ErrNoSpeech
	}
	log.Info("transcribed", "text", transcript, "confidence", sttRes.Confidence)
	p.publish("transcript", map[string]any{"text": transcript})

	// snapshot everything the prompt needs, then release the lock before
	// any network round trip
	p.convMu.Lock()
	userMsg := p.conv.AddUserMessage(transcript)
	sessionID := p.conv.SessionID()
	lastAction, lastPayload := p.conv.LastAction()
	cc := intent.ConversationContext{
		HistoryText:       p.conv.FormatForLLM(),
		LastAction:        lastAction,
		LastActionPayload: lastPayload,
		FactStrings:       p.conv.FactStrings(),
	}
	p.convMu.Unlock()

	if p.clip != nil {
		if content, err := p.clip.ReadClipboard(); err == nil {
			cc.ClipboardPreview = clipboard.Preview(content)
		}
	}

	vc := intent.VoiceContext{Platform: p.opts.Platform}
	if p.integrations != nil {
		vc.Integrations = p.integrations.ActiveNames()
	}
	if commands, err := p.store.ListCustomCommands(); err == nil {
		vc.CustomCommands = commands
	} else {
		log.Warn("list custom commands failed", "err", err)
	}

	if err := p.wait(ctx, ratelimit.ClassLLM); err != nil {
		return SessionResult{}, err
	}
	action := p.resolver.Resolve(ctx, transcript, vc, cc)
	log.Info("resolved", "action", action.Kind)

	result, dispatchErr := p.dispatcher.Dispatch(ctx, action)
	if dispatchErr != nil {
		log.Warn("dispatch failed", "action", action.Kind, "err", dispatchErr)
		result = dispatch.CommandResult{Success: false, Message: dispatchErr.Error()}
	}

	success := result.Success
	p.convMu.Lock()
	for _, f := range action.Facts {
		p.conv.AddFact(f.Category, f.Key, f.Value, userMsg.ID)
	}
	assistantMsg := p.conv.AddAssistantMessage(result.Message, string(action.Kind), &success, action.Payload)
	p.convMu.Unlock()

	p.learnCorrections(transcript, action, result)
	p.persist(sessionID, userMsg, assistantMsg)

	p.publish("action_completed", map[string]any{
		"action":  string(action.Kind),
		"success": result.Success,
		"message": result.Message,
	})

	return SessionResult{
		Transcript: transcript,
		Action:     action,
		Result:     result,
		Duration:   time.Since(start),
	}, nil
}

// learnCorrections feeds typed output through the correction tracker and
// saves inferred pairs to the user dictionary. Failures only log.
func (p *Pipeline) learnCorrections(transcript string, action intent.Action, result dispatch.CommandResult) {
	if p.corrections == nil || action.Kind != intent.KindTypeText || result.Output == "" {
		return
	}

	for _, pair := range p.corrections.DetectCorrections(result.Output) {
		if err := p.store.SaveDictionaryEntry(pair.Original, pair.Corrected); err != nil {
			log.Warn("save dictionary entry failed", "err", err)
		} else {
			log.Debug("learned correction", "original", pair.Original, "corrected", pair.Corrected)
		}
	}
	p.corrections.RecordTyped(transcript, result.Output)
}

// persist mirrors in-memory state to the store. The store is a mirror, not
// the source of truth; every failure here only logs.
func (p *Pipeline) persist(sessionID string, msgs ...memory.Message) {
	for _, m := range msgs {
		if err := p.store.SaveMessage(sessionID, m); err != nil {
			log.Warn("save message failed", "err", err)
		}
	}

	p.convMu.Lock()
	facts := p.conv.Facts()
	p.convMu.Unlock()
	for _, f := range facts {
		if err := p.store.SaveFact(sessionID, f); err != nil {
			log.Warn("save fact failed", "err", err)
		}
	}

	if err := p.store.TouchSession(sessionID); err != nil {
		log.Warn("touch session failed", "err", err)
	}
}

func (p *Pipeline) wait(ctx context.Context, class ratelimit.Class) error {
	if p.limiter == nil {
		return nil
	}
	return p.limiter.Wait(ctx, class)
}

func (p *Pipeline) publish(kind string, payload map[string]any) {
	if p.events != nil {
		p.events.Publish(kind, payload)
	}
}
