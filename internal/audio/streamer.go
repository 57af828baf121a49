package audio

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
)

var ErrAlreadyRecording = errors.New("already recording")

const (
	SampleRate = 16000
	frameSize  = 320 // 20ms
)

// Streamer owns the live portaudio capture stream. Chunks are delivered
// both into an internal growable buffer and onto a non-blocking channel;
// the portaudio callback never blocks.
type Streamer struct {
	mu     sync.Mutex
	stream *portaudio.Stream
	active bool
	chunks chan []float32

	bufMu sync.Mutex
	buf   []float32

	levelMu sync.Mutex
	level   float64
}

func NewStreamer() *Streamer { return &Streamer{} }

// Init must be called once before Start; Close pairs with it.
func (s *Streamer) Init() error {
	return portaudio.Initialize()
}

func (s *Streamer) Close() {
	portaudio.Terminate()
}

// Start opens the capture stream on the requested device (exact name match)
// or the platform default, avoiding Bluetooth hands-free inputs when no
// explicit preference was given.
func (s *Streamer) Start(preferredDevice string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active {
		return ErrAlreadyRecording
	}

	dev, err := pickDevice(preferredDevice)
	if err != nil {
		return err
	}

	params := portaudio.LowLatencyParameters(dev, nil)
	params.Input.Channels = 1
	params.SampleRate = SampleRate
	params.FramesPerBuffer = frameSize

	s.chunks = make(chan []float32, 64)
	s.bufMu.Lock()
	s.buf = s.buf[:0]
	s.bufMu.Unlock()

	stream, err := portaudio.OpenStream(params, s.onChunk)
	if err != nil {
		return fmt.Errorf("open stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("start stream: %w", err)
	}

	s.stream = stream
	s.active = true
	return nil
}

// onChunk runs on the portaudio callback thread.
func (s *Streamer) onChunk(in []float32) {
	chunk := make([]float32, len(in))
	copy(chunk, in)

	s.bufMu.Lock()
	s.buf = append(s.buf, chunk...)
	s.bufMu.Unlock()

	select {
	case s.chunks <- chunk:
	default:
		// consumer is behind, drop rather than stall capture
	}

	loud := chunkLoudness(chunk)
	s.levelMu.Lock()
	s.level = smoothLevel(s.level, loud)
	s.levelMu.Unlock()
}

// Stop halts capture and zeroes the live level. Idempotent.
func (s *Streamer) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return
	}
	s.active = false

	s.stream.Stop()
	s.stream.Close()
	s.stream = nil
	close(s.chunks)

	s.levelMu.Lock()
	s.level = 0
	s.levelMu.Unlock()
}

// Chunks returns the channel the current session's chunks arrive on.
// It is closed by Stop.
func (s *Streamer) Chunks() <-chan []float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chunks
}

// Samples returns a copy of everything captured since Start.
func (s *Streamer) Samples() []float32 {
	s.bufMu.Lock()
	defer s.bufMu.Unlock()
	out := make([]float32, len(s.buf))
	copy(out, s.buf)
	return out
}

// Level reports the smoothed input loudness in [0,1].
func (s *Streamer) Level() float64 {
	s.levelMu.Lock()
	defer s.levelMu.Unlock()
	return s.level
}

func (s *Streamer) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func pickDevice(preferred string) (*portaudio.DeviceInfo, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}

	inputs := make([]*portaudio.DeviceInfo, 0, len(devices))
	for _, d := range devices {
		if d.MaxInputChannels > 0 {
			inputs = append(inputs, d)
		}
	}
	if len(inputs) == 0 {
		return nil, errors.New("no input devices available")
	}

	def, err := portaudio.DefaultInputDevice()
	if err != nil {
		def = inputs[0]
	}

	names := make([]string, len(inputs))
	defaultIdx := 0
	for i, d := range inputs {
		names[i] = d.Name
		if d.Name == def.Name {
			defaultIdx = i
		}
	}

	idx := selectInputDevice(names, defaultIdx, preferred)
	if idx < 0 {
		return nil, errors.New("no usable input device")
	}
	return inputs[idx], nil
}
