package audioconv

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	popus "github.com/pekim/opus"
)

const DefaultSampleRate = 16000

type Options struct {
	MaxSamples int
}

// EncodeWAV packs mono float32 samples into a 16-bit PCM WAV container.
// This is the exact byte format handed to transcription backends.
func EncodeWAV(samples []float32, sampleRate int) ([]byte, error) {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	if len(samples) == 0 {
		return nil, errors.New("no samples to encode")
	}

	ints := make([]int, len(samples))
	for i, s := range samples {
		v := clamp(float64(s), -1.0, 1.0)
		ints[i] = int(math.Round(v * 32767.0))
	}

	var mem memWriter
	enc := wav.NewEncoder(&mem, sampleRate, 16, 1, 1)
	err := enc.Write(&audio.IntBuffer{
		Data:           ints,
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		SourceBitDepth: 16,
	})
	if err != nil {
		return nil, fmt.Errorf("wav write: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("wav close: %w", err)
	}
	return mem.buf, nil
}

// DecodeWAV is the inverse of EncodeWAV: WAV bytes to float32 samples
// plus the container's sample rate.
func DecodeWAV(data []byte) ([]float32, int, error) {
	return decodeWAV(bytes.NewReader(data), Options{}, false)
}

// DecodeFileToPCM16k loads a wav/mp3/ogg file and converts it to
// mono float32 at 16 kHz, ready for a transcriber.
func DecodeFileToPCM16k(path string, opt Options) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return decodeWAVTo16k(f, opt)
	case ".mp3":
		return decodeMP3To16k(f, opt)
	case ".ogg", ".oga":
		return decodeOggTo16k(f, opt)
	default:
		br := bufio.NewReader(f)
		magic, _ := br.Peek(4)
		_, _ = f.Seek(0, io.SeekStart)
		switch string(magic) {
		case "RIFF":
			return decodeWAVTo16k(f, opt)
		case "OggS":
			return decodeOggTo16k(f, opt)
		default:
			return nil, fmt.Errorf("unsupported format: %s (supported: wav/mp3/ogg)", path)
		}
	}
}

func decodeWAV(r io.ReadSeeker, opt Options, to16k bool) ([]float32, int, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, 0, errors.New("invalid wav")
	}
	pb, err := dec.FullPCMBuffer()
	if err != nil || pb == nil || pb.Data == nil {
		if err == nil {
			err = errors.New("empty wav")
		}
		return nil, 0, err
	}

	bd := int(dec.BitDepth)
	if bd == 0 {
		bd = 16
	}
	x := intSliceToFloat32(pb.Data, bd)

	ch := 1
	sr := 44100
	if pb.Format != nil {
		if pb.Format.NumChannels > 0 {
			ch = pb.Format.NumChannels
		}
		if pb.Format.SampleRate > 0 {
			sr = pb.Format.SampleRate
		}
	}
	if ch > 1 {
		x = downmixInterleaved(x, ch)
	}
	if to16k && sr != DefaultSampleRate {
		x = resampleLinear(x, sr, DefaultSampleRate)
		sr = DefaultSampleRate
	}
	if opt.MaxSamples > 0 && len(x) > opt.MaxSamples {
		x = x[:opt.MaxSamples]
	}
	return x, sr, nil
}

func decodeWAVTo16k(r io.ReadSeeker, opt Options) ([]float32, error) {
	x, _, err := decodeWAV(r, opt, true)
	return x, err
}

func decodeMP3To16k(r io.Reader, opt Options) ([]float32, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, err
	}
	var raw bytes.Buffer
	if _, err := io.Copy(&raw, dec); err != nil {
		return nil, err
	}
	ints := make([]int16, raw.Len()/2)
	if err := binary.Read(bytes.NewReader(raw.Bytes()), binary.LittleEndian, &ints); err != nil {
		return nil, err
	}
	x := int16SliceToFloat32(ints)
	x = downmixInterleaved(x, 2) // mp3 decoder outputs stereo

	sr := dec.SampleRate()
	if sr <= 0 {
		sr = 44100
	}
	if sr != DefaultSampleRate {
		x = resampleLinear(x, sr, DefaultSampleRate)
	}
	if opt.MaxSamples > 0 && len(x) > opt.MaxSamples {
		x = x[:opt.MaxSamples]
	}
	return x, nil
}

func decodeOggTo16k(f *os.File, opt Options) ([]float32, error) {
	if s, err := decodeOggVorbisTo16k(f, opt); err == nil {
		return s, nil
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	s, err := decodeOggOpusTo16k(f, opt)
	if err != nil {
		return nil, fmt.Errorf("cannot decode ogg as vorbis or opus: %w", err)
	}
	return s, nil
}

func decodeOggVorbisTo16k(r io.Reader, opt Options) ([]float32, error) {
	pcm, format, err := oggvorbis.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if format == nil || format.Channels <= 0 || format.SampleRate <= 0 {
		return nil, errors.New("invalid ogg/vorbis stream")
	}
	x := pcm
	if format.Channels > 1 {
		x = downmixInterleaved(pcm, format.Channels)
	}
	if format.SampleRate != DefaultSampleRate {
		x = resampleLinear(x, format.SampleRate, DefaultSampleRate)
	}
	if opt.MaxSamples > 0 && len(x) > opt.MaxSamples {
		x = x[:opt.MaxSamples]
	}
	return x, nil
}

func decodeOggOpusTo16k(rs io.ReadSeeker, opt Options) ([]float32, error) {
	dec, err := popus.NewDecoder(rs)
	if err != nil {
		return nil, err
	}
	defer dec.Destroy()

	ch := dec.ChannelCount()
	if ch <= 0 {
		ch = 1
	}

	// Opus always decodes at 48 kHz.
	var pcm48 []float32
	buf := make([]int16, 48_000*ch/2)
	for {
		n, err := dec.Read(buf)
		if n > 0 {
			pcm48 = append(pcm48, int16SliceToFloat32(buf[:n*ch])...)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
	}
	if len(pcm48) == 0 {
		return nil, nil
	}

	if ch > 1 {
		pcm48 = downmixInterleaved(pcm48, ch)
	}
	out := resampleLinear(pcm48, 48000, DefaultSampleRate)
	if opt.MaxSamples > 0 && len(out) > opt.MaxSamples {
		out = out[:opt.MaxSamples]
	}
	return out, nil
}

// memWriter adapts a growable byte slice to the io.WriteSeeker the
// wav encoder needs for header backpatching.
type memWriter struct {
	buf []byte
	pos int
}

func (m *memWriter) Write(p []byte) (int, error) {
	if need := m.pos + len(p); need > len(m.buf) {
		grown := make([]byte, need)
		copy(grown, m.buf)
		m.buf = grown
	}
	copy(m.buf[m.pos:], p)
	m.pos += len(p)
	return len(p), nil
}

func (m *memWriter) Seek(offset int64, whence int) (int64, error) {
	var abs int
	switch whence {
	case io.SeekStart:
		abs = int(offset)
	case io.SeekCurrent:
		abs = m.pos + int(offset)
	case io.SeekEnd:
		abs = len(m.buf) + int(offset)
	default:
		return 0, errors.New("invalid whence")
	}
	if abs < 0 {
		return 0, errors.New("negative seek position")
	}
	m.pos = abs
	return int64(abs), nil
}

// helpers

func intSliceToFloat32(data []int, bitDepth int) []float32 {
	out := make([]float32, len(data))
	scale := 1.0 / float64(int64(1)<<(bitDepth-1))
	for i, v := range data {
		out[i] = float32(clamp(float64(v)*scale, -1.0, 1.0))
	}
	return out
}

func int16SliceToFloat32(data []int16) []float32 {
	out := make([]float32, len(data))
	const scale = 1.0 / 32768.0
	for i, v := range data {
		out[i] = float32(float64(v) * scale)
	}
	return out
}

func downmixInterleaved(in []float32, channels int) []float32 {
	if channels <= 1 {
		return in
	}
	nFrames := len(in) / channels
	out := make([]float32, nFrames)
	for i := 0; i < nFrames; i++ {
		sum := 0.0
		base := i * channels
		for c := 0; c < channels; c++ {
			sum += float64(in[base+c])
		}
		out[i] = float32(sum / float64(channels))
	}
	return out
}

func resampleLinear(in []float32, inSR, outSR int) []float32 {
	if inSR == outSR || len(in) == 0 {
		return in
	}
	ratio := float64(outSR) / float64(inSR)
	outN := int(math.Ceil(float64(len(in)) * ratio))
	out := make([]float32, outN)
	for i := 0; i < outN; i++ {
		src := float64(i) / ratio
		i0 := int(math.Floor(src))
		i1 := i0 + 1
		if i0 >= len(in) {
			out[i] = in[len(in)-1]
			continue
		}
		if i1 >= len(in) {
			out[i] = in[i0]
			continue
		}
		a := float32(src - float64(i0))
		out[i] = in[i0]*(1-a) + in[i1]*a
	}
	return out
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
