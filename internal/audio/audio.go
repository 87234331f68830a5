// Package audio converts between container formats and a canonical
// in-memory waveform: mono float32 samples at a known sample rate.
package audio

import (
	"errors"
	"math"
)

// Decode/Encode failure classes. Wrapped errors carry detail; callers
// classify with errors.Is.
var (
	// ErrUnsupportedFormat means the container or codec cannot be parsed.
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	// ErrCorrupt means parsing succeeded structurally but the samples are
	// unusable (empty, truncated, or non-finite).
	ErrCorrupt = errors.New("corrupt audio")
)

// Waveform is decoded, codec-independent audio: mono samples in [-1, 1]
// at SampleRate Hz. SourceChannels records the channel count of the
// container it was decoded from (1 for generated audio).
type Waveform struct {
	Samples        []float32
	SampleRate     int
	SourceChannels int
}

// Duration returns the waveform length in seconds.
func (w Waveform) Duration() float64 {
	if w.SampleRate <= 0 {
		return 0
	}
	return float64(len(w.Samples)) / float64(w.SampleRate)
}

// validate rejects empty or non-finite sample data.
func (w Waveform) validate() error {
	if len(w.Samples) == 0 {
		return ErrCorrupt
	}
	for _, s := range w.Samples {
		f := float64(s)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return ErrCorrupt
		}
	}
	return nil
}

// downmix averages interleaved multi-channel samples into mono.
// Deterministic: mono output sample i is the mean of frame i's channels.
func downmix(interleaved []float32, channels int) []float32 {
	if channels <= 1 {
		return interleaved
	}
	frames := len(interleaved) / channels
	mono := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		for c := 0; c < channels; c++ {
			sum += interleaved[i*channels+c]
		}
		mono[i] = sum / float32(channels)
	}
	return mono
}

// clampSample limits a sample to the [-1, 1] range.
func clampSample(s float32) float32 {
	if s > 1 {
		return 1
	}
	if s < -1 {
		return -1
	}
	return s
}
