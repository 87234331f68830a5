// Package dsp provides pure-Go capability adapters for the voice
// pipeline: a deterministic spectral speaker-profile extractor and a
// harmonic synthesizer. They run everywhere (no ONNX Runtime, no CGO)
// and back the test suite; the onnx package supplies model-based
// adapters when a runtime and model files are available.
package dsp

import (
	"context"
	"math"

	"github.com/voxloop/vox/internal/audio"
	"github.com/voxloop/vox/internal/voice"
)

const (
	// EmbeddingDim is the fixed speaker embedding length.
	EmbeddingDim = 256

	// MinDuration is the shortest clip that yields a usable profile.
	// Shorter clips fail with InsufficientAudio.
	MinDuration = 0.5

	extractorVersion = "spectral-v1"

	numBands    = EmbeddingDim / 2
	frameLength = 0.025 // seconds
	frameHop    = 0.010 // seconds
	minBandHz   = 80.0
	maxBandHz   = 7600.0
)

// Extractor derives a speaker profile from band energies: 128 mel-spaced
// bands, per-band log-energy mean and deviation across frames, L2
// normalized. Deterministic: identical audio yields an identical vector.
type Extractor struct{}

// NewExtractor returns the spectral extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Dimensions() int {
	return EmbeddingDim
}

func (e *Extractor) Version() string {
	return extractorVersion
}

// Extract computes the embedding and the clip duration.
func (e *Extractor) Extract(ctx context.Context, w audio.Waveform) ([]float32, float64, error) {
	const op = "dsp.Extract"

	duration := w.Duration()
	if duration < MinDuration {
		return nil, 0, voice.NewError(voice.KindInsufficientAudio, op,
			"clip too short for a reliable embedding")
	}

	frameLen := int(frameLength * float64(w.SampleRate))
	hop := int(frameHop * float64(w.SampleRate))
	if frameLen < 2 || hop < 1 {
		return nil, 0, voice.NewError(voice.KindEmbeddingCompute, op, "sample rate too low to frame")
	}

	centers := melBandCenters(numBands, w.SampleRate)
	window := hannWindow(frameLen)

	var (
		sums   [numBands]float64
		sqSums [numBands]float64
		frames int
	)

	buf := make([]float64, frameLen)
	for start := 0; start+frameLen <= len(w.Samples); start += hop {
		if frames%64 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, 0, err
			}
		}
		for i := 0; i < frameLen; i++ {
			buf[i] = float64(w.Samples[start+i]) * window[i]
		}
		for b, hz := range centers {
			energy := goertzel(buf, hz, w.SampleRate)
			logE := math.Log(energy + 1e-10)
			sums[b] += logE
			sqSums[b] += logE * logE
		}
		frames++
	}
	if frames == 0 {
		return nil, 0, voice.NewError(voice.KindEmbeddingCompute, op, "no complete analysis frame")
	}

	vec := make([]float32, EmbeddingDim)
	for b := 0; b < numBands; b++ {
		mean := sums[b] / float64(frames)
		variance := sqSums[b]/float64(frames) - mean*mean
		if variance < 0 {
			variance = 0
		}
		vec[b] = float32(mean)
		vec[numBands+b] = float32(math.Sqrt(variance))
	}

	if err := l2Normalize(vec); err != nil {
		return nil, 0, voice.WrapError(voice.KindEmbeddingCompute, op, "degenerate spectrum", err)
	}
	return vec, duration, nil
}

// goertzel returns the normalized power of the signal at freq Hz.
func goertzel(frame []float64, freq float64, sampleRate int) float64 {
	omega := 2 * math.Pi * freq / float64(sampleRate)
	coeff := 2 * math.Cos(omega)

	var s0, s1, s2 float64
	for _, x := range frame {
		s0 = x + coeff*s1 - s2
		s2 = s1
		s1 = s0
	}
	power := s1*s1 + s2*s2 - coeff*s1*s2
	return power / float64(len(frame))
}

// melBandCenters spaces band center frequencies evenly on the mel scale,
// clamped below the Nyquist frequency.
func melBandCenters(n, sampleRate int) []float64 {
	melOf := func(hz float64) float64 { return 2595 * math.Log10(1+hz/700) }
	hzOf := func(mel float64) float64 { return 700 * (math.Pow(10, mel/2595) - 1) }

	maxHz := math.Min(maxBandHz, float64(sampleRate)/2-1)
	lo, hi := melOf(minBandHz), melOf(maxHz)

	centers := make([]float64, n)
	for i := range centers {
		centers[i] = hzOf(lo + (hi-lo)*float64(i)/float64(n-1))
	}
	return centers
}

func hannWindow(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n-1))
	}
	return w
}

type zeroNormError struct{}

func (zeroNormError) Error() string { return "zero-norm embedding" }

func l2Normalize(v []float32) error {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	norm := math.Sqrt(sum)
	if norm == 0 || math.IsNaN(norm) || math.IsInf(norm, 0) {
		return zeroNormError{}
	}
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
	return nil
}
