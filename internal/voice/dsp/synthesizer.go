package dsp

import (
	"context"
	"math"
	"strings"
	"unicode"

	"github.com/voxloop/vox/internal/audio"
	"github.com/voxloop/vox/internal/voice"
)

// Rates the synthesizer can render at directly.
var supportedRates = []int{8000, 16000, 22050, 24000, 44100, 48000}

const (
	segmentSeconds = 0.07 // voiced span per character
	gapSeconds     = 0.01 // inter-character gap
	pauseSeconds   = 0.06 // whitespace pause
)

// Synthesizer renders text as a harmonic waveform whose pitch and timbre
// are conditioned on the speaker embedding. Not a neural model, but it
// honors the full capability contract: output grows with text length,
// is never silence, and respects the embedding dimension.
type Synthesizer struct{}

// NewSynthesizer returns the harmonic synthesizer.
func NewSynthesizer() *Synthesizer {
	return &Synthesizer{}
}

func (s *Synthesizer) SupportedRates() []int {
	out := make([]int, len(supportedRates))
	copy(out, supportedRates)
	return out
}

// Synthesize renders text at sampleRate conditioned on embedding.
func (s *Synthesizer) Synthesize(ctx context.Context, embedding []float32, text string, sampleRate int) (audio.Waveform, error) {
	const op = "dsp.Synthesize"

	if strings.TrimSpace(text) == "" {
		return audio.Waveform{}, voice.NewError(voice.KindEmptyText, op, "text must not be empty")
	}
	if len(embedding) != EmbeddingDim {
		return audio.Waveform{}, voice.NewError(voice.KindIncompatibleEmbedding, op,
			"embedding length does not match synthesizer dimension")
	}
	if !rateSupported(sampleRate) {
		return audio.Waveform{}, voice.NewError(voice.KindUnsupportedSampleRate, op,
			"sample rate not supported")
	}

	// Speaker traits from the embedding: base pitch and two formant-like
	// harmonic weights. Values are bounded regardless of vector content.
	basePitch := 95 + 110*unitFold(embedding[0]+embedding[1])
	h2 := 0.25 + 0.35*unitFold(embedding[2])
	h3 := 0.10 + 0.25*unitFold(embedding[3])

	segLen := int(segmentSeconds * float64(sampleRate))
	gapLen := int(gapSeconds * float64(sampleRate))
	pauseLen := int(pauseSeconds * float64(sampleRate))

	var samples []float32
	var phase float64

	for i, r := range strings.TrimSpace(text) {
		if i%32 == 0 {
			if err := ctx.Err(); err != nil {
				return audio.Waveform{}, err
			}
		}

		if unicode.IsSpace(r) {
			samples = append(samples, make([]float32, pauseLen)...)
			continue
		}

		// Per-character pitch contour keeps the output from droning.
		pitch := basePitch * (1 + 0.12*math.Sin(float64(r%17)))
		seg := make([]float32, segLen)
		for j := range seg {
			env := hannPoint(j, segLen)
			phase += 2 * math.Pi * pitch / float64(sampleRate)
			v := math.Sin(phase) + h2*math.Sin(2*phase) + h3*math.Sin(3*phase)
			seg[j] = float32(0.30 * env * v)
		}
		samples = append(samples, seg...)
		samples = append(samples, make([]float32, gapLen)...)
	}

	if len(samples) == 0 {
		return audio.Waveform{}, voice.NewError(voice.KindSynthesis, op, "rendered no audio")
	}
	return audio.Waveform{Samples: samples, SampleRate: sampleRate, SourceChannels: 1}, nil
}

func rateSupported(rate int) bool {
	for _, r := range supportedRates {
		if r == rate {
			return true
		}
	}
	return false
}

// unitFold maps any float into [0, 1) deterministically.
func unitFold(x float32) float64 {
	f := math.Abs(float64(x)) * 997.0
	return f - math.Floor(f)
}

func hannPoint(i, n int) float64 {
	if n <= 1 {
		return 1
	}
	return 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n-1))
}
