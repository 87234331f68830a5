//go:build cgo

package onnx

import (
	"context"
	"fmt"
	"strings"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/voxloop/vox/internal/audio"
	"github.com/voxloop/vox/internal/voice"
)

const (
	// The synthesizer model renders at a fixed rate; other requested
	// rates are reached by resampling its output.
	modelOutputRate = 24000
)

var synthRates = []int{8000, 16000, 22050, 24000, 44100, 48000}

// Synthesizer runs a Kokoro-style TTS ONNX model: token ids plus a style
// embedding in, float32 audio out.
type Synthesizer struct {
	mu      sync.Mutex
	session *ort.DynamicAdvancedSession
}

// NewSynthesizer loads the synthesizer model from modelsDir.
func NewSynthesizer(modelsDir string) (*Synthesizer, error) {
	if err := initRuntime(modelsDir); err != nil {
		return nil, err
	}
	path, err := modelPath(modelsDir, synthesizerModelFile)
	if err != nil {
		return nil, err
	}

	session, err := ort.NewDynamicAdvancedSession(
		path,
		[]string{"tokens", "style", "speed"},
		[]string{"audio"},
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("create synthesizer session: %w", err)
	}
	return &Synthesizer{session: session}, nil
}

func (s *Synthesizer) SupportedRates() []int {
	out := make([]int, len(synthRates))
	copy(out, synthRates)
	return out
}

// Close releases the ONNX session.
func (s *Synthesizer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session != nil {
		s.session.Destroy()
		s.session = nil
	}
	return nil
}

// Synthesize tokenizes text, runs one inference, and resamples the model
// output to the requested rate.
func (s *Synthesizer) Synthesize(ctx context.Context, embedding []float32, text string, sampleRate int) (audio.Waveform, error) {
	const op = "onnx.Synthesize"

	if strings.TrimSpace(text) == "" {
		return audio.Waveform{}, voice.NewError(voice.KindEmptyText, op, "text must not be empty")
	}
	if len(embedding) != extractorDim {
		return audio.Waveform{}, voice.NewError(voice.KindIncompatibleEmbedding, op,
			"embedding length does not match synthesizer dimension")
	}
	if !rateSupported(sampleRate) {
		return audio.Waveform{}, voice.NewError(voice.KindUnsupportedSampleRate, op, "sample rate not supported")
	}
	if err := ctx.Err(); err != nil {
		return audio.Waveform{}, err
	}

	tokens := tokenize(text)
	if len(tokens) == 0 {
		return audio.Waveform{}, voice.NewError(voice.KindSynthesis, op, "tokenization produced no tokens")
	}

	tokenTensor, err := ort.NewTensor(ort.NewShape(1, int64(len(tokens))), tokens)
	if err != nil {
		return audio.Waveform{}, voice.WrapError(voice.KindSynthesis, op, "create token tensor", err)
	}
	defer tokenTensor.Destroy()

	styleTensor, err := ort.NewTensor(ort.NewShape(1, int64(len(embedding))), embedding)
	if err != nil {
		return audio.Waveform{}, voice.WrapError(voice.KindSynthesis, op, "create style tensor", err)
	}
	defer styleTensor.Destroy()

	speedTensor, err := ort.NewTensor(ort.NewShape(1), []float32{1.0})
	if err != nil {
		return audio.Waveform{}, voice.WrapError(voice.KindSynthesis, op, "create speed tensor", err)
	}
	defer speedTensor.Destroy()

	// Generous output buffer; the model reports its actual length.
	maxSamples := int64(len(tokens)) * 4096
	if maxSamples < modelOutputRate {
		maxSamples = modelOutputRate
	}
	outputTensor, err := ort.NewTensor(ort.NewShape(1, maxSamples), make([]float32, maxSamples))
	if err != nil {
		return audio.Waveform{}, voice.WrapError(voice.KindSynthesis, op, "create output tensor", err)
	}
	defer outputTensor.Destroy()

	s.mu.Lock()
	session := s.session
	if session == nil {
		s.mu.Unlock()
		return audio.Waveform{}, voice.NewError(voice.KindSynthesis, op, "synthesizer closed")
	}
	err = session.Run(
		[]ort.Value{tokenTensor, styleTensor, speedTensor},
		[]ort.Value{outputTensor},
	)
	s.mu.Unlock()
	if err != nil {
		return audio.Waveform{}, voice.WrapError(voice.KindSynthesis, op, "synthesizer inference", err)
	}

	samples := trimTrailingSilence(outputTensor.GetData())
	if len(samples) == 0 {
		return audio.Waveform{}, voice.NewError(voice.KindSynthesis, op, "model produced no audio")
	}

	w := audio.Waveform{Samples: samples, SampleRate: modelOutputRate, SourceChannels: 1}
	if sampleRate == modelOutputRate {
		return w, nil
	}
	out, err := audio.Resample(w, sampleRate)
	if err != nil {
		return audio.Waveform{}, voice.WrapError(voice.KindSynthesis, op, "resample model output", err)
	}
	return out, nil
}

// tokenize maps text to the model's character vocabulary: printable
// ASCII offset by one, with unknown runes collapsed to space.
func tokenize(text string) []int64 {
	text = strings.TrimSpace(text)
	tokens := make([]int64, 0, len(text))
	for _, r := range text {
		if r >= 32 && r < 127 {
			tokens = append(tokens, int64(r-31))
		} else {
			tokens = append(tokens, 1)
		}
	}
	return tokens
}

// trimTrailingSilence drops the unused tail of the padded output buffer.
func trimTrailingSilence(samples []float32) []float32 {
	end := len(samples)
	for end > 0 && samples[end-1] == 0 {
		end--
	}
	return append([]float32(nil), samples[:end]...)
}

func rateSupported(rate int) bool {
	for _, r := range synthRates {
		if r == rate {
			return true
		}
	}
	return false
}
