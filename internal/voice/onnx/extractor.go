//go:build cgo

package onnx

import (
	"context"
	"fmt"
	"math"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/voxloop/vox/internal/audio"
	"github.com/voxloop/vox/internal/voice"
)

const (
	extractorVersion = "speaker-encoder-v1"
	extractorDim     = 256
	encoderInputRate = 16000
)

// Extractor runs a speaker-encoder ONNX model: 16kHz mono float32 in,
// fixed-dimension embedding out.
type Extractor struct {
	mu      sync.Mutex
	session *ort.DynamicAdvancedSession
}

// NewExtractor loads the speaker encoder from modelsDir.
func NewExtractor(modelsDir string) (*Extractor, error) {
	if err := initRuntime(modelsDir); err != nil {
		return nil, err
	}
	path, err := modelPath(modelsDir, extractorModelFile)
	if err != nil {
		return nil, err
	}

	session, err := ort.NewDynamicAdvancedSession(
		path,
		[]string{"waveform"},
		[]string{"embedding"},
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("create speaker encoder session: %w", err)
	}
	return &Extractor{session: session}, nil
}

func (e *Extractor) Dimensions() int {
	return extractorDim
}

func (e *Extractor) Version() string {
	return extractorVersion
}

// Close releases the ONNX session.
func (e *Extractor) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session != nil {
		e.session.Destroy()
		e.session = nil
	}
	return nil
}

// Extract resamples to the encoder rate and runs one inference.
func (e *Extractor) Extract(ctx context.Context, w audio.Waveform) ([]float32, float64, error) {
	const op = "onnx.Extract"

	duration := w.Duration()
	if duration < 0.5 {
		return nil, 0, voice.NewError(voice.KindInsufficientAudio, op,
			"clip too short for a reliable embedding")
	}
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	resampled, err := audio.Resample(w, encoderInputRate)
	if err != nil {
		return nil, 0, voice.WrapError(voice.KindEmbeddingCompute, op, "resample to encoder rate", err)
	}

	inputTensor, err := ort.NewTensor(ort.NewShape(1, int64(len(resampled.Samples))), resampled.Samples)
	if err != nil {
		return nil, 0, voice.WrapError(voice.KindEmbeddingCompute, op, "create input tensor", err)
	}
	defer inputTensor.Destroy()

	outputData := make([]float32, extractorDim)
	outputTensor, err := ort.NewTensor(ort.NewShape(1, extractorDim), outputData)
	if err != nil {
		return nil, 0, voice.WrapError(voice.KindEmbeddingCompute, op, "create output tensor", err)
	}
	defer outputTensor.Destroy()

	e.mu.Lock()
	session := e.session
	if session == nil {
		e.mu.Unlock()
		return nil, 0, voice.NewError(voice.KindEmbeddingCompute, op, "extractor closed")
	}
	err = session.Run([]ort.Value{inputTensor}, []ort.Value{outputTensor})
	e.mu.Unlock()
	if err != nil {
		return nil, 0, voice.WrapError(voice.KindEmbeddingCompute, op, "speaker encoder inference", err)
	}

	embedding := append([]float32(nil), outputTensor.GetData()...)
	for _, v := range embedding {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, 0, voice.NewError(voice.KindEmbeddingCompute, op, "model produced non-finite embedding")
		}
	}
	return embedding, duration, nil
}
