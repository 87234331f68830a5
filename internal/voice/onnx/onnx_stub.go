//go:build !cgo

// Builds without cgo have no ONNX Runtime; the dsp adapters are used instead.

package onnx

import (
	"errors"

	"github.com/voxloop/vox/internal/voice"
)

// ErrUnavailable is returned by constructors in non-CGO builds.
var ErrUnavailable = errors.New("onnx adapters require a cgo build")

// Available reports whether ONNX-backed adapters can exist in this build.
func Available() bool {
	return false
}

// NewExtractor always fails in non-CGO builds.
func NewExtractor(modelsDir string) (voice.EmbeddingExtractor, error) {
	return nil, ErrUnavailable
}

// NewSynthesizer always fails in non-CGO builds.
func NewSynthesizer(modelsDir string) (voice.SpeechSynthesizer, error) {
	return nil, ErrUnavailable
}
