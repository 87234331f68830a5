package voice

import (
	"context"

	"github.com/voxloop/vox/internal/audio"
)

// EmbeddingExtractor maps a decoded waveform to a fixed-dimension speaker
// embedding. Implementations must be deterministic for a fixed Version:
// re-embedding identical audio yields the same vector within float tolerance.
type EmbeddingExtractor interface {
	// Extract returns the embedding and the waveform duration in seconds.
	Extract(ctx context.Context, w audio.Waveform) ([]float32, float64, error)
	// Dimensions returns the fixed embedding vector length.
	Dimensions() int
	// Version identifies the extractor; embeddings from different versions
	// are not interchangeable.
	Version() string
}

// SpeechSynthesizer renders text as audio conditioned on a speaker
// embedding. Output may be stochastic, but its length must grow with the
// input text and must never be silence for non-empty text.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, embedding []float32, text string, sampleRate int) (audio.Waveform, error)
	// SupportedRates returns the sample rates Synthesize accepts.
	SupportedRates() []int
}
