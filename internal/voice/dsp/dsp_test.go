package dsp

import (
	"context"
	"math"
	"testing"

	"github.com/voxloop/vox/internal/audio"
	"github.com/voxloop/vox/internal/voice"
)

// speechLike builds a pitch-modulated test clip; a flat sine would give
// near-zero band deviations.
func speechLike(t *testing.T, seconds float64, rate int) audio.Waveform {
	t.Helper()
	n := int(seconds * float64(rate))
	samples := make([]float32, n)
	for i := range samples {
		ti := float64(i) / float64(rate)
		f := 160 + 60*math.Sin(2*math.Pi*2.5*ti)
		samples[i] = float32(0.4*math.Sin(2*math.Pi*f*ti) + 0.15*math.Sin(2*math.Pi*3*f*ti))
	}
	return audio.Waveform{Samples: samples, SampleRate: rate, SourceChannels: 1}
}

func TestExtractDeterministic(t *testing.T) {
	ext := NewExtractor()
	clip := speechLike(t, 1.2, 22050)

	first, dur, err := ext.Extract(context.Background(), clip)
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if len(first) != EmbeddingDim {
		t.Fatalf("embedding length = %d, want %d", len(first), EmbeddingDim)
	}
	if math.Abs(dur-1.2) > 0.01 {
		t.Errorf("duration = %g, want ~1.2", dur)
	}

	second, _, err := ext.Extract(context.Background(), clip)
	if err != nil {
		t.Fatalf("second extract failed: %v", err)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("embedding not reproducible at index %d: %g vs %g", i, first[i], second[i])
		}
	}
}

func TestExtractRejectsShortClip(t *testing.T) {
	ext := NewExtractor()
	clip := speechLike(t, 0.1, 22050)

	_, _, err := ext.Extract(context.Background(), clip)
	if err == nil {
		t.Fatal("expected error for 0.1s clip")
	}
	if !voice.IsKind(err, voice.KindInsufficientAudio) {
		t.Errorf("error kind = %v, want insufficient_audio", voice.KindOf(err))
	}
}

func TestExtractEmbeddingIsFiniteAndNormalized(t *testing.T) {
	ext := NewExtractor()
	vec, _, err := ext.Extract(context.Background(), speechLike(t, 0.8, 16000))
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}

	var norm float64
	for i, v := range vec {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			t.Fatalf("non-finite value at index %d", i)
		}
		norm += f * f
	}
	if math.Abs(math.Sqrt(norm)-1) > 1e-3 {
		t.Errorf("embedding norm = %g, want 1", math.Sqrt(norm))
	}
}

func testEmbedding(t *testing.T) []float32 {
	t.Helper()
	ext := NewExtractor()
	vec, _, err := ext.Extract(context.Background(), speechLike(t, 1.0, 22050))
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	return vec
}

func TestSynthesizeLengthGrowsWithText(t *testing.T) {
	synth := NewSynthesizer()
	emb := testEmbedding(t)

	short, err := synth.Synthesize(context.Background(), emb, "Hi", 22050)
	if err != nil {
		t.Fatalf("short synth failed: %v", err)
	}
	long, err := synth.Synthesize(context.Background(), emb, "Hello world, this is a longer sentence", 22050)
	if err != nil {
		t.Fatalf("long synth failed: %v", err)
	}

	if len(long.Samples) <= len(short.Samples) {
		t.Errorf("output did not grow with text: %d <= %d", len(long.Samples), len(short.Samples))
	}
}

func TestSynthesizeIsNotSilence(t *testing.T) {
	synth := NewSynthesizer()
	w, err := synth.Synthesize(context.Background(), testEmbedding(t), "Hello world", 22050)
	if err != nil {
		t.Fatalf("synth failed: %v", err)
	}

	var peak float32
	for _, s := range w.Samples {
		if s > peak {
			peak = s
		}
	}
	if peak < 0.05 {
		t.Errorf("peak amplitude %g, output is effectively silence", peak)
	}
}

func TestSynthesizeValidation(t *testing.T) {
	synth := NewSynthesizer()
	emb := testEmbedding(t)
	ctx := context.Background()

	if _, err := synth.Synthesize(ctx, emb, "   ", 22050); !voice.IsKind(err, voice.KindEmptyText) {
		t.Errorf("whitespace text: kind = %v, want empty_text", voice.KindOf(err))
	}
	if _, err := synth.Synthesize(ctx, emb[:10], "hello", 22050); !voice.IsKind(err, voice.KindIncompatibleEmbedding) {
		t.Errorf("short embedding: kind = %v, want incompatible_embedding", voice.KindOf(err))
	}
	if _, err := synth.Synthesize(ctx, emb, "hello", 11025); !voice.IsKind(err, voice.KindUnsupportedSampleRate) {
		t.Errorf("odd rate: kind = %v, want unsupported_sample_rate", voice.KindOf(err))
	}
}

func TestSynthesizedAudioSurvivesEncoding(t *testing.T) {
	synth := NewSynthesizer()
	w, err := synth.Synthesize(context.Background(), testEmbedding(t), "Round trip", 22050)
	if err != nil {
		t.Fatalf("synth failed: %v", err)
	}

	data, err := audio.Encode(w, audio.FormatWAV)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	decoded, err := audio.Decode(context.Background(), data, "wav")
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if decoded.Duration() <= 0 {
		t.Error("decoded synthesis has zero duration")
	}
}
