package voice_test

import (
	"bytes"
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/voxloop/vox/internal/audio"
	"github.com/voxloop/vox/internal/voice"
	"github.com/voxloop/vox/internal/voice/dsp"
)

// newTestPipeline wires the pure-Go adapters over a memory store with
// real retention directories.
func newTestPipeline(t *testing.T) (*voice.Pipeline, voice.Store, voice.Dirs) {
	t.Helper()

	dirs := voice.Dirs{
		Uploads:    filepath.Join(t.TempDir(), "uploads"),
		Embeddings: filepath.Join(t.TempDir(), "embeddings"),
	}
	store := voice.NewMemoryStore()
	p, err := voice.NewPipeline(store, dsp.NewExtractor(), dsp.NewSynthesizer(), dirs)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	return p, store, dirs
}

// enrollmentClip renders a pitch-modulated tone long enough to embed and
// encodes it as WAV.
func enrollmentClip(t *testing.T, seconds float64, rate int) []byte {
	t.Helper()

	n := int(seconds * float64(rate))
	samples := make([]float32, n)
	phase := 0.0
	for i := range samples {
		f := 140.0 + 40.0*math.Sin(2*math.Pi*3.0*float64(i)/float64(rate))
		phase += 2 * math.Pi * f / float64(rate)
		samples[i] = float32(0.4 * math.Sin(phase))
	}
	data, err := audio.Encode(audio.Waveform{Samples: samples, SampleRate: rate, SourceChannels: 1}, audio.FormatWAV)
	if err != nil {
		t.Fatalf("encode clip: %v", err)
	}
	return data
}

func dirEntryCount(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir %s: %v", dir, err)
	}
	return len(entries)
}

func TestEnrollThenSynthesize(t *testing.T) {
	p, _, dirs := newTestPipeline(t)
	ctx := context.Background()

	clip := enrollmentClip(t, 3.5, 22050)
	v, err := p.Enroll(ctx, clip, "audio/wav", "sample.wav", "Test Voice", "")
	if err != nil {
		t.Fatalf("enroll: %v", err)
	}
	if v.ID == "" {
		t.Fatal("enrolled voice has empty id")
	}
	if v.Duration < 3.4 || v.Duration > 3.6 {
		t.Fatalf("duration = %.2f, want about 3.5", v.Duration)
	}
	if v.EmbeddingDim != 256 {
		t.Fatalf("embedding dim = %d, want 256", v.EmbeddingDim)
	}
	if dirEntryCount(t, dirs.Uploads) != 1 {
		t.Fatal("source audio was not retained")
	}
	if dirEntryCount(t, dirs.Embeddings) != 1 {
		t.Fatal("embedding sidecar was not written")
	}

	data, contentType, err := p.Synthesize(ctx, v.ID, "Hello world", "wav", 0)
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	if contentType != "audio/wav" {
		t.Fatalf("content type = %q", contentType)
	}

	w, err := audio.Decode(ctx, data, "audio/wav")
	if err != nil {
		t.Fatalf("decode synthesized audio: %v", err)
	}
	if w.SampleRate != v.SampleRate {
		t.Fatalf("synthesized at %d Hz, want enrollment rate %d", w.SampleRate, v.SampleRate)
	}
	var peak float32
	for _, s := range w.Samples {
		if s > peak {
			peak = s
		}
		if -s > peak {
			peak = -s
		}
	}
	if peak < 0.01 {
		t.Fatalf("synthesized audio is silent (peak %.4f)", peak)
	}
}

func TestSynthesizeMP3Output(t *testing.T) {
	p, _, _ := newTestPipeline(t)
	ctx := context.Background()

	v, err := p.Enroll(ctx, enrollmentClip(t, 2.0, 44100), "audio/wav", "s.wav", "", "")
	if err != nil {
		t.Fatalf("enroll: %v", err)
	}

	data, contentType, err := p.Synthesize(ctx, v.ID, "One two three", "mp3", 44100)
	if err != nil {
		t.Fatalf("synthesize mp3: %v", err)
	}
	if contentType != "audio/mpeg" {
		t.Fatalf("content type = %q", contentType)
	}
	if _, err := audio.Decode(ctx, data, ""); err != nil {
		t.Fatalf("mp3 output did not decode: %v", err)
	}
}

func TestSynthesizeUnknownVoice(t *testing.T) {
	p, _, _ := newTestPipeline(t)

	_, _, err := p.Synthesize(context.Background(), "does-not-exist", "Hello", "wav", 0)
	if !voice.IsKind(err, voice.KindNotFound) {
		t.Fatalf("got %v, want not-found", err)
	}
}

func TestSynthesizeEmptyTextFailsFirst(t *testing.T) {
	p, _, _ := newTestPipeline(t)

	// Empty text is rejected before the store is consulted, so even an
	// unknown voice id reports the text problem.
	_, _, err := p.Synthesize(context.Background(), "does-not-exist", "   ", "wav", 0)
	if !voice.IsKind(err, voice.KindEmptyText) {
		t.Fatalf("got %v, want empty-text", err)
	}
}

func TestEnrollCorruptAudioLeavesNothing(t *testing.T) {
	p, store, dirs := newTestPipeline(t)
	ctx := context.Background()

	// A RIFF header with no usable chunks.
	corrupt := append([]byte("RIFF\x24\x00\x00\x00WAVE"), bytes.Repeat([]byte{0}, 64)...)
	_, err := p.Enroll(ctx, corrupt, "audio/wav", "bad.wav", "", "")
	if !voice.IsKind(err, voice.KindCorruptAudio) {
		t.Fatalf("got %v, want corrupt-audio", err)
	}

	voices, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(voices) != 0 {
		t.Fatalf("store has %d voices after failed enroll", len(voices))
	}
	if dirEntryCount(t, dirs.Uploads) != 0 || dirEntryCount(t, dirs.Embeddings) != 0 {
		t.Fatal("failed enroll left files behind")
	}
}

func TestEnrollShortClipRejected(t *testing.T) {
	p, store, _ := newTestPipeline(t)
	ctx := context.Background()

	_, err := p.Enroll(ctx, enrollmentClip(t, 0.2, 22050), "audio/wav", "short.wav", "", "")
	if !voice.IsKind(err, voice.KindInsufficientAudio) {
		t.Fatalf("got %v, want insufficient-audio", err)
	}

	voices, _ := store.List(ctx)
	if len(voices) != 0 {
		t.Fatal("short clip produced a voice")
	}
}

func TestEnrollUnsupportedFormat(t *testing.T) {
	p, _, _ := newTestPipeline(t)

	_, err := p.Enroll(context.Background(), []byte("definitely not audio data here"), "", "mystery.bin", "", "")
	if !voice.IsKind(err, voice.KindUnsupportedFormat) {
		t.Fatalf("got %v, want unsupported-format", err)
	}
}

func TestSynthesizeIncompatibleEmbedding(t *testing.T) {
	p, store, _ := newTestPipeline(t)
	ctx := context.Background()

	emb := make([]float32, 256)
	emb[0] = 1
	v, err := store.Create(ctx, voice.CreateParams{
		SourceFilename: "old.wav",
		Embedding:      emb,
		EmbeddingVer:   "spectral-v0",
		Duration:       2,
		SampleRate:     22050,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, _, err = p.Synthesize(ctx, v.ID, "Hello", "wav", 0)
	if !voice.IsKind(err, voice.KindIncompatibleEmbedding) {
		t.Fatalf("got %v, want incompatible-embedding", err)
	}
}

func TestPipelineDeleteRemovesFiles(t *testing.T) {
	p, store, dirs := newTestPipeline(t)
	ctx := context.Background()

	v, err := p.Enroll(ctx, enrollmentClip(t, 1.0, 22050), "audio/wav", "s.wav", "", "")
	if err != nil {
		t.Fatalf("enroll: %v", err)
	}

	if err := p.Delete(ctx, v.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if dirEntryCount(t, dirs.Uploads) != 0 || dirEntryCount(t, dirs.Embeddings) != 0 {
		t.Fatal("delete left retained files behind")
	}
	if ok, _ := store.Exists(ctx, v.ID); ok {
		t.Fatal("voice still exists after delete")
	}

	// Absent ids succeed.
	if err := p.Delete(ctx, v.ID); err != nil {
		t.Fatalf("repeat delete: %v", err)
	}
}

func TestEnrollCancelledContext(t *testing.T) {
	p, store, _ := newTestPipeline(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Enroll(ctx, enrollmentClip(t, 1.0, 22050), "audio/wav", "s.wav", "", "")
	if err == nil {
		t.Fatal("enroll with cancelled context succeeded")
	}
	voices, _ := store.List(context.Background())
	if len(voices) != 0 {
		t.Fatal("cancelled enroll produced a voice")
	}
}

func TestEmbeddingSidecarRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "v.emb")
	emb := []float32{0.25, -0.5, 1.0, 0}

	if err := voice.SaveEmbeddingSidecar(path, "spectral-v1", emb); err != nil {
		t.Fatalf("save: %v", err)
	}
	version, got, err := voice.LoadEmbeddingSidecar(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if version != "spectral-v1" {
		t.Fatalf("version = %q", version)
	}
	if len(got) != len(emb) {
		t.Fatalf("length = %d, want %d", len(got), len(emb))
	}
	for i := range emb {
		if got[i] != emb[i] {
			t.Fatalf("value %d = %v, want %v", i, got[i], emb[i])
		}
	}
}
