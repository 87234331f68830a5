package voice

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/voxloop/vox/internal/audio"
	"github.com/voxloop/vox/internal/logging"
)

// Dirs holds the directories where enrolled source audio and embedding
// sidecars are retained.
type Dirs struct {
	Uploads    string
	Embeddings string
}

// Pipeline composes decoder, extractor, store, synthesizer and encoder
// into the two public operations: Enroll and Synthesize.
type Pipeline struct {
	store Store
	ext   EmbeddingExtractor
	synth SpeechSynthesizer
	dirs  Dirs
}

// NewPipeline wires the pipeline. dirs directories are created eagerly so
// enroll never races mkdir.
func NewPipeline(store Store, ext EmbeddingExtractor, synth SpeechSynthesizer, dirs Dirs) (*Pipeline, error) {
	for _, d := range []string{dirs.Uploads, dirs.Embeddings} {
		if d == "" {
			continue
		}
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("create data directory %s: %w", d, err)
		}
	}
	return &Pipeline{store: store, ext: ext, synth: synth, dirs: dirs}, nil
}

// Store exposes the underlying record store for metadata operations.
func (p *Pipeline) Store() Store {
	return p.store
}

// ExtractorVersion reports the process-wide embedding version.
func (p *Pipeline) ExtractorVersion() string {
	return p.ext.Version()
}

// SupportedRates reports the sample rates Synthesize accepts.
func (p *Pipeline) SupportedRates() []int {
	return p.synth.SupportedRates()
}

// Enroll registers a new voice: decode -> extract -> persist. Atomic from
// the caller's view: any failure removes the retained files and leaves no
// store entry, so a voice id is either fully synthesizable or absent.
func (p *Pipeline) Enroll(ctx context.Context, rawAudio []byte, hint, filename, displayName, description string) (*Voice, error) {
	const op = "pipeline.Enroll"

	w, err := audio.Decode(ctx, rawAudio, hint)
	if err != nil {
		return nil, classifyAudioErr(op, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	embedding, duration, err := p.ext.Extract(ctx, w)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stem := uuid.New().String()
	storageRef, err := p.saveUpload(stem, filename, rawAudio)
	if err != nil {
		return nil, WrapError(KindPersistence, op, "retain source audio", err)
	}

	embeddingRef := ""
	if p.dirs.Embeddings != "" {
		embeddingRef = filepath.Join(p.dirs.Embeddings, stem+".emb")
		if err := SaveEmbeddingSidecar(embeddingRef, p.ext.Version(), embedding); err != nil {
			p.removeFiles(storageRef)
			return nil, WrapError(KindPersistence, op, "persist embedding", err)
		}
	}

	v, err := p.store.Create(ctx, CreateParams{
		SourceFilename: filename,
		StorageRef:     storageRef,
		Embedding:      embedding,
		EmbeddingRef:   embeddingRef,
		EmbeddingVer:   p.ext.Version(),
		Duration:       duration,
		SampleRate:     w.SampleRate,
		DisplayName:    displayName,
		Description:    description,
	})
	if err != nil {
		// No orphaned files for a voice that was never created.
		p.removeFiles(storageRef, embeddingRef)
		return nil, err
	}

	logging.Infof("enrolled voice %s (%.2fs at %d Hz)", v.ID, v.Duration, v.SampleRate)
	return v, nil
}

// Synthesize renders text in an enrolled voice. Read-only: no voice state
// changes. sampleRate 0 means the voice's enrollment rate; format ""
// means WAV.
func (p *Pipeline) Synthesize(ctx context.Context, voiceID, text, format string, sampleRate int) ([]byte, string, error) {
	const op = "pipeline.Synthesize"

	// Caller-fixable validation runs before any store or model work.
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, "", NewError(KindEmptyText, op, "text must not be empty")
	}
	target, err := audio.ParseFormat(format)
	if err != nil {
		return nil, "", classifyAudioErr(op, err)
	}

	v, err := p.store.Get(ctx, voiceID)
	if err != nil {
		return nil, "", err
	}

	if err := p.checkCompatible(op, v); err != nil {
		return nil, "", err
	}

	if sampleRate == 0 {
		sampleRate = v.SampleRate
	}

	w, err := p.synth.Synthesize(ctx, v.EmbeddingCopy(), text, sampleRate)
	if err != nil {
		return nil, "", err
	}

	data, err := audio.Encode(w, target)
	if err != nil {
		return nil, "", classifyAudioErr(op, err)
	}
	return data, target.ContentType(), nil
}

// Delete removes a voice record and its retained files. Idempotent.
func (p *Pipeline) Delete(ctx context.Context, voiceID string) error {
	v, err := p.store.Get(ctx, voiceID)
	if IsKind(err, KindNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := p.store.Delete(ctx, voiceID); err != nil {
		return err
	}
	p.removeFiles(v.StorageRef, v.EmbeddingRef)
	return nil
}

// checkCompatible rejects embeddings produced by a different extractor
// version or dimension before they reach the synthesizer.
func (p *Pipeline) checkCompatible(op string, v *Voice) error {
	if v.EmbeddingVer != p.ext.Version() {
		return NewError(KindIncompatibleEmbedding, op,
			fmt.Sprintf("voice %s embedded with %q, extractor is %q", v.ID, v.EmbeddingVer, p.ext.Version()))
	}
	if v.EmbeddingDim != p.ext.Dimensions() || len(v.Embedding) != v.EmbeddingDim {
		return NewError(KindIncompatibleEmbedding, op,
			fmt.Sprintf("voice %s embedding has %d values, extractor wants %d", v.ID, len(v.Embedding), p.ext.Dimensions()))
	}
	return nil
}

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// saveUpload retains the source audio under a collision-free name.
// Returns "" without error when upload retention is disabled.
func (p *Pipeline) saveUpload(stem, filename string, raw []byte) (string, error) {
	if p.dirs.Uploads == "" {
		return "", nil
	}
	safe := unsafeFilenameChars.ReplaceAllString(filepath.Base(filename), "_")
	if safe == "" || safe == "." {
		safe = "upload"
	}
	name := fmt.Sprintf("%s_%s_%s", time.Now().UTC().Format("20060102T150405"), stem[:8], safe)
	path := filepath.Join(p.dirs.Uploads, name)
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func (p *Pipeline) removeFiles(paths ...string) {
	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			logging.Warnf("failed to remove %s: %v", path, err)
		}
	}
}

// classifyAudioErr maps audio package sentinels onto the error taxonomy.
func classifyAudioErr(op string, err error) error {
	if err == nil {
		return nil
	}
	kind := KindUnknown
	switch {
	case errors.Is(err, audio.ErrUnsupportedFormat):
		kind = KindUnsupportedFormat
	case errors.Is(err, audio.ErrCorrupt):
		kind = KindCorruptAudio
	}
	return WrapError(kind, op, "audio decode/encode", err)
}
