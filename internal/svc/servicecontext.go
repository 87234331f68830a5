// Package svc wires configuration, storage, and capability adapters into
// the shared service context handlers receive.
package svc

import (
	"database/sql"
	"fmt"
	"io"

	"github.com/voxloop/vox/internal/auth"
	"github.com/voxloop/vox/internal/config"
	"github.com/voxloop/vox/internal/db"
	"github.com/voxloop/vox/internal/logging"
	"github.com/voxloop/vox/internal/voice"
	"github.com/voxloop/vox/internal/voice/dsp"
	"github.com/voxloop/vox/internal/voice/onnx"
)

// ServiceContext carries everything the HTTP layer needs.
type ServiceContext struct {
	Config   config.Config
	DB       *sql.DB
	Store    voice.Store
	Pipeline *voice.Pipeline

	// Auth is nil when authentication is disabled.
	Auth *auth.Authenticator

	extractor   voice.EmbeddingExtractor
	synthesizer voice.SpeechSynthesizer
}

// NewServiceContext opens the database, selects capability adapters, and
// builds the pipeline.
func NewServiceContext(c config.Config) (*ServiceContext, error) {
	sqlDB, err := db.Open(c.DatabasePath())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	store := voice.NewSQLiteStore(sqlDB)

	ext, synth, err := buildAdapters(c)
	if err != nil {
		sqlDB.Close()
		return nil, err
	}

	pipeline, err := voice.NewPipeline(store, ext, synth, voice.Dirs{
		Uploads:    c.UploadsDir(),
		Embeddings: c.EmbeddingsDir(),
	})
	if err != nil {
		closeAdapters(ext, synth)
		sqlDB.Close()
		return nil, err
	}

	svcCtx := &ServiceContext{
		Config:      c,
		DB:          sqlDB,
		Store:       store,
		Pipeline:    pipeline,
		extractor:   ext,
		synthesizer: synth,
	}
	if c.Auth.Enabled {
		svcCtx.Auth = auth.New(c.Auth.Secret, c.Auth.AccessTTL, c.Auth.RefreshTTL)
	}
	return svcCtx, nil
}

// Close releases adapters and the database.
func (s *ServiceContext) Close() error {
	closeAdapters(s.extractor, s.synthesizer)
	if err := s.Store.Close(); err != nil {
		return err
	}
	return s.DB.Close()
}

// buildAdapters selects model-backed adapters when the build and config
// allow it, falling back to the pure-Go implementations.
func buildAdapters(c config.Config) (voice.EmbeddingExtractor, voice.SpeechSynthesizer, error) {
	wantONNX := c.Engine == "onnx"
	tryONNX := wantONNX || (c.Engine == "auto" && onnx.Available() && c.ModelsDir != "")

	if tryONNX {
		if !onnx.Available() {
			return nil, nil, fmt.Errorf("onnx engine requested but this build has no onnx support")
		}
		if c.ModelsDir == "" {
			return nil, nil, fmt.Errorf("onnx engine requested but models_dir is not set")
		}
		ext, extErr := onnx.NewExtractor(c.ModelsDir)
		if extErr == nil {
			synth, synthErr := onnx.NewSynthesizer(c.ModelsDir)
			if synthErr == nil {
				logging.Infof("using onnx adapters from %s", c.ModelsDir)
				return ext, synth, nil
			}
			closeAdapters(ext, nil)
			extErr = synthErr
		}
		if wantONNX {
			return nil, nil, fmt.Errorf("load onnx adapters: %w", extErr)
		}
		logging.Warnf("onnx adapters unavailable (%v), falling back to dsp", extErr)
	}

	return dsp.NewExtractor(), dsp.NewSynthesizer(), nil
}

func closeAdapters(adapters ...any) {
	for _, a := range adapters {
		if c, ok := a.(io.Closer); ok && c != nil {
			c.Close()
		}
	}
}
