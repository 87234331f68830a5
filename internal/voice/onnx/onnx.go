//go:build cgo

// Package onnx provides model-based capability adapters backed by ONNX
// Runtime. Adapters load lazily from the configured models directory and
// report unavailability cleanly so callers can fall back to the dsp
// package.
package onnx

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

const (
	extractorModelFile   = "speaker-encoder-v1.onnx"
	synthesizerModelFile = "synthesizer-v1.onnx"
)

var initOnce sync.Once
var initErr error

// Available reports whether ONNX-backed adapters can exist in this build.
func Available() bool {
	return true
}

// initRuntime initializes the shared ONNX Runtime environment once.
func initRuntime(modelsDir string) error {
	initOnce.Do(func() {
		if lib := sharedLibraryPath(modelsDir); lib != "" {
			ort.SetSharedLibraryPath(lib)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			if err.Error() != "the ONNX runtime is already initialized" {
				initErr = fmt.Errorf("initialize onnx runtime: %w", err)
			}
		}
	})
	return initErr
}

// sharedLibraryPath looks for a bundled onnxruntime shared library next
// to the models; empty means use the system default.
func sharedLibraryPath(modelsDir string) string {
	name := "libonnxruntime.so"
	switch runtime.GOOS {
	case "darwin":
		name = "libonnxruntime.dylib"
	case "windows":
		name = "onnxruntime.dll"
	}
	p := filepath.Join(modelsDir, name)
	if _, err := os.Stat(p); err == nil {
		return p
	}
	return ""
}

func modelPath(modelsDir, file string) (string, error) {
	p := filepath.Join(modelsDir, file)
	if _, err := os.Stat(p); err != nil {
		return "", fmt.Errorf("model %s not found in %s", file, modelsDir)
	}
	return p, nil
}
