package voice

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"

	"github.com/vmihailenco/msgpack/v5"
)

// embeddingBlob packs a vector as little-endian float32 bytes for the
// inline BLOB column.
func embeddingBlob(v []float32) []byte {
	out := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(f))
	}
	return out
}

// embeddingFromBlob unpacks the inline BLOB column.
func embeddingFromBlob(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("embedding blob length %d not a multiple of 4", len(b))
	}
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out, nil
}

// embeddingSidecar is the msgpack layout of an out-of-line embedding file.
type embeddingSidecar struct {
	Version string    `msgpack:"version"`
	Dim     int       `msgpack:"dim"`
	Data    []float32 `msgpack:"data"`
}

// SaveEmbeddingSidecar writes an embedding to path as msgpack, so the
// vector survives independently of the record store.
func SaveEmbeddingSidecar(path, version string, v []float32) error {
	data, err := msgpack.Marshal(embeddingSidecar{
		Version: version,
		Dim:     len(v),
		Data:    v,
	})
	if err != nil {
		return fmt.Errorf("marshal embedding: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write embedding sidecar: %w", err)
	}
	return nil
}

// LoadEmbeddingSidecar reads an embedding sidecar written by
// SaveEmbeddingSidecar and validates its internal consistency.
func LoadEmbeddingSidecar(path string) (version string, v []float32, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, fmt.Errorf("read embedding sidecar: %w", err)
	}
	var sc embeddingSidecar
	if err := msgpack.Unmarshal(data, &sc); err != nil {
		return "", nil, fmt.Errorf("unmarshal embedding sidecar: %w", err)
	}
	if sc.Dim != len(sc.Data) {
		return "", nil, fmt.Errorf("embedding sidecar dim %d does not match %d values", sc.Dim, len(sc.Data))
	}
	return sc.Version, sc.Data, nil
}
