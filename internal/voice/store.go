package voice

import (
	"context"
	"math"
)

// CreateParams carries everything the store needs to mint a new Voice.
// Identity and timestamps are assigned by the store.
type CreateParams struct {
	SourceFilename string
	StorageRef     string
	Embedding      []float32
	EmbeddingRef   string
	EmbeddingVer   string
	Duration       float64
	SampleRate     int
	DisplayName    string
	Description    string
}

// Store persists voice records. The pipeline depends only on this
// contract; swapping backends must not change pipeline behavior.
//
// Create is atomic: either the full record including the embedding is
// durably visible to subsequent reads, or nothing is. Delete is
// idempotent: deleting an absent id succeeds. Concurrent reads of the
// same voice are safe, and a delete racing a read yields either the
// full record or not-found, never a partial record.
type Store interface {
	Create(ctx context.Context, p CreateParams) (*Voice, error)
	Get(ctx context.Context, id string) (*Voice, error)
	Exists(ctx context.Context, id string) (bool, error)
	List(ctx context.Context) ([]*Voice, error)
	UpdateMetadata(ctx context.Context, id string, patch MetadataPatch) (*Voice, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

// validateCreate enforces the invariants both backends share.
func validateCreate(p CreateParams) error {
	const op = "store.Create"
	if len(p.Embedding) == 0 {
		return NewError(KindPersistence, op, "empty embedding")
	}
	if p.EmbeddingVer == "" {
		return NewError(KindPersistence, op, "missing embedding version")
	}
	for _, v := range p.Embedding {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return NewError(KindPersistence, op, "non-finite embedding value")
		}
	}
	if p.Duration <= 0 {
		return NewError(KindPersistence, op, "non-positive duration")
	}
	if p.SampleRate <= 0 {
		return NewError(KindPersistence, op, "non-positive sample rate")
	}
	return nil
}
