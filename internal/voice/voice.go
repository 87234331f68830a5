package voice

import (
	"time"
)

// Voice is one enrolled speaker. The embedding is owned by the record;
// readers get copies and the vector is never mutated after creation.
type Voice struct {
	ID             string    `json:"voice_id"`
	SourceFilename string    `json:"filename"`
	StorageRef     string    `json:"-"`
	Embedding      []float32 `json:"-"`
	EmbeddingRef   string    `json:"-"`
	EmbeddingDim   int       `json:"-"`
	EmbeddingVer   string    `json:"-"`
	Duration       float64   `json:"duration_seconds"`
	SampleRate     int       `json:"sample_rate_hz"`
	DisplayName    string    `json:"display_name,omitempty"`
	Description    string    `json:"description,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// EmbeddingCopy returns a private copy of the embedding vector.
func (v *Voice) EmbeddingCopy() []float32 {
	out := make([]float32, len(v.Embedding))
	copy(out, v.Embedding)
	return out
}

// MetadataPatch carries the mutable fields of a Voice. Nil means
// "leave unchanged"; a pointer to the empty string clears the field.
type MetadataPatch struct {
	DisplayName *string
	Description *string
}
