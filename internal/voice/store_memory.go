package voice

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is a map-backed Store used by tests and ephemeral runs.
// It honors the same contract as SQLiteStore: atomic creates, idempotent
// deletes, full-record-or-not-found reads.
type MemoryStore struct {
	mu     sync.RWMutex
	voices map[string]*Voice
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{voices: make(map[string]*Voice)}
}

func (s *MemoryStore) Close() error {
	return nil
}

func (s *MemoryStore) Create(ctx context.Context, p CreateParams) (*Voice, error) {
	if err := validateCreate(p); err != nil {
		return nil, err
	}
	now := time.Now().UTC().Truncate(time.Second)
	v := &Voice{
		ID:             uuid.New().String(),
		SourceFilename: p.SourceFilename,
		StorageRef:     p.StorageRef,
		Embedding:      append([]float32(nil), p.Embedding...),
		EmbeddingRef:   p.EmbeddingRef,
		EmbeddingDim:   len(p.Embedding),
		EmbeddingVer:   p.EmbeddingVer,
		Duration:       p.Duration,
		SampleRate:     p.SampleRate,
		DisplayName:    p.DisplayName,
		Description:    p.Description,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	s.mu.Lock()
	s.voices[v.ID] = v
	s.mu.Unlock()

	return copyVoice(v), nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*Voice, error) {
	s.mu.RLock()
	v, ok := s.voices[id]
	s.mu.RUnlock()
	if !ok {
		return nil, NewError(KindNotFound, "store.Get", "voice "+id+" not found")
	}
	return copyVoice(v), nil
}

func (s *MemoryStore) Exists(ctx context.Context, id string) (bool, error) {
	s.mu.RLock()
	_, ok := s.voices[id]
	s.mu.RUnlock()
	return ok, nil
}

func (s *MemoryStore) List(ctx context.Context) ([]*Voice, error) {
	s.mu.RLock()
	out := make([]*Voice, 0, len(s.voices))
	for _, v := range s.voices {
		out = append(out, copyVoice(v))
	}
	s.mu.RUnlock()

	// Stable order matches the SQL backend.
	sortVoices(out)
	return out, nil
}

func (s *MemoryStore) UpdateMetadata(ctx context.Context, id string, patch MetadataPatch) (*Voice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.voices[id]
	if !ok {
		return nil, NewError(KindNotFound, "store.UpdateMetadata", "voice "+id+" not found")
	}
	if patch.DisplayName == nil && patch.Description == nil {
		return copyVoice(v), nil
	}
	if patch.DisplayName != nil {
		v.DisplayName = *patch.DisplayName
	}
	if patch.Description != nil {
		v.Description = *patch.Description
	}
	v.UpdatedAt = time.Now().UTC().Truncate(time.Second)
	return copyVoice(v), nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	delete(s.voices, id)
	s.mu.Unlock()
	return nil
}

// copyVoice returns a deep copy so callers never alias the stored
// embedding slice.
func copyVoice(v *Voice) *Voice {
	out := *v
	out.Embedding = append([]float32(nil), v.Embedding...)
	return &out
}

func sortVoices(vs []*Voice) {
	sort.Slice(vs, func(i, j int) bool {
		if !vs[i].CreatedAt.Equal(vs[j].CreatedAt) {
			return vs[i].CreatedAt.Before(vs[j].CreatedAt)
		}
		return vs[i].ID < vs[j].ID
	})
}
