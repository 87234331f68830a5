package voice

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// SQLiteStore persists voices in the voices table created by the db
// package migrations.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore wraps an already-migrated database connection.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Close is a no-op: the connection is owned by the caller.
func (s *SQLiteStore) Close() error {
	return nil
}

// Create inserts a full record in one statement. A failed INSERT leaves
// nothing behind, which gives the pipeline its atomicity guarantee.
func (s *SQLiteStore) Create(ctx context.Context, p CreateParams) (*Voice, error) {
	const op = "store.Create"
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

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO voices (
			id, filename, storage_ref, embedding, embedding_ref,
			embedding_dim, embedding_version, duration_seconds,
			sample_rate_hz, display_name, description, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.ID, v.SourceFilename, v.StorageRef, embeddingBlob(v.Embedding), v.EmbeddingRef,
		v.EmbeddingDim, v.EmbeddingVer, v.Duration,
		v.SampleRate, v.DisplayName, v.Description, v.CreatedAt.Unix(), v.UpdatedAt.Unix(),
	)
	if err != nil {
		return nil, WrapError(KindPersistence, op, "insert voice", err)
	}
	return v, nil
}

const voiceColumns = `id, filename, storage_ref, embedding, embedding_ref,
	embedding_dim, embedding_version, duration_seconds, sample_rate_hz,
	display_name, description, created_at, updated_at`

func (s *SQLiteStore) Get(ctx context.Context, id string) (*Voice, error) {
	const op = "store.Get"
	row := s.db.QueryRowContext(ctx, `SELECT `+voiceColumns+` FROM voices WHERE id = ?`, id)
	v, err := scanVoice(row)
	if err == sql.ErrNoRows {
		return nil, NewError(KindNotFound, op, "voice "+id+" not found")
	}
	if err != nil {
		return nil, WrapError(KindPersistence, op, "query voice", err)
	}
	return v, nil
}

func (s *SQLiteStore) Exists(ctx context.Context, id string) (bool, error) {
	const op = "store.Exists"
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM voices WHERE id = ?`, id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, WrapError(KindPersistence, op, "query voice", err)
	}
	return true, nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]*Voice, error) {
	const op = "store.List"
	rows, err := s.db.QueryContext(ctx, `SELECT `+voiceColumns+` FROM voices ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, WrapError(KindPersistence, op, "query voices", err)
	}
	defer rows.Close()

	var out []*Voice
	for rows.Next() {
		v, err := scanVoice(rows)
		if err != nil {
			return nil, WrapError(KindPersistence, op, "scan voice", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, WrapError(KindPersistence, op, "iterate voices", err)
	}
	return out, nil
}

// UpdateMetadata touches only display_name/description and updated_at.
// The embedding and derived fields are immutable after creation.
func (s *SQLiteStore) UpdateMetadata(ctx context.Context, id string, patch MetadataPatch) (*Voice, error) {
	const op = "store.UpdateMetadata"
	v, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.DisplayName == nil && patch.Description == nil {
		return v, nil
	}
	if patch.DisplayName != nil {
		v.DisplayName = *patch.DisplayName
	}
	if patch.Description != nil {
		v.Description = *patch.Description
	}
	v.UpdatedAt = time.Now().UTC().Truncate(time.Second)

	res, err := s.db.ExecContext(ctx,
		`UPDATE voices SET display_name = ?, description = ?, updated_at = ? WHERE id = ?`,
		v.DisplayName, v.Description, v.UpdatedAt.Unix(), id,
	)
	if err != nil {
		return nil, WrapError(KindPersistence, op, "update voice", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Deleted between the read and the write.
		return nil, NewError(KindNotFound, op, "voice "+id+" not found")
	}
	return v, nil
}

// Delete is idempotent: removing an absent id is not an error.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	const op = "store.Delete"
	if _, err := s.db.ExecContext(ctx, `DELETE FROM voices WHERE id = ?`, id); err != nil {
		return WrapError(KindPersistence, op, "delete voice", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVoice(row rowScanner) (*Voice, error) {
	var (
		v         Voice
		blob      []byte
		createdAt int64
		updatedAt int64
	)
	err := row.Scan(
		&v.ID, &v.SourceFilename, &v.StorageRef, &blob, &v.EmbeddingRef,
		&v.EmbeddingDim, &v.EmbeddingVer, &v.Duration, &v.SampleRate,
		&v.DisplayName, &v.Description, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	v.Embedding, err = embeddingFromBlob(blob)
	if err != nil {
		return nil, err
	}
	v.CreatedAt = time.Unix(createdAt, 0).UTC()
	v.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &v, nil
}
