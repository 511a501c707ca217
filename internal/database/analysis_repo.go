package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kdimtricp/faik/internal/models"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

const analysisColumns = `id, filename, stored_name, content_type, size, audio_sha256,
	duration_seconds, sample_rate, chunk_duration, overlap, model_name,
	is_deepfake, overall_confidence, total_chunks, ai_generated_chunks, result, created_at`

type AnalysisRepository struct {
	db *DB
}

func NewAnalysisRepository(db *DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

func (r *AnalysisRepository) Insert(ctx context.Context, a *models.Analysis) error {
	query := `INSERT INTO analyses (` + analysisColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	result := string(a.Result)
	if result == "" {
		result = "{}"
	}

	_, err := r.db.conn.ExecContext(ctx, query,
		a.ID,
		a.Filename,
		a.StoredName,
		a.ContentType,
		a.Size,
		a.AudioSHA256,
		a.DurationSeconds,
		a.SampleRate,
		a.ChunkDuration,
		a.Overlap,
		a.ModelName,
		a.IsDeepfake,
		a.OverallConfidence,
		a.TotalChunks,
		a.AIGeneratedChunks,
		result,
		a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert analysis: %w", err)
	}
	return nil
}

func (r *AnalysisRepository) GetByID(ctx context.Context, id string) (*models.Analysis, error) {
	query := `SELECT ` + analysisColumns + ` FROM analyses WHERE id = $1`

	a, err := scanAnalysis(r.db.conn.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get analysis: %w", err)
	}
	return a, nil
}

// List returns the most recent analyses first, without their full results.
func (r *AnalysisRepository) List(ctx context.Context, limit int) ([]*models.Analysis, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	query := `SELECT ` + analysisColumns + ` FROM analyses ORDER BY created_at DESC LIMIT $1`

	rows, err := r.db.conn.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}
	defer rows.Close()

	analyses := make([]*models.Analysis, 0)
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan analysis: %w", err)
		}
		a.Result = nil
		analyses = append(analyses, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}

	return analyses, nil
}

func (r *AnalysisRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.conn.ExecContext(ctx, `DELETE FROM analyses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete analysis: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(row rowScanner) (*models.Analysis, error) {
	var (
		a      models.Analysis
		result string
	)
	err := row.Scan(
		&a.ID,
		&a.Filename,
		&a.StoredName,
		&a.ContentType,
		&a.Size,
		&a.AudioSHA256,
		&a.DurationSeconds,
		&a.SampleRate,
		&a.ChunkDuration,
		&a.Overlap,
		&a.ModelName,
		&a.IsDeepfake,
		&a.OverallConfidence,
		&a.TotalChunks,
		&a.AIGeneratedChunks,
		&result,
		&a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.Result = []byte(result)
	return &a, nil
}
