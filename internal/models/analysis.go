package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Analysis is one persisted run of the detection pipeline over an upload.
type Analysis struct {
	ID                string          `json:"id"`
	Filename          string          `json:"filename"`
	StoredName        string          `json:"-"`
	ContentType       string          `json:"content_type"`
	Size              int64           `json:"file_size_bytes"`
	AudioSHA256       string          `json:"audio_sha256"`
	DurationSeconds   float64         `json:"audio_duration_seconds"`
	SampleRate        int             `json:"sample_rate"`
	ChunkDuration     float64         `json:"chunk_duration"`
	Overlap           float64         `json:"overlap"`
	ModelName         string          `json:"model_name"`
	IsDeepfake        bool            `json:"is_deepfake"`
	OverallConfidence float64         `json:"overall_confidence"`
	TotalChunks       int             `json:"total_chunks"`
	AIGeneratedChunks int             `json:"ai_generated_chunks"`
	Result            json.RawMessage `json:"result,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
}

func NewAnalysis(filename, storedName, contentType string, size int64) *Analysis {
	return &Analysis{
		ID:          uuid.New().String(),
		Filename:    filename,
		StoredName:  storedName,
		ContentType: contentType,
		Size:        size,
		CreatedAt:   time.Now().UTC(),
	}
}
