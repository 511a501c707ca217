// Package detection splits an audio signal into overlapping windows, scores
// each window with a two-class classifier and reduces the per-window verdicts
// into a single file-level result.
package detection

import (
	"context"
)

const (
	LabelAIGenerated = "ai_generated"
	LabelReal        = "real"

	MinChunkDuration = 1.0
	MaxChunkDuration = 30.0
	MinOverlap       = 0.0
	MaxOverlap       = 0.9

	DefaultChunkDuration = 5.0
	DefaultOverlap       = 0.5

	// DeepfakeRatioThreshold is exclusive: a ratio of exactly 0.5 is not a deepfake.
	DeepfakeRatioThreshold = 0.5
)

// Signal is a mono sample sequence at a fixed rate. It must not be mutated
// after the loader returns it.
type Signal struct {
	Samples    []float32
	SampleRate int
}

func (s *Signal) Duration() float64 {
	if s == nil || s.SampleRate <= 0 {
		return 0
	}
	return float64(len(s.Samples)) / float64(s.SampleRate)
}

// Classifier scores one window of samples. Implementations must be safe for
// concurrent use.
type Classifier interface {
	Classify(ctx context.Context, window []float32, sampleRate int) (Probabilities, error)
}

// ClassifierFunc adapts a function to Classifier.
type ClassifierFunc func(ctx context.Context, window []float32, sampleRate int) (Probabilities, error)

func (f ClassifierFunc) Classify(ctx context.Context, window []float32, sampleRate int) (Probabilities, error) {
	return f(ctx, window, sampleRate)
}

type Probabilities struct {
	AIGenerated float64 `json:"ai_generated"`
	Real        float64 `json:"real"`
}

// Max returns the probability of the winning class.
func (p Probabilities) Max() float64 {
	if p.AIGenerated > p.Real {
		return p.AIGenerated
	}
	return p.Real
}

type Params struct {
	ChunkDuration float64 `json:"chunk_duration"`
	Overlap       float64 `json:"overlap"`
}

func DefaultParams() Params {
	return Params{ChunkDuration: DefaultChunkDuration, Overlap: DefaultOverlap}
}

type ChunkSpec struct {
	Index       int
	StartSample int
	EndSample   int
}

func (c ChunkSpec) Len() int {
	return c.EndSample - c.StartSample
}

type ChunkResult struct {
	ChunkIndex         int           `json:"chunk_index"`
	StartTime          float64       `json:"start_time"`
	EndTime            float64       `json:"end_time"`
	IsAIGenerated      bool          `json:"is_ai_generated"`
	Confidence         float64       `json:"confidence"`
	ClassProbabilities Probabilities `json:"class_probabilities"`
}

type AnalysisSummary struct {
	TotalChunks          int     `json:"total_chunks"`
	AIGeneratedChunks    int     `json:"ai_generated_chunks"`
	RealChunks           int     `json:"real_chunks"`
	AIGeneratedRatio     float64 `json:"ai_generated_ratio"`
	AverageConfidence    float64 `json:"average_confidence"`
	ChunkDurationSeconds float64 `json:"chunk_duration_seconds"`
	OverlapRatio         float64 `json:"overlap_ratio"`
}

type AnalysisResult struct {
	IsDeepfake        bool            `json:"is_deepfake"`
	OverallConfidence float64         `json:"overall_confidence"`
	TotalChunks       int             `json:"total_chunks"`
	Chunks            []ChunkResult   `json:"chunks"`
	Summary           AnalysisSummary `json:"summary"`
}
