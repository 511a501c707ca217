package analysis

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"github.com/kdimtricp/faik/internal/detection"
)

var (
	debugDurations = []float64{1, 3, 5, 10}
	debugOverlaps  = []float64{0, 0.3, 0.5, 0.7}
)

type ChunkPlan struct {
	ChunkDuration float64 `json:"chunk_duration"`
	Overlap       float64 `json:"overlap"`
	ChunkSamples  int     `json:"chunk_samples"`
	StepSamples   int     `json:"step_samples"`
	NumChunks     int     `json:"num_chunks"`
	AudioDuration float64 `json:"audio_duration"`
	AudioSamples  int     `json:"audio_samples"`
}

type DebugReport struct {
	Filename             string               `json:"filename"`
	FileSizeBytes        int                  `json:"file_size_bytes"`
	AudioDurationSeconds float64              `json:"audio_duration_seconds"`
	AudioSamples         int                  `json:"audio_samples"`
	SampleRate           int                  `json:"sample_rate"`
	ChunkAnalysis        map[string]ChunkPlan `json:"chunk_analysis"`
}

// DebugAudio decodes the upload and reports how it would be windowed under
// a grid of chunk durations and overlaps. No classifier is involved.
func (s *Service) DebugAudio(ctx context.Context, upload Upload) (*DebugReport, error) {
	signal, err := s.loader.LoadBytes(ctx, upload.Data)
	if err != nil {
		return nil, err
	}

	report := &DebugReport{
		Filename:             upload.Filename,
		FileSizeBytes:        len(upload.Data),
		AudioDurationSeconds: signal.Duration(),
		AudioSamples:         len(signal.Samples),
		SampleRate:           signal.SampleRate,
		ChunkAnalysis:        make(map[string]ChunkPlan, len(debugDurations)*len(debugOverlaps)),
	}

	for _, duration := range debugDurations {
		for _, overlap := range debugOverlaps {
			plan, err := planChunks(len(signal.Samples), signal.SampleRate, duration, overlap)
			if err != nil {
				return nil, err
			}
			report.ChunkAnalysis[planKey(duration, overlap)] = plan
		}
	}

	return report, nil
}

func planChunks(totalSamples, sampleRate int, duration, overlap float64) (ChunkPlan, error) {
	chunks, err := detection.ComputeChunks(totalSamples, sampleRate, duration, overlap)
	if err != nil {
		return ChunkPlan{}, err
	}
	chunk, step := detection.ChunkSamples(sampleRate, duration, overlap)

	return ChunkPlan{
		ChunkDuration: duration,
		Overlap:       overlap,
		ChunkSamples:  chunk,
		StepSamples:   step,
		NumChunks:     len(chunks),
		AudioDuration: float64(totalSamples) / float64(sampleRate),
		AudioSamples:  totalSamples,
	}, nil
}

// planKey formats keys like "5.0s_50%".
func planKey(duration, overlap float64) string {
	return fmt.Sprintf("%ss_%d%%", strconv.FormatFloat(duration, 'f', 1, 64), int(math.Round(overlap*100)))
}
