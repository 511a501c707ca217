package detection

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"
)

// Analyzer runs the full chunk, evaluate, aggregate pipeline for one signal.
type Analyzer struct {
	evaluator *Evaluator
	logger    log.FieldLogger
}

func NewAnalyzer(classifier Classifier, config EvaluatorConfig) *Analyzer {
	return &Analyzer{
		evaluator: NewEvaluator(classifier, config),
		logger:    log.WithField("component", "analyzer"),
	}
}

// Analyze returns either a complete result or an error, never both.
func (a *Analyzer) Analyze(ctx context.Context, signal *Signal, params Params) (*AnalysisResult, error) {
	if err := ValidateParams(params); err != nil {
		return nil, err
	}
	if signal == nil || len(signal.Samples) == 0 {
		return nil, ErrEmptySignal
	}
	if err := ctx.Err(); err != nil {
		return nil, cancelled(ctx)
	}

	started := time.Now()
	chunks, err := ComputeChunks(len(signal.Samples), signal.SampleRate, params.ChunkDuration, params.Overlap)
	if err != nil {
		return nil, err
	}

	chunkLen, step := ChunkSamples(signal.SampleRate, params.ChunkDuration, params.Overlap)
	a.logger.WithFields(log.Fields{
		"samples":       len(signal.Samples),
		"duration":      signal.Duration(),
		"chunk_samples": chunkLen,
		"step_samples":  step,
		"chunks":        len(chunks),
	}).Info("analyzing signal")

	results, err := a.evaluator.WithWindowSamples(chunkLen).Evaluate(ctx, signal, chunks)
	if err != nil {
		if errors.Is(err, ErrCancelled) {
			a.logger.Info("analysis cancelled")
		} else {
			a.logger.WithError(err).Error("chunk evaluation failed")
		}
		return nil, err
	}

	result, err := Aggregate(results, params.ChunkDuration, params.Overlap)
	if err != nil {
		return nil, err
	}

	a.logger.WithFields(log.Fields{
		"chunks":      result.TotalChunks,
		"ai_chunks":   result.Summary.AIGeneratedChunks,
		"is_deepfake": result.IsDeepfake,
		"confidence":  result.OverallConfidence,
		"elapsed":     time.Since(started),
	}).Info("analysis complete")

	return result, nil
}
