package detection

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// FailurePolicy decides what happens to an analysis when one chunk fails.
type FailurePolicy int

const (
	// FailAbort fails the whole analysis on the first chunk failure.
	FailAbort FailurePolicy = iota
	// FailSkip drops failed chunks and keeps going. The analysis still fails
	// when no chunk succeeds.
	FailSkip
)

func (p FailurePolicy) String() string {
	switch p {
	case FailSkip:
		return "skip"
	default:
		return "abort"
	}
}

func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "abort":
		return FailAbort, nil
	case "skip":
		return FailSkip, nil
	default:
		return FailAbort, fmt.Errorf("unknown failure policy %q", s)
	}
}

type EvaluatorConfig struct {
	// Workers bounds concurrent classifier calls. Zero or one evaluates
	// chunks sequentially.
	Workers int
	// ChunkTimeout bounds a single classifier call. Zero means no bound
	// beyond the caller's context.
	ChunkTimeout time.Duration
	// WindowSamples zero-pads shorter windows to this length before they
	// reach the classifier. Reported times still reflect the real audio.
	WindowSamples int
	Policy        FailurePolicy
}

type Evaluator struct {
	classifier Classifier
	config     EvaluatorConfig
	logger     log.FieldLogger
}

func NewEvaluator(classifier Classifier, config EvaluatorConfig) *Evaluator {
	if config.Workers < 1 {
		config.Workers = 1
	}
	return &Evaluator{
		classifier: classifier,
		config:     config,
		logger:     log.WithField("component", "evaluator"),
	}
}

// WithWindowSamples returns a copy of e that pads windows to n samples.
func (e *Evaluator) WithWindowSamples(n int) *Evaluator {
	cp := *e
	cp.config.WindowSamples = n
	return &cp
}

// Evaluate classifies every chunk of signal and returns the results in chunk
// order. Under FailAbort the first failure is returned as a
// *ChunkEvaluationError and no results are returned.
func (e *Evaluator) Evaluate(ctx context.Context, signal *Signal, chunks []ChunkSpec) ([]ChunkResult, error) {
	if e.classifier == nil {
		return nil, fmt.Errorf("%w: no classifier configured", ErrModelUnavailable)
	}
	if signal == nil || len(signal.Samples) == 0 {
		return nil, ErrEmptySignal
	}
	if signal.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate must be positive, got %d", ErrInvalidParameter, signal.SampleRate)
	}
	for _, c := range chunks {
		if c.StartSample < 0 || c.EndSample <= c.StartSample || c.EndSample > len(signal.Samples) {
			return nil, fmt.Errorf("%w: chunk %d [%d, %d) outside signal of %d samples",
				ErrInvalidParameter, c.Index, c.StartSample, c.EndSample, len(signal.Samples))
		}
	}

	results := make([]ChunkResult, len(chunks))
	done := make([]bool, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.config.Workers)

	for i, c := range chunks {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			res, err := e.evaluateChunk(gctx, signal, c)
			if err != nil {
				if ctx.Err() != nil {
					return cancelled(ctx)
				}
				if e.config.Policy == FailSkip {
					e.logger.WithError(err).WithField("chunk", c.Index).Warn("skipping failed chunk")
					return nil
				}
				return err
			}
			results[i] = res
			done[i] = true
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, cancelled(ctx)
	}

	out := results[:0]
	for i := range results {
		if done[i] {
			out = append(out, results[i])
		}
	}
	if len(out) == 0 && len(chunks) > 0 {
		return nil, fmt.Errorf("%w: all %d chunks failed", ErrChunkEvaluation, len(chunks))
	}
	if skipped := len(chunks) - len(out); skipped > 0 {
		e.logger.WithFields(log.Fields{"skipped": skipped, "total": len(chunks)}).Warn("analysis continues without failed chunks")
	}
	return out, nil
}

func (e *Evaluator) evaluateChunk(ctx context.Context, signal *Signal, c ChunkSpec) (ChunkResult, error) {
	window := signal.Samples[c.StartSample:c.EndSample]
	if e.config.WindowSamples > len(window) {
		padded := make([]float32, e.config.WindowSamples)
		copy(padded, window)
		window = padded
	}

	cctx := ctx
	if e.config.ChunkTimeout > 0 {
		var cancel context.CancelFunc
		cctx, cancel = context.WithTimeout(ctx, e.config.ChunkTimeout)
		defer cancel()
	}

	probs, err := e.classifier.Classify(cctx, window, signal.SampleRate)
	if err != nil {
		return ChunkResult{}, &ChunkEvaluationError{Index: c.Index, Err: err}
	}
	probs, err = normalize(probs)
	if err != nil {
		return ChunkResult{}, &ChunkEvaluationError{Index: c.Index, Err: err}
	}

	res := NewChunkResult(c, signal.SampleRate, probs)
	e.logger.WithFields(log.Fields{
		"chunk":      c.Index,
		"start":      res.StartTime,
		"end":        res.EndTime,
		"ai":         res.IsAIGenerated,
		"confidence": res.Confidence,
	}).Debug("chunk classified")
	return res, nil
}

// NewChunkResult builds the result of one chunk from already normalized
// probabilities.
func NewChunkResult(c ChunkSpec, sampleRate int, p Probabilities) ChunkResult {
	return ChunkResult{
		ChunkIndex:         c.Index,
		StartTime:          float64(c.StartSample) / float64(sampleRate),
		EndTime:            float64(c.EndSample) / float64(sampleRate),
		IsAIGenerated:      p.AIGenerated > p.Real,
		Confidence:         p.Max(),
		ClassProbabilities: p,
	}
}

func normalize(p Probabilities) (Probabilities, error) {
	for _, v := range []float64{p.AIGenerated, p.Real} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return Probabilities{}, fmt.Errorf("invalid class probability %v", v)
		}
	}
	sum := p.AIGenerated + p.Real
	if sum <= 0 {
		return Probabilities{}, errors.New("class probabilities sum to zero")
	}
	return Probabilities{AIGenerated: p.AIGenerated / sum, Real: p.Real / sum}, nil
}

func cancelled(ctx context.Context) error {
	return fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
}
