// Package analysis runs uploads through the detection pipeline and keeps
// the history of past analyses.
package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/kdimtricp/faik/internal/cache"
	"github.com/kdimtricp/faik/internal/database"
	"github.com/kdimtricp/faik/internal/detection"
	"github.com/kdimtricp/faik/internal/models"
	"github.com/kdimtricp/faik/internal/storage"
)

var ErrNotFound = database.ErrNotFound

type SignalLoader interface {
	LoadBytes(ctx context.Context, data []byte) (*detection.Signal, error)
	SampleRate() int
}

// Model is a classifier that may not be ready yet.
type Model interface {
	detection.Classifier
	IsLoaded() bool
	Name() string
}

type Repository interface {
	Insert(ctx context.Context, a *models.Analysis) error
	GetByID(ctx context.Context, id string) (*models.Analysis, error)
	List(ctx context.Context, limit int) ([]*models.Analysis, error)
}

type Config struct {
	Evaluator detection.EvaluatorConfig
}

type Service struct {
	loader   SignalLoader
	model    Model
	analyzer *detection.Analyzer
	repo     Repository
	storage  storage.Storage
	cache    cache.ResultCache
	policy   detection.FailurePolicy
	logger   log.FieldLogger
}

// NewService wires the pipeline. repo, store and resultCache may be nil, in
// which case history, upload retention and caching are disabled.
func NewService(
	loader SignalLoader,
	model Model,
	repo Repository,
	store storage.Storage,
	resultCache cache.ResultCache,
	config Config,
) *Service {
	return &Service{
		loader:   loader,
		model:    model,
		analyzer: detection.NewAnalyzer(model, config.Evaluator),
		repo:     repo,
		storage:  store,
		cache:    resultCache,
		policy:   config.Evaluator.Policy,
		logger:   log.WithField("component", "analysis"),
	}
}

type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

type Outcome struct {
	AnalysisID string
	Result     *detection.AnalysisResult
	Cached     bool
}

func (s *Service) ModelLoaded() bool {
	return s.model != nil && s.model.IsLoaded()
}

// Analyze decodes the upload, classifies it chunk by chunk and records the
// outcome. Recording is best effort: a storage or database failure is
// logged and leaves Outcome.AnalysisID empty.
func (s *Service) Analyze(ctx context.Context, upload Upload, params detection.Params) (*Outcome, error) {
	if err := detection.ValidateParams(params); err != nil {
		return nil, err
	}
	if !s.ModelLoaded() {
		return nil, detection.ErrModelUnavailable
	}

	logger := s.logger.WithField("filename", upload.Filename)
	started := time.Now()

	signal, err := s.loader.LoadBytes(ctx, upload.Data)
	if err != nil {
		return nil, err
	}
	logger.WithFields(log.Fields{
		"duration":    signal.Duration(),
		"sample_rate": signal.SampleRate,
	}).Info("audio decoded")

	hash := cache.HashAudio(upload.Data)
	key := cache.Key(hash, params, s.model.Name(), s.policy)

	outcome := &Outcome{}
	if result, ok := s.cached(ctx, key); ok {
		logger.Info("serving cached analysis")
		outcome.Result = result
		outcome.Cached = true
	} else {
		result, err := s.analyzer.Analyze(ctx, signal, params)
		if err != nil {
			return nil, err
		}
		outcome.Result = result
		s.store(ctx, key, result)
	}

	record, err := s.record(ctx, upload, hash, signal, params, outcome.Result)
	if err != nil {
		logger.WithError(err).Error("failed to record analysis")
	} else if record != nil {
		outcome.AnalysisID = record.ID
	}

	logger.WithFields(log.Fields{
		"analysis_id": outcome.AnalysisID,
		"is_deepfake": outcome.Result.IsDeepfake,
		"cached":      outcome.Cached,
		"elapsed":     time.Since(started),
	}).Info("analysis finished")

	return outcome, nil
}

func (s *Service) cached(ctx context.Context, key string) (*detection.AnalysisResult, bool) {
	if s.cache == nil {
		return nil, false
	}
	result, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			s.logger.WithError(err).Warn("result cache lookup failed")
		}
		return nil, false
	}
	return result, true
}

func (s *Service) store(ctx context.Context, key string, result *detection.AnalysisResult) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, result); err != nil {
		s.logger.WithError(err).Warn("failed to cache result")
	}
}

func (s *Service) record(
	ctx context.Context,
	upload Upload,
	hash string,
	signal *detection.Signal,
	params detection.Params,
	result *detection.AnalysisResult,
) (*models.Analysis, error) {
	if s.repo == nil {
		return nil, nil
	}

	var storedName string
	if s.storage != nil {
		name, err := s.storage.SaveFile(ctx, bytes.NewReader(upload.Data), storage.FileInfo{
			Filename:    upload.Filename,
			ContentType: upload.ContentType,
			Size:        int64(len(upload.Data)),
		})
		if err != nil {
			return nil, fmt.Errorf("saving upload: %w", err)
		}
		storedName = name
	}

	resultJSON, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("encoding result: %w", err)
	}

	record := models.NewAnalysis(upload.Filename, storedName, upload.ContentType, int64(len(upload.Data)))
	record.AudioSHA256 = hash
	record.DurationSeconds = signal.Duration()
	record.SampleRate = signal.SampleRate
	record.ChunkDuration = params.ChunkDuration
	record.Overlap = params.Overlap
	record.ModelName = s.model.Name()
	record.IsDeepfake = result.IsDeepfake
	record.OverallConfidence = result.OverallConfidence
	record.TotalChunks = result.TotalChunks
	record.AIGeneratedChunks = result.Summary.AIGeneratedChunks
	record.Result = resultJSON

	if err := s.repo.Insert(ctx, record); err != nil {
		if storedName != "" {
			if derr := s.storage.DeleteFile(ctx, storedName); derr != nil {
				s.logger.WithError(derr).Warn("failed to remove orphaned upload")
			}
		}
		return nil, err
	}

	return record, nil
}

func (s *Service) List(ctx context.Context, limit int) ([]*models.Analysis, error) {
	if s.repo == nil {
		return []*models.Analysis{}, nil
	}
	return s.repo.List(ctx, limit)
}

func (s *Service) Get(ctx context.Context, id string) (*models.Analysis, error) {
	if s.repo == nil {
		return nil, ErrNotFound
	}
	return s.repo.GetByID(ctx, id)
}

// OpenAudio returns the stored upload of an analysis.
func (s *Service) OpenAudio(ctx context.Context, id string) (io.ReadCloser, *models.Analysis, error) {
	record, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if s.storage == nil || record.StoredName == "" {
		return nil, nil, fmt.Errorf("audio for analysis %s: %w", id, ErrNotFound)
	}

	r, err := s.storage.OpenFile(ctx, record.StoredName)
	if err != nil {
		return nil, nil, err
	}
	return r, record, nil
}
