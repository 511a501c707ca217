package classifier

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	log "github.com/sirupsen/logrus"

	"github.com/kdimtricp/faik/internal/detection"
)

// Service owns the process-wide model. It is safe for concurrent use and
// refuses to classify until Load has succeeded.
type Service struct {
	backend Backend
	loaded  atomic.Bool

	mu   sync.RWMutex
	info *ModelInfo
}

func NewService(backend Backend) *Service {
	return &Service{backend: backend}
}

// Load asks the backend to describe its model and marks the service ready.
func (s *Service) Load(ctx context.Context) error {
	if s.backend == nil {
		return fmt.Errorf("%w: no classifier backend configured", detection.ErrModelUnavailable)
	}

	info, err := s.backend.Describe(ctx)
	if err != nil {
		s.loaded.Store(false)
		return fmt.Errorf("%w: %w", detection.ErrModelUnavailable, err)
	}

	s.mu.Lock()
	s.info = info
	s.mu.Unlock()
	s.loaded.Store(true)

	log.WithFields(log.Fields{
		"model":   info.ModelName,
		"type":    info.ModelType,
		"classes": info.NumClasses,
	}).Info("classifier model loaded")

	return nil
}

func (s *Service) IsLoaded() bool {
	return s.loaded.Load()
}

// Name returns the loaded model's name, or "" when nothing is loaded.
func (s *Service) Name() string {
	if info := s.Info(); info != nil {
		return info.ModelName
	}
	return ""
}

// Info returns a copy of the loaded model's description, or nil.
func (s *Service) Info() *ModelInfo {
	if !s.IsLoaded() {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.info == nil {
		return nil
	}
	info := *s.info
	return &info
}

func (s *Service) Classify(ctx context.Context, window []float32, sampleRate int) (detection.Probabilities, error) {
	if !s.IsLoaded() {
		return detection.Probabilities{}, detection.ErrModelUnavailable
	}
	return s.backend.Classify(ctx, window, sampleRate)
}
