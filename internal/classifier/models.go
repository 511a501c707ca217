// Package classifier provides the audio deepfake classifier used by the
// detection pipeline: an HTTP client for a model inference server and a
// Service that tracks whether the model is loaded.
package classifier

import (
	"context"
	"math"
	"time"

	"github.com/kdimtricp/faik/internal/detection"
)

const (
	DefaultModelName  = "mo-thecreator/Deepfake-audio-detection"
	DefaultTimeout    = 30 * time.Second
	DefaultMaxRetries = 3
)

// ClassMapping is the index to label mapping of the model's two outputs.
var ClassMapping = map[string]string{
	"0": "AI Generated",
	"1": "Real",
}

type ModelInfo struct {
	ModelName            string            `json:"model_name"`
	ModelType            string            `json:"model_type"`
	FeatureExtractorType string            `json:"feature_extractor_type"`
	ModelConfig          map[string]any    `json:"model_config"`
	NumClasses           int               `json:"num_classes"`
	ClassMapping         map[string]string `json:"class_mapping"`
}

// Backend is a model that can describe itself and score windows.
type Backend interface {
	detection.Classifier
	Describe(ctx context.Context) (*ModelInfo, error)
}

type Config struct {
	BaseURL      string
	ModelName    string
	Timeout      time.Duration
	MaxRetries   uint64
	RetryBackoff time.Duration
}

func NewConfig() *Config {
	return &Config{
		ModelName:    DefaultModelName,
		Timeout:      DefaultTimeout,
		MaxRetries:   DefaultMaxRetries,
		RetryBackoff: 200 * time.Millisecond,
	}
}

// FromLogits converts the model's two raw outputs (index 0 AI generated,
// index 1 real) into probabilities with a numerically stable softmax.
func FromLogits(logits []float64) (detection.Probabilities, error) {
	if len(logits) != 2 {
		return detection.Probabilities{}, errInvalidOutput(len(logits))
	}

	peak := math.Max(logits[0], logits[1])
	ai := math.Exp(logits[0] - peak)
	authentic := math.Exp(logits[1] - peak)
	sum := ai + authentic

	return detection.Probabilities{AIGenerated: ai / sum, Real: authentic / sum}, nil
}
