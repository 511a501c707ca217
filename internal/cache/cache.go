// Package cache stores finished analysis results keyed by audio content,
// parameters and model, so repeated uploads skip classification.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/kdimtricp/faik/internal/detection"
)

const keyPrefix = "faik:result:"

var ErrMiss = errors.New("cache miss")

type ResultCache interface {
	// Get returns ErrMiss when nothing is stored under key.
	Get(ctx context.Context, key string) (*detection.AnalysisResult, error)
	Set(ctx context.Context, key string, result *detection.AnalysisResult) error
	Close() error
}

// Key identifies a result by the audio's SHA-256, the chunking parameters,
// the model that produced it and the chunk failure policy in effect.
func Key(audioSHA256 string, params detection.Params, modelName string, policy detection.FailurePolicy) string {
	h := sha256.New()
	h.Write([]byte(audioSHA256))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatFloat(params.ChunkDuration, 'g', -1, 64)))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatFloat(params.Overlap, 'g', -1, 64)))
	h.Write([]byte{0})
	h.Write([]byte(modelName))
	h.Write([]byte{0})
	h.Write([]byte(policy.String()))
	return keyPrefix + hex.EncodeToString(h.Sum(nil))
}

// HashAudio returns the hex SHA-256 of raw upload bytes.
func HashAudio(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func encode(result *detection.AnalysisResult) ([]byte, error) {
	b, err := msgpack.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	return b, nil
}

func decode(b []byte) (*detection.AnalysisResult, error) {
	var result detection.AnalysisResult
	if err := msgpack.Unmarshal(b, &result); err != nil {
		return nil, fmt.Errorf("failed to decode result: %w", err)
	}
	return &result, nil
}
