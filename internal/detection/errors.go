package detection

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidParameter  = errors.New("invalid parameter")
	ErrEmptySignal       = errors.New("empty signal")
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	ErrModelUnavailable  = errors.New("model unavailable")
	ErrChunkEvaluation   = errors.New("chunk evaluation failed")
	// ErrNoChunksProduced means the chunker broke its at-least-one-window
	// guarantee. It is a defect, never a user error.
	ErrNoChunksProduced = errors.New("no chunks produced")
	ErrCancelled        = errors.New("analysis cancelled")
)

// ChunkEvaluationError reports the classifier failure of a single chunk.
type ChunkEvaluationError struct {
	Index int
	Err   error
}

func (e *ChunkEvaluationError) Error() string {
	return fmt.Sprintf("chunk %d: %v", e.Index, e.Err)
}

func (e *ChunkEvaluationError) Unwrap() error {
	return e.Err
}

func (e *ChunkEvaluationError) Is(target error) bool {
	return target == ErrChunkEvaluation
}

// Kind returns the taxonomy name of err, or "InternalServerError" when err
// carries none of the known kinds.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrInvalidParameter):
		return "InvalidParameter"
	case errors.Is(err, ErrEmptySignal):
		return "EmptySignal"
	case errors.Is(err, ErrUnsupportedFormat):
		return "UnsupportedFormat"
	case errors.Is(err, ErrCancelled):
		return "Cancelled"
	case errors.Is(err, ErrModelUnavailable):
		return "ModelUnavailable"
	case errors.Is(err, ErrChunkEvaluation):
		return "ChunkEvaluationError"
	case errors.Is(err, ErrNoChunksProduced):
		return "NoChunksProduced"
	default:
		return "InternalServerError"
	}
}
