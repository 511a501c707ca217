package detection

import (
	"fmt"
	"math"
)

// ValidateParams rejects chunk durations outside [1, 30] seconds and overlaps
// outside [0, 0.9].
func ValidateParams(p Params) error {
	if math.IsNaN(p.ChunkDuration) || p.ChunkDuration < MinChunkDuration || p.ChunkDuration > MaxChunkDuration {
		return fmt.Errorf("%w: chunk_duration must be between %.1f and %.1f seconds, got %v",
			ErrInvalidParameter, MinChunkDuration, MaxChunkDuration, p.ChunkDuration)
	}
	if math.IsNaN(p.Overlap) || p.Overlap < MinOverlap || p.Overlap > MaxOverlap {
		return fmt.Errorf("%w: overlap must be between %.1f and %.1f, got %v",
			ErrInvalidParameter, MinOverlap, MaxOverlap, p.Overlap)
	}
	return nil
}

// ChunkSamples returns the window length and step in samples for the given
// parameters. The step is never smaller than one sample.
func ChunkSamples(sampleRate int, chunkDuration, overlap float64) (chunk, step int) {
	chunk = int(math.Round(chunkDuration * float64(sampleRate)))
	step = chunk - int(math.Round(overlap*float64(chunk)))
	if step < 1 {
		step = 1
	}
	return chunk, step
}

// ComputeChunks derives the ordered windows covering totalSamples.
//
// Full windows start at 0, step, 2*step, ... while they fit. When samples
// remain after the last full window a final window ending exactly at
// totalSamples is appended, and a signal shorter than one chunk yields a
// single window spanning the whole signal. Every window therefore has the
// nominal length except the whole-signal case.
func ComputeChunks(totalSamples, sampleRate int, chunkDuration, overlap float64) ([]ChunkSpec, error) {
	if err := ValidateParams(Params{ChunkDuration: chunkDuration, Overlap: overlap}); err != nil {
		return nil, err
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate must be positive, got %d", ErrInvalidParameter, sampleRate)
	}
	if totalSamples < 0 {
		return nil, fmt.Errorf("%w: negative sample count %d", ErrInvalidParameter, totalSamples)
	}
	if totalSamples == 0 {
		return nil, ErrEmptySignal
	}

	chunkLen, step := ChunkSamples(sampleRate, chunkDuration, overlap)

	var chunks []ChunkSpec
	for start := 0; start+chunkLen <= totalSamples; start += step {
		chunks = append(chunks, ChunkSpec{
			Index:       len(chunks),
			StartSample: start,
			EndSample:   start + chunkLen,
		})
	}

	switch {
	case len(chunks) == 0:
		chunks = append(chunks, ChunkSpec{Index: 0, StartSample: 0, EndSample: totalSamples})
	case chunks[len(chunks)-1].EndSample < totalSamples:
		chunks = append(chunks, ChunkSpec{
			Index:       len(chunks),
			StartSample: totalSamples - chunkLen,
			EndSample:   totalSamples,
		})
	}

	return chunks, nil
}
