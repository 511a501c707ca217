package audio

import (
	"fmt"
	"math"

	resampling "github.com/tphakala/go-audio-resampling"
)

// Resample converts mono samples from one rate to another. Samples are
// returned unchanged when the rates already match. The output always holds
// round(len(samples) * toRate / fromRate) samples so the duration is kept.
func Resample(samples []float64, fromRate, toRate int) ([]float64, error) {
	if fromRate <= 0 || toRate <= 0 {
		return nil, fmt.Errorf("invalid sample rates %d -> %d", fromRate, toRate)
	}
	if fromRate == toRate || len(samples) == 0 {
		return samples, nil
	}

	resampler, err := resampling.New(&resampling.Config{
		InputRate:  float64(fromRate),
		OutputRate: float64(toRate),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create resampler: %w", err)
	}

	output, err := resampler.Process(samples)
	if err != nil {
		return nil, fmt.Errorf("resample error: %w", err)
	}
	tail, err := resampler.Flush()
	if err != nil {
		return nil, fmt.Errorf("resample flush error: %w", err)
	}
	output = append(output, tail...)

	return fitLength(output, ResampledLength(len(samples), fromRate, toRate)), nil
}

// ResampledLength is the number of samples n input samples span at toRate.
func ResampledLength(n, fromRate, toRate int) int {
	return int(math.Round(float64(n) * float64(toRate) / float64(fromRate)))
}

// fitLength trims or zero-pads samples to exactly n.
func fitLength(samples []float64, n int) []float64 {
	if len(samples) >= n {
		return samples[:n]
	}
	padded := make([]float64, n)
	copy(padded, samples)
	return padded
}
