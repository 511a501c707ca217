package detection

import (
	"errors"
	"testing"
)

func TestComputeChunks(t *testing.T) {
	tests := []struct {
		name          string
		totalSamples  int
		sampleRate    int
		chunkDuration float64
		overlap       float64
		expected      [][2]int
	}{
		{
			name:          "12s at 16kHz with half overlap adds tail window",
			totalSamples:  12 * 16000,
			sampleRate:    16000,
			chunkDuration: 5.0,
			overlap:       0.5,
			expected: [][2]int{
				{0, 80000},
				{40000, 120000},
				{80000, 160000},
				{112000, 192000},
			},
		},
		{
			name:          "shorter than one chunk spans whole signal",
			totalSamples:  3 * 16000,
			sampleRate:    16000,
			chunkDuration: 5.0,
			overlap:       0.5,
			expected:      [][2]int{{0, 48000}},
		},
		{
			name:          "exactly one chunk",
			totalSamples:  80000,
			sampleRate:    16000,
			chunkDuration: 5.0,
			overlap:       0.5,
			expected:      [][2]int{{0, 80000}},
		},
		{
			name:          "no overlap with exact fit has no tail",
			totalSamples:  160000,
			sampleRate:    16000,
			chunkDuration: 5.0,
			overlap:       0.0,
			expected:      [][2]int{{0, 80000}, {80000, 160000}},
		},
		{
			name:          "no overlap with residual",
			totalSamples:  25,
			sampleRate:    10,
			chunkDuration: 1.0,
			overlap:       0.0,
			expected:      [][2]int{{0, 10}, {10, 20}, {15, 25}},
		},
		{
			name:          "step clamps to one sample",
			totalSamples:  3,
			sampleRate:    1,
			chunkDuration: 1.0,
			overlap:       0.9,
			expected:      [][2]int{{0, 1}, {1, 2}, {2, 3}},
		},
		{
			name:          "single sample signal",
			totalSamples:  1,
			sampleRate:    16000,
			chunkDuration: 1.0,
			overlap:       0.0,
			expected:      [][2]int{{0, 1}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks, err := ComputeChunks(tt.totalSamples, tt.sampleRate, tt.chunkDuration, tt.overlap)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if len(chunks) != len(tt.expected) {
				t.Fatalf("expected %d chunks, got %d: %+v", len(tt.expected), len(chunks), chunks)
			}

			for i, c := range chunks {
				if c.Index != i {
					t.Errorf("chunk %d: expected index %d, got %d", i, i, c.Index)
				}
				if c.StartSample != tt.expected[i][0] || c.EndSample != tt.expected[i][1] {
					t.Errorf("chunk %d: expected [%d, %d), got [%d, %d)",
						i, tt.expected[i][0], tt.expected[i][1], c.StartSample, c.EndSample)
				}
			}
		})
	}
}

func TestComputeChunks_Errors(t *testing.T) {
	tests := []struct {
		name          string
		totalSamples  int
		sampleRate    int
		chunkDuration float64
		overlap       float64
		expectedErr   error
	}{
		{"empty signal", 0, 16000, 5.0, 0.5, ErrEmptySignal},
		{"chunk too short", 16000, 16000, 0.5, 0.5, ErrInvalidParameter},
		{"chunk too long", 16000, 16000, 30.5, 0.5, ErrInvalidParameter},
		{"negative overlap", 16000, 16000, 5.0, -0.1, ErrInvalidParameter},
		{"overlap too large", 16000, 16000, 5.0, 0.95, ErrInvalidParameter},
		{"zero sample rate", 16000, 0, 5.0, 0.5, ErrInvalidParameter},
		{"negative samples", -1, 16000, 5.0, 0.5, ErrInvalidParameter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks, err := ComputeChunks(tt.totalSamples, tt.sampleRate, tt.chunkDuration, tt.overlap)
			if !errors.Is(err, tt.expectedErr) {
				t.Fatalf("expected %v, got %v", tt.expectedErr, err)
			}
			if chunks != nil {
				t.Errorf("expected no chunks on error, got %d", len(chunks))
			}
		})
	}
}

func TestComputeChunks_Coverage(t *testing.T) {
	durations := []float64{1.0, 2.5, 5.0, 10.0, 30.0}
	overlaps := []float64{0.0, 0.3, 0.5, 0.7, 0.9}
	totals := []int{1, 999, 16000, 16001, 47999, 80000, 192000, 500001}

	for _, d := range durations {
		for _, o := range overlaps {
			for _, total := range totals {
				chunks, err := ComputeChunks(total, 16000, d, o)
				if err != nil {
					t.Fatalf("d=%v o=%v total=%d: unexpected error: %v", d, o, total, err)
				}
				if len(chunks) == 0 {
					t.Fatalf("d=%v o=%v total=%d: expected at least one chunk", d, o, total)
				}

				for i, c := range chunks {
					if c.StartSample < 0 || c.EndSample > total || c.EndSample <= c.StartSample {
						t.Errorf("d=%v o=%v total=%d: chunk %d out of bounds [%d, %d)", d, o, total, i, c.StartSample, c.EndSample)
					}
					if i > 0 && c.StartSample <= chunks[i-1].StartSample {
						t.Errorf("d=%v o=%v total=%d: start of chunk %d not increasing", d, o, total, i)
					}
				}

				if last := chunks[len(chunks)-1]; last.EndSample != total {
					t.Errorf("d=%v o=%v total=%d: last chunk ends at %d, tail dropped", d, o, total, last.EndSample)
				}
			}
		}
	}
}

func TestChunkSamples(t *testing.T) {
	chunk, step := ChunkSamples(16000, 5.0, 0.5)
	if chunk != 80000 || step != 40000 {
		t.Errorf("expected 80000/40000, got %d/%d", chunk, step)
	}

	chunk, step = ChunkSamples(16000, 1.0, 0.3)
	if chunk != 16000 || step != 11200 {
		t.Errorf("expected 16000/11200, got %d/%d", chunk, step)
	}
}
