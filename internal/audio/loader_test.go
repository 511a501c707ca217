package audio

import (
	"bytes"
	"context"
	"errors"
	"math"
	"testing"

	"github.com/kdimtricp/faik/internal/detection"
)

func sineWAV(t *testing.T, seconds float64, rate int) []byte {
	t.Helper()

	samples := make([]float32, int(seconds*float64(rate)))
	for i := range samples {
		samples[i] = float32(0.5 * math.Sin(2*math.Pi*440*float64(i)/float64(rate)))
	}

	var buf bytes.Buffer
	if err := WriteWAV(&buf, samples, rate); err != nil {
		t.Fatalf("failed to write wav: %v", err)
	}
	return buf.Bytes()
}

func TestLoader_Load(t *testing.T) {
	loader := NewLoader(LoaderConfig{DisableFFmpeg: true})

	signal, err := loader.Load(context.Background(), bytes.NewReader(sineWAV(t, 2, 16000)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if signal.SampleRate != DefaultSampleRate {
		t.Errorf("expected %d Hz, got %d", DefaultSampleRate, signal.SampleRate)
	}
	if len(signal.Samples) != 32000 {
		t.Errorf("expected 32000 samples, got %d", len(signal.Samples))
	}
	if signal.Duration() != 2.0 {
		t.Errorf("expected 2s, got %f", signal.Duration())
	}
}

func TestLoader_Resamples(t *testing.T) {
	loader := NewLoader(LoaderConfig{SampleRate: 16000, DisableFFmpeg: true})

	tests := []struct {
		name     string
		rate     int
		seconds  float64
		expected int
	}{
		{"upsample 8 kHz", 8000, 1, 16000},
		{"downsample 44.1 kHz", 44100, 1, 16000},
		{"downsample 48 kHz", 48000, 2, 32000},
		{"22.05 kHz", 22050, 1, 16000},
		{"clip shorter than filter delay", 44100, 400.0 / 44100, 145},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			signal, err := loader.Load(context.Background(), bytes.NewReader(sineWAV(t, tt.seconds, tt.rate)))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if signal.SampleRate != 16000 {
				t.Errorf("expected 16000 Hz, got %d", signal.SampleRate)
			}
			if diff := len(signal.Samples) - tt.expected; diff < -1 || diff > 1 {
				t.Errorf("expected %d samples, got %d", tt.expected, len(signal.Samples))
			}
		})
	}
}

func TestResample_KeepsDuration(t *testing.T) {
	for _, from := range []int{8000, 22050, 44100, 48000} {
		out, err := Resample(make([]float64, from), from, 16000)
		if err != nil {
			t.Fatalf("%d Hz: unexpected error: %v", from, err)
		}
		if len(out) != 16000 {
			t.Errorf("%d Hz: expected 16000 samples, got %d", from, len(out))
		}
	}
}

func TestLoader_Errors(t *testing.T) {
	loader := NewLoader(LoaderConfig{DisableFFmpeg: true})

	var empty bytes.Buffer
	if err := WriteWAV(&empty, nil, 16000); err != nil {
		t.Fatalf("failed to write wav: %v", err)
	}

	tests := []struct {
		name        string
		data        []byte
		expectedErr error
	}{
		{"no data", nil, detection.ErrUnsupportedFormat},
		{"garbage", []byte("definitely not audio"), detection.ErrUnsupportedFormat},
		{"broken wav", []byte("RIFF\x10\x00\x00\x00WAVEjunk"), detection.ErrUnsupportedFormat},
		{"wav without samples", empty.Bytes(), detection.ErrEmptySignal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			signal, err := loader.LoadBytes(context.Background(), tt.data)
			if !errors.Is(err, tt.expectedErr) {
				t.Errorf("expected %v, got %v", tt.expectedErr, err)
			}
			if signal != nil {
				t.Error("expected nil signal")
			}
		})
	}
}

func TestResample_SameRate(t *testing.T) {
	in := []float64{0.1, 0.2, 0.3}
	out, err := Resample(in, 16000, 16000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 3 || out[1] != 0.2 {
		t.Errorf("expected samples unchanged, got %v", out)
	}

	if _, err := Resample(in, 0, 16000); err == nil {
		t.Error("expected error for zero input rate")
	}
}
