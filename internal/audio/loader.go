// Package audio turns uploaded audio bytes into the mono, fixed-rate signal
// the detection pipeline works on.
package audio

import (
	"bytes"
	"context"
	"fmt"
	"io"

	log "github.com/sirupsen/logrus"

	"github.com/kdimtricp/faik/internal/detection"
)

const DefaultSampleRate = 16000

type LoaderConfig struct {
	SampleRate int
	FFmpegPath string
	// DisableFFmpeg restricts decoding to WAV.
	DisableFFmpeg bool
}

type Loader struct {
	sampleRate int
	ffmpeg     *FFmpegDecoder
	logger     log.FieldLogger
}

func NewLoader(config LoaderConfig) *Loader {
	if config.SampleRate <= 0 {
		config.SampleRate = DefaultSampleRate
	}

	logger := log.WithField("component", "audio")
	l := &Loader{sampleRate: config.SampleRate, logger: logger}

	if !config.DisableFFmpeg {
		ffmpeg, err := NewFFmpegDecoder(config.FFmpegPath)
		if err != nil {
			logger.WithError(err).Warn("ffmpeg unavailable, only WAV uploads can be decoded")
		} else {
			l.ffmpeg = ffmpeg
		}
	}

	return l
}

func (l *Loader) SampleRate() int {
	return l.sampleRate
}

// Load decodes r and returns a mono signal at the loader's sample rate.
// Input that cannot be decoded yields detection.ErrUnsupportedFormat and
// audio without samples yields detection.ErrEmptySignal.
func (l *Loader) Load(ctx context.Context, r io.Reader) (*detection.Signal, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio: %w", err)
	}
	return l.LoadBytes(ctx, data)
}

func (l *Loader) LoadBytes(ctx context.Context, data []byte) (*detection.Signal, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: no audio data", detection.ErrUnsupportedFormat)
	}

	pcm, err := l.decode(ctx, data)
	if err != nil {
		return nil, err
	}
	if len(pcm.Samples) == 0 {
		return nil, detection.ErrEmptySignal
	}

	samples := pcm.Samples
	if pcm.SampleRate != l.sampleRate {
		l.logger.WithFields(log.Fields{
			"from": pcm.SampleRate,
			"to":   l.sampleRate,
		}).Debug("resampling")

		samples, err = Resample(samples, pcm.SampleRate, l.sampleRate)
		if err != nil {
			return nil, err
		}
		if len(samples) == 0 {
			return nil, detection.ErrEmptySignal
		}
	}

	signal := &detection.Signal{
		Samples:    make([]float32, len(samples)),
		SampleRate: l.sampleRate,
	}
	for i, s := range samples {
		signal.Samples[i] = float32(s)
	}

	return signal, nil
}

func (l *Loader) decode(ctx context.Context, data []byte) (*PCM, error) {
	if IsWAV(data) {
		pcm, err := DecodeWAV(data)
		if err == nil {
			return pcm, nil
		}
		if l.ffmpeg == nil {
			return nil, fmt.Errorf("%w: %v", detection.ErrUnsupportedFormat, err)
		}
		l.logger.WithError(err).Debug("native WAV decode failed, falling back to ffmpeg")
	}

	if l.ffmpeg == nil {
		return nil, fmt.Errorf("%w: only WAV input is supported without ffmpeg", detection.ErrUnsupportedFormat)
	}

	pcm, err := l.ffmpeg.Decode(ctx, bytes.NewReader(data), l.sampleRate)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", detection.ErrCancelled, ctx.Err())
		}
		return nil, fmt.Errorf("%w: %v", detection.ErrUnsupportedFormat, err)
	}
	return pcm, nil
}
