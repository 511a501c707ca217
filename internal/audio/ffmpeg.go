package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
)

// FFmpegDecoder decodes any container ffmpeg understands into mono 16-bit
// PCM at a fixed rate, streaming through stdin and stdout.
type FFmpegDecoder struct {
	ffmpegPath string
}

func NewFFmpegDecoder(path string) (*FFmpegDecoder, error) {
	if path == "" {
		path = "ffmpeg"
	}
	ffmpegPath, err := exec.LookPath(path)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found: %w", err)
	}
	log.WithField("path", ffmpegPath).Debug("found ffmpeg")

	return &FFmpegDecoder{ffmpegPath: ffmpegPath}, nil
}

func (d *FFmpegDecoder) Decode(ctx context.Context, r io.Reader, sampleRate int) (*PCM, error) {
	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-i", "pipe:0",
		"-vn",
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-ac", "1",
		"-ar", strconv.Itoa(sampleRate),
		"pipe:1",
	}

	cmd := exec.CommandContext(ctx, d.ffmpegPath, args...)
	cmd.Stdin = r

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("ffmpeg decode failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	raw := stdout.Bytes()
	samples := make([]float64, len(raw)/2)
	for i := range samples {
		samples[i] = float64(int16(binary.LittleEndian.Uint16(raw[i*2:]))) / 32768
	}

	return &PCM{Samples: samples, SampleRate: sampleRate}, nil
}
