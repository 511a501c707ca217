package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

const (
	wavFormatPCM        = 1
	wavFormatFloat      = 3
	wavFormatExtensible = 0xFFFE
)

var errNotWAV = errors.New("not a RIFF/WAVE stream")

// PCM is decoded mono audio in the range [-1, 1].
type PCM struct {
	Samples    []float64
	SampleRate int
}

type wavFormat struct {
	AudioFormat   uint16
	Channels      uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
}

// IsWAV reports whether data starts with a RIFF/WAVE header.
func IsWAV(data []byte) bool {
	return len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE"
}

// DecodeWAV decodes integer PCM (8/16/24/32 bit) and 32/64 bit float WAV
// data, averaging all channels down to mono.
func DecodeWAV(data []byte) (*PCM, error) {
	if !IsWAV(data) {
		return nil, errNotWAV
	}

	var (
		format    *wavFormat
		dataChunk []byte
	)

	r := bytes.NewReader(data[12:])
	for {
		var header struct {
			ID   [4]byte
			Size uint32
		}
		if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("failed to read chunk header: %w", err)
		}

		size := int64(header.Size)
		switch string(header.ID[:]) {
		case "fmt ":
			if size < 16 {
				return nil, fmt.Errorf("fmt chunk too small: %d bytes", size)
			}
			var f wavFormat
			if err := binary.Read(r, binary.LittleEndian, &f); err != nil {
				return nil, fmt.Errorf("failed to read fmt chunk: %w", err)
			}
			if f.AudioFormat == wavFormatExtensible && size >= 40 {
				// cbSize, validBits, channelMask, then the sub-format GUID whose
				// first two bytes carry the real format code.
				ext := make([]byte, 24)
				if _, err := io.ReadFull(r, ext); err != nil {
					return nil, fmt.Errorf("failed to read extensible fmt: %w", err)
				}
				f.AudioFormat = binary.LittleEndian.Uint16(ext[8:10])
				size -= 24
			}
			format = &f
			if _, err := r.Seek(size-16, io.SeekCurrent); err != nil {
				return nil, err
			}
		case "data":
			remaining := int64(r.Len())
			if size > remaining {
				size = remaining
			}
			dataChunk = make([]byte, size)
			if _, err := io.ReadFull(r, dataChunk); err != nil {
				return nil, fmt.Errorf("failed to read data chunk: %w", err)
			}
		default:
			if _, err := r.Seek(size, io.SeekCurrent); err != nil {
				return nil, err
			}
		}

		// chunks are word aligned
		if size%2 == 1 && r.Len() > 0 {
			r.Seek(1, io.SeekCurrent)
		}
		if format != nil && dataChunk != nil {
			break
		}
	}

	if format == nil {
		return nil, errors.New("missing fmt chunk")
	}
	if dataChunk == nil {
		return nil, errors.New("missing data chunk")
	}
	if format.Channels == 0 || format.SampleRate == 0 {
		return nil, fmt.Errorf("invalid format: %d channels at %d Hz", format.Channels, format.SampleRate)
	}

	decode, err := sampleDecoder(format.AudioFormat, format.BitsPerSample)
	if err != nil {
		return nil, err
	}

	channels := int(format.Channels)
	width := int(format.BitsPerSample) / 8
	frameSize := width * channels
	frames := len(dataChunk) / frameSize

	samples := make([]float64, frames)
	for i := 0; i < frames; i++ {
		frame := dataChunk[i*frameSize : (i+1)*frameSize]
		var sum float64
		for ch := 0; ch < channels; ch++ {
			sum += decode(frame[ch*width : (ch+1)*width])
		}
		samples[i] = sum / float64(channels)
	}

	return &PCM{Samples: samples, SampleRate: int(format.SampleRate)}, nil
}

func sampleDecoder(audioFormat, bits uint16) (func([]byte) float64, error) {
	switch {
	case audioFormat == wavFormatPCM && bits == 8:
		return func(b []byte) float64 { return (float64(b[0]) - 128) / 128 }, nil
	case audioFormat == wavFormatPCM && bits == 16:
		return func(b []byte) float64 {
			return float64(int16(binary.LittleEndian.Uint16(b))) / 32768
		}, nil
	case audioFormat == wavFormatPCM && bits == 24:
		return func(b []byte) float64 {
			v := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
			if v&0x800000 != 0 {
				v |= ^0xFFFFFF
			}
			return float64(v) / 8388608
		}, nil
	case audioFormat == wavFormatPCM && bits == 32:
		return func(b []byte) float64 {
			return float64(int32(binary.LittleEndian.Uint32(b))) / 2147483648
		}, nil
	case audioFormat == wavFormatFloat && bits == 32:
		return func(b []byte) float64 {
			return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
		}, nil
	case audioFormat == wavFormatFloat && bits == 64:
		return func(b []byte) float64 {
			return math.Float64frombits(binary.LittleEndian.Uint64(b))
		}, nil
	default:
		return nil, fmt.Errorf("unsupported WAV encoding: format %d, %d bits", audioFormat, bits)
	}
}

// WriteWAV encodes mono samples as 16-bit PCM WAV.
func WriteWAV(w io.Writer, samples []float32, sampleRate int) error {
	dataSize := uint32(len(samples) * 2)
	header := struct {
		RIFF     [4]byte
		Size     uint32
		WAVE     [4]byte
		FmtID    [4]byte
		FmtSize  uint32
		Format   wavFormat
		DataID   [4]byte
		DataSize uint32
	}{
		RIFF:    [4]byte{'R', 'I', 'F', 'F'},
		Size:    36 + dataSize,
		WAVE:    [4]byte{'W', 'A', 'V', 'E'},
		FmtID:   [4]byte{'f', 'm', 't', ' '},
		FmtSize: 16,
		Format: wavFormat{
			AudioFormat:   wavFormatPCM,
			Channels:      1,
			SampleRate:    uint32(sampleRate),
			ByteRate:      uint32(sampleRate * 2),
			BlockAlign:    2,
			BitsPerSample: 16,
		},
		DataID:   [4]byte{'d', 'a', 't', 'a'},
		DataSize: dataSize,
	}
	if err := binary.Write(w, binary.LittleEndian, header); err != nil {
		return fmt.Errorf("failed to write WAV header: %w", err)
	}

	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(toInt16(float64(s))))
	}
	_, err := w.Write(buf)
	return err
}

func toInt16(s float64) int16 {
	switch {
	case s >= 1:
		return math.MaxInt16
	case s <= -1:
		return math.MinInt16
	default:
		return int16(s * 32767)
	}
}
