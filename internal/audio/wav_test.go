package audio

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"
)

// buildWAV assembles a WAV file with an optional extra chunk before "data".
func buildWAV(t *testing.T, format, channels uint16, rate uint32, bits uint16, data []byte, extra bool) []byte {
	t.Helper()

	var body bytes.Buffer
	body.WriteString("WAVE")

	body.WriteString("fmt ")
	binary.Write(&body, binary.LittleEndian, uint32(16))
	binary.Write(&body, binary.LittleEndian, wavFormat{
		AudioFormat:   format,
		Channels:      channels,
		SampleRate:    rate,
		ByteRate:      rate * uint32(channels) * uint32(bits/8),
		BlockAlign:    channels * bits / 8,
		BitsPerSample: bits,
	})

	if extra {
		body.WriteString("LIST")
		binary.Write(&body, binary.LittleEndian, uint32(3))
		body.Write([]byte{1, 2, 3, 0})
	}

	body.WriteString("data")
	binary.Write(&body, binary.LittleEndian, uint32(len(data)))
	body.Write(data)

	var out bytes.Buffer
	out.WriteString("RIFF")
	binary.Write(&out, binary.LittleEndian, uint32(body.Len()))
	out.Write(body.Bytes())
	return out.Bytes()
}

func int16Bytes(values ...int16) []byte {
	buf := make([]byte, len(values)*2)
	for i, v := range values {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(v))
	}
	return buf
}

func TestDecodeWAV(t *testing.T) {
	float32Data := make([]byte, 8)
	binary.LittleEndian.PutUint32(float32Data, math.Float32bits(0.5))
	binary.LittleEndian.PutUint32(float32Data[4:], math.Float32bits(-0.25))

	tests := []struct {
		name     string
		wav      []byte
		rate     int
		expected []float64
	}{
		{
			name:     "16-bit mono",
			wav:      buildWAV(t, wavFormatPCM, 1, 16000, 16, int16Bytes(0, 16384, -32768), false),
			rate:     16000,
			expected: []float64{0, 0.5, -1},
		},
		{
			name:     "16-bit stereo is averaged",
			wav:      buildWAV(t, wavFormatPCM, 2, 44100, 16, int16Bytes(16384, 0, -16384, -16384), false),
			rate:     44100,
			expected: []float64{0.25, -0.5},
		},
		{
			name:     "8-bit unsigned",
			wav:      buildWAV(t, wavFormatPCM, 1, 8000, 8, []byte{128, 192, 0}, false),
			rate:     8000,
			expected: []float64{0, 0.5, -1},
		},
		{
			name:     "24-bit negative",
			wav:      buildWAV(t, wavFormatPCM, 1, 48000, 24, []byte{0x00, 0x00, 0xC0, 0x00, 0x00, 0x40}, false),
			rate:     48000,
			expected: []float64{-0.5, 0.5},
		},
		{
			name:     "32-bit float",
			wav:      buildWAV(t, wavFormatFloat, 1, 22050, 32, float32Data, false),
			rate:     22050,
			expected: []float64{0.5, -0.25},
		},
		{
			name:     "odd sized chunk before data",
			wav:      buildWAV(t, wavFormatPCM, 1, 16000, 16, int16Bytes(8192), true),
			rate:     16000,
			expected: []float64{0.25},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pcm, err := DecodeWAV(tt.wav)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if pcm.SampleRate != tt.rate {
				t.Errorf("expected rate %d, got %d", tt.rate, pcm.SampleRate)
			}
			if len(pcm.Samples) != len(tt.expected) {
				t.Fatalf("expected %d samples, got %d", len(tt.expected), len(pcm.Samples))
			}
			for i, want := range tt.expected {
				if math.Abs(pcm.Samples[i]-want) > 1e-6 {
					t.Errorf("sample %d: expected %f, got %f", i, want, pcm.Samples[i])
				}
			}
		})
	}
}

func TestDecodeWAV_Errors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"not a wav", []byte("ID3\x03\x00 this is an mp3")},
		{"truncated header", []byte("RIFF")},
		{"unsupported encoding", buildWAV(t, 2, 1, 16000, 4, []byte{1, 2}, false)},
		{"zero channels", buildWAV(t, wavFormatPCM, 0, 16000, 16, int16Bytes(1), false)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeWAV(tt.data); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestWriteWAV_RoundTrip(t *testing.T) {
	samples := []float32{0, 0.5, -0.5, 1, -1}

	var buf bytes.Buffer
	if err := WriteWAV(&buf, samples, 16000); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !IsWAV(buf.Bytes()) {
		t.Fatal("output is not recognized as WAV")
	}

	pcm, err := DecodeWAV(buf.Bytes())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pcm.SampleRate != 16000 || len(pcm.Samples) != len(samples) {
		t.Fatalf("unexpected decode: rate %d, %d samples", pcm.SampleRate, len(pcm.Samples))
	}
	for i, s := range samples {
		if math.Abs(pcm.Samples[i]-float64(s)) > 1e-3 {
			t.Errorf("sample %d: expected %f, got %f", i, s, pcm.Samples[i])
		}
	}
}
