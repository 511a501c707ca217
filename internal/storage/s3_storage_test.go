package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

type apiError struct {
	code string
}

func (e *apiError) Error() string                 { return e.code }
func (e *apiError) ErrorCode() string             { return e.code }
func (e *apiError) ErrorMessage() string          { return e.code }
func (e *apiError) ErrorFault() smithy.ErrorFault { return smithy.FaultClient }

type mockS3 struct {
	mu           sync.Mutex
	objects      map[string][]byte
	contentTypes map[string]string
	putErr       error
}

func newMockS3() *mockS3 {
	return &mockS3{objects: make(map[string][]byte), contentTypes: make(map[string]string)}
}

func (m *mockS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[*in.Key]
	if !ok {
		return nil, &apiError{code: "NoSuchKey"}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (m *mockS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.putErr != nil {
		return nil, m.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[*in.Key] = data
	if in.ContentType != nil {
		m.contentTypes[*in.Key] = *in.ContentType
	}
	return &s3.PutObjectOutput{}, nil
}

func (m *mockS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, *in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3Storage(t *testing.T) {
	mock := newMockS3()
	storage := NewS3Storage(mock, "uploads", "audio")
	ctx := context.Background()
	content := []byte("RIFF fake audio")

	name, err := storage.SaveFile(ctx, bytes.NewReader(content), FileInfo{
		Filename:    "clip.flac",
		ContentType: "audio/flac",
		Size:        int64(len(content)),
	})
	if err != nil {
		t.Fatalf("Failed to save file: %v", err)
	}
	if !strings.HasSuffix(name, ".flac") || strings.Contains(name, "/") {
		t.Errorf("Unexpected object name %q", name)
	}

	key := "audio/" + name
	if _, ok := mock.objects[key]; !ok {
		t.Fatalf("Expected object under prefixed key %q", key)
	}
	if mock.contentTypes[key] != "audio/flac" {
		t.Errorf("Expected content type audio/flac, got %q", mock.contentTypes[key])
	}

	r, err := storage.OpenFile(ctx, name)
	if err != nil {
		t.Fatalf("Failed to open file: %v", err)
	}
	got, _ := io.ReadAll(r)
	r.Close()
	if !bytes.Equal(got, content) {
		t.Errorf("Content mismatch")
	}

	if err := storage.DeleteFile(ctx, name); err != nil {
		t.Fatalf("Failed to delete file: %v", err)
	}
	if _, err := storage.OpenFile(ctx, name); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected os.ErrNotExist after delete, got %v", err)
	}
}

func TestS3Storage_UploadError(t *testing.T) {
	mock := newMockS3()
	mock.putErr = errors.New("access denied")
	storage := NewS3Storage(mock, "uploads", "")

	_, err := storage.SaveFile(context.Background(), bytes.NewReader([]byte("x")), FileInfo{Filename: "a.wav"})
	if err == nil || !strings.Contains(err.Error(), "access denied") {
		t.Errorf("Expected upload error, got %v", err)
	}
}

func TestNewS3Client(t *testing.T) {
	if _, err := NewS3Client(S3Config{}); err == nil {
		t.Error("Expected error without bucket")
	}

	client, err := NewS3Client(S3Config{
		Bucket:          "uploads",
		Endpoint:        "http://localhost:9000",
		AccessKeyID:     "minio",
		SecretAccessKey: "minio123",
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if client.Options().Region != "us-east-1" || !client.Options().UsePathStyle {
		t.Errorf("Unexpected client options: region %q, path style %v", client.Options().Region, client.Options().UsePathStyle)
	}
}
