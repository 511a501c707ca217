package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestLocalStorage(t *testing.T) {
	tmpDir := t.TempDir()
	storage, err := NewLocalStorage(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	ctx := context.Background()

	t.Run("SaveFile", func(t *testing.T) {
		content := []byte("RIFF fake audio content")

		info := FileInfo{
			Filename:    "Sample.WAV",
			ContentType: "audio/wav",
			Size:        int64(len(content)),
		}

		filename, err := storage.SaveFile(ctx, bytes.NewReader(content), info)
		if err != nil {
			t.Fatalf("Failed to save file: %v", err)
		}

		if filepath.Ext(filename) != ".wav" {
			t.Errorf("Expected .wav extension, got %s", filepath.Ext(filename))
		}

		saved, err := os.ReadFile(filepath.Join(tmpDir, filename))
		if err != nil {
			t.Fatalf("File was not saved to expected location: %v", err)
		}
		if !bytes.Equal(saved, content) {
			t.Errorf("Saved content mismatch")
		}
	})

	t.Run("SaveFileWithoutExtension", func(t *testing.T) {
		filename, err := storage.SaveFile(ctx, bytes.NewReader([]byte("x")), FileInfo{Filename: "blob"})
		if err != nil {
			t.Fatalf("Failed to save file: %v", err)
		}
		if filepath.Ext(filename) != defaultExt {
			t.Errorf("Expected default extension %s, got %s", defaultExt, filepath.Ext(filename))
		}
	})

	t.Run("OpenFile", func(t *testing.T) {
		content := []byte("test audio content")
		testFile := "test-file.mp3"

		if err := os.WriteFile(filepath.Join(tmpDir, testFile), content, 0644); err != nil {
			t.Fatalf("Failed to create test file: %v", err)
		}

		file, err := storage.OpenFile(ctx, testFile)
		if err != nil {
			t.Fatalf("Failed to open file: %v", err)
		}
		defer file.Close()

		got, err := io.ReadAll(file)
		if err != nil {
			t.Fatalf("Failed to read file: %v", err)
		}
		if !bytes.Equal(got, content) {
			t.Errorf("File content mismatch")
		}
	})

	t.Run("OpenMissingFile", func(t *testing.T) {
		_, err := storage.OpenFile(ctx, "missing.wav")
		if !errors.Is(err, os.ErrNotExist) {
			t.Errorf("Expected os.ErrNotExist, got %v", err)
		}
	})

	t.Run("DeleteFile", func(t *testing.T) {
		testFile := "delete-test.wav"
		fullPath := filepath.Join(tmpDir, testFile)

		if err := os.WriteFile(fullPath, []byte("test"), 0644); err != nil {
			t.Fatalf("Failed to create test file: %v", err)
		}

		if err := storage.DeleteFile(ctx, testFile); err != nil {
			t.Fatalf("Failed to delete file: %v", err)
		}

		if _, err := os.Stat(fullPath); !os.IsNotExist(err) {
			t.Errorf("File was not deleted")
		}
	})

	t.Run("PathTraversalPrevention", func(t *testing.T) {
		_, err := storage.OpenFile(ctx, "../../../etc/passwd")
		if err == nil {
			t.Errorf("Path traversal was not prevented")
		}

		err = storage.DeleteFile(ctx, "../../../etc/passwd")
		if err == nil {
			t.Errorf("Path traversal was not prevented in delete")
		}
	})
}
