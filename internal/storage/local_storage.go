package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const defaultExt = ".wav"

type LocalStorage struct {
	basePath string
}

func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &LocalStorage{basePath: basePath}, nil
}

func (ls *LocalStorage) SaveFile(ctx context.Context, r io.Reader, info FileInfo) (string, error) {
	filename := newObjectName(info.Filename)
	fullPath := filepath.Join(ls.basePath, filename)

	dst, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, r); err != nil {
		os.Remove(fullPath)
		return "", fmt.Errorf("failed to save file: %w", err)
	}

	return filename, nil
}

func (ls *LocalStorage) OpenFile(ctx context.Context, name string) (io.ReadCloser, error) {
	fullPath, err := ls.resolve(name)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	return file, nil
}

func (ls *LocalStorage) DeleteFile(ctx context.Context, name string) error {
	fullPath, err := ls.resolve(name)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}

	return nil
}

func (ls *LocalStorage) resolve(name string) (string, error) {
	cleanPath := filepath.Clean(name)
	if strings.Contains(cleanPath, "..") || filepath.IsAbs(cleanPath) {
		return "", fmt.Errorf("invalid path")
	}
	return filepath.Join(ls.basePath, cleanPath), nil
}

// newObjectName returns a random name that keeps the upload's extension.
func newObjectName(original string) string {
	ext := strings.ToLower(filepath.Ext(original))
	if ext == "" {
		ext = defaultExt
	}
	return uuid.New().String() + ext
}
