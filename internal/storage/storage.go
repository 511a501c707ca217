package storage

import (
	"context"
	"io"
)

type FileInfo struct {
	Filename    string
	ContentType string
	Size        int64
}

// Storage keeps uploaded audio. Names returned by SaveFile are opaque keys
// for OpenFile and DeleteFile. Missing files yield errors wrapping
// os.ErrNotExist.
type Storage interface {
	SaveFile(ctx context.Context, r io.Reader, info FileInfo) (string, error)
	OpenFile(ctx context.Context, name string) (io.ReadCloser, error)
	DeleteFile(ctx context.Context, name string) error
}
