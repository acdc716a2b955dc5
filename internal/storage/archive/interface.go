// Package archive persists accepted strategy specs so generations can
// be replayed and audited.
package archive

import (
	"context"
	"fmt"

	"github.com/newthinker/specforge/internal/config"
)

// Backend is a flat blob store keyed by slash-separated paths.
type Backend interface {
	Write(ctx context.Context, path string, data []byte) error
	Read(ctx context.Context, path string) ([]byte, error)
	List(ctx context.Context, prefix string) ([]string, error)
	Delete(ctx context.Context, path string) error
	Exists(ctx context.Context, path string) (bool, error)
}

// NewBackend creates the configured archive backend.
func NewBackend(cfg config.ArchiveConfig) (Backend, error) {
	switch cfg.Type {
	case "localfs":
		return NewLocalFS(cfg.Path)
	case "s3":
		return NewS3(cfg.S3)
	default:
		return nil, fmt.Errorf("unknown archive type: %s", cfg.Type)
	}
}
