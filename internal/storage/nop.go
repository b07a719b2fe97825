package storage

import (
	"context"
	"fmt"
	"io"
	"time"
)

// nopStorage drains uploads without keeping them. It backs STORAGE_DRIVER=none,
// where only the catalog, properties and workflow are of interest.
type nopStorage struct{}

// NewNop returns a Storage that measures and discards content.
func NewNop() Storage { return nopStorage{} }

func (nopStorage) Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return ObjectInfo{}, err
	}
	n, err := io.Copy(io.Discard, r)
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("drain upload: %w", err)
	}
	return ObjectInfo{
		Key:          key,
		Size:         n,
		ContentType:  opt.ContentType,
		LastModified: time.Now(),
	}, nil
}

func (nopStorage) Delete(context.Context, string) error { return nil }

func (nopStorage) PresignGet(context.Context, string, time.Duration) (string, error) {
	return "", ErrPresignUnsupported
}
