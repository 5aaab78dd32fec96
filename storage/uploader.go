package storage

import (
	"context"
	"io"
)

type UploadResult struct {
	Key      string
	Location string
	ETag     string
}

// FileUploader archives blobs (leaderboard snapshots, team logos) to object
// storage.
type FileUploader interface {
	Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error)

	Delete(ctx context.Context, key string) error

	GetPublicURL(key string) string
}

// NopUploader discards uploads; used when no object storage is configured.
type NopUploader struct{}

func (NopUploader) Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error) {
	return &UploadResult{Key: key}, nil
}

func (NopUploader) Delete(ctx context.Context, key string) error { return nil }

func (NopUploader) GetPublicURL(key string) string { return "" }
