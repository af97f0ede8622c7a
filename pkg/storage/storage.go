// Package storage archives uploaded source documents in S3-compatible
// object storage. Archiving is best effort: quiz generation works from the
// extracted text even when the original cannot be stored.
package storage

import (
	"context"
	"errors"
	"io"
)

var (
	ErrInvalidConfig  = errors.New("invalid storage configuration")
	ErrUploadFailed   = errors.New("failed to upload object")
	ErrDeleteFailed   = errors.New("failed to delete object")
	ErrObjectNotFound = errors.New("object not found")
)

// Object describes a stored document.
type Object struct {
	Key         string
	Size        int64
	ContentType string
	URL         string
}

// Storage persists raw uploaded documents.
type Storage interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (*Object, error)
	Delete(ctx context.Context, key string) error
}
