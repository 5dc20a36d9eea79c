package storage

import (
	"context"
	"errors"
)

// ErrObjectNotFound is returned by Get when no object is stored under a key.
var ErrObjectNotFound = errors.New("object not found")

// Object is an archived file and its content type.
type Object struct {
	Data        []byte
	ContentType string
}

// AudioStore keeps archived narration files.
type AudioStore interface {
	// Put stores data under key.
	Put(ctx context.Context, key string, data []byte, contentType string) error

	// Get reads the object stored under key. Missing keys yield ErrObjectNotFound.
	Get(ctx context.Context, key string) (*Object, error)

	// URL returns the address an archived object is reachable at.
	URL(key string) string

	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) (bool, error)

	// EnsureBucket creates the bucket when the backend allows it.
	EnsureBucket(ctx context.Context) error
}
