// Package storage keeps uploaded court images outside the database.
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned by Open when no object exists at the key.
var ErrNotFound = errors.New("storage: object not found")

// ErrInvalidKey is returned for keys that escape the storage root.
var ErrInvalidKey = errors.New("storage: invalid key")

// Storage stores opaque blobs under slash-separated keys.
type Storage interface {
	Put(ctx context.Context, key string, content io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Remove(ctx context.Context, key string) error
}
