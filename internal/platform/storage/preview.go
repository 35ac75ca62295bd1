// Package storage holds uploaded preview images until they are replaced or released
package storage

import (
	"context"
	"errors"
)

// ErrPreviewNotFound is returned when a preview id is unknown or already released
var ErrPreviewNotFound = errors.New("preview not found")

// Preview is one stored preview image
type Preview struct {
	ID          string
	ContentType string
	Data        []byte
}

// PreviewStore persists preview images by opaque id
type PreviewStore interface {
	Put(ctx context.Context, contentType string, data []byte) (string, error)
	Get(ctx context.Context, id string) (*Preview, error)
	Release(ctx context.Context, id string) error
}
