package gcs

import (
	"context"
	"io"
)

// StorageService writes objects to cloud storage.
type StorageService interface {
	// Upload streams r into bucketName/objectName with the given content type.
	Upload(ctx context.Context, bucketName, objectName, contentType string, r io.Reader) error
}
