package gcsuploader

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"cloud.google.com/go/storage"
)

// uploadTimeout bounds a single object upload.
const uploadTimeout = 2 * time.Minute

// UploadWithClient streams r into bucketName/objectName using the provided
// storage client.
func UploadWithClient(ctx context.Context, client *storage.Client, bucketName, objectName, contentType string, r io.Reader) error {
	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	w := client.Bucket(bucketName).Object(objectName).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return fmt.Errorf("UploadWithClient: copying to %s: %w", ObjectURI(bucketName, objectName), err)
	}

	// Close finalizes the upload.
	if err := w.Close(); err != nil {
		return fmt.Errorf("UploadWithClient: finalizing %s: %w", ObjectURI(bucketName, objectName), err)
	}

	return nil
}

// ObjectURI renders gs://bucket/object.
func ObjectURI(bucketName, objectName string) string {
	return "gs://" + bucketName + "/" + objectName
}

// ParseGCSURI splits a location such as "gs://bucket/some/prefix" or
// "bucket/some/prefix" into bucket and object prefix. The prefix has no
// leading or trailing slash and may be empty.
func ParseGCSURI(uri string) (bucket, prefix string, err error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(uri), "gs://")
	parts := strings.SplitN(trimmed, "/", 2)
	if parts[0] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no bucket): %q", uri)
	}
	if len(parts) == 2 {
		prefix = strings.Trim(parts[1], "/")
	}
	return parts[0], prefix, nil
}
