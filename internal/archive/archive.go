// Package archive keeps a raw newline-delimited JSON copy of every table a
// run loads.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	bq "github.com/zwickfi/zwickfi/internal/bigquery"
	"github.com/zwickfi/zwickfi/internal/gcs"
	"github.com/zwickfi/zwickfi/internal/gcsuploader"
	"github.com/zwickfi/zwickfi/internal/tabular"
)

const contentType = "application/x-ndjson"

// Archiver writes table snapshots under gs://bucket/prefix.
type Archiver struct {
	store  gcs.StorageService
	bucket string
	prefix string
}

// New creates an Archiver for a location such as "gs://bucket/prefix".
func New(store gcs.StorageService, location string) (*Archiver, error) {
	bucket, prefix, err := gcsuploader.ParseGCSURI(location)
	if err != nil {
		return nil, fmt.Errorf("archive.New: %w", err)
	}
	return &Archiver{store: store, bucket: bucket, prefix: prefix}, nil
}

// ObjectName returns the object path for one table of one run:
// <prefix>/<run-date>/<run-id>/<schema>.<table>.ndjson.
func (a *Archiver) ObjectName(runID string, runDate time.Time, dest bq.Destination) string {
	return path.Join(a.prefix, runDate.Format("2006-01-02"), runID, dest.Schema+"."+dest.Table+".ndjson")
}

// Put uploads tbl and returns its gs:// URI.
func (a *Archiver) Put(ctx context.Context, runID string, runDate time.Time, dest bq.Destination, tbl *tabular.Table) (string, error) {
	var buf bytes.Buffer
	if err := tbl.WriteNDJSON(&buf); err != nil {
		return "", fmt.Errorf("Archiver.Put: %s: %w", dest, err)
	}

	object := a.ObjectName(runID, runDate, dest)
	if err := a.store.Upload(ctx, a.bucket, object, contentType, &buf); err != nil {
		return "", fmt.Errorf("Archiver.Put: %s: %w", dest, err)
	}
	return gcsuploader.ObjectURI(a.bucket, object), nil
}
