package pipeline

import (
	"context"
	"time"

	bq "github.com/zwickfi/zwickfi/internal/bigquery"
	"github.com/zwickfi/zwickfi/internal/extract"
	"github.com/zwickfi/zwickfi/internal/tabular"
)

// Source is the finance API the extract steps read from.
type Source = extract.Source

// Warehouse is the bulk-load destination.
type Warehouse = bq.Warehouse

// HistoryReader supplies the forecast training data.
type HistoryReader = bq.HistoryReader

// Connector authenticates against the finance API and returns a ready Source.
// It is called once per run; sessions are never reused.
type Connector func(ctx context.Context) (Source, error)

// Archiver keeps a raw copy of a table before it is loaded.
// *archive.Archiver satisfies it.
type Archiver interface {
	Put(ctx context.Context, runID string, runDate time.Time, dest bq.Destination, tbl *tabular.Table) (string, error)
}

// DatasetEnsurer is implemented by warehouses that can create a missing
// dataset before a load.
type DatasetEnsurer interface {
	EnsureDataset(ctx context.Context, schema, location string) error
}
