package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	bq "github.com/zwickfi/zwickfi/internal/bigquery"
	"github.com/zwickfi/zwickfi/internal/jobs"
	"github.com/zwickfi/zwickfi/internal/logger"
	"github.com/zwickfi/zwickfi/internal/metrics"
	"github.com/zwickfi/zwickfi/internal/tabular"
)

// Orchestrator loads datasets into the warehouse one at a time, replacing
// each destination table.
type Orchestrator struct {
	Warehouse Warehouse

	// Project qualifies destinations. Empty leaves it to the warehouse.
	Project string

	// Location, when set, makes the orchestrator create missing datasets in
	// that location before loading, if the warehouse supports it.
	Location string

	// IsolateFailures keeps loading the remaining datasets after a failure.
	// The default aborts on the first failed load.
	IsolateFailures bool

	// Archiver is optional.
	Archiver Archiver

	// Metrics is optional.
	Metrics *metrics.Metrics

	now func() time.Time
}

func (o *Orchestrator) clock() time.Time {
	if o.now != nil {
		return o.now()
	}
	return time.Now()
}

// LoadAll loads datasets in order with WriteTruncate and returns one result
// per dataset it attempted. An empty dataset still replaces its destination,
// leaving it without rows.
func (o *Orchestrator) LoadAll(ctx context.Context, runID string, runDate time.Time, datasets []Dataset) ([]jobs.LoadResult, error) {
	log := logger.FromContext(ctx)

	if err := o.ensureDatasets(ctx, datasets); err != nil {
		return nil, err
	}

	results := make([]jobs.LoadResult, 0, len(datasets))
	var errs []error

	for _, ds := range datasets {
		dest := bq.Destination{Project: o.Project, Schema: ds.Schema, Table: ds.Table}
		result := jobs.LoadResult{Destination: dest.String()}

		data := ds.Data
		if data == nil {
			data = tabular.NewTable()
		}
		o.Metrics.ObserveRows(ds.Label, data.Len())

		status := metrics.StatusSuccess
		if data.Empty() {
			log.Warn().Str("destination", dest.String()).Msg("No rows extracted, clearing table")
			status = metrics.StatusTruncated
		} else if o.Archiver != nil {
			uri, err := o.Archiver.Put(ctx, runID, runDate, dest, data)
			if err != nil {
				log.Warn().Err(err).Str("destination", dest.String()).Msg("Failed to archive table, loading anyway")
			} else {
				result.ArchiveURI = uri
			}
		}

		start := o.clock()
		err := o.Warehouse.Load(ctx, bq.LoadRequest{
			Destination: dest,
			Table:       data,
			Disposition: bq.WriteTruncate,
		})
		elapsed := o.clock().Sub(start)

		if err != nil {
			result.Status = metrics.StatusFailure
			result.Error = err.Error()
			results = append(results, result)
			o.Metrics.ObserveLoad(dest.String(), metrics.StatusFailure, elapsed)

			err = fmt.Errorf("%s: %w", dest, err)
			if !o.IsolateFailures {
				return results, fmt.Errorf("Orchestrator.LoadAll: %w", err)
			}
			log.Error().Err(err).Msg("Load failed, continuing with remaining tables")
			errs = append(errs, err)
			continue
		}
		o.Metrics.ObserveLoad(dest.String(), status, elapsed)

		result.Status = status
		info, err := o.Warehouse.Describe(ctx, dest)
		if err != nil {
			log.Warn().Err(err).Str("destination", dest.String()).Msg("Failed to read back loaded table")
		} else {
			result.Rows = info.Rows
			result.Columns = info.Columns
			log.Info().Msgf("Loaded %d rows and %d columns to %s", info.Rows, info.Columns, dest)
		}
		results = append(results, result)
	}

	if len(errs) > 0 {
		failed := len(errs)
		log.Warn().
			Int("failed", failed).
			Int("attempted", len(results)).
			Msg("Finished loading with failures")
		return results, fmt.Errorf("Orchestrator.LoadAll: %d of %d loads failed: %w", failed, len(results), errors.Join(errs...))
	}
	return results, nil
}

func (o *Orchestrator) ensureDatasets(ctx context.Context, datasets []Dataset) error {
	if o.Location == "" {
		return nil
	}
	ensurer, ok := o.Warehouse.(DatasetEnsurer)
	if !ok {
		return nil
	}

	seen := make(map[string]bool)
	for _, ds := range datasets {
		if seen[ds.Schema] {
			continue
		}
		seen[ds.Schema] = true
		if err := ensurer.EnsureDataset(ctx, ds.Schema, o.Location); err != nil {
			return fmt.Errorf("Orchestrator.LoadAll: ensuring dataset %s: %w", ds.Schema, err)
		}
	}
	return nil
}
