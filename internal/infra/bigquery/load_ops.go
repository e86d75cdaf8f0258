package bigquery

import (
	"bytes"
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"

	bq "github.com/zwickfi/zwickfi/internal/bigquery"
)

// LoadWithClient bulk-loads req.Table into its destination as newline-delimited
// JSON with schema autodetection, creating the table when needed, and waits
// for the job to finish.
//
// Schema autodetection needs at least one row, so an empty table is not sent
// as a load job: with WriteTruncate the existing destination is truncated,
// otherwise the call is a no-op.
func LoadWithClient(ctx context.Context, client *bigquery.Client, req bq.LoadRequest) error {
	dest := req.Destination

	disposition, err := writeDisposition(req.Disposition)
	if err != nil {
		return fmt.Errorf("LoadWithClient: %s: %w", dest, err)
	}

	if req.Table == nil || req.Table.Empty() {
		if disposition != bigquery.WriteTruncate {
			return nil
		}
		if err := TruncateWithClient(ctx, client, dest); err != nil {
			return fmt.Errorf("LoadWithClient: %w", err)
		}
		return nil
	}

	var buf bytes.Buffer
	if err := req.Table.WriteNDJSON(&buf); err != nil {
		return fmt.Errorf("LoadWithClient: %s: encoding rows: %w", dest, err)
	}

	src := bigquery.NewReaderSource(&buf)
	src.SourceFormat = bigquery.JSON
	src.AutoDetect = true

	loader := client.DatasetInProject(dest.Project, dest.Schema).Table(dest.Table).LoaderFrom(src)
	loader.WriteDisposition = disposition
	loader.CreateDisposition = bigquery.CreateIfNeeded

	job, err := loader.Run(ctx)
	if err != nil {
		return fmt.Errorf("LoadWithClient: %s: starting load job: %w", dest, err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("LoadWithClient: %s: waiting for job: %w", dest, err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("LoadWithClient: %s: job error: %w", dest, err)
	}

	return nil
}

// TruncateWithClient removes every row of dest, keeping its schema. A missing
// table has nothing to remove.
func TruncateWithClient(ctx context.Context, client *bigquery.Client, dest bq.Destination) error {
	_, err := client.DatasetInProject(dest.Project, dest.Schema).Table(dest.Table).Metadata(ctx)
	if isNotFound(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("TruncateWithClient: %s: reading metadata: %w", dest, err)
	}

	q := client.Query("TRUNCATE TABLE `" + dest.Project + "." + dest.Schema + "." + dest.Table + "`")
	if err := runQuery(ctx, q); err != nil {
		return fmt.Errorf("TruncateWithClient: %s: %w", dest, err)
	}
	return nil
}

// DescribeWithClient reads back the row and column counts of a table.
func DescribeWithClient(ctx context.Context, client *bigquery.Client, dest bq.Destination) (bq.TableInfo, error) {
	md, err := client.DatasetInProject(dest.Project, dest.Schema).Table(dest.Table).Metadata(ctx)
	if err != nil {
		return bq.TableInfo{}, fmt.Errorf("DescribeWithClient: %s: %w", dest, err)
	}
	return bq.TableInfo{Rows: md.NumRows, Columns: len(md.Schema)}, nil
}

// writeDisposition maps a Disposition to the client constant. An empty
// disposition means replace.
func writeDisposition(d bq.Disposition) (bigquery.TableWriteDisposition, error) {
	switch d {
	case "", bq.WriteTruncate:
		return bigquery.WriteTruncate, nil
	case bq.WriteAppend:
		return bigquery.WriteAppend, nil
	case bq.WriteEmpty:
		return bigquery.WriteEmpty, nil
	default:
		return "", fmt.Errorf("unknown write disposition %q", d)
	}
}
