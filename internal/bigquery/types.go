package bigquery

import (
	"context"
	"fmt"

	"github.com/zwickfi/zwickfi/internal/forecast"
	"github.com/zwickfi/zwickfi/internal/tabular"
)

// Disposition says what a load does to existing table contents.
type Disposition string

const (
	// WriteTruncate replaces the table contents and schema.
	WriteTruncate Disposition = "WRITE_TRUNCATE"
	// WriteAppend adds rows to the existing table.
	WriteAppend Disposition = "WRITE_APPEND"
	// WriteEmpty fails unless the table is empty.
	WriteEmpty Disposition = "WRITE_EMPTY"
)

// Destination is a fully qualified warehouse table.
type Destination struct {
	Project string
	Schema  string
	Table   string
}

// String renders the destination as project.schema.table.
func (d Destination) String() string {
	if d.Project == "" {
		return fmt.Sprintf("%s.%s", d.Schema, d.Table)
	}
	return fmt.Sprintf("%s.%s.%s", d.Project, d.Schema, d.Table)
}

// LoadRequest describes one bulk load.
type LoadRequest struct {
	Destination Destination
	Table       *tabular.Table
	Disposition Disposition
}

// TableInfo is the read-back shape of a loaded table.
type TableInfo struct {
	Rows    uint64
	Columns int
}

// Warehouse provides an interface for the bulk-load operations of a columnar
// warehouse.
type Warehouse interface {
	// Load replaces or appends the destination table with req.Table. An
	// empty table with WriteTruncate leaves the destination without rows.
	Load(ctx context.Context, req LoadRequest) error

	// Describe returns the row and column counts of a table.
	Describe(ctx context.Context, dest Destination) (TableInfo, error)
}

// HistoryReader reads the monthly spend history the forecast is trained on.
type HistoryReader interface {
	// ForecastHistory returns every (account_name, due_month, amount) row of view.
	ForecastHistory(ctx context.Context, view string) ([]forecast.Observation, error)
}
