package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/zwickfi/zwickfi/internal/logger"
	"github.com/zwickfi/zwickfi/internal/tabular"
)

// PageSize is the number of transactions requested per page.
const PageSize = 1000

// PageFunc fetches up to limit records starting at offset.
type PageFunc func(ctx context.Context, limit, offset int) ([]any, error)

// Paginate fetches total records and returns them as one flattened table.
// When total fits in a page a single fetch of exactly total records is made;
// otherwise pages of PageSize are fetched at offsets 0, PageSize, 2*PageSize...
// and appended in offset order. Any page error aborts the extraction.
func Paginate(ctx context.Context, total int, fetch PageFunc) (*tabular.Table, error) {
	log := logger.FromContext(ctx)
	out := tabular.NewTable()
	if total <= 0 {
		return out, nil
	}

	if total <= PageSize {
		log.Info().Msgf("Getting transactions 0 through %d", total-1)
		page, err := fetch(ctx, total, 0)
		if err != nil {
			return nil, fmt.Errorf("Paginate: page at offset 0: %w", err)
		}
		return tabular.FromRecords(page)
	}

	for offset := 0; offset < total; offset += PageSize {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("Paginate: %w", err)
		}

		log.Info().Msgf("Getting transactions %d through %d", offset, offset+PageSize-1)

		page, err := fetch(ctx, PageSize, offset)
		if err != nil {
			return nil, fmt.Errorf("Paginate: page at offset %d: %w", offset, err)
		}

		tbl, err := tabular.FromRecords(page)
		if err != nil {
			return nil, fmt.Errorf("Paginate: page at offset %d: %w", offset, err)
		}
		out.AppendTable(tbl)
	}
	return out, nil
}

// TotalTransactions asks the source for the transaction summary and returns
// the aggregate count.
func TotalTransactions(ctx context.Context, src Source) (int, error) {
	summary, err := src.GetTransactionsSummary(ctx)
	if err != nil {
		return 0, fmt.Errorf("TotalTransactions: %w", err)
	}
	return CountFromSummary(summary)
}

// CountFromSummary reads the transaction count from a summary document. The
// aggregates field is accepted both as a list and as a single object.
func CountFromSummary(summary map[string]any) (int, error) {
	agg, ok := summary["aggregates"]
	if !ok {
		return 0, fmt.Errorf("CountFromSummary: aggregates missing from summary")
	}

	var obj map[string]any
	switch v := agg.(type) {
	case []any:
		if len(v) == 0 {
			return 0, fmt.Errorf("CountFromSummary: aggregates is empty")
		}
		obj, _ = v[0].(map[string]any)
	case map[string]any:
		obj = v
	}
	if obj == nil {
		return 0, fmt.Errorf("CountFromSummary: unexpected aggregates shape %T", agg)
	}

	sum, ok := obj["summary"].(map[string]any)
	if !ok {
		return 0, fmt.Errorf("CountFromSummary: summary missing from aggregates")
	}

	count, err := toInt(sum["count"])
	if err != nil {
		return 0, fmt.Errorf("CountFromSummary: count: %w", err)
	}
	if count < 0 {
		return 0, fmt.Errorf("CountFromSummary: negative count %d", count)
	}
	return count, nil
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, err
		}
		return int(i), nil
	case float64:
		return int(n), nil
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case string:
		return strconv.Atoi(n)
	case nil:
		return 0, fmt.Errorf("missing value")
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
}
