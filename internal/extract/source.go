// Package extract pulls datasets from the finance API and turns them into
// flat tables ready for loading.
package extract

import (
	"context"
	"time"
)

// Source is the subset of the finance API the extractors need.
// *monarch.Client satisfies it.
type Source interface {
	GetTransactionsSummary(ctx context.Context) (map[string]any, error)
	GetTransactions(ctx context.Context, limit, offset int) (map[string]any, error)
	GetTransactionCategories(ctx context.Context) (map[string]any, error)
	GetTransactionTags(ctx context.Context) (map[string]any, error)
	GetAccounts(ctx context.Context) (map[string]any, error)
	GetAccountHistory(ctx context.Context, accountID string) ([]any, error)
	GetBudgets(ctx context.Context, start, end time.Time) (map[string]any, error)
}
