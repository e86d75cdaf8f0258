package extract

import (
	"context"
	"fmt"

	"github.com/zwickfi/zwickfi/internal/logger"
	"github.com/zwickfi/zwickfi/internal/tabular"
)

// Transactions fetches every transaction, paging through the full count.
func Transactions(ctx context.Context, src Source) (*tabular.Table, error) {
	total, err := TotalTransactions(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("Transactions: %w", err)
	}

	tbl, err := Paginate(ctx, total, func(ctx context.Context, limit, offset int) ([]any, error) {
		data, err := src.GetTransactions(ctx, limit, offset)
		if err != nil {
			return nil, err
		}
		return transactionResults(data)
	})
	if err != nil {
		return nil, fmt.Errorf("Transactions: %w", err)
	}
	return tbl, nil
}

func transactionResults(data map[string]any) ([]any, error) {
	all, ok := data["allTransactions"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("allTransactions missing from response")
	}
	switch results := all["results"].(type) {
	case []any:
		return results, nil
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("unexpected results type %T", results)
	}
}

// Categories fetches the transaction categories.
func Categories(ctx context.Context, src Source) (*tabular.Table, error) {
	data, err := src.GetTransactionCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("Categories: %w", err)
	}
	tbl, err := tabular.FromJSON(data, "categories")
	if err != nil {
		return nil, fmt.Errorf("Categories: %w", err)
	}
	return tbl, nil
}

// Tags fetches the household transaction tags.
func Tags(ctx context.Context, src Source) (*tabular.Table, error) {
	data, err := src.GetTransactionTags(ctx)
	if err != nil {
		return nil, fmt.Errorf("Tags: %w", err)
	}
	tbl, err := tabular.FromJSON(data, "householdTransactionTags")
	if err != nil {
		return nil, fmt.Errorf("Tags: %w", err)
	}
	return tbl, nil
}

// Accounts fetches every account.
func Accounts(ctx context.Context, src Source) (*tabular.Table, error) {
	data, err := src.GetAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("Accounts: %w", err)
	}
	tbl, err := tabular.FromJSON(data, "accounts")
	if err != nil {
		return nil, fmt.Errorf("Accounts: %w", err)
	}
	return tbl, nil
}

// AccountHistory fetches the balance snapshots of every account in accounts,
// one call per account id, concatenated in account order.
func AccountHistory(ctx context.Context, src Source, accounts *tabular.Table) (*tabular.Table, error) {
	log := logger.FromContext(ctx)
	out := tabular.NewTable()
	if accounts.Empty() {
		return out, nil
	}

	for _, v := range accounts.Values("id") {
		id, ok := v.(string)
		if !ok || id == "" {
			log.Warn().Interface("id", v).Msg("Skipping account without id")
			continue
		}

		history, err := src.GetAccountHistory(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("AccountHistory: %w", err)
		}
		tbl, err := tabular.FromRecords(history)
		if err != nil {
			return nil, fmt.Errorf("AccountHistory: account %s: %w", id, err)
		}
		out.AppendTable(tbl)
	}
	return out, nil
}
