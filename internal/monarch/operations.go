package monarch

import (
	"context"
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// GetTransactionsSummary returns the aggregates document for all transactions.
func (c *Client) GetTransactionsSummary(ctx context.Context) (map[string]any, error) {
	data, err := c.query(ctx, "GetTransactionsPage", transactionsSummaryQuery, map[string]any{
		"filters": map[string]any{},
	})
	if err != nil {
		return nil, fmt.Errorf("GetTransactionsSummary: %w", err)
	}
	return data, nil
}

// GetTransactions returns one page of transactions ordered by date, newest first.
func (c *Client) GetTransactions(ctx context.Context, limit, offset int) (map[string]any, error) {
	data, err := c.query(ctx, "GetTransactionsList", transactionsQuery, map[string]any{
		"offset":  offset,
		"limit":   limit,
		"orderBy": "date",
		"filters": map[string]any{
			"search":     "",
			"categories": []string{},
			"accounts":   []string{},
			"tags":       []string{},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("GetTransactions: offset %d: %w", offset, err)
	}
	return data, nil
}

// GetTransactionCategories returns every configured transaction category.
func (c *Client) GetTransactionCategories(ctx context.Context) (map[string]any, error) {
	data, err := c.query(ctx, "GetCategories", categoriesQuery, nil)
	if err != nil {
		return nil, fmt.Errorf("GetTransactionCategories: %w", err)
	}
	return data, nil
}

// GetTransactionTags returns the household's transaction tags.
func (c *Client) GetTransactionTags(ctx context.Context) (map[string]any, error) {
	data, err := c.query(ctx, "GetHouseholdTransactionTags", tagsQuery, nil)
	if err != nil {
		return nil, fmt.Errorf("GetTransactionTags: %w", err)
	}
	return data, nil
}

// GetAccounts returns every linked and manual account.
func (c *Client) GetAccounts(ctx context.Context) (map[string]any, error) {
	data, err := c.query(ctx, "GetAccounts", accountsQuery, nil)
	if err != nil {
		return nil, fmt.Errorf("GetAccounts: %w", err)
	}
	return data, nil
}

// GetAccountHistory returns the daily balance snapshots of one account as
// records carrying date, signedBalance, accountId and accountName.
func (c *Client) GetAccountHistory(ctx context.Context, accountID string) ([]any, error) {
	data, err := c.query(ctx, "AccountDetails_getAccount", accountHistoryQuery, map[string]any{
		"id": accountID,
	})
	if err != nil {
		return nil, fmt.Errorf("GetAccountHistory: account %s: %w", accountID, err)
	}

	var accountName any
	if acct, ok := data["account"].(map[string]any); ok {
		accountName = acct["displayName"]
	}

	snapshots, _ := data["snapshots"].([]any)
	history := make([]any, 0, len(snapshots))
	for _, s := range snapshots {
		snap, ok := s.(map[string]any)
		if !ok {
			continue
		}
		history = append(history, map[string]any{
			"date":          snap["date"],
			"signedBalance": snap["signedBalance"],
			"accountId":     accountID,
			"accountName":   accountName,
		})
	}
	return history, nil
}

// GetBudgets returns the joint planning document for [start, end]. Zero dates
// default to the first day of last month and the last day of next month.
func (c *Client) GetBudgets(ctx context.Context, start, end time.Time) (map[string]any, error) {
	if start.IsZero() || end.IsZero() {
		defStart, defEnd := DefaultBudgetRange(c.now())
		if start.IsZero() {
			start = defStart
		}
		if end.IsZero() {
			end = defEnd
		}
	}
	if end.Before(start) {
		return nil, fmt.Errorf("GetBudgets: end date %s is before start date %s", end.Format(dateLayout), start.Format(dateLayout))
	}

	data, err := c.query(ctx, "Common_GetJointPlanningData", budgetsQuery, map[string]any{
		"startDate": start.Format(dateLayout),
		"endDate":   end.Format(dateLayout),
	})
	if err != nil {
		return nil, fmt.Errorf("GetBudgets: %w", err)
	}
	return data, nil
}

// DefaultBudgetRange returns the first day of the month before now and the
// last day of the month after now.
func DefaultBudgetRange(now time.Time) (time.Time, time.Time) {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	start := first.AddDate(0, -1, 0)
	end := first.AddDate(0, 2, -1)
	return start, end
}
