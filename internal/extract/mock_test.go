package extract

import (
	"context"
	"fmt"
	"time"
)

// MockSource is a hand-written Source whose behavior is set per test.
type MockSource struct {
	GetTransactionsSummaryFunc   func(ctx context.Context) (map[string]any, error)
	GetTransactionsFunc          func(ctx context.Context, limit, offset int) (map[string]any, error)
	GetTransactionCategoriesFunc func(ctx context.Context) (map[string]any, error)
	GetTransactionTagsFunc       func(ctx context.Context) (map[string]any, error)
	GetAccountsFunc              func(ctx context.Context) (map[string]any, error)
	GetAccountHistoryFunc        func(ctx context.Context, accountID string) ([]any, error)
	GetBudgetsFunc               func(ctx context.Context, start, end time.Time) (map[string]any, error)
}

func (m *MockSource) GetTransactionsSummary(ctx context.Context) (map[string]any, error) {
	if m.GetTransactionsSummaryFunc != nil {
		return m.GetTransactionsSummaryFunc(ctx)
	}
	return nil, fmt.Errorf("GetTransactionsSummary not mocked")
}

func (m *MockSource) GetTransactions(ctx context.Context, limit, offset int) (map[string]any, error) {
	if m.GetTransactionsFunc != nil {
		return m.GetTransactionsFunc(ctx, limit, offset)
	}
	return nil, fmt.Errorf("GetTransactions not mocked")
}

func (m *MockSource) GetTransactionCategories(ctx context.Context) (map[string]any, error) {
	if m.GetTransactionCategoriesFunc != nil {
		return m.GetTransactionCategoriesFunc(ctx)
	}
	return nil, fmt.Errorf("GetTransactionCategories not mocked")
}

func (m *MockSource) GetTransactionTags(ctx context.Context) (map[string]any, error) {
	if m.GetTransactionTagsFunc != nil {
		return m.GetTransactionTagsFunc(ctx)
	}
	return nil, fmt.Errorf("GetTransactionTags not mocked")
}

func (m *MockSource) GetAccounts(ctx context.Context) (map[string]any, error) {
	if m.GetAccountsFunc != nil {
		return m.GetAccountsFunc(ctx)
	}
	return nil, fmt.Errorf("GetAccounts not mocked")
}

func (m *MockSource) GetAccountHistory(ctx context.Context, accountID string) ([]any, error) {
	if m.GetAccountHistoryFunc != nil {
		return m.GetAccountHistoryFunc(ctx, accountID)
	}
	return nil, fmt.Errorf("GetAccountHistory not mocked")
}

func (m *MockSource) GetBudgets(ctx context.Context, start, end time.Time) (map[string]any, error) {
	if m.GetBudgetsFunc != nil {
		return m.GetBudgetsFunc(ctx, start, end)
	}
	return nil, fmt.Errorf("GetBudgets not mocked")
}

func transactionPage(offset, n int) map[string]any {
	results := make([]any, n)
	for i := range results {
		results[i] = map[string]any{
			"id":       fmt.Sprintf("tx-%d", offset+i),
			"amount":   -1.0,
			"category": map[string]any{"id": "c1", "name": "Groceries"},
		}
	}
	return map[string]any{"allTransactions": map[string]any{"results": results}}
}
