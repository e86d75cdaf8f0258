package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	bq "github.com/zwickfi/zwickfi/internal/bigquery"
	"github.com/zwickfi/zwickfi/internal/forecast"
	"github.com/zwickfi/zwickfi/internal/tabular"
)

// MockSource is a mock implementation of Source for testing.
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
	return m.GetTransactionsSummaryFunc(ctx)
}

func (m *MockSource) GetTransactions(ctx context.Context, limit, offset int) (map[string]any, error) {
	return m.GetTransactionsFunc(ctx, limit, offset)
}

func (m *MockSource) GetTransactionCategories(ctx context.Context) (map[string]any, error) {
	return m.GetTransactionCategoriesFunc(ctx)
}

func (m *MockSource) GetTransactionTags(ctx context.Context) (map[string]any, error) {
	return m.GetTransactionTagsFunc(ctx)
}

func (m *MockSource) GetAccounts(ctx context.Context) (map[string]any, error) {
	return m.GetAccountsFunc(ctx)
}

func (m *MockSource) GetAccountHistory(ctx context.Context, accountID string) ([]any, error) {
	return m.GetAccountHistoryFunc(ctx, accountID)
}

func (m *MockSource) GetBudgets(ctx context.Context, start, end time.Time) (map[string]any, error) {
	return m.GetBudgetsFunc(ctx, start, end)
}

// fakeMonarch returns a MockSource holding total transactions and one
// credit card account. pageCalls records every page offset requested.
func fakeMonarch(total int, pageCalls *[]int) *MockSource {
	return &MockSource{
		GetTransactionsSummaryFunc: func(ctx context.Context) (map[string]any, error) {
			return map[string]any{"aggregates": []any{
				map[string]any{"summary": map[string]any{"count": json.Number(fmt.Sprint(total))}},
			}}, nil
		},
		GetTransactionsFunc: func(ctx context.Context, limit, offset int) (map[string]any, error) {
			if pageCalls != nil {
				*pageCalls = append(*pageCalls, offset)
			}
			n := limit
			if offset+n > total {
				n = total - offset
			}
			results := make([]any, n)
			for i := range results {
				results[i] = map[string]any{
					"id":       fmt.Sprintf("tx-%d", offset+i),
					"amount":   -12.5,
					"merchant": map[string]any{"id": "m1", "name": "Corner Shop"},
					"category": map[string]any{"id": "c1", "name": "Groceries"},
				}
			}
			return map[string]any{"allTransactions": map[string]any{"results": results}}, nil
		},
		GetTransactionCategoriesFunc: func(ctx context.Context) (map[string]any, error) {
			return map[string]any{"categories": []any{
				map[string]any{"id": "c1", "name": "Groceries", "group": map[string]any{"id": "g1", "type": "expense"}},
			}}, nil
		},
		GetTransactionTagsFunc: func(ctx context.Context) (map[string]any, error) {
			return map[string]any{"householdTransactionTags": []any{
				map[string]any{"id": "t1", "name": "Vacation"},
			}}, nil
		},
		GetAccountsFunc: func(ctx context.Context) (map[string]any, error) {
			return map[string]any{"accounts": []any{
				map[string]any{"id": "a1", "displayName": "Visa", "type": map[string]any{"name": "credit"}},
			}}, nil
		},
		GetAccountHistoryFunc: func(ctx context.Context, accountID string) ([]any, error) {
			return []any{
				map[string]any{"date": "2025-01-01", "signedBalance": -100.0, "accountId": accountID, "accountName": "Visa"},
				map[string]any{"date": "2025-01-02", "signedBalance": -80.0, "accountId": accountID, "accountName": "Visa"},
			}, nil
		},
		GetBudgetsFunc: func(ctx context.Context, start, end time.Time) (map[string]any, error) {
			return map[string]any{
				"budgetData": map[string]any{"monthlyAmountsByCategory": []any{
					map[string]any{"category": map[string]any{"id": "c1"}},
				}},
				"categoryGroups": []any{
					map[string]any{"id": "g1", "name": "Food", "categories": []any{
						map[string]any{"id": "c1", "name": "Groceries"},
					}},
				},
			}, nil
		},
	}
}

type loadCall struct {
	Destination bq.Destination
	Disposition bq.Disposition
	Rows        int
	Columns     []string
}

// MockWarehouse is a mock implementation of Warehouse for testing.
type MockWarehouse struct {
	LoadFunc     func(ctx context.Context, req bq.LoadRequest) error
	DescribeFunc func(ctx context.Context, dest bq.Destination) (bq.TableInfo, error)

	loads []loadCall
}

func (m *MockWarehouse) Load(ctx context.Context, req bq.LoadRequest) error {
	m.loads = append(m.loads, loadCall{
		Destination: req.Destination,
		Disposition: req.Disposition,
		Rows:        req.Table.Len(),
		Columns:     req.Table.Columns(),
	})
	if m.LoadFunc != nil {
		return m.LoadFunc(ctx, req)
	}
	return nil
}

func (m *MockWarehouse) Describe(ctx context.Context, dest bq.Destination) (bq.TableInfo, error) {
	if m.DescribeFunc != nil {
		return m.DescribeFunc(ctx, dest)
	}
	for _, l := range m.loads {
		if l.Destination == dest {
			return bq.TableInfo{Rows: uint64(l.Rows), Columns: len(l.Columns)}, nil
		}
	}
	return bq.TableInfo{}, fmt.Errorf("table %s not found", dest)
}

// ensuringWarehouse also records EnsureDataset calls.
type ensuringWarehouse struct {
	MockWarehouse
	ensured []string
}

func (w *ensuringWarehouse) EnsureDataset(ctx context.Context, schema, location string) error {
	w.ensured = append(w.ensured, schema+"@"+location)
	return nil
}

// MockHistory is a mock implementation of HistoryReader for testing.
type MockHistory struct {
	ForecastHistoryFunc func(ctx context.Context, view string) ([]forecast.Observation, error)
}

func (m *MockHistory) ForecastHistory(ctx context.Context, view string) ([]forecast.Observation, error) {
	return m.ForecastHistoryFunc(ctx, view)
}

// MockArchiver is a mock implementation of Archiver for testing.
type MockArchiver struct {
	PutFunc func(ctx context.Context, runID string, runDate time.Time, dest bq.Destination, tbl *tabular.Table) (string, error)
}

func (m *MockArchiver) Put(ctx context.Context, runID string, runDate time.Time, dest bq.Destination, tbl *tabular.Table) (string, error) {
	return m.PutFunc(ctx, runID, runDate, dest, tbl)
}

func table(n int) *tabular.Table {
	t := tabular.NewTable()
	for i := 0; i < n; i++ {
		t.Append(tabular.Record{"id": fmt.Sprint(i), "amount": float64(i)})
	}
	return t
}
