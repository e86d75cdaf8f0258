package extract

import (
	"context"
	"fmt"
	"time"

	"github.com/zwickfi/zwickfi/internal/tabular"
)

// SyncedAtColumn holds the time a budget snapshot was requested.
const SyncedAtColumn = "synced_at"

// CategoryLookup maps a category id to its descriptive record.
type CategoryLookup map[string]map[string]any

var categoryFields = []string{
	"id",
	"name",
	"icon",
	"order",
	"budgetVariability",
	"excludeFromBudget",
	"isSystemCategory",
	"updatedAt",
	"rolloverPeriod",
}

// BuildCategoryLookup indexes every category of every group in categoryGroups.
// Each entry carries the category's own fields plus a group object with the
// parent group's id, name, type, budgetVariability and
// groupLevelBudgetingEnabled. Categories without an id are skipped.
func BuildCategoryLookup(categoryGroups []any) CategoryLookup {
	lookup := make(CategoryLookup)
	for _, g := range categoryGroups {
		group, ok := g.(map[string]any)
		if !ok {
			continue
		}
		groupInfo := map[string]any{
			"id":                         group["id"],
			"name":                       group["name"],
			"type":                       group["type"],
			"budgetVariability":          group["budgetVariability"],
			"groupLevelBudgetingEnabled": group["groupLevelBudgetingEnabled"],
		}

		categories, _ := group["categories"].([]any)
		for _, c := range categories {
			cat, ok := c.(map[string]any)
			if !ok {
				continue
			}
			id, ok := cat["id"].(string)
			if !ok || id == "" {
				continue
			}

			entry := make(map[string]any, len(categoryFields)+1)
			for _, f := range categoryFields {
				entry[f] = cat[f]
			}
			entry["group"] = groupInfo
			lookup[id] = entry
		}
	}
	return lookup
}

// EnrichBudgets replaces the category of every budgetData.monthlyAmountsByCategory
// entry with its lookup record. Entries whose category id is not in the lookup,
// and documents missing any of the expected keys, are left untouched.
func EnrichBudgets(doc map[string]any, lookup CategoryLookup) map[string]any {
	budgetData, ok := doc["budgetData"].(map[string]any)
	if !ok {
		return doc
	}
	entries, ok := budgetData["monthlyAmountsByCategory"].([]any)
	if !ok {
		return doc
	}

	for _, e := range entries {
		entry, ok := e.(map[string]any)
		if !ok {
			continue
		}
		cat, ok := entry["category"].(map[string]any)
		if !ok {
			continue
		}
		id, _ := cat["id"].(string)
		if full, ok := lookup[id]; ok {
			entry["category"] = full
		}
	}
	return doc
}

// Budgets fetches the budget document for [start, end], enriches its
// per-category amounts and returns it as a single-row table stamped with the
// time captured before the request. Zero dates let the source pick its
// default range.
func Budgets(ctx context.Context, src Source, start, end time.Time, now func() time.Time) (*tabular.Table, error) {
	if now == nil {
		now = time.Now
	}
	syncedAt := now().UTC()

	doc, err := src.GetBudgets(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("Budgets: %w", err)
	}
	return BudgetsTable(doc, syncedAt), nil
}

// BudgetsTable enriches doc and wraps it as a single row with a synced_at
// column.
func BudgetsTable(doc map[string]any, syncedAt time.Time) *tabular.Table {
	groups, _ := doc["categoryGroups"].([]any)
	enriched := EnrichBudgets(doc, BuildCategoryLookup(groups))

	tbl := tabular.Snapshot(enriched)
	tbl.SetColumn(SyncedAtColumn, syncedAt.Format(time.RFC3339Nano))
	return tbl
}
