// Package forecast projects monthly credit-card spend per account.
package forecast

import (
	"context"
	"fmt"
	"math"
	"sort"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/zwickfi/zwickfi/internal/logger"
	"github.com/zwickfi/zwickfi/internal/tabular"
)

// DefaultPeriods is the number of future months predicted per account.
const DefaultPeriods = 24

// Output column names.
const (
	ColumnDS            = "ds"
	ColumnTrend         = "trend"
	ColumnYearly        = "yearly"
	ColumnAdditiveTerms = "additive_terms"
	ColumnYhatLower     = "yhat_lower"
	ColumnYhatUpper     = "yhat_upper"
	ColumnYhat          = "yhat"
	ColumnAccountName   = "account_name"
)

// Observation is one historical row: monthly spend due on an account.
type Observation struct {
	AccountName string     `bigquery:"account_name"`
	DueMonth    civil.Date `bigquery:"due_month"`
	Amount      float64    `bigquery:"amount"`
}

// Point is a prediction tagged with its account.
type Point struct {
	Prediction
	AccountName string
}

// Options configures Generate.
type Options struct {
	// Periods defaults to DefaultPeriods.
	Periods int
	// NewModel returns a fresh model per account; defaults to NewAdditiveModel.
	NewModel func() Model
}

// DistinctAccounts returns the account names in order of first appearance.
func DistinctAccounts(obs []Observation) []string {
	seen := make(map[string]bool)
	var out []string
	for _, o := range obs {
		if seen[o.AccountName] {
			continue
		}
		seen[o.AccountName] = true
		out = append(out, o.AccountName)
	}
	return out
}

// Generate fits an independent model per account and predicts its history
// plus opts.Periods month-start periods after the last historical month.
// Output is grouped by account in the order given, chronological within an
// account. Accounts with fewer than two observations are skipped.
func Generate(ctx context.Context, obs []Observation, accounts []string, opts Options) ([]Point, error) {
	log := logger.FromContext(ctx)

	periods := opts.Periods
	if periods <= 0 {
		periods = DefaultPeriods
	}
	newModel := opts.NewModel
	if newModel == nil {
		newModel = func() Model { return NewAdditiveModel() }
	}

	byAccount := make(map[string][]Sample)
	for _, o := range obs {
		byAccount[o.AccountName] = append(byAccount[o.AccountName], Sample{DS: o.DueMonth, Y: o.Amount})
	}

	var out []Point
	for _, account := range accounts {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("Generate: %w", err)
		}

		samples := byAccount[account]
		if len(samples) < 2 {
			log.Warn().Str("account_name", account).Int("observations", len(samples)).
				Msg("Skipping forecast for account with insufficient history")
			continue
		}

		model := newModel()
		if err := model.Fit(samples); err != nil {
			return nil, fmt.Errorf("Generate: fitting %s: %w", account, err)
		}

		history := historyPeriods(samples)
		future := FuturePeriods(history[len(history)-1], periods)

		preds, err := model.Predict(append(history, future...))
		if err != nil {
			return nil, fmt.Errorf("Generate: predicting %s: %w", account, err)
		}

		for _, p := range preds {
			out = append(out, Point{Prediction: p, AccountName: account})
		}
		log.Debug().Str("account_name", account).Int("history", len(history)).Int("future", len(future)).
			Msg("Forecast generated")
	}
	return out, nil
}

// historyPeriods returns the distinct observation dates in ascending order.
func historyPeriods(samples []Sample) []civil.Date {
	seen := make(map[civil.Date]bool, len(samples))
	var out []civil.Date
	for _, s := range samples {
		if seen[s.DS] {
			continue
		}
		seen[s.DS] = true
		out = append(out, s.DS)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// ToTable converts points to a warehouse table, rounding values to cents.
func ToTable(points []Point) *tabular.Table {
	tbl := tabular.NewTable()
	for _, p := range points {
		tbl.Append(tabular.Record{
			ColumnDS:            p.DS.String(),
			ColumnTrend:         cents(p.Trend),
			ColumnYearly:        cents(p.Yearly),
			ColumnAdditiveTerms: cents(p.AdditiveTerms),
			ColumnYhatLower:     cents(p.YhatLower),
			ColumnYhatUpper:     cents(p.YhatUpper),
			ColumnYhat:          cents(p.Yhat),
			ColumnAccountName:   p.AccountName,
		})
	}
	return tbl
}

func cents(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
