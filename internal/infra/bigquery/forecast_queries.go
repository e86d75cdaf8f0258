package bigquery

import (
	"context"
	"fmt"
	"regexp"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/zwickfi/zwickfi/internal/forecast"
)

// DefaultForecastView holds the monthly credit-card spend per account.
const DefaultForecastView = "analytics.credit_card_spending_for_forecast"

var viewPattern = regexp.MustCompile(`^[A-Za-z0-9_]+\.[A-Za-z0-9_]+$`)

// ForecastHistoryWithClient reads (account_name, due_month, amount) rows from
// a dataset.view in project, in the order the view returns them.
func ForecastHistoryWithClient(ctx context.Context, client *bigquery.Client, project, view string) ([]forecast.Observation, error) {
	if view == "" {
		view = DefaultForecastView
	}
	if !viewPattern.MatchString(view) {
		return nil, fmt.Errorf("ForecastHistoryWithClient: invalid view name %q, want dataset.view", view)
	}

	q := client.Query(`
		SELECT
			account_name,
			CAST(due_month AS DATE) AS due_month,
			CAST(amount AS FLOAT64) AS amount
		FROM ` + "`" + project + "." + view + "`")

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ForecastHistoryWithClient: query read: %w", err)
	}

	var rows []forecast.Observation
	for {
		var r forecast.Observation
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ForecastHistoryWithClient: iter next: %w", err)
		}
		rows = append(rows, r)
	}

	return rows, nil
}
