package bigquery

import "testing"

func TestDestinationString(t *testing.T) {
	tests := []struct {
		dest Destination
		want string
	}{
		{Destination{Project: "zwickfi", Schema: "monarch_money", Table: "transactions"}, "zwickfi.monarch_money.transactions"},
		{Destination{Schema: "forecasts", Table: "credit_card_forecast_2024-05-01"}, "forecasts.credit_card_forecast_2024-05-01"},
	}

	for _, tt := range tests {
		if got := tt.dest.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
