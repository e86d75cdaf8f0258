package pipeline

// Default warehouse layout.
const (
	DefaultMonarchSchema  = "monarch_money"
	DefaultForecastSchema = "forecasts"
	DefaultForecastPrefix = "credit_card_forecast_"
)

// Destination table names inside the Monarch schema.
const (
	TableTransactions   = "transactions"
	TableCategories     = "transaction_categories"
	TableTags           = "transaction_tags"
	TableAccounts       = "accounts"
	TableBudgets        = "budgets"
	TableAccountHistory = "account_balance_history"
)

// Dataset labels used for logs and metrics.
const (
	LabelTransactions   = "transactions"
	LabelCategories     = "categories"
	LabelTags           = "tags"
	LabelAccounts       = "accounts"
	LabelBudgets        = "budgets"
	LabelAccountHistory = "account_history"
	LabelForecast       = "forecast"
)

const runDateLayout = "2006-01-02"
