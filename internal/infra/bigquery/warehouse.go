package bigquery

import (
	"context"
	"fmt"
	"os"

	"cloud.google.com/go/bigquery"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"

	bq "github.com/zwickfi/zwickfi/internal/bigquery"
	"github.com/zwickfi/zwickfi/internal/forecast"
)

// Re-export interfaces from shared package so callers need a single import.
type Warehouse = bq.Warehouse
type HistoryReader = bq.HistoryReader

// BigQueryWarehouse is the concrete implementation of Warehouse that loads
// tables into BigQuery. It holds a shared client for the whole run.
type BigQueryWarehouse struct {
	client  *bigquery.Client
	project string
}

// NewBigQueryWarehouse creates a warehouse bound to project using the given
// client options (Application Default Credentials when none are passed).
func NewBigQueryWarehouse(ctx context.Context, project string, opts ...option.ClientOption) (*BigQueryWarehouse, error) {
	if project == "" {
		return nil, fmt.Errorf("NewBigQueryWarehouse: project is required")
	}
	client, err := bigquery.NewClient(ctx, project, opts...)
	if err != nil {
		return nil, fmt.Errorf("NewBigQueryWarehouse: creating client: %w", err)
	}
	return &BigQueryWarehouse{
		client:  client,
		project: project,
	}, nil
}

// NewBigQueryWarehouseFromCredentials reads a service-account key file and
// creates a warehouse with it. An empty project falls back to the key's
// project id.
func NewBigQueryWarehouseFromCredentials(ctx context.Context, credentialsPath, project string) (*BigQueryWarehouse, error) {
	data, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("NewBigQueryWarehouseFromCredentials: reading key file: %w", err)
	}

	creds, err := google.CredentialsFromJSON(ctx, data, bigquery.Scope)
	if err != nil {
		return nil, fmt.Errorf("NewBigQueryWarehouseFromCredentials: parsing key file: %w", err)
	}

	if project == "" {
		project = creds.ProjectID
	}
	if project == "" {
		return nil, fmt.Errorf("NewBigQueryWarehouseFromCredentials: no project in key file and none configured")
	}

	return NewBigQueryWarehouse(ctx, project, option.WithCredentials(creds))
}

// Close closes the BigQuery client connection.
func (w *BigQueryWarehouse) Close() error {
	if w.client != nil {
		return w.client.Close()
	}
	return nil
}

// Project returns the project tables are loaded into.
func (w *BigQueryWarehouse) Project() string {
	return w.project
}

// Load delegates to LoadWithClient with the shared client.
func (w *BigQueryWarehouse) Load(ctx context.Context, req bq.LoadRequest) error {
	if req.Destination.Project == "" {
		req.Destination.Project = w.project
	}
	return LoadWithClient(ctx, w.client, req)
}

// Describe delegates to DescribeWithClient with the shared client.
func (w *BigQueryWarehouse) Describe(ctx context.Context, dest bq.Destination) (bq.TableInfo, error) {
	if dest.Project == "" {
		dest.Project = w.project
	}
	return DescribeWithClient(ctx, w.client, dest)
}

// EnsureDataset delegates to EnsureDatasetWithClient with the shared client.
func (w *BigQueryWarehouse) EnsureDataset(ctx context.Context, schema, location string) error {
	return EnsureDatasetWithClient(ctx, w.client, w.project, schema, location)
}

// ForecastHistory delegates to ForecastHistoryWithClient with the shared client.
func (w *BigQueryWarehouse) ForecastHistory(ctx context.Context, view string) ([]forecast.Observation, error) {
	return ForecastHistoryWithClient(ctx, w.client, w.project, view)
}

// Migrate creates the forecast view's dataset in location and applies the
// pending migrations to it.
func (w *BigQueryWarehouse) Migrate(ctx context.Context, vars MigrationVars, migrations []Migration, location, appliedBy string) (int, error) {
	if vars.Project == "" {
		vars.Project = w.project
	}
	if err := EnsureDatasetWithClient(ctx, w.client, vars.Project, vars.AnalyticsSchema(), location); err != nil {
		return 0, fmt.Errorf("BigQueryWarehouse.Migrate: %w", err)
	}
	return ApplyMigrationsWithClient(ctx, w.client, vars, migrations, appliedBy)
}
