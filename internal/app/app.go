// Package app wires configuration, credentials and cloud clients into a sync
// service shared by the command-line and HTTP entry points.
package app

import (
	"context"
	"fmt"
	"os"

	"cloud.google.com/go/storage"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"

	"github.com/zwickfi/zwickfi/internal/archive"
	"github.com/zwickfi/zwickfi/internal/config"
	"github.com/zwickfi/zwickfi/internal/gcsuploader"
	infra "github.com/zwickfi/zwickfi/internal/infra/bigquery"
	"github.com/zwickfi/zwickfi/internal/jobs/inmemory"
	"github.com/zwickfi/zwickfi/internal/logger"
	"github.com/zwickfi/zwickfi/internal/metrics"
	"github.com/zwickfi/zwickfi/internal/monarch"
	"github.com/zwickfi/zwickfi/internal/pipeline"
	"github.com/zwickfi/zwickfi/internal/secrets"
)

// App holds the long-lived pieces of a process.
type App struct {
	Service   *pipeline.Service
	Store     *inmemory.Store
	Metrics   *metrics.Metrics
	Warehouse *infra.BigQueryWarehouse

	closers []func() error
}

// Overrides adjust the pipeline for a single invocation.
type Overrides struct {
	SkipForecast bool
}

// ResolveCredentials resolves credentials from the environment, Secret
// Manager when cfg names a secrets project, and finally the terminal when
// interactive is set.
func ResolveCredentials(ctx context.Context, cfg *config.Config, interactive bool) (config.Credentials, error) {
	r := config.Resolver{}

	if cfg.Secrets.Project != "" {
		store, err := secrets.NewStore(ctx, cfg.Secrets.Project)
		if err != nil {
			return config.Credentials{}, fmt.Errorf("ResolveCredentials: %w", err)
		}
		defer store.Close()
		r.Secrets = store
	}
	if interactive {
		r.Prompt = config.NewTerminalPrompter()
	}

	creds, err := r.Resolve(ctx)
	if err != nil {
		return config.Credentials{}, fmt.Errorf("ResolveCredentials: %w", err)
	}
	log := logger.FromContext(ctx)
	log.Debug().Object("credentials", creds).Msg("Resolved credentials")
	return creds, nil
}

// Connector returns a pipeline.Connector that logs in with a fresh client on
// every call.
func Connector(cfg config.MonarchConfig, creds config.Credentials) pipeline.Connector {
	return func(ctx context.Context) (pipeline.Source, error) {
		opts := []monarch.Option{monarch.WithTimeout(cfg.Timeout)}
		if cfg.BaseURL != "" {
			opts = append(opts, monarch.WithBaseURL(cfg.BaseURL))
		}
		client := monarch.NewClient(opts...)

		err := client.Login(ctx, monarch.Credentials{
			Email:     creds.MonarchEmail,
			Password:  creds.MonarchPassword,
			MFASecret: creds.MonarchSecretKey,
		})
		if err != nil {
			return nil, err
		}
		log := logger.FromContext(ctx)
		log.Info().Msg("Logged in to Monarch Money")
		return client, nil
	}
}

// New creates the warehouse, optional archive and the sync service.
func New(ctx context.Context, cfg *config.Config, creds config.Credentials, ov Overrides) (*App, error) {
	a := &App{
		Store:   inmemory.NewStore(),
		Metrics: metrics.New(),
	}

	wh, err := infra.NewBigQueryWarehouseFromCredentials(ctx, creds.ServiceAccountFile, cfg.Warehouse.Project)
	if err != nil {
		return nil, fmt.Errorf("app.New: %w", err)
	}
	a.Warehouse = wh
	a.closers = append(a.closers, wh.Close)

	orch := &pipeline.Orchestrator{
		Warehouse:       wh,
		Project:         wh.Project(),
		Location:        cfg.Warehouse.Location,
		IsolateFailures: cfg.Warehouse.IsolateFailures,
		Metrics:         a.Metrics,
	}

	if cfg.Archive.Location != "" {
		arch, err := a.newArchiver(ctx, cfg.Archive.Location, creds.ServiceAccountFile)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("app.New: %w", err)
		}
		orch.Archiver = arch
	}

	var history pipeline.HistoryReader
	if cfg.Forecast.Enabled && !ov.SkipForecast {
		history = wh
	}

	a.Service = pipeline.NewService(pipeline.ServiceConfig{
		Connect:      Connector(cfg.Monarch, creds),
		History:      history,
		Orchestrator: orch,
		Options: pipeline.Options{
			MonarchSchema:   cfg.Warehouse.MonarchSchema,
			ForecastSchema:  cfg.Warehouse.ForecastSchema,
			ForecastPrefix:  cfg.Warehouse.ForecastPrefix,
			ForecastView:    cfg.Forecast.View,
			ForecastPeriods: cfg.Forecast.Periods,
			BudgetStart:     cfg.Budgets.StartDate,
			BudgetEnd:       cfg.Budgets.EndDate,
		},
		Store:   a.Store,
		Metrics: a.Metrics,
	})

	log := logger.FromContext(ctx)
	log.Info().
		Str("project", wh.Project()).
		Bool("forecast", history != nil).
		Bool("archive", orch.Archiver != nil).
		Bool("isolate_failures", orch.IsolateFailures).
		Msg("Pipeline configured")

	return a, nil
}

func (a *App) newArchiver(ctx context.Context, location, credentialsPath string) (*archive.Archiver, error) {
	data, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("reading key file: %w", err)
	}
	gcreds, err := google.CredentialsFromJSON(ctx, data, storage.ScopeReadWrite)
	if err != nil {
		return nil, fmt.Errorf("parsing key file: %w", err)
	}

	store, err := gcsuploader.NewGCSStorageService(ctx, option.WithCredentials(gcreds))
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, store.Close)

	return archive.New(store, location)
}

// Close releases every client in reverse creation order.
func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}
