package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"

	bq "github.com/zwickfi/zwickfi/internal/bigquery"
	"github.com/zwickfi/zwickfi/internal/forecast"
	"github.com/zwickfi/zwickfi/internal/jobs"
	"github.com/zwickfi/zwickfi/internal/jobs/inmemory"
	"github.com/zwickfi/zwickfi/internal/metrics"
	"github.com/zwickfi/zwickfi/internal/monarch"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func twoMonthHistory() []forecast.Observation {
	return []forecast.Observation{
		{AccountName: "Visa", DueMonth: civil.Date{Year: 2025, Month: time.January, Day: 1}, Amount: 300},
		{AccountName: "Visa", DueMonth: civil.Date{Year: 2025, Month: time.February, Day: 1}, Amount: 340},
	}
}

func TestService_EndToEnd(t *testing.T) {
	var pages []int
	src := fakeMonarch(2500, &pages)
	wh := &MockWarehouse{}
	store := inmemory.NewStore()
	m := metrics.New()

	svc := NewService(ServiceConfig{
		Connect:      func(ctx context.Context) (Source, error) { return src, nil },
		Orchestrator: &Orchestrator{Warehouse: wh, Project: "zwickfi", Metrics: m},
		Options:      Options{Now: fixedClock(runDate)},
		Store:        store,
		Metrics:      m,
	})

	job, err := svc.Run(context.Background(), jobs.TriggerHTTP)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if diff := cmp.Diff([]int{0, 1000, 2000}, pages); diff != "" {
		t.Errorf("page offsets mismatch (-want +got):\n%s", diff)
	}

	var tx *loadCall
	tables := []string{}
	for i := range wh.loads {
		l := &wh.loads[i]
		tables = append(tables, l.Destination.Table)
		if l.Disposition != bq.WriteTruncate {
			t.Errorf("%s loaded with %s, want WRITE_TRUNCATE", l.Destination, l.Disposition)
		}
		if l.Destination.Table == TableTransactions {
			tx = l
		}
	}
	wantTables := []string{TableTransactions, TableCategories, TableTags, TableAccounts, TableBudgets, TableAccountHistory}
	if diff := cmp.Diff(wantTables, tables); diff != "" {
		t.Errorf("loaded tables mismatch (-want +got):\n%s", diff)
	}

	if tx == nil {
		t.Fatal("transactions table was not loaded")
	}
	if tx.Destination.String() != "zwickfi.monarch_money.transactions" {
		t.Errorf("transactions destination = %s", tx.Destination)
	}
	if tx.Rows != 2500 {
		t.Errorf("transactions rows = %d, want 2500", tx.Rows)
	}
	for _, c := range tx.Columns {
		if strings.Contains(c, ".") {
			t.Errorf("column %q still contains a dot", c)
		}
	}

	stored, err := store.GetJob(context.Background(), job.JobID)
	if err != nil {
		t.Fatalf("run not recorded: %v", err)
	}
	if stored.Status != jobs.JobStatusCompleted || len(stored.Loads) != 6 || stored.Trigger != jobs.TriggerHTTP {
		t.Errorf("unexpected stored run %+v", stored)
	}
	if got := testutil.ToFloat64(m.RunsTotal.WithLabelValues(metrics.StatusSuccess)); got != 1 {
		t.Errorf("successful runs = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.RowsExtracted.WithLabelValues(LabelTransactions)); got != 2500 {
		t.Errorf("rows gauge = %v, want 2500", got)
	}
	if svc.Running() {
		t.Error("Expected guard released after run")
	}
}

func TestService_ConnectFailure(t *testing.T) {
	store := inmemory.NewStore()
	svc := NewService(ServiceConfig{
		Connect: func(ctx context.Context) (Source, error) {
			return nil, monarch.ErrAuthentication
		},
		Orchestrator: &Orchestrator{Warehouse: &MockWarehouse{}},
		Store:        store,
	})

	job, err := svc.Run(context.Background(), jobs.TriggerCLI)
	if !errors.Is(err, monarch.ErrAuthentication) {
		t.Fatalf("Expected ErrAuthentication, got %v", err)
	}
	if job == nil || job.Status != jobs.JobStatusFailed || job.Error == "" {
		t.Errorf("unexpected job %+v", job)
	}
	stored, _ := store.GetJob(context.Background(), job.JobID)
	if stored.Status != jobs.JobStatusFailed {
		t.Errorf("stored status = %s", stored.Status)
	}
}

func TestService_StepFailureAbortsBeforeLoad(t *testing.T) {
	src := fakeMonarch(10, nil)
	src.GetTransactionTagsFunc = func(ctx context.Context) (map[string]any, error) {
		return nil, errors.New("graphql: boom")
	}
	wh := &MockWarehouse{}
	svc := NewService(ServiceConfig{
		Connect:      func(ctx context.Context) (Source, error) { return src, nil },
		Orchestrator: &Orchestrator{Warehouse: wh},
	})

	_, err := svc.Run(context.Background(), jobs.TriggerCLI)
	if err == nil || !strings.Contains(err.Error(), "pipeline step 3 (tags) failed") {
		t.Fatalf("Expected tags step failure, got %v", err)
	}
	if len(wh.loads) != 0 {
		t.Errorf("Expected nothing loaded, got %d loads", len(wh.loads))
	}
}

func TestService_RejectsConcurrentRun(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})

	svc := NewService(ServiceConfig{
		Connect: func(ctx context.Context) (Source, error) {
			close(entered)
			<-release
			return fakeMonarch(1, nil), nil
		},
		Orchestrator: &Orchestrator{Warehouse: &MockWarehouse{}},
	})

	done := make(chan error, 1)
	go func() {
		_, err := svc.Run(context.Background(), jobs.TriggerHTTP)
		done <- err
	}()
	<-entered

	if _, err := svc.Run(context.Background(), jobs.TriggerHTTP); !errors.Is(err, ErrRunInProgress) {
		t.Errorf("Expected ErrRunInProgress, got %v", err)
	}
	if err := svc.Execute(context.Background(), &jobs.SyncJob{JobID: "queued"}); !errors.Is(err, ErrRunInProgress) {
		t.Errorf("Expected ErrRunInProgress from Execute, got %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first run failed: %v", err)
	}
}

func TestService_ForecastTableNamedByRunDate(t *testing.T) {
	wh := &MockWarehouse{}
	history := &MockHistory{ForecastHistoryFunc: func(ctx context.Context, view string) ([]forecast.Observation, error) {
		return twoMonthHistory(), nil
	}}

	svc := NewService(ServiceConfig{
		Connect:      func(ctx context.Context) (Source, error) { return fakeMonarch(1, nil), nil },
		History:      history,
		Orchestrator: &Orchestrator{Warehouse: wh},
		Options:      Options{Now: fixedClock(runDate), ForecastPeriods: 2},
	})

	job, err := svc.Run(context.Background(), jobs.TriggerCLI)
	if err != nil {
		t.Fatal(err)
	}
	last := wh.loads[len(wh.loads)-1]
	if last.Destination.Schema != "forecasts" || last.Destination.Table != "credit_card_forecast_2025-03-14" {
		t.Errorf("forecast destination = %s", last.Destination)
	}
	if last.Rows != 4 {
		t.Errorf("forecast rows = %d, want 4", last.Rows)
	}
	if !job.RunDate.Equal(runDate) {
		t.Errorf("RunDate = %v", job.RunDate)
	}
}
