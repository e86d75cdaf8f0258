package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/zwickfi/zwickfi/internal/extract"
	"github.com/zwickfi/zwickfi/internal/forecast"
	"github.com/zwickfi/zwickfi/internal/jobs"
	"github.com/zwickfi/zwickfi/internal/logger"
	"github.com/zwickfi/zwickfi/internal/tabular"
)

// PipelineStep represents a single step of a sync run.
type PipelineStep interface {
	Name() string
	Execute(ctx context.Context, state *PipelineState) error
}

// PipelineState holds the shared state across all pipeline steps.
type PipelineState struct {
	RunID   string
	RunDate time.Time

	// Datasets accumulates extracted tables in load order.
	Datasets []Dataset

	// Accounts is kept for the balance history step.
	Accounts *tabular.Table

	// Loads is filled by LoadStep.
	Loads []jobs.LoadResult
}

func (s *PipelineState) add(label, schema, table string, data *tabular.Table) {
	s.Datasets = append(s.Datasets, Dataset{Label: label, Schema: schema, Table: table, Data: data})
}

// ExtractStep runs one extractor and queues its table for loading.
type ExtractStep struct {
	Label   string
	Schema  string
	Table   string
	Source  Source
	Extract func(ctx context.Context, src extract.Source) (*tabular.Table, error)
}

func (s *ExtractStep) Name() string { return s.Label }

func (s *ExtractStep) Execute(ctx context.Context, state *PipelineState) error {
	tbl, err := s.Extract(ctx, s.Source)
	if err != nil {
		return err
	}
	log := logger.FromContext(ctx)
	log.Info().Str("dataset", s.Label).Int("rows", tbl.Len()).Msg("Extracted dataset")
	state.add(s.Label, s.Schema, s.Table, tbl)
	return nil
}

// AccountsStep extracts accounts and remembers them for AccountHistoryStep.
type AccountsStep struct {
	Schema string
	Source Source
}

func (s *AccountsStep) Name() string { return LabelAccounts }

func (s *AccountsStep) Execute(ctx context.Context, state *PipelineState) error {
	tbl, err := extract.Accounts(ctx, s.Source)
	if err != nil {
		return err
	}
	log := logger.FromContext(ctx)
	log.Info().Str("dataset", LabelAccounts).Int("rows", tbl.Len()).Msg("Extracted dataset")
	state.Accounts = tbl
	state.add(LabelAccounts, s.Schema, TableAccounts, tbl)
	return nil
}

// AccountHistoryStep fetches balance snapshots for every extracted account.
type AccountHistoryStep struct {
	Schema string
	Source Source
}

func (s *AccountHistoryStep) Name() string { return LabelAccountHistory }

func (s *AccountHistoryStep) Execute(ctx context.Context, state *PipelineState) error {
	if state.Accounts == nil {
		return fmt.Errorf("AccountHistoryStep: accounts have not been extracted")
	}
	tbl, err := extract.AccountHistory(ctx, s.Source, state.Accounts)
	if err != nil {
		return err
	}
	log := logger.FromContext(ctx)
	log.Info().Str("dataset", LabelAccountHistory).Int("rows", tbl.Len()).Msg("Extracted dataset")
	state.add(LabelAccountHistory, s.Schema, TableAccountHistory, tbl)
	return nil
}

// BudgetsStep extracts the category-enriched budget snapshot.
type BudgetsStep struct {
	Schema string
	Source Source
	// Start and End default to extract's budget window when zero.
	Start, End time.Time
	Now        func() time.Time
}

func (s *BudgetsStep) Name() string { return LabelBudgets }

func (s *BudgetsStep) Execute(ctx context.Context, state *PipelineState) error {
	now := s.Now
	if now == nil {
		now = time.Now
	}
	tbl, err := extract.Budgets(ctx, s.Source, s.Start, s.End, now)
	if err != nil {
		return err
	}
	state.add(LabelBudgets, s.Schema, TableBudgets, tbl)
	return nil
}

// ForecastStep trains on the spend history view and queues a date-suffixed
// forecast table.
type ForecastStep struct {
	History HistoryReader
	View    string
	Schema  string
	Prefix  string
	Periods int
}

func (s *ForecastStep) Name() string { return LabelForecast }

// TableName returns the forecast table for a run date.
func (s *ForecastStep) TableName(runDate time.Time) string {
	return s.Prefix + runDate.Format(runDateLayout)
}

func (s *ForecastStep) Execute(ctx context.Context, state *PipelineState) error {
	log := logger.FromContext(ctx)

	obs, err := s.History.ForecastHistory(ctx, s.View)
	if err != nil {
		return err
	}
	if len(obs) == 0 {
		log.Warn().Str("view", s.View).Msg("No forecast history, skipping forecast")
		return nil
	}

	points, err := forecast.Generate(ctx, obs, forecast.DistinctAccounts(obs), forecast.Options{Periods: s.Periods})
	if err != nil {
		return err
	}
	state.add(LabelForecast, s.Schema, s.TableName(state.RunDate), forecast.ToTable(points))
	return nil
}

// LoadStep hands every queued dataset to the orchestrator.
type LoadStep struct {
	Orchestrator *Orchestrator
}

func (s *LoadStep) Name() string { return "load" }

func (s *LoadStep) Execute(ctx context.Context, state *PipelineState) error {
	loads, err := s.Orchestrator.LoadAll(ctx, state.RunID, state.RunDate, state.Datasets)
	state.Loads = loads
	return err
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []PipelineStep
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Steps returns the step names in execution order.
func (p *Pipeline) Steps() []string {
	names := make([]string, len(p.steps))
	for i, s := range p.steps {
		names[i] = s.Name()
	}
	return names
}

// Execute runs all steps sequentially and stops at the first error.
func (p *Pipeline) Execute(ctx context.Context, state *PipelineState) error {
	log := logger.FromContext(ctx)
	for i, step := range p.steps {
		log.Debug().Int("step", i+1).Str("name", step.Name()).Msg("Running pipeline step")
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline step %d (%s) failed: %w", i+1, step.Name(), err)
		}
	}
	return nil
}

// Options configures NewSyncPipeline.
type Options struct {
	MonarchSchema   string
	ForecastSchema  string
	ForecastPrefix  string
	ForecastView    string
	ForecastPeriods int

	// SkipForecast drops the forecast step.
	SkipForecast bool

	BudgetStart, BudgetEnd time.Time

	Now func() time.Time
}

func (o Options) withDefaults() Options {
	if o.MonarchSchema == "" {
		o.MonarchSchema = DefaultMonarchSchema
	}
	if o.ForecastSchema == "" {
		o.ForecastSchema = DefaultForecastSchema
	}
	if o.ForecastPrefix == "" {
		o.ForecastPrefix = DefaultForecastPrefix
	}
	if o.ForecastPeriods == 0 {
		o.ForecastPeriods = forecast.DefaultPeriods
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// NewSyncPipeline builds the standard run: transactions, categories, tags,
// accounts, budgets, account history, forecast and load. The forecast step is
// left out when history is nil or opts.SkipForecast is set.
func NewSyncPipeline(src Source, history HistoryReader, orch *Orchestrator, opts Options) *Pipeline {
	opts = opts.withDefaults()
	schema := opts.MonarchSchema

	steps := []PipelineStep{
		&ExtractStep{Label: LabelTransactions, Schema: schema, Table: TableTransactions, Source: src, Extract: extract.Transactions},
		&ExtractStep{Label: LabelCategories, Schema: schema, Table: TableCategories, Source: src, Extract: extract.Categories},
		&ExtractStep{Label: LabelTags, Schema: schema, Table: TableTags, Source: src, Extract: extract.Tags},
		&AccountsStep{Schema: schema, Source: src},
		&BudgetsStep{Schema: schema, Source: src, Start: opts.BudgetStart, End: opts.BudgetEnd, Now: opts.Now},
		&AccountHistoryStep{Schema: schema, Source: src},
	}
	if history != nil && !opts.SkipForecast {
		steps = append(steps, &ForecastStep{
			History: history,
			View:    opts.ForecastView,
			Schema:  opts.ForecastSchema,
			Prefix:  opts.ForecastPrefix,
			Periods: opts.ForecastPeriods,
		})
	}
	steps = append(steps, &LoadStep{Orchestrator: orch})
	return NewPipeline(steps...)
}
