package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zwickfi/zwickfi/internal/app"
	"github.com/zwickfi/zwickfi/internal/config"
	"github.com/zwickfi/zwickfi/internal/jobs"
	"github.com/zwickfi/zwickfi/internal/logger"
)

func main() {
	var (
		dotenv       = flag.String("dotenv", ".env", "Env file to load before reading the environment (missing file is ignored)")
		skipForecast = flag.Bool("skip-forecast", false, "Do not build the credit card forecast table")
		budgetStart  = flag.String("budget-start", "", "First day of the budget window, YYYY-MM-DD (default: first day of last month)")
		budgetEnd    = flag.String("budget-end", "", "Last day of the budget window, YYYY-MM-DD (default: last day of next month)")
		isolate      = flag.Bool("isolate-failures", false, "Keep loading remaining tables after a failed load")
		noPrompt     = flag.Bool("no-prompt", false, "Fail instead of prompting for missing credentials")
		timeout      = flag.Duration("timeout", 30*time.Minute, "Overall deadline for the run")
	)
	flag.Parse()

	if err := config.LoadDotEnv(*dotenv); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewWithOptions(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})

	if *budgetStart != "" {
		if cfg.Budgets.StartDate, err = config.ParseDate(*budgetStart); err != nil {
			log.Fatal().Err(err).Msg("Invalid -budget-start")
		}
	}
	if *budgetEnd != "" {
		if cfg.Budgets.EndDate, err = config.ParseDate(*budgetEnd); err != nil {
			log.Fatal().Err(err).Msg("Invalid -budget-end")
		}
	}
	if *isolate {
		cfg.Warehouse.IsolateFailures = true
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx, log)

	creds, err := app.ResolveCredentials(ctx, cfg, !*noPrompt)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to resolve credentials")
	}

	a, err := app.New(ctx, cfg, creds, app.Overrides{SkipForecast: *skipForecast})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize")
	}
	defer a.Close()

	job, runErr := a.Service.Run(ctx, jobs.TriggerCLI)
	if job != nil {
		printSummary(job)
	}
	if runErr != nil {
		a.Close()
		log.Fatal().Err(runErr).Msg("Sync failed")
	}

	fmt.Println("Sync completed successfully.")
}

func printSummary(job *jobs.SyncJob) {
	fmt.Printf("\nRun %s (%s)\n", job.JobID, job.Status)
	for _, l := range job.Loads {
		switch {
		case l.Error != "":
			fmt.Printf("  %-60s %-8s %s\n", l.Destination, l.Status, l.Error)
		default:
			fmt.Printf("  %-60s %-8s %d rows, %d columns\n", l.Destination, l.Status, l.Rows, l.Columns)
		}
	}
	fmt.Println()
}
