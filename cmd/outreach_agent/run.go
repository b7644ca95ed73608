package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/outreach-personalizer/internal/campaign"
	"github.com/jonathan/outreach-personalizer/internal/config"
	"github.com/jonathan/outreach-personalizer/internal/engine"
	"github.com/jonathan/outreach-personalizer/internal/generate"
	"github.com/jonathan/outreach-personalizer/internal/leads"
	"github.com/jonathan/outreach-personalizer/internal/llm"
	"github.com/jonathan/outreach-personalizer/internal/observability"
	"github.com/jonathan/outreach-personalizer/internal/scrape"
	"github.com/jonathan/outreach-personalizer/internal/store"
	"github.com/jonathan/outreach-personalizer/internal/types"
)

var runCommand = &cobra.Command{
	Use:   "run",
	Short: "Personalize a lead CSV end-to-end without starting a server",
	Long: `Reads a lead CSV, scrapes each lead's public profile, generates a personalized
email per lead and writes the combined results CSV to disk. Uses the same
pipeline as the serve command, with an in-memory job store.`,
	RunE: runBatchCmd,
}

var (
	runFile         string
	runCampaignName string
	runContextPath  string
	runOutput       string
	runVerbose      bool
)

func init() {
	runCommand.Flags().StringVarP(&runFile, "file", "f", "", "Path to the lead CSV (required)")
	runCommand.Flags().StringVarP(&runCampaignName, "campaign-name", "c", "Default Outreach", "Campaign name recorded with the job")
	runCommand.Flags().StringVar(&runContextPath, "context", "", "Path to a campaign context JSON file (optional)")
	runCommand.Flags().StringVarP(&runOutput, "output", "o", "personalized-emails.csv", "Path for the results CSV")
	runCommand.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "Print detailed progress information")

	_ = runCommand.MarkFlagRequired("file")

	rootCmd.AddCommand(runCommand)
}

func runBatchCmd(_ *cobra.Command, _ []string) error {
	ctx := context.Background()

	cfg, err := config.FromEnv()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if runVerbose {
		cfg.Verbose = true
	}

	f, err := os.Open(runFile)
	if err != nil {
		return fmt.Errorf("failed to open lead CSV: %w", err)
	}
	rows, err := leads.ParseCSV(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("failed to parse lead CSV: %w", err)
	}

	camp := campaign.Default(runCampaignName)
	if runContextPath != "" {
		raw, err := os.ReadFile(runContextPath)
		if err != nil {
			return fmt.Errorf("failed to read campaign context: %w", err)
		}
		camp, err = campaign.Parse(runCampaignName, raw)
		if err != nil {
			return fmt.Errorf("invalid campaign context: %w", err)
		}
	}

	printer := observability.NewPrinter(os.Stdout)
	if cfg.Verbose {
		printer.PrintCampaign(camp)
	}

	llmClient, err := llm.NewClient(ctx, llm.DefaultConfig(), cfg.GeminiAPIKey)
	if err != nil {
		return fmt.Errorf("failed to create LLM client: %w", err)
	}
	defer llmClient.Close()

	fetcher := scrape.NewFetcher(&scrape.Options{
		PageTimeout:   cfg.PageTimeout,
		MarkerTimeout: cfg.MarkerTimeout,
		RatePerSecond: cfg.ScrapeRatePerSecond,
		Verbose:       cfg.Verbose,
	})

	eng := engine.New(store.NewMemory(), fetcher, generate.New(llmClient, generate.DefaultTimeout), &engine.Options{
		Workers:       cfg.Workers,
		QueueDepth:    cfg.QueueDepth,
		RecordTimeout: cfg.RecordTimeout,
		Verbose:       cfg.Verbose,
	})
	defer eng.Close()

	jobID, err := eng.Create(ctx, rows, camp)
	if err != nil {
		return fmt.Errorf("failed to start batch: %w", err)
	}
	log.Printf("[RUN] processing %d leads (job %s), estimated %ds",
		len(rows), jobID, engine.EstimateCompletionSeconds(len(rows)))

	// Poll the same snapshot the status endpoint serves.
	for {
		time.Sleep(2 * time.Second)

		snap, err := eng.Get(ctx, jobID)
		if err != nil {
			return fmt.Errorf("failed to read job status: %w", err)
		}

		job := snap.Job
		if !job.Status.Terminal() {
			log.Printf("[RUN] %d/%d processed (%d%%), about %ds remaining",
				job.Processed, job.Total, snap.ProgressPercent, snap.EstimatedRemainingSeconds)
			continue
		}

		if job.Status == types.JobFailed {
			return fmt.Errorf("batch failed: %s", job.FailureReason)
		}

		if cfg.Verbose {
			printer.PrintBatchSummary(job)
			printer.PrintRecordErrors(job)
			printer.PrintArtifactPreview(job)
		}

		if err := os.WriteFile(runOutput, job.Artifact, 0o644); err != nil {
			return fmt.Errorf("failed to write results CSV: %w", err)
		}
		log.Printf("[RUN] done: %d personalized, %d errors, results in %s",
			job.Summary.SuccessCount, job.Summary.ErrorCount, runOutput)
		return nil
	}
}
