package main

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/jonathan/outreach-personalizer/internal/config"
	"github.com/jonathan/outreach-personalizer/internal/engine"
	"github.com/jonathan/outreach-personalizer/internal/generate"
	"github.com/jonathan/outreach-personalizer/internal/llm"
	"github.com/jonathan/outreach-personalizer/internal/scrape"
	"github.com/jonathan/outreach-personalizer/internal/server"
	"github.com/jonathan/outreach-personalizer/internal/store"
)

var (
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes REST endpoints for submitting lead batches, polling job progress and downloading the personalized results.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides PORT env var)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	ctx := context.Background()

	cfg, err := config.FromEnv()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if servePort != 0 {
		cfg.Port = servePort
	}

	// Jobs are held in Postgres when DATABASE_URL is set, otherwise in
	// memory (status and downloads then don't survive a restart).
	var st store.Store
	if cfg.DatabaseURL != "" {
		pg, err := store.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pg.Close()
		st = pg
	} else {
		log.Println("[SERVE] DATABASE_URL not set, using in-memory job store")
		st = store.NewMemory()
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

	eng := engine.New(st, fetcher, generate.New(llmClient, generate.DefaultTimeout), &engine.Options{
		Workers:       cfg.Workers,
		QueueDepth:    cfg.QueueDepth,
		RecordTimeout: cfg.RecordTimeout,
		Verbose:       cfg.Verbose,
	})

	srv, err := server.New(server.Config{
		Port:   cfg.Port,
		Store:  st,
		Engine: eng,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.Start()
}
