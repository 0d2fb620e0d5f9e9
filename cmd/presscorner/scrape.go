package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/pevans/presscorner/browser"
	"github.com/pevans/presscorner/config"
	"github.com/pevans/presscorner/scraper"
	"github.com/pevans/presscorner/store"
	"github.com/spf13/cobra"
)

type scrapeFlags struct {
	configPath string
	policies   []string
	noFilter   bool
	max        int
	dbPath     string
	format     string
	verbose    bool
	noHeadless bool
}

func newScrapeCmd() *cobra.Command {
	flags := &scrapeFlags{}

	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Scrape the press corner and print the collected documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScrape(cmd, flags)
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&flags.configPath, "config", getEnv("PRESSCORNER_CONFIG", ""), "Path to the config file")
	fs.StringArrayVar(&flags.policies, "policy", nil, "Policy area to filter on (repeatable, replaces the configured list)")
	fs.BoolVar(&flags.noFilter, "no-filter", false, "Scrape the unfiltered listing")
	fs.IntVar(&flags.max, "max", 0, "Maximum number of documents to collect")
	fs.StringVar(&flags.dbPath, "db", getEnv("PRESSCORNER_DB", ""), "Document archive; enables the last-seen stop and saves the run")
	fs.StringVar(&flags.format, "format", "json", "Output format: json, table")
	fs.BoolVarP(&flags.verbose, "verbose", "v", false, "Enable debug logging")
	fs.BoolVar(&flags.noHeadless, "no-headless", false, "Show the browser window")

	return cmd
}

// apply overlays the command-line flags onto cfg.
func (f *scrapeFlags) apply(cfg *config.FileConfig) {
	if len(f.policies) > 0 {
		cfg.Source.Policies = f.policies
	}
	if f.noFilter {
		cfg.Source.Policies = nil
	}
	if f.max > 0 {
		cfg.Source.MaxDocuments = f.max
	}
	if f.dbPath != "" {
		cfg.Storage.DSN = f.dbPath
	}
	if f.noHeadless {
		cfg.Browser.Headless = false
	}
	if f.verbose {
		cfg.Log.Level = "debug"
	}
}

func runScrape(cmd *cobra.Command, flags *scrapeFlags) error {
	if err := validateFormat(flags.format, "json", "table"); err != nil {
		return err
	}

	cfg, err := loadConfig(flags.configPath)
	if err != nil {
		return err
	}
	flags.apply(cfg)

	logger := newLogger(cmd.ErrOrStderr(), cfg.LogLevel())
	ctx := cmd.Context()

	var docStore *store.DocumentStore
	if cfg.Storage.DSN != "" {
		docStore, err = store.NewDocumentStore(cfg.Storage.DSN)
		if err != nil {
			return fmt.Errorf("failed to open document store: %w", err)
		}
		defer docStore.Close()
	}

	session, err := browser.NewChromeSession(ctx, cfg.BrowserOptions(), logger)
	if err != nil {
		return fmt.Errorf("failed to start browser: %w", err)
	}
	defer session.Close()

	return scrapeAndReport(ctx, session, cfg, docStore, flags.format, cmd.OutOrStdout(), logger)
}

// scrapeAndReport runs one scrape on session, saves it to docStore when one
// is given and writes the documents to out. The partial result is written
// and saved even when the scrape fails; the failure is then returned.
func scrapeAndReport(
	ctx context.Context,
	session browser.Session,
	cfg *config.FileConfig,
	docStore *store.DocumentStore,
	format string,
	out io.Writer,
	logger *slog.Logger,
) error {
	scraperCfg, err := cfg.ScraperConfig()
	if err != nil {
		return err
	}

	if docStore != nil {
		last, err := docStore.LastDocument()
		if err != nil {
			return fmt.Errorf("failed to load last document: %w", err)
		}
		scraperCfg.LastDocument = last
	}

	result, scrapeErr := scraper.New(session, scraperCfg, logger).Scrape(ctx)

	if docStore != nil {
		run, err := docStore.SaveRun(scraper.SourceName, result.Stop.String(), result.Documents)
		if err != nil {
			return fmt.Errorf("failed to save run: %w", err)
		}
		logger.Info("saved run", "run_id", run.RunID, "documents", run.Documents)
	}

	switch format {
	case "table":
		printDocumentsTable(out, result.Documents)
		fmt.Fprintf(out, "Collected %d document(s), stop: %s\n", len(result.Documents), result.Stop)
	default:
		if err := printScrapeJSON(out, result); err != nil {
			return err
		}
	}

	if scrapeErr != nil {
		return fmt.Errorf("scrape stopped early: %w", scrapeErr)
	}
	return nil
}
