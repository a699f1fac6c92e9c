package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/aluiziolira/go-scrape-catalogue/config"
	"github.com/aluiziolira/go-scrape-catalogue/models"
	"github.com/aluiziolira/go-scrape-catalogue/pipeline"
	"github.com/aluiziolira/go-scrape-catalogue/scraper"
)

func newRootCommand() (*cobra.Command, error) {
	cfg, err := envDefaults()
	if err != nil {
		return nil, err
	}

	root := &cobra.Command{
		Use:          "scraper",
		Short:        "Harvest every category of the catalogue into per-category files.",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg.OutputFormat = strings.ToLower(cfg.OutputFormat)
			slog.SetDefault(newLogger(cfg.Verbose))
			return cfg.Validate()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return harvest(cmd.Context(), cfg)
		},
	}

	fs := root.PersistentFlags()
	fs.StringVar(&cfg.BaseURL, "base-url", cfg.BaseURL, "Site root to crawl")
	fs.StringVar(&cfg.CataloguePrefix, "catalogue-prefix", cfg.CataloguePrefix, "Root product links resolve against (default <base-url>/catalogue/)")
	fs.IntVar(&cfg.MaxPages, "pages", cfg.MaxPages, "Maximum listing pages walked per category")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Per-request timeout")
	fs.StringVar(&cfg.UserAgent, "user-agent", cfg.UserAgent, "User-Agent header")
	fs.BoolVar(&cfg.RespectRobotsTxt, "respect-robots", cfg.RespectRobotsTxt, "Respect robots.txt directives")
	fs.StringVar(&cfg.OutputDir, "output-dir", cfg.OutputDir, "Directory for per-category output files")
	fs.StringVar(&cfg.OutputFormat, "format", cfg.OutputFormat, "Output format: csv, json, or dual")
	fs.BoolVar(&cfg.DownloadImages, "images", cfg.DownloadImages, "Download product images")
	fs.StringVar(&cfg.ImageDir, "image-dir", cfg.ImageDir, "Directory for downloaded images")
	fs.IntVar(&cfg.DedupeMaxSize, "dedupe-size", cfg.DedupeMaxSize, "Product URLs remembered for de-duplication; a run seeing more URLs than this may write an evicted URL again")
	fs.BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "Enable verbose logging")
	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "Prometheus metrics listen address (e.g. :9090)")
	root.Flags().StringSliceVar(&cfg.Categories, "categories", cfg.Categories, "Only harvest these categories (comma separated names)")

	root.AddCommand(newCategoryCommand(cfg), newProductCommand(cfg))
	return root, nil
}

// envDefaults applies SCRAPER_* overrides to the default configuration.
func envDefaults() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if value, ok := config.EnvString("SCRAPER_BASE_URL"); ok {
		cfg.BaseURL = value
	}
	if value, ok, err := config.EnvInt("SCRAPER_PAGES"); err != nil {
		return nil, fmt.Errorf("invalid SCRAPER_PAGES: %w", err)
	} else if ok {
		cfg.MaxPages = value
	}
	if value, ok := config.EnvString("SCRAPER_OUTPUT_DIR"); ok {
		cfg.OutputDir = value
	}
	if value, ok := config.EnvString("SCRAPER_FORMAT"); ok {
		cfg.OutputFormat = value
	}
	if value, ok, err := config.EnvBool("SCRAPER_IMAGES"); err != nil {
		return nil, fmt.Errorf("invalid SCRAPER_IMAGES: %w", err)
	} else if ok {
		cfg.DownloadImages = value
	}
	if value, ok := config.EnvString("SCRAPER_IMAGE_DIR"); ok {
		cfg.ImageDir = value
	}
	if value, ok := config.EnvString("SCRAPER_CATEGORIES"); ok {
		cfg.Categories = strings.Split(value, ",")
	}
	if value, ok := config.EnvString("SCRAPER_METRICS_ADDR"); ok {
		cfg.MetricsAddr = value
	}
	return cfg, nil
}

// session is what every command needs to scrape: a scraper, the pipeline it
// feeds, and the optional metrics endpoint.
type session struct {
	scraper  *scraper.Scraper
	pipeline *pipeline.Pipeline
	metrics  *http.Server
}

func newSession(cfg *config.Config) (*session, error) {
	s, err := scraper.NewScraper(cfg)
	if err != nil {
		return nil, fmt.Errorf("initialising scraper: %w", err)
	}
	factory, err := pipeline.NewCategoryWriterFactory(cfg.OutputDir, cfg.OutputFormat)
	if err != nil {
		return nil, fmt.Errorf("creating writer factory: %w", err)
	}
	p, err := pipeline.NewPipeline(factory, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating pipeline: %w", err)
	}

	sess := &session{scraper: s, pipeline: p}
	if cfg.MetricsAddr != "" {
		sess.metrics = &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(s.Metrics.Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := sess.metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
	}
	return sess, nil
}

func (s *session) close() error {
	if s.metrics != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.metrics.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
		cancel()
	}
	if err := s.pipeline.Close(); err != nil {
		return fmt.Errorf("pipeline shutdown failed: %w", err)
	}
	return nil
}

func harvest(ctx context.Context, cfg *config.Config) error {
	slog.Info("starting harvest",
		slog.String("base_url", cfg.BaseURL),
		slog.String("output_dir", cfg.OutputDir),
		slog.String("format", cfg.OutputFormat),
		slog.Bool("images", cfg.DownloadImages),
	)

	sess, err := newSession(cfg)
	if err != nil {
		return err
	}

	result, runErr := sess.scraper.Run(ctx, sess.pipeline)
	if err := sess.close(); err != nil {
		return err
	}
	if runErr != nil {
		return fmt.Errorf("harvest failed: %w", runErr)
	}

	printSummary(result, sess.pipeline.GetMetrics())
	reportFailures(result)
	return nil
}

func reportFailures(result *models.RunResult) {
	for _, c := range result.FailedCategories() {
		slog.Warn("category not harvested", slog.String("category", c.Name), slog.Any("error", c.Err))
	}
}
