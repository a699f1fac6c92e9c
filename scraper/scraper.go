package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/aluiziolira/go-scrape-catalogue/config"
	"github.com/aluiziolira/go-scrape-catalogue/models"
	"github.com/aluiziolira/go-scrape-catalogue/parser"
	"github.com/aluiziolira/go-scrape-catalogue/pipeline"
)

// Option customises a Scraper.
type Option func(*options)

type options struct {
	fetcher   Fetcher
	transport http.RoundTripper
	metrics   *Metrics
}

// WithFetcher replaces the colly fetcher.
func WithFetcher(f Fetcher) Option {
	return func(o *options) {
		o.fetcher = f
	}
}

// WithTransport sets the HTTP transport of the default colly fetcher.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) {
		o.transport = rt
	}
}

// WithMetrics shares a metrics bundle instead of creating a new one.
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// Scraper walks the catalogue category by category and feeds product records
// into a pipeline. It issues one request at a time.
type Scraper struct {
	cfg     *config.Config
	fetcher Fetcher
	walker  *Walker
	images  *ImageDownloader
	Metrics *Metrics

	pageCount  int64
	errorCount int64

	mu           sync.Mutex
	errorsByType map[string]int
}

// NewScraper builds a scraper instance configured from cfg.
func NewScraper(cfg *config.Config, opts ...Option) (*Scraper, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	catalogue, err := parser.CatalogueRoot(cfg.CatalogueURL())
	if err != nil {
		return nil, fmt.Errorf("catalogue prefix: %w", err)
	}

	metrics := o.metrics
	if metrics == nil {
		metrics = NewMetrics()
	}

	fetcher := o.fetcher
	if fetcher == nil {
		cf, err := NewCollyFetcher(cfg, metrics)
		if err != nil {
			return nil, err
		}
		if o.transport != nil {
			cf.WithTransport(o.transport)
		}
		fetcher = cf
	}

	s := &Scraper{
		cfg:          cfg,
		fetcher:      fetcher,
		Metrics:      metrics,
		errorsByType: make(map[string]int),
	}
	s.walker = NewWalker(fetcher, catalogue, cfg.MaxPages, metrics)
	if cfg.DownloadImages {
		s.images = NewImageDownloader(fetcher, cfg.ImageDir, metrics)
	}
	return s, nil
}

// Categories fetches the site root and returns its category navigation.
func (s *Scraper) Categories(ctx context.Context) ([]models.Category, error) {
	page, err := s.fetcher.Fetch(withPhase(ctx, phaseCategories), s.cfg.BaseURL)
	if err != nil {
		return nil, err
	}
	atomic.AddInt64(&s.pageCount, 1)

	doc, err := parser.Parse(page.Body)
	if err != nil {
		return nil, fmt.Errorf("home page: %w", err)
	}
	return parser.ExtractCategories(page.URL, doc)
}

// Run harvests every selected category into p. A category that fails is
// recorded in the result and the run moves on; only a failure to enumerate
// categories is returned as an error.
func (s *Scraper) Run(ctx context.Context, p *pipeline.Pipeline) (*models.RunResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	result := &models.RunResult{
		RunID:     uuid.NewString(),
		StartTime: time.Now(),
	}
	logger := slog.With(slog.String("run_id", result.RunID))

	categories, err := s.Categories(ctx)
	if err != nil {
		s.recordError(err)
		return nil, fmt.Errorf("enumerate categories: %w", err)
	}

	selected := make([]models.Category, 0, len(categories))
	for _, c := range categories {
		if s.cfg.WantsCategory(c.Name) {
			selected = append(selected, c)
		}
	}
	if len(selected) == 0 {
		return nil, ErrNoCategories
	}
	logger.Info("categories enumerated",
		slog.Int("found", len(categories)),
		slog.Int("selected", len(selected)),
	)

	for _, category := range selected {
		if ctx.Err() != nil {
			logger.Warn("run cancelled", slog.Any("error", ctx.Err()))
			break
		}
		cr := s.scrapeCategory(ctx, logger, p, category)
		result.Categories = append(result.Categories, cr)
		result.TotalRecords += cr.Records
	}

	s.finish(result)
	return result, nil
}

// ScrapeCategory harvests a single category. When category.Name is empty the
// breadcrumb category of the first record names the output.
func (s *Scraper) ScrapeCategory(ctx context.Context, p *pipeline.Pipeline, category models.Category) models.CategoryResult {
	return s.scrapeCategory(ctx, slog.Default(), p, category)
}

func (s *Scraper) scrapeCategory(ctx context.Context, logger *slog.Logger, p *pipeline.Pipeline, category models.Category) models.CategoryResult {
	result := models.CategoryResult{Name: category.Name, URL: category.URL}
	logger = logger.With(slog.String("category", category.Name))

	productURLs, err := s.walker.Walk(ctx, category.URL)
	if err != nil {
		s.recordError(err)
		s.Metrics.IncCategory("failed")
		logger.Error("category walk failed", slog.String("url", category.URL), slog.Any("error", err))
		result.Err = err
		return result
	}
	result.ProductURLs = len(productURLs)
	logger.Info("category walked", slog.Int("product_urls", len(productURLs)))

	var stored []string
	for _, productURL := range productURLs {
		if err := ctx.Err(); err != nil {
			dropped := p.Discard(result.Name)
			s.images.Remove(stored)
			logger.Warn("category interrupted", slog.Int("discarded", dropped), slog.Any("error", err))
			result.Err = err
			result.Records = 0
			s.Metrics.IncCategory("failed")
			return result
		}
		if p.Seen(productURL) {
			result.Duplicates++
			continue
		}

		rec, err := s.ScrapeProduct(ctx, productURL)
		if err != nil {
			s.recordError(err)
			result.Skipped++
			logger.Warn("product skipped", slog.String("url", productURL), slog.Any("error", err))
			continue
		}
		if result.Name == "" {
			result.Name = rec.Category
		}
		if category.Name != "" && rec.Category != category.Name {
			logger.Warn("breadcrumb category mismatch",
				slog.String("url", productURL),
				slog.String("breadcrumb", rec.Category),
			)
		}
		if len(rec.Degraded) > 0 {
			logger.Debug("record degraded", slog.String("url", productURL), slog.Any("fields", rec.Degraded))
		}

		if err := p.Add(result.Name, rec); err != nil {
			if errors.Is(err, pipeline.ErrDuplicate) {
				result.Duplicates++
				continue
			}
			s.recordError(err)
			result.Skipped++
			logger.Warn("record rejected", slog.String("url", productURL), slog.Any("error", err))
			continue
		}
		result.Records++
		s.Metrics.IncItems()

		if s.images != nil {
			path, err := s.images.Download(ctx, rec.ImageURL, result.Name, rec.Title)
			switch {
			case errors.Is(err, ErrNoImage):
			case err != nil:
				s.recordError(err)
				result.ImageFailures++
				logger.Warn("image download failed", slog.String("url", rec.ImageURL), slog.Any("error", err))
			default:
				rec.ImagePath = path
				stored = append(stored, path)
			}
		}
	}

	flushed, err := p.Flush(result.Name)
	if err != nil {
		s.recordError(err)
		s.Metrics.IncCategory("failed")
		logger.Error("category output failed", slog.Any("error", err))
		result.Err = err
		return result
	}
	result.OutputPaths = flushed.Paths
	s.Metrics.IncCategory("completed")
	logger.Info("category completed",
		slog.Int("records", result.Records),
		slog.Int("skipped", result.Skipped),
		slog.Int("duplicates", result.Duplicates),
		slog.Any("files", result.OutputPaths),
	)
	return result
}

// ScrapeProduct fetches and extracts one product page. The returned record
// keeps productURL as its page URL even when the server redirected.
func (s *Scraper) ScrapeProduct(ctx context.Context, productURL string) (*models.ProductRecord, error) {
	page, err := s.fetcher.Fetch(withPhase(ctx, phaseProduct), productURL)
	if err != nil {
		return nil, err
	}
	atomic.AddInt64(&s.pageCount, 1)

	doc, err := parser.Parse(page.Body)
	if err != nil {
		return nil, fmt.Errorf("product %s: %w", productURL, err)
	}
	rec, err := parser.ExtractProduct(page.URL, doc)
	if err != nil {
		return nil, err
	}
	rec.ProductPageURL = productURL
	return rec, nil
}

// Result snapshots counters for callers that scrape without Run.
func (s *Scraper) Result(start time.Time) *models.RunResult {
	result := &models.RunResult{RunID: uuid.NewString(), StartTime: start}
	s.finish(result)
	return result
}

func (s *Scraper) finish(result *models.RunResult) {
	result.EndTime = time.Now()
	result.ErrorCount = int(atomic.LoadInt64(&s.errorCount))
	result.ErrorsByType = s.snapshotErrors()
	result.PageCount = int(atomic.LoadInt64(&s.pageCount)) + s.walker.Pages()
	if counter, ok := s.fetcher.(interface{ Requests() int }); ok {
		result.RequestCount = counter.Requests()
	}
}

func (s *Scraper) recordError(err error) {
	atomic.AddInt64(&s.errorCount, 1)
	label := errorTypeLabel(err)

	s.mu.Lock()
	s.errorsByType[label]++
	s.mu.Unlock()

	s.Metrics.IncError(label)
}

func (s *Scraper) snapshotErrors() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.errorsByType))
	for k, v := range s.errorsByType {
		out[k] = v
	}
	return out
}
