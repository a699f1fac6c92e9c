package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/aluiziolira/go-scrape-catalogue/config"
	"github.com/aluiziolira/go-scrape-catalogue/models"
	"github.com/aluiziolira/go-scrape-catalogue/parser"
)

var (
	// ErrPipelineClosed is returned when Add or Flush is called after shutdown.
	ErrPipelineClosed = errors.New("pipeline: closed")
	// ErrDuplicate is returned when a product URL was already accepted this run.
	ErrDuplicate = errors.New("pipeline: duplicate product url")
	// ErrInvalidRecord wraps validation failures.
	ErrInvalidRecord = errors.New("pipeline: invalid record")
)

// OutputWriter defines the interface for data output.
type OutputWriter interface {
	Write(records []*models.ProductRecord) error
	Close() error
	Validate() error
	Paths() []string
}

// WriterFactory opens the destination for one category's records.
type WriterFactory func(category string) (OutputWriter, error)

// FlushResult describes what Flush wrote for a category.
type FlushResult struct {
	Category string
	Records  int
	Paths    []string
}

// Pipeline validates records, drops repeated product URLs, and writes each
// category's records in one pass once the category is complete.
type Pipeline struct {
	newWriter WriterFactory
	seen      *lru.Cache[string, struct{}]

	mu      sync.Mutex
	pending map[string][]*models.ProductRecord
	order   []string
	closed  bool

	metrics metrics
}

// NewPipeline builds a pipeline remembering up to cfg.DedupeMaxSize URLs.
func NewPipeline(newWriter WriterFactory, cfg *config.Config) (*Pipeline, error) {
	if newWriter == nil {
		return nil, fmt.Errorf("pipeline: writer factory is nil")
	}
	seen, err := lru.New[string, struct{}](cfg.DedupeMaxSize)
	if err != nil {
		return nil, fmt.Errorf("create dedupe cache: %w", err)
	}
	return &Pipeline{
		newWriter: newWriter,
		seen:      seen,
		pending:   make(map[string][]*models.ProductRecord),
		metrics:   newMetrics(),
	}, nil
}

// Seen reports whether url has already been accepted this run.
func (p *Pipeline) Seen(url string) bool {
	return p.seen.Contains(url)
}

// Add buffers a record under category.
func (p *Pipeline) Add(category string, record *models.ProductRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPipelineClosed
	}
	if err := parser.ValidateRecord(record); err != nil {
		p.metrics.addValidation("invalid_record")
		return fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	if p.seen.Contains(record.ProductPageURL) {
		p.metrics.addValidation("duplicate_url")
		return ErrDuplicate
	}
	p.seen.Add(record.ProductPageURL, struct{}{})

	if _, ok := p.pending[category]; !ok {
		p.order = append(p.order, category)
	}
	p.pending[category] = append(p.pending[category], record)
	return nil
}

// Discard drops a category's buffered records and forgets their URLs.
func (p *Pipeline) Discard(category string) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	records := p.takeLocked(category)
	for _, r := range records {
		p.seen.Remove(r.ProductPageURL)
	}
	return len(records)
}

// Flush writes category's buffered records. A category without records
// produces no file.
func (p *Pipeline) Flush(category string) (*FlushResult, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPipelineClosed
	}
	records := p.takeLocked(category)
	p.mu.Unlock()

	return p.write(category, records)
}

// Close flushes every category still buffered and rejects further records.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	remaining := make(map[string][]*models.ProductRecord, len(p.pending))
	order := append([]string(nil), p.order...)
	for _, category := range order {
		remaining[category] = p.takeLocked(category)
	}
	p.mu.Unlock()

	var errs []error
	for _, category := range order {
		if _, err := p.write(category, remaining[category]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// GetMetrics returns a snapshot of the internal counters.
func (p *Pipeline) GetMetrics() map[string]interface{} {
	return p.metrics.snapshot()
}

func (p *Pipeline) takeLocked(category string) []*models.ProductRecord {
	records := p.pending[category]
	delete(p.pending, category)
	for i, c := range p.order {
		if c == category {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
	return records
}

func (p *Pipeline) write(category string, records []*models.ProductRecord) (*FlushResult, error) {
	result := &FlushResult{Category: category}
	if len(records) == 0 {
		slog.Warn("no records for category, skipping output", slog.String("category", category))
		return result, nil
	}

	w, err := p.newWriter(category)
	if err != nil {
		return nil, fmt.Errorf("open writer for %s: %w", category, err)
	}
	if err := w.Write(records); err != nil {
		w.Close()
		return nil, fmt.Errorf("write %s: %w", category, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close writer for %s: %w", category, err)
	}
	if err := w.Validate(); err != nil {
		return nil, fmt.Errorf("validate output for %s: %w", category, err)
	}

	p.metrics.addProcessed(len(records))
	p.metrics.addFile()
	result.Records = len(records)
	result.Paths = w.Paths()
	return result, nil
}

type metrics struct {
	mu         sync.Mutex
	processed  int64
	files      int64
	validation map[string]int
}

func newMetrics() metrics {
	return metrics{
		validation: make(map[string]int),
	}
}

func (m *metrics) addProcessed(n int) {
	m.mu.Lock()
	m.processed += int64(n)
	m.mu.Unlock()
}

func (m *metrics) addFile() {
	m.mu.Lock()
	m.files++
	m.mu.Unlock()
}

func (m *metrics) addValidation(kind string) {
	m.mu.Lock()
	m.validation[kind]++
	m.mu.Unlock()
}

func (m *metrics) snapshot() map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()

	copyValidation := make(map[string]int, len(m.validation))
	kinds := make([]string, 0, len(m.validation))
	for k := range m.validation {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		copyValidation[k] = m.validation[k]
	}

	return map[string]interface{}{
		"processed_records": m.processed,
		"files_written":     m.files,
		"validation_errors": copyValidation,
	}
}
