package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/aluiziolira/go-scrape-catalogue/config"
)

// Crawl phases, used as the request metric label.
const (
	phaseCategories = "categories"
	phaseListing    = "listing"
	phaseProduct    = "product"
	phaseImage      = "image"
)

// colly request context keys.
const (
	ctxPhase    = "phase"
	ctxStart    = "start"
	ctxBody     = "body"
	ctxStatus   = "status"
	ctxFinalURL = "final_url"
)

type phaseKey struct{}

func withPhase(ctx context.Context, phase string) context.Context {
	return context.WithValue(ctx, phaseKey{}, phase)
}

func phaseFrom(ctx context.Context) string {
	if phase, ok := ctx.Value(phaseKey{}).(string); ok {
		return phase
	}
	return "page"
}

// Page is a fetched document.
type Page struct {
	// URL is where the body was served from after redirects.
	URL        string
	StatusCode int
	Body       []byte
}

// Fetcher retrieves raw pages. Non-2xx responses are returned as FetchError.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*Page, error)
}

// CollyFetcher issues one synchronous colly request per Fetch.
type CollyFetcher struct {
	collector *colly.Collector
	metrics   *Metrics
	requests  int64
}

// NewCollyFetcher builds a fetcher restricted to the configured hosts.
func NewCollyFetcher(cfg *config.Config, metrics *Metrics) (*CollyFetcher, error) {
	domains, err := allowedDomains(cfg.BaseURL, cfg.CatalogueURL())
	if err != nil {
		return nil, err
	}

	collector := colly.NewCollector(
		colly.AllowedDomains(domains...),
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
	)

	collector.SetRequestTimeout(cfg.Timeout)
	collector.IgnoreRobotsTxt = !cfg.RespectRobotsTxt
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	f := &CollyFetcher{
		collector: collector,
		metrics:   metrics,
	}
	f.configureHandlers()
	return f, nil
}

// WithTransport swaps the HTTP transport used by the collector.
func (f *CollyFetcher) WithTransport(rt http.RoundTripper) {
	f.collector.WithTransport(rt)
}

// Requests returns the number of requests issued so far.
func (f *CollyFetcher) Requests() int {
	return int(atomic.LoadInt64(&f.requests))
}

func (f *CollyFetcher) configureHandlers() {
	f.collector.OnRequest(func(r *colly.Request) {
		r.Ctx.Put(ctxStart, time.Now())
		current := atomic.AddInt64(&f.requests, 1)
		phase, _ := r.Ctx.GetAny(ctxPhase).(string)
		f.metrics.IncRequest(phase)
		if current%50 == 0 {
			slog.Debug("scraper request progress",
				slog.Int64("requests", current),
				slog.String("url", r.URL.String()),
			)
		}
	})

	f.collector.OnResponse(func(r *colly.Response) {
		r.Ctx.Put(ctxBody, r.Body)
		r.Ctx.Put(ctxStatus, r.StatusCode)
		r.Ctx.Put(ctxFinalURL, r.Request.URL.String())
		if start, ok := r.Ctx.GetAny(ctxStart).(time.Time); ok {
			f.metrics.ObserveDuration(time.Since(start))
		}
	})

	// Non-2xx responses skip OnResponse and land here instead.
	f.collector.OnError(func(r *colly.Response, err error) {
		if r == nil || r.Ctx == nil {
			return
		}
		r.Ctx.Put(ctxStatus, r.StatusCode)
		if start, ok := r.Ctx.GetAny(ctxStart).(time.Time); ok {
			f.metrics.ObserveDuration(time.Since(start))
		}
	})
}

// Fetch retrieves rawURL. The collector is synchronous, so the call returns
// once the response (or failure) has been handled.
func (f *CollyFetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, FetchError{URL: rawURL, Err: err}
	}

	reqCtx := colly.NewContext()
	reqCtx.Put(ctxPhase, phaseFrom(ctx))

	err := f.collector.Request(http.MethodGet, rawURL, nil, reqCtx, nil)
	status, _ := reqCtx.GetAny(ctxStatus).(int)
	if err != nil {
		return nil, FetchError{URL: rawURL, StatusCode: status, Err: classifyError(err, status)}
	}

	body, _ := reqCtx.GetAny(ctxBody).([]byte)
	finalURL, _ := reqCtx.GetAny(ctxFinalURL).(string)
	if finalURL == "" {
		finalURL = rawURL
	}
	return &Page{URL: finalURL, StatusCode: status, Body: body}, nil
}

func allowedDomains(urls ...string) ([]string, error) {
	var domains []string
	seen := make(map[string]struct{})
	for _, raw := range urls {
		parsed, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("parse url %q: %w", raw, err)
		}
		host := parsed.Hostname()
		if host == "" {
			return nil, fmt.Errorf("url %q must include a host", raw)
		}
		if _, ok := seen[host]; ok {
			continue
		}
		seen[host] = struct{}{}
		domains = append(domains, host)
	}
	return domains, nil
}

func classifyError(err error, statusCode int) error {
	if err == nil && statusCode == 0 {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout{Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout{Err: err}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return ErrConnection{Err: err}
	}

	if statusCode != 0 {
		wrapped := err
		if wrapped == nil {
			wrapped = fmt.Errorf("http status %d", statusCode)
		}
		switch statusCode {
		case http.StatusForbidden:
			return ErrForbidden{Err: wrapped}
		case http.StatusNotFound:
			return ErrNotFound{Err: wrapped}
		case http.StatusTooManyRequests:
			return ErrRateLimited{Err: wrapped}
		}
	}

	if err == nil {
		return nil
	}
	return err
}
