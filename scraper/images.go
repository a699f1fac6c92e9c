package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aluiziolira/go-scrape-catalogue/models"
	"github.com/aluiziolira/go-scrape-catalogue/parser"
)

const imageExt = ".jpg"

// ErrNoImage is returned for records whose image URL is the missing sentinel.
var ErrNoImage = errors.New("record has no image url")

// ImageDownloader stores product images under <dir>/<category slug>/<title slug>.jpg.
// Two titles with the same slug in one category share a path; the later
// download overwrites the earlier one. Images are fetched through the same
// collector as pages, so an image hosted outside the allowed domains fails
// with a forbidden-domain error and is counted as an image failure.
type ImageDownloader struct {
	fetcher Fetcher
	dir     string
	metrics *Metrics
}

// NewImageDownloader builds a downloader rooted at dir.
func NewImageDownloader(fetcher Fetcher, dir string, metrics *Metrics) *ImageDownloader {
	return &ImageDownloader{
		fetcher: fetcher,
		dir:     dir,
		metrics: metrics,
	}
}

// Path returns where the image for title in category is stored.
func (d *ImageDownloader) Path(category, title string) string {
	return filepath.Join(d.dir, parser.Slugify(category), parser.Slugify(title)+imageExt)
}

// Download fetches imageURL and writes it to Path(category, title).
func (d *ImageDownloader) Download(ctx context.Context, imageURL, category, title string) (string, error) {
	if imageURL == "" || imageURL == models.Missing {
		d.metrics.IncImage("skipped")
		return "", ErrNoImage
	}

	page, err := d.fetcher.Fetch(withPhase(ctx, phaseImage), imageURL)
	if err != nil {
		d.metrics.IncImage("failed")
		return "", err
	}

	path := d.Path(category, title)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		d.metrics.IncImage("failed")
		return "", fmt.Errorf("create image directory: %w", err)
	}
	if err := os.WriteFile(path, page.Body, 0o644); err != nil {
		d.metrics.IncImage("failed")
		return "", fmt.Errorf("write image %s: %w", path, err)
	}
	d.metrics.IncImage("stored")
	return path, nil
}

// Remove deletes stored images whose records were discarded. A nil
// downloader removes nothing.
func (d *ImageDownloader) Remove(paths []string) {
	if d == nil {
		return
	}
	for _, path := range paths {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			slog.Warn("remove discarded image", slog.String("path", path), slog.Any("error", err))
			continue
		}
		d.metrics.IncImage("removed")
	}
}
