package main

import (
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/lmittmann/tint"

	"github.com/aluiziolira/go-scrape-catalogue/models"
)

func printSummary(result *models.RunResult, metrics map[string]interface{}) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("Harvest %s", result.RunID)
	t.AppendHeader(table.Row{"Category", "URLs", "Records", "Skipped", "Duplicates", "Image failures", "Output"})

	var urls, skipped, duplicates, imageFailures int
	for _, c := range result.Categories {
		output := strings.Join(c.OutputPaths, "\n")
		if c.Err != nil {
			output = "failed: " + c.Err.Error()
		}
		t.AppendRow(table.Row{c.Name, c.ProductURLs, c.Records, c.Skipped, c.Duplicates, c.ImageFailures, output})
		urls += c.ProductURLs
		skipped += c.Skipped
		duplicates += c.Duplicates
		imageFailures += c.ImageFailures
	}
	t.AppendFooter(table.Row{"Total", urls, result.TotalRecords, skipped, duplicates, imageFailures, ""})
	t.SetStyle(table.StyleRounded)
	t.Render()

	duration := result.EndTime.Sub(result.StartTime)
	fmt.Printf("  Requests:      %d\n", result.RequestCount)
	fmt.Printf("  Pages:         %d\n", result.PageCount)
	fmt.Printf("  Errors:        %d\n", result.ErrorCount)
	if len(result.ErrorsByType) > 0 {
		fmt.Printf("  Error types:   %s\n", formatCounts(result.ErrorsByType))
	}
	if valErrors, ok := metrics["validation_errors"].(map[string]int); ok && len(valErrors) > 0 {
		fmt.Printf("  Validation:    %s\n", formatCounts(valErrors))
	}
	fmt.Printf("  Duration:      %v\n", duration.Round(time.Millisecond))
	if seconds := duration.Seconds(); seconds > 0 {
		fmt.Printf("  Records/sec:   %.2f\n", float64(result.TotalRecords)/seconds)
	}
}

func formatCounts(counts map[string]int) string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, counts[k]))
	}
	return strings.Join(parts, " ")
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	if isTerminal(os.Stderr) {
		return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		}))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
