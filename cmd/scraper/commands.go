package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/aluiziolira/go-scrape-catalogue/config"
	"github.com/aluiziolira/go-scrape-catalogue/models"
)

func newCategoryCommand(cfg *config.Config) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "category <listing-url>",
		Short: "Harvest a single category starting from its first listing page.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := newSession(cfg)
			if err != nil {
				return err
			}

			start := time.Now()
			category := sess.scraper.ScrapeCategory(cmd.Context(), sess.pipeline, models.Category{Name: name, URL: args[0]})
			if err := sess.close(); err != nil {
				return err
			}

			result := sess.scraper.Result(start)
			result.Categories = []models.CategoryResult{category}
			result.TotalRecords = category.Records
			printSummary(result, sess.pipeline.GetMetrics())
			if category.Err != nil {
				return fmt.Errorf("category %s: %w", args[0], category.Err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Category name for the output file (default: breadcrumb of the first product)")
	return cmd
}

func newProductCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "product <product-url>",
		Short: "Extract one product page and print its record.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := newSession(cfg)
			if err != nil {
				return err
			}
			defer sess.close()

			rec, err := sess.scraper.ScrapeProduct(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(rec.Degraded) > 0 {
				slog.Warn("record degraded", slog.Any("fields", rec.Degraded))
			}

			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.AppendHeader(table.Row{"Field", "Value"})
			values := rec.Values()
			for i, column := range models.RecordHeader() {
				t.AppendRow(table.Row{column, values[i]})
			}
			t.SetStyle(table.StyleRounded)
			t.Render()
			return nil
		},
	}
}
