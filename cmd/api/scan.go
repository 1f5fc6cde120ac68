package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/dnscache"
	"github.com/spf13/cobra"

	"github.com/Bahjat/comply-scanner/internal/model"
	"github.com/Bahjat/comply-scanner/internal/pageinsight"
	"github.com/Bahjat/comply-scanner/internal/platform/config"
	"github.com/Bahjat/comply-scanner/internal/platform/logger"
	"github.com/Bahjat/comply-scanner/internal/report"
)

const cliScanTimeout = 55 * time.Second

var scanPDFPath string

var scanCmd = &cobra.Command{
	Use:   "scan <url>",
	Short: "Scan a website once and print the results as JSON",
	Long:  `Runs the scan pipeline against one site without quota, cache or persistence. The full report is printed as JSON; --pdf also writes the PDF report.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runScan,
}

func init() {
	scanCmd.Flags().StringVar(&scanPDFPath, "pdf", "", "write the PDF report to this file")
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	log := logger.New(cmd.ErrOrStderr(), cfg.LogLevel)

	target, err := pageinsight.Normalize(args[0])
	if err != nil {
		return fmt.Errorf("%q: %w", args[0], err)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cliScanTimeout)
	defer cancel()

	res, err := newEngine(cfg, &dnscache.Resolver{}, log).Scan(ctx, target, time.Now())
	if err != nil {
		return err
	}
	rec := res.Record(uuid.NewString(), "cli")
	rec.CreatedAt = time.Now().UTC()

	if scanPDFPath != "" {
		pdf, err := report.NewPDFGenerator().Generate(rec)
		if err != nil {
			return err
		}
		if err := os.WriteFile(scanPDFPath, pdf, 0o644); err != nil {
			return fmt.Errorf("writing pdf report: %w", err)
		}
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(model.UnlockResponse{
		Success:        true,
		Findings:       rec.Findings,
		Summary:        rec.Summary,
		WebsiteURL:     rec.WebsiteURL,
		PageResults:    rec.PageResults,
		PdfResults:     rec.PdfResults,
		VendorWarnings: rec.VendorWarnings,
	})
}
