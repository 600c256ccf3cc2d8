package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"cbcrcli/internal/cbcr"
	"cbcrcli/internal/config"
	"cbcrcli/internal/errors"
	"cbcrcli/internal/infrastructure"
	"cbcrcli/internal/study"
)

func main() {
	inputFile := flag.String("input", "", "CbCR extract to analyze, CSV or Excel (defaults to configured input file)")
	sheet := flag.String("sheet", "", "worksheet name for Excel inputs (defaults to configured sheet)")
	jurisdiction := flag.String("jurisdiction", "", "jurisdiction code to study, e.g. DEU (defaults to configured jurisdiction)")
	outputDir := flag.String("out", "", "output directory for reports (defaults to configured output dir)")
	maxIterations := flag.Int("max-iterations", 0, "imputation iteration cap (defaults to configured value)")
	seed := flag.Int64("seed", -1, "random seed for the random imputation order (defaults to configured value)")
	randomOrder := flag.Bool("random-order", false, "impute columns in seeded random order instead of ascending missing count")
	etrBound := flag.Float64("etr-bound", 0, "admissibility ceiling for ETR (defaults to configured value)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Error("Failed to initialize logger", "error", err)
		os.Exit(1)
	}
	defer infrastructure.CloseLogger()

	// Flags override the merged config
	if *inputFile == "" {
		*inputFile = cfg.Paths.InputFile
	}
	if *sheet == "" {
		*sheet = cfg.Paths.Sheet
	}
	if *jurisdiction == "" {
		*jurisdiction = cfg.Study.Jurisdiction
	}
	if *outputDir == "" {
		*outputDir = cfg.Paths.OutputDir
	}
	if *maxIterations <= 0 {
		*maxIterations = cfg.Study.MaxIterations
	}
	if *seed < 0 {
		*seed = cfg.Study.Seed
	}
	if *etrBound <= 0 {
		*etrBound = cfg.Study.ETRUpperBound
	}

	logger.Info("Loading CbCR extract",
		"path", *inputFile,
		"jurisdiction", *jurisdiction)

	ds, err := loadDataset(*inputFile, *sheet, *jurisdiction, logger)
	if err != nil {
		logger.Error("Failed to load CbCR extract", "error", err)
		os.Exit(1)
	}
	if ds.Len() == 0 {
		logger.Error("No observations for jurisdiction",
			"jurisdiction", *jurisdiction,
			"hint", "Check the jurisdiction code against the extract")
		os.Exit(1)
	}
	logger.Info("Loaded CbCR extract", "observations", ds.Len())

	order := study.OrderAscending
	if *randomOrder {
		order = study.OrderRandom
	}

	// Every tax type × method combination runs against its own clone of the
	// loaded extract, so the four runs are independent.
	grid := make([]study.RunConfig, 0, 4)
	for _, taxType := range []cbcr.TaxType{cbcr.TaxAccrued, cbcr.TaxPaid} {
		for _, method := range []study.Method{study.MethodBaseline, study.MethodImputed} {
			run := study.DefaultRunConfig(taxType, method)
			run.MinValue = cfg.Study.MinValue
			run.MaxIterations = *maxIterations
			run.Seed = *seed
			run.Tolerance = cfg.Study.Tolerance
			run.Order = order
			run.ETRUpperBound = *etrBound
			grid = append(grid, run)
		}
	}

	start := time.Now()
	analyzer := study.NewAnalyzer(logger)

	var (
		mu      sync.Mutex
		results []*study.RunResult
		skipped []string
	)

	g, ctx := errgroup.WithContext(context.Background())
	for _, run := range grid {
		run := run
		g.Go(func() error {
			result, err := analyzer.Run(ctx, ds, run)
			if err != nil {
				// A run whose sample survives neither specification is a
				// reportable finding, not a pipeline failure.
				if errors.IsInsufficientData(err) {
					mu.Lock()
					skipped = append(skipped, fmt.Sprintf("%s_%s_%s: %v",
						strings.ToUpper(ds.Jurisdiction), run.TaxType, run.Method, err))
					mu.Unlock()
					return nil
				}
				return fmt.Errorf("%s/%s run: %w", run.TaxType, run.Method, err)
			}
			mu.Lock()
			results = append(results, result)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logger.Error("Study run failed", "error", err)
		os.Exit(1)
	}

	logger.Info("All runs complete",
		"completed", len(results),
		"skipped", len(skipped),
		"duration", time.Since(start))
	for _, s := range skipped {
		logger.Warn("Run skipped for insufficient data", "run", s)
	}

	if len(results) == 0 {
		logger.Error("No run produced a fitted model",
			"hint", "The filtered sample may be too small in every configuration")
		os.Exit(1)
	}

	timestamp := time.Now().Format("20060102")
	summaryPath := filepath.Join(*outputDir, fmt.Sprintf("study_summary_%s.csv", timestamp))
	workbookPath := filepath.Join(*outputDir, fmt.Sprintf("study_results_%s.xlsx", timestamp))

	if err := study.SaveSummaryCSV(results, summaryPath); err != nil {
		logger.Error("Failed to save summary CSV", "error", err)
		os.Exit(1)
	}
	if err := study.SaveWorkbook(results, workbookPath); err != nil {
		logger.Error("Failed to save results workbook", "error", err)
		os.Exit(1)
	}

	logger.Info("Study reports generated",
		"summary", summaryPath,
		"workbook", workbookPath,
		"runs", len(results))
}

// loadDataset picks the loader by file extension
func loadDataset(path, sheet, jurisdiction string, logger *slog.Logger) (*cbcr.Dataset, error) {
	opts := cbcr.LoadOptions{
		Jurisdiction: jurisdiction,
		Sheet:        sheet,
		Logger:       logger,
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return cbcr.LoadCSV(path, opts)
	case ".xlsx", ".xlsm":
		return cbcr.LoadExcel(path, opts)
	default:
		return nil, fmt.Errorf("unsupported input format %q (want .csv or .xlsx)", filepath.Ext(path))
	}
}
