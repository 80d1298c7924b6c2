package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/AI-Template-SDK/senso-visibility/internal/cache"
	"github.com/AI-Template-SDK/senso-visibility/internal/models"
	"github.com/AI-Template-SDK/senso-visibility/internal/providers"
	"github.com/AI-Template-SDK/senso-visibility/services"
)

var (
	analyzeQuery       string
	analyzeBrand       string
	analyzeCompetitors []string
	analyzeRegions     []string
	analyzePersonas    []string
	analyzeModel       string
	analyzeMode        string
	analyzeCredential  string
	analyzeWithResults bool
	analyzeFile        string
	analyzeQuiet       bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run one visibility analysis and print the report as JSON",
	RunE:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeQuery, "query", "q", "", "question to ask the model")
	analyzeCmd.Flags().StringVarP(&analyzeBrand, "brand", "b", "", "brand to measure")
	analyzeCmd.Flags().StringSliceVarP(&analyzeCompetitors, "competitor", "c", nil, "competitor brand, repeatable")
	analyzeCmd.Flags().StringSliceVar(&analyzeRegions, "region", nil, "region to evaluate, repeatable (default all)")
	analyzeCmd.Flags().StringSliceVar(&analyzePersonas, "persona", nil, "persona to evaluate, repeatable (default all)")
	analyzeCmd.Flags().StringVarP(&analyzeModel, "model", "m", "", "model name (defaults to DEFAULT_MODEL)")
	analyzeCmd.Flags().StringVar(&analyzeMode, "mode", "", "mention mode: sentence or flat (defaults to ANALYSIS_MODE)")
	analyzeCmd.Flags().StringVar(&analyzeCredential, "api-key", "", "provider API key (defaults to the server key)")
	analyzeCmd.Flags().BoolVar(&analyzeWithResults, "results", false, "include per-context results in the output")
	analyzeCmd.Flags().StringVarP(&analyzeFile, "file", "f", "", "YAML request file; flags override its fields")
	analyzeCmd.Flags().BoolVar(&analyzeQuiet, "quiet", false, "no progress spinner or summary on stderr")
	rootCmd.AddCommand(analyzeCmd)
}

// loadRequest reads an AnalysisRequest from a YAML file.
func loadRequest(path string) (models.AnalysisRequest, error) {
	var req models.AnalysisRequest
	data, err := os.ReadFile(path)
	if err != nil {
		return req, fmt.Errorf("read request file: %w", err)
	}
	if err := yaml.Unmarshal(data, &req); err != nil {
		return req, fmt.Errorf("parse request file %s: %w", path, err)
	}
	return req, nil
}

// buildRequest merges the request file with the flags that were set.
func buildRequest(cmd *cobra.Command) (models.AnalysisRequest, error) {
	var req models.AnalysisRequest
	if analyzeFile != "" {
		loaded, err := loadRequest(analyzeFile)
		if err != nil {
			return req, err
		}
		req = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("query") {
		req.Query = analyzeQuery
	}
	if flags.Changed("brand") {
		req.Brand = analyzeBrand
	}
	if flags.Changed("competitor") {
		req.Competitors = analyzeCompetitors
	}
	if flags.Changed("model") {
		req.Model = analyzeModel
	}
	if flags.Changed("mode") {
		req.Mode = models.AnalysisMode(analyzeMode)
	}
	if flags.Changed("api-key") {
		req.Credential = analyzeCredential
	}
	if flags.Changed("region") {
		req.Regions = nil
		for _, r := range analyzeRegions {
			req.Regions = append(req.Regions, models.Region(r))
		}
	}
	if flags.Changed("persona") {
		req.Personas = nil
		for _, p := range analyzePersonas {
			req.Personas = append(req.Personas, models.Persona(p))
		}
	}

	if req.Query == "" || req.Brand == "" {
		return req, errors.New("a query and a brand are required, via --query/--brand or --file")
	}
	return req, nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := logger.WithContext(context.Background())

	req, err := buildRequest(cmd)
	if err != nil {
		return err
	}

	memory := cache.NewMemoryClient(0)
	defer memory.Close()

	costService := services.NewCostService()
	analysisService := services.NewAnalysisService(
		cfg,
		providers.NewFactory(cfg, nil),
		services.NewContextRunnerService(cfg.Analysis, services.NewMentionService(), services.NewScoringService(), services.NewCitationService(), nil),
		services.NewReportService(costService, services.NewAnalyticsService()),
		memory,
		nil,
	)

	var spin *spinner.Spinner
	if !analyzeQuiet {
		spin = spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
		spin.Suffix = fmt.Sprintf(" Analyzing %s visibility...", req.Brand)
		spin.Start()
	}
	report, err := analysisService.Analyze(ctx, req)
	if spin != nil {
		spin.Stop()
	}

	if err != nil {
		if errors.Is(err, services.ErrAllContextsFailed) || errors.Is(err, services.ErrAnalysisTimeout) {
			if printErr := printJSON(cmd.OutOrStdout(), services.NewAnalysisFailure(req, err, time.Now())); printErr != nil {
				return printErr
			}
		}
		return fmt.Errorf("analysis failed: %w", err)
	}

	if !analyzeWithResults {
		report.Results = nil
	}
	if !analyzeQuiet {
		printSummary(report)
	}
	return printJSON(cmd.OutOrStdout(), report)
}

// printSummary writes a one-line, colored score summary to stderr.
func printSummary(report *models.AggregateReport) {
	if report.NoMentionsFound {
		color.New(color.FgRed, color.Bold).Fprintf(os.Stderr, "%s was not mentioned in any context\n", report.Brand)
		return
	}

	band := services.VisibilityBand(report.GlobalScore)
	paint := color.New(color.FgYellow, color.Bold)
	switch band {
	case services.BandAboveAverage:
		paint = color.New(color.FgGreen, color.Bold)
	case services.BandBelowAverage:
		paint = color.New(color.FgRed, color.Bold)
	}
	paint.Fprintf(os.Stderr, "%s: %d/100 (%s)", report.Brand, report.GlobalScore, band)
	fmt.Fprintf(os.Stderr, " across %d contexts, cost $%.4f\n", report.ContextsEvaluated, report.Usage.Cost)
}
