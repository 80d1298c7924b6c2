// workflows/analysis_processor.go
package workflows

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/inngest/inngestgo"
	"github.com/inngest/inngestgo/step"
	"github.com/rs/zerolog"

	"github.com/AI-Template-SDK/senso-visibility/internal/models"
	"github.com/AI-Template-SDK/senso-visibility/services"
)

// AnalysisRequestedEvent triggers an asynchronous analysis run.
const AnalysisRequestedEvent = "visibility/analysis.requested"

// AnalysisRequestedEventData is the payload of AnalysisRequestedEvent. The
// credential is never sent; async runs use the server's provider keys.
type AnalysisRequestedEventData struct {
	ReportID    string                 `json:"report_id"`
	Request     models.AnalysisRequest `json:"request"`
	RequestedAt time.Time              `json:"requested_at"`
}

// ReportSaver persists finished reports.
type ReportSaver interface {
	Save(ctx context.Context, report *models.AggregateReport) error
}

// FailureNotifier is told about analyses that ended with status failed.
type FailureNotifier interface {
	NotifyFailure(ctx context.Context, report *models.AggregateReport) error
}

type AnalysisProcessor struct {
	analysisService services.AnalysisService
	reports         ReportSaver
	notifier        FailureNotifier
	client          inngestgo.Client
	logger          zerolog.Logger
}

func NewAnalysisProcessor(analysisService services.AnalysisService, reports ReportSaver, logger zerolog.Logger) *AnalysisProcessor {
	return &AnalysisProcessor{
		analysisService: analysisService,
		reports:         reports,
		logger:          logger,
	}
}

func (p *AnalysisProcessor) SetClient(client inngestgo.Client) {
	p.client = client
}

func (p *AnalysisProcessor) SetNotifier(notifier FailureNotifier) {
	p.notifier = notifier
}

// NewAnalysisRequestedEvent builds the event that AnalyzeRequested consumes.
func NewAnalysisRequestedEvent(reportID string, req models.AnalysisRequest, at time.Time) inngestgo.Event {
	req.Credential = ""
	return inngestgo.Event{
		Name: AnalysisRequestedEvent,
		Data: map[string]any{
			"report_id":    reportID,
			"request":      req,
			"requested_at": at.UTC(),
		},
	}
}

func (p *AnalysisProcessor) AnalyzeRequested() inngestgo.ServableFunction {
	fn, err := inngestgo.CreateFunction(
		p.client,
		inngestgo.FunctionOpts{
			ID:      "analyze-brand-visibility",
			Name:    "Analyze Brand Visibility Across Contexts",
			Retries: inngestgo.IntPtr(2),
		},
		inngestgo.EventTrigger(AnalysisRequestedEvent, nil),
		func(ctx context.Context, input inngestgo.Input[AnalysisRequestedEventData]) (any, error) {
			data := input.Event.Data
			logger := p.logger.With().Str("report_id", data.ReportID).Str("brand", data.Request.Brand).Logger()
			ctx = logger.WithContext(ctx)

			logger.Info().Msg("starting async analysis")

			report, err := step.Run(ctx, "run-analysis", func(ctx context.Context) (*models.AggregateReport, error) {
				return p.Process(ctx, data)
			})
			if err != nil {
				return nil, fmt.Errorf("run-analysis failed: %w", err)
			}

			_, err = step.Run(ctx, "persist-report", func(ctx context.Context) (string, error) {
				if p.reports == nil {
					return "skipped", nil
				}
				if err := p.reports.Save(ctx, report); err != nil {
					return "", fmt.Errorf("failed to save report: %w", err)
				}
				return report.ID, nil
			})
			if err != nil {
				return nil, fmt.Errorf("persist-report failed: %w", err)
			}

			if report.Status == models.ReportStatusFailed && p.notifier != nil {
				// An alert that cannot be delivered must not fail the run.
				_, err = step.Run(ctx, "alert-failure", func(ctx context.Context) (bool, error) {
					if err := p.notifier.NotifyFailure(ctx, report); err != nil {
						logger.Warn().Err(err).Msg("failed to send failure alert")
						return false, nil
					}
					return true, nil
				})
				if err != nil {
					return nil, fmt.Errorf("alert-failure failed: %w", err)
				}
			}

			logger.Info().Str("status", report.Status).Int("global_score", report.GlobalScore).Msg("async analysis finished")
			return map[string]any{
				"report_id":    report.ID,
				"status":       report.Status,
				"global_score": report.GlobalScore,
			}, nil
		},
	)
	if err != nil {
		panic(fmt.Sprintf("failed to create analyze-brand-visibility function: %v", err))
	}
	return fn
}

// Process runs one analysis. Terminal outcomes become a stored report with
// status failed; only unexpected errors are returned for a retry.
func (p *AnalysisProcessor) Process(ctx context.Context, data AnalysisRequestedEventData) (*models.AggregateReport, error) {
	report, err := p.analysisService.Analyze(ctx, data.Request)
	switch {
	case err == nil:
		report.ID = data.ReportID
		return report, nil
	case services.IsConfigurationError(err),
		errors.Is(err, services.ErrAllContextsFailed),
		errors.Is(err, services.ErrAnalysisTimeout):
		zerolog.Ctx(ctx).Warn().Err(err).Msg("analysis ended without a report")
		return FailedReport(data, err, time.Now()), nil
	default:
		return nil, err
	}
}

// FailedReport records a terminal failure under the requested report id.
func FailedReport(data AnalysisRequestedEventData, cause error, at time.Time) *models.AggregateReport {
	failure := services.NewAnalysisFailure(data.Request, cause, at)
	if services.IsConfigurationError(cause) {
		failure.Error = cause.Error()
	}
	return &models.AggregateReport{
		ID:              data.ReportID,
		Status:          models.ReportStatusFailed,
		Query:           failure.Query,
		Brand:           failure.Brand,
		Competitors:     append([]string{}, data.Request.Competitors...),
		Model:           data.Request.Model,
		Mode:            data.Request.Mode,
		Timestamp:       failure.Timestamp,
		ContextsFailed:  failure.ContextsFailed,
		Error:           failure.Error,
		Recommendations: []string{},
	}
}
