// workflows/scheduled_processor.go
package workflows

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/inngest/inngestgo"
	"github.com/inngest/inngestgo/step"
	"github.com/rs/zerolog"

	"github.com/AI-Template-SDK/senso-visibility/internal/config"
	"github.com/AI-Template-SDK/senso-visibility/internal/models"
)

// TrackedSource lists the brand and query pairs analysed recently.
type TrackedSource interface {
	Tracked(ctx context.Context, since time.Time, limit int) ([]models.AnalysisRequest, error)
}

// ScheduledProcessor re-runs recently tracked analyses on a cron so each
// brand keeps a fresh score history.
type ScheduledProcessor struct {
	tracked TrackedSource
	cfg     config.RefreshConfig
	client  inngestgo.Client
	logger  zerolog.Logger
}

func NewScheduledProcessor(tracked TrackedSource, cfg config.RefreshConfig, logger zerolog.Logger) *ScheduledProcessor {
	return &ScheduledProcessor{
		tracked: tracked,
		cfg:     cfg,
		logger:  logger,
	}
}

func (p *ScheduledProcessor) SetClient(client inngestgo.Client) {
	p.client = client
}

// RefreshEvent builds the analysis event for one tracked request.
func RefreshEvent(req models.AnalysisRequest, at time.Time) (string, inngestgo.Event) {
	id := uuid.NewString()
	return id, NewAnalysisRequestedEvent(id, req, at)
}

func (p *ScheduledProcessor) RefreshTrackedBrands() inngestgo.ServableFunction {
	fn, err := inngestgo.CreateFunction(
		p.client,
		inngestgo.FunctionOpts{
			ID:   "refresh-tracked-brands",
			Name: "Refresh Tracked Brand Visibility",
		},
		inngestgo.CronTrigger(p.cfg.Cron),
		func(ctx context.Context, input inngestgo.Input[any]) (any, error) {
			now := time.Now().UTC()
			since := now.Add(-p.cfg.Window)

			requests, err := step.Run(ctx, "list-tracked-analyses", func(ctx context.Context) ([]models.AnalysisRequest, error) {
				return p.tracked.Tracked(ctx, since, p.cfg.Limit)
			})
			if err != nil {
				return nil, fmt.Errorf("failed to list tracked analyses since %s: %w", since.Format(time.RFC3339), err)
			}

			queued := 0
			for i, req := range requests {
				// One step per request so a retry only resends what did not go out.
				stepName := fmt.Sprintf("queue-refresh-%d", i)
				_, err := step.Run(ctx, stepName, func(ctx context.Context) (string, error) {
					_, evt := RefreshEvent(req, now)
					return p.client.Send(ctx, evt)
				})
				if err != nil {
					p.logger.Warn().Err(err).Str("brand", req.Brand).Str("query", req.Query).Msg("failed to queue refresh")
					continue
				}
				queued++
			}

			p.logger.Info().Int("tracked", len(requests)).Int("queued", queued).Msg("scheduled refresh finished")
			return map[string]any{
				"execution_date": now.Format("2006-01-02"),
				"window_start":   since,
				"tracked":        len(requests),
				"queued":         queued,
			}, nil
		},
	)
	if err != nil {
		panic(fmt.Sprintf("failed to create refresh-tracked-brands function: %v", err))
	}
	return fn
}
