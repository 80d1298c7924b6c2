package workflows

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/AI-Template-SDK/senso-visibility/internal/models"
)

type SlackPayload struct {
	Text string `json:"text"`
}

// SlackNotifier posts terminal analysis failures to a Slack incoming webhook.
type SlackNotifier struct {
	webhookURL string
	client     *retryablehttp.Client
}

func NewSlackNotifier(webhookURL string) *SlackNotifier {
	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.RetryWaitMin = 200 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	client.HTTPClient.Timeout = 5 * time.Second
	client.Logger = nil

	return &SlackNotifier{webhookURL: webhookURL, client: client}
}

// FailureMessage formats the alert text for a failed report.
func FailureMessage(report *models.AggregateReport) string {
	return fmt.Sprintf(
		":rotating_light: *Visibility Analysis Failed*\n"+
			"*Report:* %s\n"+
			"*Brand:* %s\n"+
			"*Query:* %s\n"+
			"*Contexts failed:* %d\n"+
			"*Time:* %s\n"+
			"*Error:* ```%s```",
		report.ID,
		report.Brand,
		report.Query,
		report.ContextsFailed,
		report.Timestamp.UTC().Format(time.RFC3339),
		report.Error,
	)
}

func (n *SlackNotifier) NotifyFailure(ctx context.Context, report *models.AggregateReport) error {
	body, err := json.Marshal(SlackPayload{Text: FailureMessage(report)})
	if err != nil {
		return err
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("slack webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("slack webhook returned status %d", resp.StatusCode)
	}
	return nil
}
