package clients

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DispatchStarted is the correlation payload pushed to the automation
// gateway when a door event opens a dispatch.
type DispatchStarted struct {
	EventID     int64  `json:"event_id"`
	DispatchID  int64  `json:"dispatch_id"`
	StationID   string `json:"station_id"`
	CompanyCode string `json:"company_code"`
	CompanyName string `json:"company_name"`
	Ts          string `json:"ts"`
}

// AutomationClient notifies the downstream automation gateway (Node-RED).
// Notification is best effort: the local write already succeeded and must not
// be rolled back or blocked on the gateway being unreachable.
type AutomationClient struct {
	webhookURL string
	client     HTTPDoer
	logger     *zap.Logger
}

// NewAutomationClient builds the notifier. Empty webhook URL disables it.
func NewAutomationClient(webhookURL string, timeout time.Duration, logger *zap.Logger) *AutomationClient {
	return &AutomationClient{
		webhookURL: strings.TrimSpace(webhookURL),
		client:     NewDefaultHTTPClient(timeout),
		logger:     logger,
	}
}

// NotifyDispatchStarted fires the webhook, swallowing all failures.
func (c *AutomationClient) NotifyDispatchStarted(ctx context.Context, payload DispatchStarted) {
	if c.webhookURL == "" {
		return
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, strings.NewReader(string(body)))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn("automation notify failed", zap.Error(err))
		return
	}
	resp.Body.Close()
}
