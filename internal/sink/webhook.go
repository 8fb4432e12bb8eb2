package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"vehiclepush/internal/constants"
	"vehiclepush/internal/logger"
)

const (
	webhookEnvelopeType = "vehiclepush.notification"
	webhookUserAgent    = "notify-service/v1"
)

// WebhookEnvelope is the JSON body POSTed to the notifier endpoint.
type WebhookEnvelope struct {
	Type          string             `json:"type"`
	SchemaVersion string             `json:"schemaVersion"`
	Timestamp     string             `json:"timestamp"`
	Data          SystemNotification `json:"data"`
}

// WebhookNotifier delivers system notifications with one synchronous POST.
// Failures are returned to the caller; nothing is retried.
type WebhookNotifier struct {
	httpClient *http.Client
	url        string
	logger     logger.Logger
}

func NewWebhookNotifier(rawURL string, timeout time.Duration, log logger.Logger) (*WebhookNotifier, error) {
	if rawURL == "" {
		return nil, fmt.Errorf("webhook URL is required")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid webhook URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("webhook URL must use http or https scheme, got %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("webhook URL must include a host")
	}
	if timeout <= 0 {
		timeout = constants.DefaultHTTPTimeout
	}

	return &WebhookNotifier{
		httpClient: &http.Client{Timeout: timeout},
		url:        rawURL,
		logger:     log.Named("webhook-notifier"),
	}, nil
}

func (w *WebhookNotifier) Notify(ctx context.Context, n SystemNotification) error {
	body, err := json.Marshal(WebhookEnvelope{
		Type:          webhookEnvelopeType,
		SchemaVersion: "1",
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Data:          n,
	})
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", webhookUserAgent)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request to %s failed: %w", RedactURL(w.url), err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook %s returned HTTP %d", RedactURL(w.url), resp.StatusCode)
	}

	w.logger.DebugwCtx(ctx, "System notification delivered",
		"title", n.Title,
		"status", resp.StatusCode,
	)
	return nil
}

// RedactURL masks credentials in a URL for safe logging.
func RedactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<invalid-url>"
	}
	redacted := u.Redacted()
	if u.RawQuery == "" {
		return redacted
	}

	q := u.Query()
	for key := range q {
		q.Set(key, "REDACTED")
	}
	r, err := url.Parse(redacted)
	if err != nil {
		return redacted
	}
	r.RawQuery = q.Encode()
	return r.String()
}
