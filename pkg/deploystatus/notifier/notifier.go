package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/nais/deploystatus/pkg/deploystatus/metrics"
	"github.com/nais/deploystatus/pkg/telemetry"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	otrace "go.opentelemetry.io/otel/trace"
)

const (
	Message        = "Deployment status update completed"
	DefaultTimeout = 10 * time.Second

	// Only this much of an error response body is kept for the log message.
	maxErrorBody = 512
)

type Payload struct {
	Timestamp string `json:"timestamp"`
	Message   string `json:"message"`
}

func NewPayload(now time.Time) Payload {
	return Payload{
		Timestamp: now.Format(time.RFC3339Nano),
		Message:   Message,
	}
}

type Notifier struct {
	URL        string
	HTTPClient *http.Client
	Logger     log.FieldLogger
	Now        func() time.Time
}

func New(url string, timeout time.Duration, logger log.FieldLogger) *Notifier {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Notifier{
		URL: url,
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
		Logger: logger,
		Now:    time.Now,
	}
}

// Send posts a fresh payload to the notification endpoint.
// Transport failures and non-2xx responses are returned as errors; nothing is retried.
func (n *Notifier) Send(ctx context.Context) error {
	ctx, span := telemetry.Tracer().Start(ctx, "Send status notification")
	defer span.End()

	err := n.send(ctx)
	metrics.Notification(err)
	if err != nil {
		telemetry.Failed(span, err)
	}
	return err
}

func (n *Notifier) send(ctx context.Context) error {
	payload, err := json.Marshal(NewPayload(n.Now()))
	if err != nil {
		return fmt.Errorf("marshal notification payload: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, n.URL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := n.HTTPClient.Do(request)
	if err != nil {
		return err
	}
	defer response.Body.Close()

	otrace.SpanFromContext(ctx).SetAttributes(attribute.Int("http.status_code", response.StatusCode))

	if response.StatusCode < 200 || response.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(response.Body, maxErrorBody))
		return fmt.Errorf("%s: %s", response.Status, string(body))
	}

	_, _ = io.Copy(io.Discard, response.Body)

	n.Logger.WithField("status_code", response.StatusCode).
		Infof("Successfully made POST request. Status code: %d", response.StatusCode)

	return nil
}

// Run sends one notification and logs the outcome. It never fails; the next attempt is independent of this one.
func (n *Notifier) Run(ctx context.Context) {
	err := n.Send(ctx)
	if err != nil {
		n.Logger.Errorf("Error making POST request: %s", err)
	}
}
