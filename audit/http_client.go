package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const auditLogsPath = "/api/audit-logs"

// httpClient posts events to the audit service
type httpClient struct {
	endpoint   string
	httpClient *http.Client
	inFlight   sync.WaitGroup
}

func newHTTPClient(baseURL string) *httpClient {
	return &httpClient{
		endpoint: strings.TrimRight(baseURL, "/") + auditLogsPath,
		// Short timeout so a slow audit service cannot pile up goroutines
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

// LogEvent validates and marshals the event, then sends it asynchronously
func (c *httpClient) LogEvent(ctx context.Context, event Event) error {
	if event.Timestamp == "" {
		event.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	if event.TraceID == nil {
		event.TraceID = StringPtr(uuid.NewString())
	}
	if event.Status == "" || event.ActorType == "" || event.ActorID == "" || event.TargetType == "" {
		return fmt.Errorf("missing required fields: status, actorType, actorId, or targetType")
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal audit event: %w", err)
	}

	// The request outlives the caller's request context
	req, err := http.NewRequestWithContext(context.WithoutCancel(ctx), http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create audit request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.inFlight.Add(1)
	go func() {
		defer c.inFlight.Done()

		resp, err := c.httpClient.Do(req)
		if err != nil {
			slog.Error("Failed to send audit event", "error", err, "traceId", *event.TraceID)
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 {
			respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
			slog.Error("Audit service returned error",
				"status", resp.StatusCode,
				"response", string(respBody),
				"traceId", *event.TraceID)
			return
		}

		slog.Debug("Audit event sent", "traceId", *event.TraceID, "status", event.Status)
	}()

	return nil
}

// Close waits for in-flight events or for ctx to end
func (c *httpClient) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.inFlight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("audit events still in flight: %w", ctx.Err())
	}
}
