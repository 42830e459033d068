package audit

import (
	"context"
	"encoding/json"
	"log/slog"
)

// Status values
const (
	StatusSuccess = "SUCCESS"
	StatusFailure = "FAILURE"
)

// Event types emitted by the identity service
const (
	EventUserRegistration     = "USER_REGISTRATION"
	EventPasswordVerification = "PASSWORD_VERIFICATION"
	EventFaceVerification     = "FACE_VERIFICATION"
	EventUserLookup           = "USER_LOOKUP"
)

// Event is the audit log payload. Metadata must never carry passwords,
// images or face encodings.
type Event struct {
	TraceID            *string         `json:"traceId,omitempty"`
	Timestamp          string          `json:"timestamp"`
	EventType          *string         `json:"eventType,omitempty"`
	EventAction        *string         `json:"eventAction,omitempty"`
	Status             string          `json:"status"`
	ActorType          string          `json:"actorType"`
	ActorID            string          `json:"actorId"`
	TargetType         string          `json:"targetType"`
	TargetID           *string         `json:"targetId,omitempty"`
	RequestMetadata    json.RawMessage `json:"requestMetadata,omitempty"`
	ResponseMetadata   json.RawMessage `json:"responseMetadata,omitempty"`
	AdditionalMetadata json.RawMessage `json:"additionalMetadata,omitempty"`
}

// Client logs audit events without blocking the caller
type Client interface {
	// LogEvent sends the event in the background; a returned error means the
	// event was rejected before sending
	LogEvent(ctx context.Context, event Event) error

	// Close waits for in-flight events
	Close(ctx context.Context) error
}

// NewClient returns an HTTP client for the audit service, or a no-op client
// when no URL is configured
func NewClient(auditServiceURL string) Client {
	if auditServiceURL == "" {
		slog.Info("Audit service URL not provided, using no-op client")
		return &noOpClient{}
	}
	return newHTTPClient(auditServiceURL)
}

// StringPtr is a helper for the optional event fields
func StringPtr(s string) *string {
	return &s
}
