package testutil

import (
	"context"
	"sync"

	"github.com/ganeshkumar0x/Backend-Lysa-Exam-App/audit"
)

// AuditRecorder is an audit.Client that keeps every event in memory
type AuditRecorder struct {
	mu     sync.Mutex
	events []audit.Event
}

// LogEvent records the event
func (r *AuditRecorder) LogEvent(ctx context.Context, event audit.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

// Close is a no-op
func (r *AuditRecorder) Close(ctx context.Context) error {
	return nil
}

// Events returns a copy of the recorded events
func (r *AuditRecorder) Events() []audit.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]audit.Event(nil), r.events...)
}
