package audit

import "context"

// noOpClient is used when audit logging is not configured
type noOpClient struct{}

func (c *noOpClient) LogEvent(ctx context.Context, event Event) error {
	return nil
}

func (c *noOpClient) Close(ctx context.Context) error {
	return nil
}
