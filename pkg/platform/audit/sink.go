package audit

import "context"

// Sink is the delivery backend for audit events. Implementations must be
// safe for concurrent use.
type Sink interface {
	Append(ctx context.Context, event Event) error
	Close() error
}
