package ledger

import "context"

// Store is the durable record of completed slot dispatches. Implementations
// must re-read durable state on every call: after a crash or a concurrent
// instance's write, the next IsSent decision has to see it.
type Store interface {
	IsSent(ctx context.Context, key string) (bool, error)
	Record(ctx context.Context, key string) error
}
