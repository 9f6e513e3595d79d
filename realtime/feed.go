package realtime

import (
	"context"
	"slices"
)

// Subscription filters a table's change stream by equality on one column.
type Subscription struct {
	Table  string
	Column string
	Value  string
	Types  []ChangeType
}

func (s Subscription) Wants(t ChangeType) bool {
	return len(s.Types) == 0 || slices.Contains(s.Types, t)
}

type Handle interface {
	Unsubscribe() error
}

// Feed is the change-subscription primitive of the backing data service.
// Subscribe delivers matching envelopes on the feed's own goroutine until the
// handle is unsubscribed. Publish writes a row change, which fans back out to
// every matching subscriber; it is how the client persists typing rows and
// delivery/read transitions.
type Feed interface {
	Subscribe(ctx context.Context, sub Subscription, fn func(Envelope)) (Handle, error)
	Publish(ctx context.Context, table, column, value string, env Envelope) error
}
