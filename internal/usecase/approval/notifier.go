package approval

import "context"

// Notifier hands terminal transitions to the funds ledger side.
type Notifier interface {
	NotifyFinalized(ctx context.Context, ev FinalizationEvent) error
}

type NotifierFunc func(ctx context.Context, ev FinalizationEvent) error

func (f NotifierFunc) NotifyFinalized(ctx context.Context, ev FinalizationEvent) error {
	return f(ctx, ev)
}
