package notifier

import (
	"context"
	"errors"

	ucApproval "chama-approvals/internal/usecase/approval"
)

// Multi delivers to every notifier and joins their errors.
type Multi []ucApproval.Notifier

func (m Multi) NotifyFinalized(ctx context.Context, ev ucApproval.FinalizationEvent) error {
	var errs []error
	for _, n := range m {
		if err := n.NotifyFinalized(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
