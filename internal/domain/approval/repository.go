package approval

import (
	"context"
	"time"
)

type RequestRepository interface {
	Create(ctx context.Context, r *Request) error
	GetByRequestID(ctx context.Context, requestID string) (*Request, error)
	// GetByRequestIDForUpdate locks the row for the rest of the transaction.
	GetByRequestIDForUpdate(ctx context.Context, requestID string) (*Request, error)
	List(ctx context.Context, f Filter) ([]Request, error)
	// ListPendingCreatedBefore pages by id: only rows with id > afterID, in id order.
	ListPendingCreatedBefore(ctx context.Context, cutoff time.Time, afterID uint64, limit int) ([]Request, error)
	// Transition is the only write path for status. It fails with ErrAlreadyFinalized
	// when the row is no longer PENDING.
	Transition(ctx context.Context, id uint64, to Status, reason Reason, finalizedAt time.Time) error
}

type SignatureRepository interface {
	// Append fails with ErrDuplicateSignature when (requestID, signerID) already exists.
	Append(ctx context.Context, s *Signature) error
	Tally(ctx context.Context, requestID uint64) (Tally, error)
	TallyMany(ctx context.Context, requestIDs []uint64) (map[uint64]Tally, error)
	ListByRequest(ctx context.Context, requestID uint64) ([]Signature, error)
	ListByRequests(ctx context.Context, requestIDs []uint64) (map[uint64][]Signature, error)
}
