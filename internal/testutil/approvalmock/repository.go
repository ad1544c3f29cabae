package approvalmock

import (
	"context"
	"time"

	domain "chama-approvals/internal/domain/approval"
)

// Ensure compile-time compliance
var (
	_ domain.RequestRepository   = (*RequestRepo)(nil)
	_ domain.SignatureRepository = (*SignatureRepo)(nil)
)

// RequestRepo is a function-backed mock that satisfies domain.RequestRepository.
// Unset lookups return context.Canceled so a test notices an unexpected call.
type RequestRepo struct {
	CreateFn                   func(ctx context.Context, r *domain.Request) error
	GetByRequestIDFn           func(ctx context.Context, requestID string) (*domain.Request, error)
	GetByRequestIDForUpdateFn  func(ctx context.Context, requestID string) (*domain.Request, error)
	ListFn                     func(ctx context.Context, f domain.Filter) ([]domain.Request, error)
	ListPendingCreatedBeforeFn func(ctx context.Context, cutoff time.Time, afterID uint64, limit int) ([]domain.Request, error)
	TransitionFn               func(ctx context.Context, id uint64, to domain.Status, reason domain.Reason, at time.Time) error
}

func (m *RequestRepo) Create(ctx context.Context, r *domain.Request) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, r)
	}
	return nil
}

func (m *RequestRepo) GetByRequestID(ctx context.Context, requestID string) (*domain.Request, error) {
	if m.GetByRequestIDFn != nil {
		return m.GetByRequestIDFn(ctx, requestID)
	}
	return nil, context.Canceled
}

func (m *RequestRepo) GetByRequestIDForUpdate(ctx context.Context, requestID string) (*domain.Request, error) {
	if m.GetByRequestIDForUpdateFn != nil {
		return m.GetByRequestIDForUpdateFn(ctx, requestID)
	}
	return nil, context.Canceled
}

func (m *RequestRepo) List(ctx context.Context, f domain.Filter) ([]domain.Request, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx, f)
	}
	return nil, nil
}

func (m *RequestRepo) ListPendingCreatedBefore(ctx context.Context, cutoff time.Time, afterID uint64, limit int) ([]domain.Request, error) {
	if m.ListPendingCreatedBeforeFn != nil {
		return m.ListPendingCreatedBeforeFn(ctx, cutoff, afterID, limit)
	}
	return nil, nil
}

func (m *RequestRepo) Transition(ctx context.Context, id uint64, to domain.Status, reason domain.Reason, at time.Time) error {
	if m.TransitionFn != nil {
		return m.TransitionFn(ctx, id, to, reason, at)
	}
	return nil
}

// SignatureRepo is a function-backed mock that satisfies domain.SignatureRepository.
type SignatureRepo struct {
	AppendFn         func(ctx context.Context, s *domain.Signature) error
	TallyFn          func(ctx context.Context, requestID uint64) (domain.Tally, error)
	TallyManyFn      func(ctx context.Context, requestIDs []uint64) (map[uint64]domain.Tally, error)
	ListByRequestFn  func(ctx context.Context, requestID uint64) ([]domain.Signature, error)
	ListByRequestsFn func(ctx context.Context, requestIDs []uint64) (map[uint64][]domain.Signature, error)
}

func (m *SignatureRepo) Append(ctx context.Context, s *domain.Signature) error {
	if m.AppendFn != nil {
		return m.AppendFn(ctx, s)
	}
	return nil
}

func (m *SignatureRepo) Tally(ctx context.Context, requestID uint64) (domain.Tally, error) {
	if m.TallyFn != nil {
		return m.TallyFn(ctx, requestID)
	}
	return domain.Tally{}, nil
}

func (m *SignatureRepo) TallyMany(ctx context.Context, requestIDs []uint64) (map[uint64]domain.Tally, error) {
	if m.TallyManyFn != nil {
		return m.TallyManyFn(ctx, requestIDs)
	}
	return map[uint64]domain.Tally{}, nil
}

func (m *SignatureRepo) ListByRequest(ctx context.Context, requestID uint64) ([]domain.Signature, error) {
	if m.ListByRequestFn != nil {
		return m.ListByRequestFn(ctx, requestID)
	}
	return nil, nil
}

func (m *SignatureRepo) ListByRequests(ctx context.Context, requestIDs []uint64) (map[uint64][]domain.Signature, error) {
	if m.ListByRequestsFn != nil {
		return m.ListByRequestsFn(ctx, requestIDs)
	}
	return map[uint64][]domain.Signature{}, nil
}

// Ledger is an in-memory SignatureRepo backing store: Append enforces one vote
// per signer and Tally/ListByRequest read back what was appended.
type Ledger struct {
	Sigs []domain.Signature
}

func (l *Ledger) Repo() *SignatureRepo {
	return &SignatureRepo{
		AppendFn: func(_ context.Context, s *domain.Signature) error {
			for _, cur := range l.Sigs {
				if cur.RequestID == s.RequestID && cur.SignerID == s.SignerID {
					return domain.ErrDuplicateSignature
				}
			}
			s.ID = uint64(len(l.Sigs) + 1)
			l.Sigs = append(l.Sigs, *s)
			return nil
		},
		TallyFn: func(_ context.Context, requestID uint64) (domain.Tally, error) {
			var t domain.Tally
			for _, s := range l.Sigs {
				if s.RequestID != requestID {
					continue
				}
				if s.Approved {
					t.Approvals++
				} else {
					t.Rejections++
				}
			}
			return t, nil
		},
		ListByRequestFn: func(_ context.Context, requestID uint64) ([]domain.Signature, error) {
			var out []domain.Signature
			for _, s := range l.Sigs {
				if s.RequestID == requestID {
					out = append(out, s)
				}
			}
			return out, nil
		},
	}
}
