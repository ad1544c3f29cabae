package approval

import (
	"context"
	"errors"
	"fmt"
	"time"

	domainApproval "chama-approvals/internal/domain/approval"
	"chama-approvals/internal/domain/directory"
	"chama-approvals/internal/domain/uow"
	"chama-approvals/pkg/id"

	"github.com/rs/zerolog/log"
)

var errNoUnitOfWork = errors.New("approval: unit of work not configured")

const (
	expiryBatchSize = 100
	notifyTimeout   = 10 * time.Second
)

type Usecase struct {
	requestRepo domainApproval.RequestRepository
	uow         uow.UnitOfWork
	dir         directory.SignerDirectory
	notifier    Notifier
	now         func() time.Time
}

// NewUsecase: requests serves single-statement reads and writes; everything that
// touches signatures goes through tx. A nil notifier drops finalization events.
func NewUsecase(requests domainApproval.RequestRepository, tx uow.UnitOfWork,
	dir directory.SignerDirectory, n Notifier) *Usecase {
	return &Usecase{
		requestRepo: requests,
		uow:         tx,
		dir:         dir,
		notifier:    n,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the time source; used by tests.
func (u *Usecase) WithClock(now func() time.Time) *Usecase {
	u.now = now
	return u
}

func (u *Usecase) Create(ctx context.Context, in CreateInput) (*RequestDTO, error) {
	if !in.Type.Valid() {
		return nil, domainApproval.ErrInvalidType
	}
	if !in.Amount.IsPositive() || !in.Amount.Equal(in.Amount.Round(2)) {
		return nil, domainApproval.ErrInvalidAmount
	}

	ok, err := u.dir.IsRequestAuthorized(ctx, in.GroupID, in.Type, in.RequestedBy)
	if err != nil {
		return nil, fmt.Errorf("check requester: %w", err)
	}
	if !ok {
		return nil, domainApproval.ErrUnauthorizedRequester
	}

	// Snapshot quorum now; later policy changes must not touch this request.
	q, err := u.dir.ResolveQuorum(ctx, in.GroupID, in.Type)
	if err != nil {
		return nil, fmt.Errorf("resolve quorum: %w", err)
	}
	if q.RequiredApprovals <= 0 || q.RequiredApprovals > len(q.Signers) {
		return nil, domainApproval.ErrQuorumUnreachable
	}

	name, err := u.dir.MemberName(ctx, in.GroupID, in.RequestedBy)
	if err != nil {
		log.Warn().Err(err).Str("group_id", in.GroupID).Str("member_id", in.RequestedBy).
			Msg("approval: requester name unavailable")
	}

	r := &domainApproval.Request{
		RequestID:         id.NewID32(),
		GroupID:           in.GroupID,
		Type:              in.Type,
		Amount:            in.Amount,
		Description:       in.Description,
		RequestedBy:       in.RequestedBy,
		RequestedByName:   name,
		RequiredApprovals: q.RequiredApprovals,
		Status:            domainApproval.StatusPending,
		CreatedAt:         u.now(),
	}
	if err := u.requestRepo.Create(ctx, r); err != nil {
		return nil, err
	}

	log.Info().Str("request_id", r.RequestID).Str("group_id", r.GroupID).Str("type", string(r.Type)).
		Int("required_approvals", r.RequiredApprovals).Msg("approval request created")
	return toDTO(r, domainApproval.Tally{}, nil), nil
}

// Get reads the request, its tally and its signatures in one transaction so the
// counts always match the listed signatures. Viewers outside the group get ErrNotFound.
func (u *Usecase) Get(ctx context.Context, requestID, viewerID string) (*RequestDTO, error) {
	if u.uow == nil {
		return nil, errNoUnitOfWork
	}

	var dto *RequestDTO
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		req, err := r.Requests.GetByRequestID(ctx, requestID)
		if err != nil {
			return err
		}
		t, err := r.Signatures.Tally(ctx, req.ID)
		if err != nil {
			return err
		}
		sigs, err := r.Signatures.ListByRequest(ctx, req.ID)
		if err != nil {
			return err
		}
		dto = toDTO(req, t, sigs)
		return nil
	})
	if err != nil {
		return nil, err
	}

	ok, err := u.dir.IsMember(ctx, dto.GroupID, viewerID)
	if err != nil {
		return nil, fmt.Errorf("check membership: %w", err)
	}
	if !ok {
		return nil, domainApproval.ErrNotFound
	}
	return dto, nil
}

// List pages through one group's requests. Only members of f.GroupID may list it.
func (u *Usecase) List(ctx context.Context, viewerID string, f domainApproval.Filter) ([]RequestDTO, error) {
	if u.uow == nil {
		return nil, errNoUnitOfWork
	}
	ok, err := u.dir.IsMember(ctx, f.GroupID, viewerID)
	if err != nil {
		return nil, fmt.Errorf("check membership: %w", err)
	}
	if !ok {
		return nil, domainApproval.ErrNotGroupMember
	}

	var out []RequestDTO
	err = u.uow.WithinTx(ctx, func(r uow.Repos) error {
		rows, err := r.Requests.List(ctx, f)
		if err != nil {
			return err
		}
		ids := make([]uint64, 0, len(rows))
		for _, row := range rows {
			ids = append(ids, row.ID)
		}
		tallies, err := r.Signatures.TallyMany(ctx, ids)
		if err != nil {
			return err
		}
		sigs, err := r.Signatures.ListByRequests(ctx, ids)
		if err != nil {
			return err
		}
		out = make([]RequestDTO, 0, len(rows))
		for i := range rows {
			row := &rows[i]
			out = append(out, *toDTO(row, tallies[row.ID], sigs[row.ID]))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SubmitSignature records one vote and applies the quorum rule. Everything from the
// pending check to the status transition runs under the request row lock, so two
// concurrent votes on one request never both see a pre-quorum tally.
func (u *Usecase) SubmitSignature(ctx context.Context, in SignInput) (*RequestDTO, error) {
	if u.uow == nil {
		return nil, errNoUnitOfWork
	}

	// group and type are immutable, so the directory is consulted before locking.
	pre, err := u.requestRepo.GetByRequestID(ctx, in.RequestID)
	if err != nil {
		return nil, err
	}
	if !pre.Pending() {
		return nil, domainApproval.ErrRequestNotPending
	}
	q, err := u.dir.ResolveQuorum(ctx, pre.GroupID, pre.Type)
	if err != nil {
		return nil, fmt.Errorf("resolve quorum: %w", err)
	}
	if !q.IsSigner(in.SignerID) {
		return nil, domainApproval.ErrNotAuthorizedSigner
	}

	var (
		dto *RequestDTO
		ev  *FinalizationEvent
	)
	err = u.uow.WithinRequestTx(ctx, in.RequestID, func(r uow.Repos, req *domainApproval.Request) error {
		if !req.Pending() {
			return domainApproval.ErrRequestNotPending
		}

		sig := &domainApproval.Signature{
			SignatureID: id.NewID32(),
			RequestID:   req.ID,
			SignerID:    in.SignerID,
			Approved:    in.Approved,
			Comments:    in.Comments,
			SignedAt:    u.now(),
		}
		if err := r.Signatures.Append(ctx, sig); err != nil {
			return err
		}

		t, err := r.Signatures.Tally(ctx, req.ID)
		if err != nil {
			return err
		}
		sigs, err := r.Signatures.ListByRequest(ctx, req.ID)
		if err != nil {
			return err
		}

		next := Evaluate(req.RequiredApprovals, t.Approvals, t.Rejections, authorizedTotal(q, sigs))
		if next != domainApproval.StatusPending {
			at := u.now()
			reason := reasonFor(next)
			if err := r.Requests.Transition(ctx, req.ID, next, reason, at); err != nil {
				return err
			}
			req.Status, req.Reason, req.FinalizedAt = next, &reason, &at
			ev = eventFor(req)
		}

		dto = toDTO(req, t, sigs)
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("request_id", in.RequestID).Str("signer_id", in.SignerID).Bool("approved", in.Approved).
		Int("approvals", dto.ApprovalsCount).Int("rejections", dto.RejectionsCount).
		Str("status", string(dto.Status)).Msg("approval signature recorded")

	if ev != nil {
		u.notify(ctx, *ev)
	}
	return dto, nil
}

// ExpireStale rejects every request still PENDING that was created before cutoff.
// It returns how many requests were expired by this call. Each stale request is
// attempted once per call; failures are joined into the returned error.
func (u *Usecase) ExpireStale(ctx context.Context, cutoff time.Time) (int, error) {
	if u.uow == nil {
		return 0, errNoUnitOfWork
	}

	expired := 0
	var (
		errs    []error
		afterID uint64
	)
	for {
		batch, err := u.requestRepo.ListPendingCreatedBefore(ctx, cutoff, afterID, expiryBatchSize)
		if err != nil {
			return expired, errors.Join(append(errs, err)...)
		}

		for _, p := range batch {
			afterID = p.ID
			var ev *FinalizationEvent
			err := u.uow.WithinRequestTx(ctx, p.RequestID, func(r uow.Repos, req *domainApproval.Request) error {
				if !req.Pending() {
					return nil
				}
				at := u.now()
				if err := r.Requests.Transition(ctx, req.ID, domainApproval.StatusRejected, domainApproval.ReasonExpired, at); err != nil {
					return err
				}
				reason := domainApproval.ReasonExpired
				req.Status, req.Reason, req.FinalizedAt = domainApproval.StatusRejected, &reason, &at
				ev = eventFor(req)
				return nil
			})
			if err != nil {
				log.Error().Err(err).Str("request_id", p.RequestID).Msg("approval: expire failed")
				errs = append(errs, fmt.Errorf("expire %s: %w", p.RequestID, err))
				continue
			}
			if ev != nil {
				expired++
				u.notify(ctx, *ev)
			}
		}
		if len(batch) < expiryBatchSize {
			break
		}
	}
	return expired, errors.Join(errs...)
}

func (u *Usecase) notify(ctx context.Context, ev FinalizationEvent) {
	if u.notifier == nil {
		return
	}
	// The transition is already committed, so delivery does not follow the caller's
	// cancellation. A delivery failure is logged, not returned.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()
	if err := u.notifier.NotifyFinalized(ctx, ev); err != nil {
		log.Error().Err(err).Str("request_id", ev.RequestID).Str("final_status", string(ev.FinalStatus)).
			Msg("approval: finalization notify failed")
	}
}

func eventFor(r *domainApproval.Request) *FinalizationEvent {
	ev := &FinalizationEvent{
		RequestID:   r.RequestID,
		GroupID:     r.GroupID,
		Type:        r.Type,
		Amount:      r.Amount,
		FinalStatus: r.Status,
	}
	if r.Reason != nil {
		ev.Reason = *r.Reason
	}
	if r.FinalizedAt != nil {
		ev.FinalizedAt = *r.FinalizedAt
	}
	return ev
}

// authorizedTotal counts the current signer set plus anyone who already voted but
// has since left it, so remaining possible approvals never goes negative.
func authorizedTotal(q directory.Quorum, sigs []domainApproval.Signature) int {
	total := len(q.Signers)
	for _, s := range sigs {
		if !q.IsSigner(s.SignerID) {
			total++
		}
	}
	return total
}
