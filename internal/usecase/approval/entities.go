package approval

import (
	"time"

	"chama-approvals/internal/domain/approval"

	"github.com/shopspring/decimal"
)

type CreateInput struct {
	GroupID     string
	Type        approval.Type
	Amount      decimal.Decimal // at most 2 decimal places
	Description string
	RequestedBy string // authenticated member id
}

type SignInput struct {
	RequestID string
	SignerID  string // authenticated member id
	Approved  bool
	Comments  string
}

// Outcome tags a signature as an affirmative or a rejection vote.
type Outcome string

const (
	OutcomeApproved Outcome = "APPROVED"
	OutcomeRejected Outcome = "REJECTED"
)

func outcomeOf(approved bool) Outcome {
	if approved {
		return OutcomeApproved
	}
	return OutcomeRejected
}

type SignatureDTO struct {
	ID       string    `json:"id"`
	SignerID string    `json:"signer_id"`
	Outcome  Outcome   `json:"outcome"`
	Approved bool      `json:"approved"`
	Comments string    `json:"comments,omitempty"`
	SignedAt time.Time `json:"signed_at"`
}

// RequestDTO is the wire view of a request. Counts come from the signature ledger.
type RequestDTO struct {
	ID                string           `json:"id"`
	GroupID           string           `json:"group_id"`
	Type              approval.Type    `json:"approval_type"`
	Amount            decimal.Decimal  `json:"amount"`
	Description       string           `json:"description"`
	Status            approval.Status  `json:"status"`
	ApprovalsCount    int              `json:"approvals_count"`
	RejectionsCount   int              `json:"rejections_count"`
	RequiredApprovals int              `json:"required_approvals"`
	RequestedBy       string           `json:"requested_by"`
	RequestedByName   string           `json:"requested_by_name"`
	CreatedAt         time.Time        `json:"created_at"`
	FinalizedAt       *time.Time       `json:"finalized_at"`
	Reason            *approval.Reason `json:"resolution_reason,omitempty"`
	Signatures        []SignatureDTO   `json:"signatures"`
}

// FinalizationEvent is emitted at most once per request, after the terminal transition commits.
type FinalizationEvent struct {
	RequestID   string          `json:"request_id"`
	GroupID     string          `json:"group_id"`
	Type        approval.Type   `json:"approval_type"`
	Amount      decimal.Decimal `json:"amount"`
	FinalStatus approval.Status `json:"final_status"`
	Reason      approval.Reason `json:"reason"`
	FinalizedAt time.Time       `json:"finalized_at"`
}

func toDTO(r *approval.Request, t approval.Tally, sigs []approval.Signature) *RequestDTO {
	out := &RequestDTO{
		ID:                r.RequestID,
		GroupID:           r.GroupID,
		Type:              r.Type,
		Amount:            r.Amount,
		Description:       r.Description,
		Status:            r.Status,
		ApprovalsCount:    t.Approvals,
		RejectionsCount:   t.Rejections,
		RequiredApprovals: r.RequiredApprovals,
		RequestedBy:       r.RequestedBy,
		RequestedByName:   r.RequestedByName,
		CreatedAt:         r.CreatedAt,
		FinalizedAt:       r.FinalizedAt,
		Reason:            r.Reason,
		Signatures:        make([]SignatureDTO, 0, len(sigs)),
	}
	for _, s := range sigs {
		out.Signatures = append(out.Signatures, SignatureDTO{
			ID:       s.SignatureID,
			SignerID: s.SignerID,
			Outcome:  outcomeOf(s.Approved),
			Approved: s.Approved,
			Comments: s.Comments,
			SignedAt: s.SignedAt,
		})
	}
	return out
}
