package approval

import (
	"time"

	"github.com/shopspring/decimal"
)

type Type string

const (
	TypeLoan       Type = "LOAN"
	TypeExpense    Type = "EXPENSE"
	TypeWithdrawal Type = "WITHDRAWAL"
)

func (t Type) Valid() bool {
	switch t {
	case TypeLoan, TypeExpense, TypeWithdrawal:
		return true
	}
	return false
}

type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

// Terminal reports whether no further signatures or transitions are accepted.
func (s Status) Terminal() bool { return s == StatusApproved || s == StatusRejected }

func (s Status) Valid() bool {
	return s == StatusPending || s.Terminal()
}

// Reason records why a request left PENDING.
type Reason string

const (
	ReasonQuorumReached     Reason = "QUORUM_REACHED"
	ReasonQuorumUnreachable Reason = "QUORUM_UNREACHABLE"
	ReasonExpired           Reason = "EXPIRED"
)

// Table: approval_requests
type Request struct {
	// Internal numeric PK
	ID uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	// Public identifier (32-char lowercase hex)
	RequestID         string          `gorm:"column:request_id;type:char(32);not null;uniqueIndex:ux_approval_requests_request_id"`
	GroupID           string          `gorm:"column:group_id;type:varchar(64);not null;index:idx_approval_requests_group_status"`
	Type              Type            `gorm:"column:approval_type;type:varchar(16);not null"`
	Amount            decimal.Decimal `gorm:"column:amount;type:decimal(18,2);not null"`
	Description       string          `gorm:"column:description;type:text;not null"`
	RequestedBy       string          `gorm:"column:requested_by;type:varchar(64);not null"`
	RequestedByName   string          `gorm:"column:requested_by_name;type:varchar(255)"`
	RequiredApprovals int             `gorm:"column:required_approvals;not null"`
	Status            Status          `gorm:"column:status;type:varchar(16);not null;default:PENDING;index:idx_approval_requests_group_status"`
	Reason            *Reason         `gorm:"column:resolution_reason;type:varchar(32)"`
	CreatedAt         time.Time       `gorm:"column:created_at;autoCreateTime;index"`
	FinalizedAt       *time.Time      `gorm:"column:finalized_at"`
}

func (Request) TableName() string { return "approval_requests" }

// Pending is true while status is PENDING. FinalizedAt is nil exactly when Pending.
func (r *Request) Pending() bool { return r.Status == StatusPending }

// Table: approval_signatures. One row per (request, signer), enforced by ux_approval_signatures_request_signer.
type Signature struct {
	ID          uint64    `gorm:"column:id;primaryKey;autoIncrement"`
	SignatureID string    `gorm:"column:signature_id;type:char(32);not null;uniqueIndex:ux_approval_signatures_signature_id"`
	RequestID   uint64    `gorm:"column:request_id;not null;uniqueIndex:ux_approval_signatures_request_signer,priority:1"`
	SignerID    string    `gorm:"column:signer_id;type:varchar(64);not null;uniqueIndex:ux_approval_signatures_request_signer,priority:2"`
	Approved    bool      `gorm:"column:approved;not null"`
	Comments    string    `gorm:"column:comments;type:text"`
	SignedAt    time.Time `gorm:"column:signed_at;not null"`
}

func (Signature) TableName() string { return "approval_signatures" }

// Tally is derived from the signature ledger, never stored.
type Tally struct {
	Approvals    int
	Rejections   int
	TotalSigners int
}

// Filter narrows List. Zero values mean "any".
type Filter struct {
	GroupID string
	Status  Status
	Limit   int
	Offset  int
}
