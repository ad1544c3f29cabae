package approval

import "errors"

var (
	ErrNotFound              = errors.New("approval request not found")
	ErrInvalidAmount         = errors.New("amount must be positive with at most 2 decimal places")
	ErrInvalidType           = errors.New("approval type must be one of LOAN, EXPENSE, WITHDRAWAL")
	ErrUnauthorizedRequester = errors.New("member may not raise this approval type")
	ErrQuorumUnreachable     = errors.New("group has fewer authorized signers than the required approvals")
	ErrNotAuthorizedSigner   = errors.New("member is not an authorized signer for this request")
	ErrDuplicateSignature    = errors.New("member has already signed this request")
	ErrRequestNotPending     = errors.New("approval request is no longer pending")
	ErrAlreadyFinalized      = errors.New("approval request already finalized")
	ErrNotGroupMember        = errors.New("member does not belong to this group")
)
