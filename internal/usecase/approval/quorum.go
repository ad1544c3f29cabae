package approval

import "chama-approvals/internal/domain/approval"

// Evaluate maps a tally to the status it implies. A request is rejected as soon as
// quorum cannot be reached even if every remaining authorized signer approves.
func Evaluate(required, approvals, rejections, totalAuthorized int) approval.Status {
	if approvals >= required {
		return approval.StatusApproved
	}
	if rejections > totalAuthorized-required {
		return approval.StatusRejected
	}
	return approval.StatusPending
}

func reasonFor(s approval.Status) approval.Reason {
	if s == approval.StatusApproved {
		return approval.ReasonQuorumReached
	}
	return approval.ReasonQuorumUnreachable
}
