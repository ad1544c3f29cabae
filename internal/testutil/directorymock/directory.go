package directorymock

import (
	"context"

	"chama-approvals/internal/domain/approval"
	"chama-approvals/internal/domain/directory"
)

var _ directory.SignerDirectory = (*Directory)(nil)

// Directory is a function-backed mock that satisfies directory.SignerDirectory.
// Only methods you need are included; unset ones fall back to Static (when set)
// or to context.Canceled.
type Directory struct {
	ResolveQuorumFn       func(ctx context.Context, groupID string, t approval.Type) (directory.Quorum, error)
	IsRequestAuthorizedFn func(ctx context.Context, groupID string, t approval.Type, requesterID string) (bool, error)
	MemberNameFn          func(ctx context.Context, groupID, memberID string) (string, error)
	IsMemberFn            func(ctx context.Context, groupID, memberID string) (bool, error)
}

// Static answers every group with the same quorum. The signers are the whole
// membership and any of them may raise requests.
func Static(required int, signers ...string) *Directory {
	q := directory.Quorum{RequiredApprovals: required, Signers: make(map[string]struct{}, len(signers))}
	for _, s := range signers {
		q.Signers[s] = struct{}{}
	}
	return &Directory{
		ResolveQuorumFn: func(context.Context, string, approval.Type) (directory.Quorum, error) {
			return q, nil
		},
		IsRequestAuthorizedFn: func(_ context.Context, _ string, _ approval.Type, requesterID string) (bool, error) {
			return q.IsSigner(requesterID), nil
		},
		MemberNameFn: func(_ context.Context, _ string, memberID string) (string, error) {
			return "Member " + memberID, nil
		},
		IsMemberFn: func(_ context.Context, _ string, memberID string) (bool, error) {
			return q.IsSigner(memberID), nil
		},
	}
}

func (m *Directory) ResolveQuorum(ctx context.Context, groupID string, t approval.Type) (directory.Quorum, error) {
	if m.ResolveQuorumFn != nil {
		return m.ResolveQuorumFn(ctx, groupID, t)
	}
	return directory.Quorum{}, context.Canceled
}

func (m *Directory) IsRequestAuthorized(ctx context.Context, groupID string, t approval.Type, requesterID string) (bool, error) {
	if m.IsRequestAuthorizedFn != nil {
		return m.IsRequestAuthorizedFn(ctx, groupID, t, requesterID)
	}
	return false, context.Canceled
}

func (m *Directory) MemberName(ctx context.Context, groupID, memberID string) (string, error) {
	if m.MemberNameFn != nil {
		return m.MemberNameFn(ctx, groupID, memberID)
	}
	return "", context.Canceled
}

func (m *Directory) IsMember(ctx context.Context, groupID, memberID string) (bool, error) {
	if m.IsMemberFn != nil {
		return m.IsMemberFn(ctx, groupID, memberID)
	}
	return false, context.Canceled
}
