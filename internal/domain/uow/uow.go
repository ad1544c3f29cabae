package uow

import (
	"chama-approvals/internal/domain/approval"
	"context"
)

// domain/uow/uow.go
type Repos struct {
	Requests   approval.RequestRepository
	Signatures approval.SignatureRepository
}

type UnitOfWork interface {
	// plain tx
	WithinTx(ctx context.Context, fn func(r Repos) error) error
	// convenience: lock the approval request row first, then pass it in
	WithinRequestTx(ctx context.Context, requestID string, fn func(r Repos, req *approval.Request) error) error
}
